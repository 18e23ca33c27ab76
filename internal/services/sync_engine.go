package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/agroflow/domain"
	"github.com/fastygo/agroflow/internal/infrastructure/metrics"
	"github.com/fastygo/agroflow/repository"
	"github.com/fastygo/agroflow/usecase"
)

// ConnectionHealth abstracts the connectivity monitor.
type ConnectionHealth interface {
	IsOnline() bool
	Subscribe(fn func()) (cancel func())
}

// EngineConfig tunes the sync engine.
type EngineConfig struct {
	// RemoteTimeout bounds each remote call; zero leaves calls bounded only
	// by the caller's context.
	RemoteTimeout time.Duration
}

// PassResult describes one drain pass.
type PassResult struct {
	Offline   bool `json:"offline"`
	Synced    int  `json:"synced"`
	Remaining int  `json:"remaining"`

	// FailedEntry is the id of the entry that halted the pass, if any.
	FailedEntry string `json:"failed_entry,omitempty"`
}

// SyncEngine drains the outbox against the remote backend in insertion order.
// A pass stops at the first failing entry, which stays at the head of the
// outbox for the next pass. Passes never overlap.
type SyncEngine struct {
	outbox  usecase.Outbox
	remote  repository.RemoteStore
	monitor ConnectionHealth
	metrics *metrics.Metrics
	logger  *zap.Logger
	cfg     EngineConfig

	passMu sync.Mutex

	lifeMu      sync.Mutex
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

func NewSyncEngine(
	outbox usecase.Outbox,
	remote repository.RemoteStore,
	monitor ConnectionHealth,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg EngineConfig,
) *SyncEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncEngine{
		outbox:  outbox,
		remote:  remote,
		monitor: monitor,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
	}
}

// Start runs the startup pass in the background and then one pass on every
// offline-to-online transition reported by the monitor.
func (e *SyncEngine) Start(ctx context.Context) {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if e.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.trigger(runCtx, "startup")
	if e.monitor != nil {
		e.unsubscribe = e.monitor.Subscribe(func() { e.trigger(runCtx, "online") })
	}
	e.logger.Info("sync engine started")
}

// Stop unsubscribes from the monitor and waits for in-flight passes.
func (e *SyncEngine) Stop(ctx context.Context) {
	e.lifeMu.Lock()
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.lifeMu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	e.logger.Info("sync engine stopped")
}

// Drain runs one pass and reports only whether it halted.
func (e *SyncEngine) Drain(ctx context.Context) error {
	_, err := e.Pass(ctx)
	return err
}

// Pass runs one drain pass. When offline it makes no remote call and leaves
// the outbox untouched.
func (e *SyncEngine) Pass(ctx context.Context) (PassResult, error) {
	if e == nil || e.outbox == nil || e.remote == nil {
		return PassResult{}, fmt.Errorf("sync engine not configured")
	}

	e.passMu.Lock()
	defer e.passMu.Unlock()

	if e.monitor != nil && !e.monitor.IsOnline() {
		e.logger.Debug("skipping outbox drain (offline)")
		e.metrics.Pass(metrics.OutcomeOffline)
		return PassResult{Offline: true}, nil
	}

	entries, err := e.outbox.PeekAll(ctx)
	if err != nil {
		return PassResult{}, fmt.Errorf("read outbox: %w", err)
	}
	if len(entries) == 0 {
		e.metrics.Pass(metrics.OutcomeEmpty)
		e.metrics.Pending(0)
		return PassResult{}, nil
	}

	var result PassResult
	for i, entry := range entries {
		if err := e.apply(ctx, entry); err != nil {
			e.metrics.Entry(string(entry.Action), false)
			return e.halt(result, entries[i:], entry, err)
		}
		e.metrics.Entry(string(entry.Action), true)

		if err := e.outbox.RemoveFromOutbox(ctx, entry.ID); err != nil {
			return e.halt(result, entries[i:], entry, fmt.Errorf("remove confirmed entry: %w", err))
		}
		result.Synced++
	}

	e.metrics.Pass(metrics.OutcomeDrained)
	e.metrics.Pending(0)
	e.logger.Info("outbox drained", zap.Int("synced", result.Synced))
	return result, nil
}

func (e *SyncEngine) halt(result PassResult, rest []domain.OutboxEntry, failed domain.OutboxEntry, err error) (PassResult, error) {
	result.Remaining = len(rest)
	result.FailedEntry = failed.ID

	e.metrics.Pass(metrics.OutcomeHalted)
	e.metrics.Pending(result.Remaining)
	e.logger.Error("outbox drain halted",
		zap.String("entry_id", failed.ID),
		zap.String("entity", string(failed.Entity)),
		zap.String("action", string(failed.Action)),
		zap.Int("synced", result.Synced),
		zap.Int("remaining", result.Remaining),
		zap.Error(err))

	return result, domain.WrapError(domain.ErrCodeUnavailable,
		fmt.Sprintf("sync halted at outbox entry %s", failed.ID), err)
}

func (e *SyncEngine) apply(ctx context.Context, entry domain.OutboxEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if e.cfg.RemoteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RemoteTimeout)
		defer cancel()
	}

	table := entry.Entity.String()
	id := entry.RecordID()
	switch entry.Action {
	case domain.ActionCreate, domain.ActionUpdate:
		return e.remote.Upsert(ctx, table, id, entry.Payload)
	case domain.ActionDelete:
		return e.remote.Delete(ctx, table, id)
	default:
		return fmt.Errorf("unsupported action %s", entry.Action)
	}
}

func (e *SyncEngine) trigger(ctx context.Context, reason string) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if ctx.Err() != nil {
			return
		}
		if _, err := e.Pass(ctx); err != nil {
			e.logger.Warn("background drain pass failed", zap.String("trigger", reason), zap.Error(err))
		}
	}()
}

var _ usecase.Syncer = (*SyncEngine)(nil)

package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Prober reports whether the remote backend answers.
type Prober interface {
	Ping(ctx context.Context) error
}

// OutboxCounter reports the pending outbox size for status reporting.
type OutboxCounter interface {
	OutboxSize(ctx context.Context) (int, error)
}

// Monitor tracks connectivity to the remote backend. It answers IsOnline and
// notifies subscribers each time the state goes from offline to online. The
// very first probe establishes the state without notifying.
type Monitor struct {
	probe  Prober
	outbox OutboxCounter

	mu      sync.RWMutex
	status  Status
	checked bool
	forced  *bool

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int

	interval time.Duration
	timeout  time.Duration
	cron     *cron.Cron
	logger   *zap.Logger
}

func New(probe Prober, outbox OutboxCounter, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Monitor{
		probe:    probe,
		outbox:   outbox,
		subs:     make(map[int]func()),
		interval: interval,
		timeout:  3 * time.Second,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger,
	}
	schedule := fmt.Sprintf("@every %ds", int(interval.Seconds()))
	_, _ = m.cron.AddFunc(schedule, func() {
		m.Refresh(context.Background())
	})
	return m
}

// Start probes once synchronously, then on the configured schedule.
func (m *Monitor) Start(ctx context.Context) {
	m.Refresh(ctx)
	m.cron.Start()
	m.logger.Info("connectivity monitor started", zap.Duration("interval", m.interval), zap.Bool("online", m.IsOnline()))
}

// Stop halts scheduled probes and waits for a running one.
func (m *Monitor) Stop(ctx context.Context) {
	stopCtx := m.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	m.logger.Info("connectivity monitor stopped")
}

func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Online
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Subscribe registers fn for offline-to-online transitions. The returned
// function unregisters it.
func (m *Monitor) Subscribe(fn func()) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subs, id)
	}
}

// SetOnline pins the reported state regardless of probes; ClearOverride
// returns control to the probe.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	m.forced = &online
	m.mu.Unlock()
	m.apply(online, nil)
}

func (m *Monitor) ClearOverride(ctx context.Context) {
	m.mu.Lock()
	m.forced = nil
	m.mu.Unlock()
	m.Refresh(ctx)
}

// Refresh probes the remote now and publishes a transition if there is one.
func (m *Monitor) Refresh(ctx context.Context) {
	m.mu.RLock()
	forced := m.forced
	m.mu.RUnlock()

	if forced != nil {
		m.apply(*forced, nil)
		return
	}
	err := m.ping(ctx)
	m.apply(err == nil, err)
}

func (m *Monitor) ping(ctx context.Context) error {
	if m.probe == nil {
		return fmt.Errorf("no remote backend configured")
	}
	pingCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.probe.Ping(pingCtx)
}

func (m *Monitor) apply(online bool, probeErr error) {
	outboxOK, outboxSize := m.checkOutbox()

	m.mu.Lock()
	wasOnline := m.status.Online
	first := !m.checked
	m.checked = true
	m.status = Status{
		Online:     online,
		Forced:     m.forced != nil,
		OutboxOK:   outboxOK,
		OutboxSize: outboxSize,
		LastCheck:  time.Now(),
	}
	if probeErr != nil {
		m.status.LastError = probeErr.Error()
	}
	m.mu.Unlock()

	switch {
	case first:
	case online && !wasOnline:
		m.logger.Info("remote backend reachable again", zap.Int("outbox_size", outboxSize))
		m.notify()
	case !online && wasOnline:
		m.logger.Warn("remote backend unreachable", zap.Error(probeErr))
	}
}

func (m *Monitor) notify() {
	m.subMu.Lock()
	fns := make([]func(), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (m *Monitor) checkOutbox() (bool, int) {
	if m.outbox == nil {
		return false, 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	size, err := m.outbox.OutboxSize(ctx)
	if err != nil {
		m.logger.Warn("outbox size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}

package farm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/agroflow/domain"
	"github.com/fastygo/agroflow/usecase"
)

// Deps are the collaborators the domain store is built on.
type Deps struct {
	Local   usecase.LocalStore
	Syncer  usecase.Syncer
	Logger  *zap.Logger
	Metrics FailureRecorder
}

// Options tune store behaviour. The zero value logs persistence failures and
// uses the wall clock.
type Options struct {
	Policy PersistencePolicy
	Clock  func() time.Time
}

// Store holds the three farm collections once startup has completed.
type Store struct {
	Transactions *Collection[domain.Transaction]
	Crops        *Collection[domain.Crop]
	Properties   *Collection[domain.Property]

	env      *env
	seeded   bool
	migrated int
}

// Open runs the startup sequence: on a first launch with empty collections it
// seeds the sample records and sets the initialized flag, otherwise it loads
// what is persisted and rewrites legacy ISO transaction dates. The returned
// store is ready to serve.
func Open(ctx context.Context, deps Deps, opts Options) (*Store, error) {
	if deps.Local == nil {
		return nil, domain.ErrLocalStoreNotReady
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	e := &env{
		local:    deps.Local,
		syncer:   deps.Syncer,
		logger:   logger,
		failures: deps.Metrics,
		policy:   opts.Policy,
		clock:    clock,
	}
	s := &Store{
		Transactions: newCollection[domain.Transaction](domain.CollectionTransactions, e),
		Crops:        newCollection[domain.Crop](domain.CollectionCrops, e),
		Properties:   newCollection[domain.Property](domain.CollectionProperties, e),
		env:          e,
	}
	s.Transactions.normalizePatch = domain.NormalizeTransactionPatch

	if err := s.start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) start(ctx context.Context) error {
	local := s.env.local

	initialized, err := local.Flag(ctx, domain.InitializedFlag)
	if err != nil {
		return fmt.Errorf("read initialized flag: %w", err)
	}

	txDocs, err := local.GetAll(ctx, domain.CollectionTransactions)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	cropDocs, err := local.GetAll(ctx, domain.CollectionCrops)
	if err != nil {
		return fmt.Errorf("load crops: %w", err)
	}
	propDocs, err := local.GetAll(ctx, domain.CollectionProperties)
	if err != nil {
		return fmt.Errorf("load properties: %w", err)
	}

	if !initialized && len(txDocs) == 0 && len(cropDocs) == 0 && len(propDocs) == 0 {
		return s.seed(ctx)
	}

	txs := decodeDocuments[domain.Transaction](txDocs, s.env.logger, domain.CollectionTransactions)
	txs, changed := domain.MigrateTransactionDates(txs)
	s.Transactions.replace(txs)
	s.Crops.replace(decodeDocuments[domain.Crop](cropDocs, s.env.logger, domain.CollectionCrops))
	s.Properties.replace(decodeDocuments[domain.Property](propDocs, s.env.logger, domain.CollectionProperties))

	if changed > 0 {
		s.migrated = changed
		s.env.logger.Info("migrated transaction dates", zap.Int("records", changed))
		s.Transactions.mu.Lock()
		err := s.Transactions.mirrorLocked(ctx)
		s.Transactions.mu.Unlock()
		if err != nil {
			return err
		}
	}

	if !initialized {
		if err := s.env.persistErr("flag", domain.InitializedFlag, local.SetFlag(ctx, domain.InitializedFlag, true)); err != nil {
			return err
		}
	}

	s.env.logger.Info("domain store loaded",
		zap.Int("transactions", s.Transactions.Len()),
		zap.Int("crops", s.Crops.Len()),
		zap.Int("properties", s.Properties.Len()))
	return nil
}

// seed fills memory and the local store with the sample records. Seeding is
// local state only and does not enqueue outbox entries.
func (s *Store) seed(ctx context.Context) error {
	s.seeded = true
	s.Properties.replace(domain.SampleProperties())
	s.Crops.replace(domain.SampleCrops())
	s.Transactions.replace(domain.SampleTransactions())

	mirrors := []func(context.Context) error{
		lockedMirror(s.Properties),
		lockedMirror(s.Crops),
		lockedMirror(s.Transactions),
	}
	for _, mirror := range mirrors {
		if err := mirror(ctx); err != nil {
			return err
		}
	}

	err := s.env.persistErr("flag", domain.InitializedFlag, s.env.local.SetFlag(ctx, domain.InitializedFlag, true))
	if err != nil {
		return err
	}
	s.env.logger.Info("seeded sample data",
		zap.Int("transactions", s.Transactions.Len()),
		zap.Int("crops", s.Crops.Len()),
		zap.Int("properties", s.Properties.Len()))
	return nil
}

func lockedMirror[T domain.Record[T]](c *Collection[T]) func(context.Context) error {
	return func(ctx context.Context) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.mirrorLocked(ctx)
	}
}

// Seeded reports whether this Open wrote the sample data.
func (s *Store) Seeded() bool { return s.seeded }

// MigratedDates is the number of transaction dates rewritten at startup.
func (s *Store) MigratedDates() int { return s.migrated }

// Subscribe registers fn on all three collections.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	cancels := []func(){
		s.Transactions.Subscribe(fn),
		s.Crops.Subscribe(fn),
		s.Properties.Subscribe(fn),
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}

// Counts returns the number of records held per collection.
func (s *Store) Counts() map[domain.Collection]int {
	return map[domain.Collection]int{
		domain.CollectionTransactions: s.Transactions.Len(),
		domain.CollectionCrops:        s.Crops.Len(),
		domain.CollectionProperties:   s.Properties.Len(),
	}
}

// Package core implements the yard workflow engine: bookings, collections,
// the container yard-operations state machine, cascading delete and undo.
// The engine reads from the state cache and writes only through the store.
package core

import (
	"context"
	"errors"
	"time"
	"yardops/internal/cache"
	"yardops/pkg/domain"
)

type (
	// Transaction aliases domain.Transaction.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore.
	PersistentStore = domain.PersistentStore
	// Result aliases domain.Result.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine.
	RulesEngine = domain.RulesEngine
)

// Service is the workflow engine.
type Service struct {
	store     PersistentStore
	cache     *cache.Cache
	clock     Clock
	logger    Logger
	metrics   MetricsRecorder
	tracer    Tracer
	publisher EventPublisher
}

// NewService builds an engine over store, reading state from c.
func NewService(store PersistentStore, c *cache.Cache, opts ...ServiceOption) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if c == nil {
		c = cache.New()
	}
	return &Service{
		store:     store,
		cache:     c,
		clock:     o.clock,
		logger:    o.logger,
		metrics:   o.metrics,
		tracer:    o.tracer,
		publisher: o.publisher,
	}
}

// Store returns the underlying persistent store.
func (s *Service) Store() PersistentStore { return s.store }

// Cache returns the state cache the engine reads from.
func (s *Service) Cache() *cache.Cache { return s.cache }

func (s *Service) now() time.Time { return s.clock.Now().UTC() }

// atomic reports whether multi-record writes commit all-or-nothing.
func (s *Service) atomic() bool {
	if b, ok := s.store.(domain.AtomicBatcher); ok {
		return b.SupportsAtomicBatch()
	}
	return true
}

// run wraps one engine operation with tracing, metrics and logging.
func (s *Service) run(ctx context.Context, op string, fn func(context.Context) (Result, error)) (Result, error) {
	ctx, span := s.tracer.Start(ctx, op)
	started := time.Now()
	res, err := fn(ctx)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, time.Since(started))
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityWarn {
			s.logger.Warn("rule warning", "operation", op, "rule", v.Rule, "message", v.Message)
		}
	}
	if err != nil {
		if isOperatorError(err) {
			s.logger.Debug("operation refused", "operation", op, "error", err)
		} else {
			s.logger.Error("operation failed", "operation", op, "error", err)
		}
		return res, err
	}
	s.logger.Debug("operation committed", "operation", op)
	return res, nil
}

// write runs fn in a store transaction and wraps unexpected store failures.
func (s *Service) write(ctx context.Context, op string, fn func(Transaction) error) (Result, error) {
	res, err := s.store.RunInTransaction(ctx, fn)
	if err == nil {
		return res, nil
	}
	if isOperatorError(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return res, err
	}
	var sw domain.StoreWriteError
	if errors.As(err, &sw) {
		return res, err
	}
	return res, domain.StoreWriteError{Op: op, Err: err}
}

func (s *Service) emit(ctx context.Context, typ domain.EventType, rec domain.Record) {
	if rec == nil {
		return
	}
	ev := domain.Event{Type: typ, Kind: rec.Kind(), ID: rec.GetID(), At: s.now(), Data: rec}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish event failed", "type", string(typ), "id", rec.GetID(), "error", err)
	}
}

// isOperatorError reports errors caused by the request rather than the system.
func isOperatorError(err error) bool {
	var (
		ve  domain.ValidationError
		ce  domain.ChassisCapabilityError
		qe  domain.QuantityExceededError
		nf  domain.NotFoundError
		te  domain.TransitionError
		rve domain.RuleViolationError
	)
	return errors.As(err, &ve) || errors.As(err, &ce) || errors.As(err, &qe) ||
		errors.As(err, &nf) || errors.As(err, &te) || errors.As(err, &rve) ||
		errors.Is(err, domain.ErrNothingToUndo)
}

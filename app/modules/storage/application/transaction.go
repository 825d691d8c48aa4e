// Package storageservice coordinates the local and remote storage backends:
// best-effort multi-step transactions, timestamp conflict resolution and the
// unified keyed-document API.
package storageservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/matchops/matchops/app/shared/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTransactionTimeout bounds a whole transaction when Options.Timeout is zero.
const DefaultTransactionTimeout = 8 * time.Second

var (
	// ErrTransactionTimeout is returned when the wall-clock budget ran out.
	ErrTransactionTimeout = errors.New("transaction timed out")

	// ErrAllOperationsFailed is returned when every operation failed.
	ErrAllOperationsFailed = errors.New("all transaction operations failed")

	// ErrRolledBack is returned when a failure stopped the sequence and
	// completed operations were rolled back.
	ErrRolledBack = errors.New("transaction rolled back")
)

// Operation is one step of a transaction.
type Operation struct {
	Name string
	Run  func(ctx context.Context) error
	// Rollback is optional and only used with Options.RollbackOnFailure.
	Rollback func(ctx context.Context) error
}

// SyncOp adapts a synchronous state mutation to an Operation.
func SyncOp(name string, fn func()) Operation {
	return Operation{
		Name: name,
		Run: func(context.Context) error {
			fn()
			return nil
		},
	}
}

// Options configure one Execute call.
type Options struct {
	Timeout           time.Duration
	RollbackOnFailure bool
}

// TransactionResult reports per-operation outcomes positionally.
type TransactionResult struct {
	Results []bool
	Errors  []error
	// Err is ErrTransactionTimeout, ErrAllOperationsFailed, ErrRolledBack,
	// the parent context's error, or nil.
	Err        error
	TimedOut   bool
	RolledBack bool
}

// AllSucceeded reports whether every operation succeeded.
func (r TransactionResult) AllSucceeded() bool {
	for _, ok := range r.Results {
		if !ok {
			return false
		}
	}
	return r.Err == nil
}

// AnySucceeded reports whether at least one operation succeeded.
func (r TransactionResult) AnySucceeded() bool {
	for _, ok := range r.Results {
		if ok {
			return true
		}
	}
	return false
}

// Completed reports whether the sequence ran to the end.
func (r TransactionResult) Completed() bool {
	return !r.TimedOut && !r.RolledBack && !errors.Is(r.Err, context.Canceled)
}

// FirstError returns the first per-operation error, falling back to Err.
func (r TransactionResult) FirstError() error {
	for _, err := range r.Errors {
		if err != nil {
			return err
		}
	}
	return r.Err
}

// TransactionManager runs ordered operations with a shared timeout and
// reports partial success instead of aborting on the first failure.
type TransactionManager struct {
	logger         *slog.Logger
	metrics        metrics.OperationMetrics
	tracer         trace.Tracer
	defaultTimeout time.Duration
}

// NewTransactionManager creates a TransactionManager. A zero defaultTimeout
// selects DefaultTransactionTimeout.
func NewTransactionManager(logger *slog.Logger, m metrics.OperationMetrics, tracer trace.Tracer, defaultTimeout time.Duration) *TransactionManager {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTransactionTimeout
	}
	return &TransactionManager{
		logger:         logger,
		metrics:        m,
		tracer:         tracer,
		defaultTimeout: defaultTimeout,
	}
}

// Execute runs ops in order. Operation N+1 starts only after N settled.
// When the timeout fires the in-flight operation's context is cancelled and
// Execute returns without waiting for it; completed operations are not undone.
func (m *TransactionManager) Execute(ctx context.Context, ops []Operation, opts Options) TransactionResult {
	result := TransactionResult{
		Results: make([]bool, len(ops)),
		Errors:  make([]error, len(ops)),
	}
	if len(ops) == 0 {
		return result
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = m.defaultTimeout
	}

	var span trace.Span
	if m.tracer != nil {
		ctx, span = m.tracer.Start(ctx, "TransactionManager.Execute", trace.WithAttributes(
			attribute.Int("operations", len(ops)),
			attribute.Bool("rollback_on_failure", opts.RollbackOnFailure),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for i, op := range ops {
		step := m.runOne(ctx, op)
		err := step.err
		if step.stopped {
			result.Errors[i] = err
			if errors.Is(err, ErrTransactionTimeout) {
				result.TimedOut = true
				result.Err = ErrTransactionTimeout
			} else {
				result.Err = err
			}
			m.logger.WarnContext(parent, "Transaction stopped before completion",
				slog.String("operation", op.Name),
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
			span.RecordError(err)
			return result
		}

		if err != nil {
			result.Errors[i] = err
			m.logger.WarnContext(parent, "Transaction operation failed",
				slog.String("operation", op.Name),
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
			if opts.RollbackOnFailure {
				m.rollback(parent, ops[:i], result.Results[:i])
				result.RolledBack = true
				result.Err = ErrRolledBack
				return result
			}
			continue
		}
		result.Results[i] = true
	}

	if !result.AnySucceeded() {
		result.Err = ErrAllOperationsFailed
		span.RecordError(ErrAllOperationsFailed)
	}
	return result
}

type stepOutcome struct {
	err error
	// stopped is true when the transaction context ended before the step settled.
	stopped bool
}

// runOne runs op in its own goroutine.
func (m *TransactionManager) runOne(ctx context.Context, op Operation) stepOutcome {
	if err := ctx.Err(); err != nil {
		return stepOutcome{err: contextError(err), stopped: true}
	}

	m.metrics.RecordOperationAttempt(ctx, op.Name, "TransactionManager")
	start := time.Now()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in %s: %v", op.Name, r)
			}
		}()
		if op.Run == nil {
			done <- fmt.Errorf("operation %q has no Run func", op.Name)
			return
		}
		done <- op.Run(ctx)
	}()

	select {
	case err := <-done:
		m.metrics.RecordOperationDuration(ctx, op.Name, "TransactionManager", time.Since(start))
		if err != nil {
			m.metrics.RecordOperationFailure(ctx, op.Name, "TransactionManager")
			return stepOutcome{err: err}
		}
		m.metrics.RecordOperationSuccess(ctx, op.Name, "TransactionManager")
		return stepOutcome{}
	case <-ctx.Done():
		m.metrics.RecordOperationFailure(ctx, op.Name, "TransactionManager")
		return stepOutcome{err: contextError(ctx.Err()), stopped: true}
	}
}

// rollback undoes completed operations in reverse order. Rollback failures are logged only.
func (m *TransactionManager) rollback(ctx context.Context, done []Operation, succeeded []bool) {
	for i := len(done) - 1; i >= 0; i-- {
		if !succeeded[i] || done[i].Rollback == nil {
			continue
		}
		if err := done[i].Rollback(ctx); err != nil {
			m.logger.ErrorContext(ctx, "Rollback failed",
				slog.String("operation", done[i].Name),
				slog.String("error", err.Error()),
			)
		}
	}
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTransactionTimeout
	}
	return err
}

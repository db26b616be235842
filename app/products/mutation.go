package products

import (
	"context"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Options carries the caller's continuations for one Mutate call.
type Options[R any] struct {
	OnSuccess func(R)
	OnError   func(error)
}

// MutationFunc performs the remote call behind a mutation.
type MutationFunc[V, R any] func(ctx context.Context, vars V) (R, error)

// Mutation runs a remote write on a shared worker pool and reports the
// outcome through continuations. The hook-level success handler runs
// before the caller's OnSuccess.
type Mutation[V, R any] struct {
	name      string
	pool      *ants.Pool
	timeout   time.Duration
	fn        MutationFunc[V, R]
	onSuccess func(R)
	logger    *zap.Logger
}

func NewMutation[V, R any](name string, pool *ants.Pool, timeout time.Duration, fn MutationFunc[V, R], onSuccess func(R)) *Mutation[V, R] {
	return &Mutation[V, R]{
		name:      name,
		pool:      pool,
		timeout:   timeout,
		fn:        fn,
		onSuccess: onSuccess,
		logger:    zap.L().Named("mutation").With(zap.String("mutation", name)),
	}
}

// Mutate queues the call and returns immediately. The call outlives ctx
// cancellation but is bounded by the mutation timeout. An error is returned
// only when the pool refuses the task; no continuation runs in that case.
func (m *Mutation[V, R]) Mutate(ctx context.Context, vars V, opts Options[R]) error {
	detached := context.WithoutCancel(ctx)
	err := m.pool.Submit(func() {
		runCtx := detached
		if m.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(detached, m.timeout)
			defer cancel()
		}

		res, err := m.fn(runCtx, vars)
		if err != nil {
			m.logger.Error("mutation failed", zap.Error(err))
			if opts.OnError != nil {
				opts.OnError(err)
			}
			return
		}
		m.logger.Debug("mutation succeeded")
		if m.onSuccess != nil {
			m.onSuccess(res)
		}
		if opts.OnSuccess != nil {
			opts.OnSuccess(res)
		}
	})
	if err != nil {
		return errors.Wrapf(err, "queue %s", m.name)
	}
	return nil
}

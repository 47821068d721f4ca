package filter

import (
	"context"
	"errors"
	"sync"

	"github.com/entl/histsearch/internal/history"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pass is a running filter pass. Its context is owned by the pass: Stop
// cancels it and returns only once Run has returned.
type Pass struct {
	ID string

	cancel   context.CancelFunc
	group    *errgroup.Group
	stopOnce sync.Once
	err      error
}

// Start runs a filter pass over buf in the background.
func Start(ctx context.Context, buf *history.Buffer, opts Options, sink Sink) *Pass {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)

	p := &Pass{
		ID:     uuid.NewString(),
		cancel: cancel,
		group:  group,
	}
	logger = logger.Named("filter").With(
		zap.String("pass", p.ID),
		zap.Stringer("scope", opts.Scope),
		zap.Bool("dedup", opts.Dedup))

	group.Go(func() error {
		logger.Debug("filter pass started")
		err := Run(ctx, buf, opts, sink)
		if err != nil {
			logger.Debug("filter pass cancelled")
		} else {
			logger.Debug("filter pass exhausted")
		}
		return err
	})

	return p
}

// Stop cancels the pass and waits for it. Cancellation is not an error.
func (p *Pass) Stop() error {
	p.stopOnce.Do(func() {
		p.cancel()
		err := p.group.Wait()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		p.err = err
	})
	return p.err
}

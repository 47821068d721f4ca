// Package controller runs the interactive loop: it presents the selector,
// feeds it from one filter pass at a time and decides whether the user is
// done.
package controller

import (
	"context"
	"fmt"

	"github.com/entl/histsearch/internal/env"
	"github.com/entl/histsearch/internal/filter"
	"github.com/entl/histsearch/internal/history"
	"go.uber.org/zap"
)

// Controller owns the selection state machine.
type Controller struct {
	buf       *history.Buffer
	selector  Selector
	env       env.Provider
	logger    *zap.Logger
	batchSize int
	state     State
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBatchSize sets the filter pass batch size.
func WithBatchSize(n int) Option {
	return func(c *Controller) {
		c.batchSize = n
	}
}

// WithScope overrides the starting scope.
func WithScope(scope filter.Scope) Option {
	return func(c *Controller) {
		if scope.Valid() {
			c.state.Scope = scope
		}
	}
}

// New creates a controller over buf, starting with query in the prompt.
func New(buf *history.Buffer, selector Selector, provider env.Provider, query string, opts ...Option) *Controller {
	c := &Controller{
		buf:      buf,
		selector: selector,
		env:      provider,
		logger:   zap.NewNop(),
		state:    InitialState(query, provider.Snapshot()),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("controller")
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Run presents the selector until the user confirms or aborts. It returns
// the command to print, or ErrAborted.
func (c *Controller) Run(ctx context.Context) (string, error) {
	for {
		res, err := c.present(ctx)
		if err != nil {
			return "", err
		}

		next, out := Step(c.state, res)
		c.logger.Debug("selector returned",
			zap.Stringer("key", res.Key),
			zap.Bool("selected", res.Selected != nil),
			zap.Stringer("scope", next.Scope),
			zap.Bool("dedup", next.Dedup))
		c.state = next

		if out.Done {
			return out.Command, out.Err
		}
	}
}

// present runs one selector session with its own filter pass. The pass is
// always stopped before present returns, so at most one is ever alive.
func (c *Controller) present(ctx context.Context) (Result, error) {
	st := c.state
	sess, err := c.selector.Open(ctx, Request{
		Query:  st.Query,
		Header: Title(st),
		Scope:  st.Scope,
		Dedup:  st.Dedup,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to open selector: %w", err)
	}

	pass := filter.Start(ctx, c.buf, filter.Options{
		Scope:     st.Scope,
		Dedup:     st.Dedup,
		Env:       c.env.Snapshot(),
		BatchSize: c.batchSize,
		Logger:    c.logger,
	}, sess)

	res, waitErr := sess.Wait()
	if err := pass.Stop(); err != nil {
		return Result{}, fmt.Errorf("filter pass %s failed: %w", pass.ID, err)
	}
	if waitErr != nil {
		return Result{}, fmt.Errorf("selector failed: %w", waitErr)
	}
	return res, nil
}

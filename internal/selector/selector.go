// Package selector is the interactive fuzzy selector. Each session runs one
// bubbletea program that receives candidates from a filter pass and ends on
// the first control key.
package selector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/entl/histsearch/internal/controller"
	"github.com/entl/histsearch/internal/storage"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
)

// ttyPath is used when stdin or stdout is not a terminal, which is the case
// inside a shell widget that captures the selected command.
const ttyPath = "/dev/tty"

// Options configure a Selector.
type Options struct {
	// DateFormat is the strftime layout of dates older than today.
	DateFormat string
	// NoSort keeps matches in history order instead of by score.
	NoSort bool
	// Now defaults to time.Now.
	Now func() time.Time

	Logger *zap.Logger

	// ProgramOptions replace the terminal setup. Tests use them to feed
	// input and discard output.
	ProgramOptions []tea.ProgramOption
}

// Selector opens selector sessions on the terminal.
type Selector struct {
	opts   Options
	logger *zap.Logger
}

var _ controller.Selector = (*Selector)(nil)

// New creates a Selector. Sessions use the controlling terminal unless
// opts.ProgramOptions are set.
func New(opts Options) *Selector {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{opts: opts, logger: logger.Named("selector")}
}

// Open starts a session showing req. The session runs until a control key
// is pressed or ctx is cancelled.
func (s *Selector) Open(ctx context.Context, req controller.Request) (controller.Session, error) {
	progOpts, closeTTY, err := s.programOptions()
	if err != nil {
		return nil, err
	}

	p := tea.NewProgram(newModel(req, s.opts), append([]tea.ProgramOption{tea.WithContext(ctx)}, progOpts...)...)
	sess := &session{
		program:  p,
		logger:   s.logger,
		closeTTY: closeTTY,
		done:     make(chan struct{}),
	}
	go sess.run()
	return sess, nil
}

func (s *Selector) programOptions() ([]tea.ProgramOption, func() error, error) {
	if s.opts.ProgramOptions != nil {
		return s.opts.ProgramOptions, nil, nil
	}

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd()) {
		return opts, nil, nil
	}

	tty, err := os.OpenFile(ttyPath, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("open terminal: %w", err)
	}
	// Styles detect colors on stdout, which is captured here.
	lipgloss.SetColorProfile(lipgloss.NewRenderer(tty).ColorProfile())

	return append(opts, tea.WithInput(tty), tea.WithOutput(tty)), tty.Close, nil
}

// session feeds one running program. Emit and Exhausted block until the
// program takes the message, and return once it has exited.
type session struct {
	program  *tea.Program
	logger   *zap.Logger
	closeTTY func() error

	done  chan struct{}
	final tea.Model
	err   error
}

func (s *session) run() {
	defer close(s.done)
	s.final, s.err = s.program.Run()
	if s.closeTTY != nil {
		if err := s.closeTTY(); err != nil {
			s.logger.Warn("closing terminal", zap.Error(err))
		}
	}
}

func (s *session) Emit(batch []storage.Record) {
	s.program.Send(candidatesMsg(batch))
}

func (s *session) Exhausted(err error) {
	s.program.Send(exhaustedMsg{err: err})
}

// Wait blocks until the program exits and returns the key that ended it.
func (s *session) Wait() (controller.Result, error) {
	<-s.done
	switch {
	case errors.Is(s.err, tea.ErrInterrupted):
		return controller.Result{Key: controller.KeyAbort}, nil
	case s.err != nil:
		s.logger.Debug("session ended with error", zap.Error(s.err))
		return controller.Result{}, fmt.Errorf("selector: %w", s.err)
	}

	m, ok := s.final.(model)
	if !ok {
		return controller.Result{}, fmt.Errorf("selector: unexpected final model %T", s.final)
	}
	if !m.done {
		// The program quit without a control key, e.g. on an interrupt.
		return controller.Result{Key: controller.KeyAbort, Query: m.input.Value()}, nil
	}
	return m.result, nil
}

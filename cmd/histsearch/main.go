// Command histsearch searches zsh-histdb history interactively and prints the
// chosen command. It is meant to be bound to a zsh widget:
//
//	histdb-search() {
//		BUFFER=$(HISTDB_HOST=$HISTDB_HOST HISTDB_SESSION=$HISTDB_SESSION histsearch "$BUFFER")
//		CURSOR=$#BUFFER
//	}
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/entl/histsearch/internal/config"
	"github.com/entl/histsearch/internal/controller"
	"github.com/entl/histsearch/internal/env"
	"github.com/entl/histsearch/internal/history"
	"github.com/entl/histsearch/internal/logging"
	"github.com/entl/histsearch/internal/selector"
	"go.uber.org/zap"
)

// selectorFactory builds the selector once config and logging are set up.
type selectorFactory func(cfg *config.Config, logger *zap.Logger) controller.Selector

// version and build are injected at link time:
//
//	go build -ldflags "-X main.version=v0.8.21 -X main.build=$(git rev-parse --short HEAD)"
var (
	version = "v0.8.20"
	build   = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, terminalSelector))
}

func terminalSelector(cfg *config.Config, logger *zap.Logger) controller.Selector {
	return selector.New(selector.Options{
		DateFormat: cfg.DateFormat,
		NoSort:     cfg.NoSort,
		Logger:     logger,
	})
}

// run returns the process exit status. The only argument is the initial
// query; "--version" prints the version and exits 1, which the zsh widget
// relies on to leave the buffer alone.
func run(args []string, stdout, stderr io.Writer, newSelector selectorFactory) int {
	var query string
	if len(args) > 0 {
		query = args[0]
	}
	if query == "--version" {
		fmt.Fprintln(stdout, version)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "histsearch: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "histsearch: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("build", build),
		zap.String("database", cfg.Database))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	buf := history.NewBuffer()
	loader := history.NewLoader(cfg.Database, logger, history.WithBatchSize(cfg.BatchSize))
	loader.Start(ctx, buf)
	defer func() {
		if err := loader.Close(); err != nil {
			logger.Warn("loader close error", zap.Error(err))
		}
	}()

	opts := []controller.Option{
		controller.WithLogger(logger),
		controller.WithBatchSize(cfg.BatchSize),
	}
	if scope, ok := cfg.Scope(); ok {
		opts = append(opts, controller.WithScope(scope))
	}
	ctl := controller.New(buf, newSelector(cfg, logger), env.OS{Logger: logger}, query, opts...)

	command, err := ctl.Run(ctx)
	if err != nil && !errors.Is(err, controller.ErrAborted) {
		logger.Error("search failed", zap.Error(err))
	}
	return report(command, err, stdout, stderr)
}

// report writes the outcome of a search and returns the exit status: the
// command on stdout with 0, or "Aborted" or the error on stderr with 1.
func report(command string, err error, stdout, stderr io.Writer) int {
	switch {
	case errors.Is(err, controller.ErrAborted):
		fmt.Fprintln(stderr, "Aborted")
		return 1
	case err != nil:
		fmt.Fprintf(stderr, "histsearch: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, command)
	return 0
}

package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entl/histsearch/internal/storage"
	"go.uber.org/zap"
)

// DefaultBatchSize is how many records the loader appends per lock acquisition.
const DefaultBatchSize = 100

// ErrIncomplete wraps a load error that happened after some records were
// already appended.
var ErrIncomplete = errors.New("history incomplete")

// Loader streams the history database into a Buffer in the background.
// It runs at most once per process.
type Loader struct {
	path      string
	batchSize int
	logger    *zap.Logger

	startOnce sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithBatchSize sets the number of records appended per batch.
func WithBatchSize(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.batchSize = n
		}
	}
}

// NewLoader creates a loader for the histdb database at path.
func NewLoader(path string, logger *zap.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{
		path:      path,
		batchSize: DefaultBatchSize,
		logger:    logger.Named("loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start launches the background load into buf. Only the first call starts
// anything; the loader never runs twice.
func (l *Loader) Start(ctx context.Context, buf *Buffer) {
	l.startOnce.Do(func() {
		ctx, l.cancel = context.WithCancel(ctx)
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			_ = l.Load(ctx, buf)
		}()
	})
}

// Close stops a running load and waits for it to exit. If Start was called,
// the buffer is finished by then; otherwise Close leaves it untouched.
func (l *Loader) Close() error {
	// Prevents a later Start and publishes l.cancel.
	l.startOnce.Do(func() {})
	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()
	return nil
}

// Load reads every record into buf and then finishes it. Failures to open or
// read the database are not returned to the UI as errors; they are recorded
// on the buffer so the selector can show that no history is available.
func (l *Loader) Load(ctx context.Context, buf *Buffer) error {
	started := time.Now()
	total, err := l.load(ctx, buf)
	if err != nil && total > 0 {
		err = fmt.Errorf("%w after %d records: %w", ErrIncomplete, total, err)
	}

	switch {
	case err == nil:
		l.logger.Debug("history loaded",
			zap.Int("records", total),
			zap.Duration("elapsed", time.Since(started)))
	case errors.Is(err, context.Canceled):
		l.logger.Debug("history load cancelled", zap.Int("records", total))
	default:
		l.logger.Warn("history unavailable",
			zap.String("path", l.path),
			zap.Int("records", total),
			zap.Error(err))
	}

	buf.Finish(err)
	return err
}

func (l *Loader) load(ctx context.Context, buf *Buffer) (int, error) {
	db, err := storage.OpenReadOnly(ctx, l.path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	total := 0
	batch := make([]storage.Record, 0, l.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		buf.Append(batch)
		total += len(batch)
		// Append copied the records, so the backing array can be reused.
		batch = batch[:0]
	}

	err = db.EachRecord(ctx, func(rec storage.Record) error {
		batch = append(batch, rec)
		if len(batch) == l.batchSize {
			flush()
		}
		return nil
	})
	// Records read before a failure are still shown.
	flush()
	return total, err
}

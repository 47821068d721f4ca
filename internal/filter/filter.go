// Package filter derives the candidate stream shown by the selector from the
// shared history buffer: it applies the scope predicate and optional
// deduplication and emits matches in buffer order.
package filter

import (
	"context"

	"github.com/entl/histsearch/internal/env"
	"github.com/entl/histsearch/internal/history"
	"github.com/entl/histsearch/internal/storage"
	"go.uber.org/zap"
)

// DefaultBatchSize is the maximum number of records per emitted batch.
const DefaultBatchSize = 100

// Sink receives the output of a filter pass.
type Sink interface {
	// Emit delivers accepted records in buffer order. It is best effort:
	// a sink whose consumer went away drops the batch. The pass never
	// touches a batch again after emitting it.
	Emit(batch []storage.Record)

	// Exhausted is called once when the pass has scanned a filled buffer.
	// err is the buffer's load error. It is not called on cancellation.
	Exhausted(err error)
}

// Options configure one filter pass. They are fixed for the pass lifetime.
type Options struct {
	Scope Scope
	Dedup bool
	// Env is the environment snapshot taken when the pass was started.
	Env       env.Snapshot
	BatchSize int
	Logger    *zap.Logger
}

// Matches reports whether rec belongs to scope as seen from snap.
func Matches(scope Scope, snap env.Snapshot, rec storage.Record) bool {
	switch scope {
	case Session:
		return snap.HasSession && rec.Session == snap.Session && rec.Host == snap.Host
	case Directory:
		return rec.Dir == snap.Dir && rec.Host == snap.Host
	case Machine:
		return rec.Host == snap.Host
	case Everywhere:
		return true
	}
	return false
}

// Run scans buf from the start, following it as the loader appends, and
// emits every record that matches opts to sink. It returns nil once the
// buffer is filled and fully scanned, or ctx.Err() when cancelled.
//
// The buffer lock is only held to take a snapshot; matching and emitting
// work on the returned view so the loader is never blocked by a pass.
func Run(ctx context.Context, buf *history.Buffer, opts Options, sink Sink) error {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var seen map[string]struct{}
	if opts.Dedup {
		seen = make(map[string]struct{})
	}

	cursor := 0
	batch := make([]storage.Record, 0, batchSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		st := buf.Snapshot()
		for i, rec := range buf.Range(cursor, st.Len) {
			cursor++

			if i > 0 && i%batchSize == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if !Matches(opts.Scope, opts.Env, rec) {
				continue
			}
			if seen != nil {
				if _, dup := seen[rec.Command]; dup {
					continue
				}
				seen[rec.Command] = struct{}{}
			}

			batch = append(batch, rec)
			if len(batch) == batchSize {
				if err := ctx.Err(); err != nil {
					return err
				}
				sink.Emit(batch)
				batch = make([]storage.Record, 0, batchSize)
			}
		}

		if len(batch) > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			sink.Emit(batch)
			batch = make([]storage.Record, 0, batchSize)
		}

		if st.Filled {
			sink.Exhausted(st.Err)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-st.Changed:
		}
	}
}

package history

import (
	"sync"

	"github.com/entl/histsearch/internal/storage"
)

// State is a consistent view of a Buffer taken under a single lock.
type State struct {
	// Len is the number of records visible. It only ever grows.
	Len int
	// Filled reports that the loader is done; no record will be appended.
	Filled bool
	// Err is why the history could not be loaded, if it could not.
	Err error
	// Changed is closed by the next Append or Finish.
	Changed <-chan struct{}
}

// Buffer is the append-only, in-memory log of history records shared by the
// loader and every filter pass. Records keep the order they were appended in.
type Buffer struct {
	mu      sync.RWMutex
	records []storage.Record
	filled  bool
	err     error
	changed chan struct{}
}

// NewBuffer creates an empty, unfilled buffer.
func NewBuffer() *Buffer {
	return &Buffer{changed: make(chan struct{})}
}

// Append adds a batch of records and wakes anyone waiting on State.Changed.
// Appending to a finished buffer is a programming error and panics.
func (b *Buffer) Append(batch []storage.Record) {
	if len(batch) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.filled {
		panic("history: append to a finished buffer")
	}
	b.records = append(b.records, batch...)

	close(b.changed)
	b.changed = make(chan struct{})
}

// Finish sets the completion flag. err records why loading failed and is
// nil when the whole history was read. Only the first call has an effect.
func (b *Buffer) Finish(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.filled {
		return
	}
	b.filled = true
	b.err = err

	// Left closed: nothing will change again.
	close(b.changed)
}

// Snapshot returns length, completion flag and error read together, so a
// reader never sees Filled without also seeing every appended record.
func (b *Buffer) Snapshot() State {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return State{
		Len:     len(b.records),
		Filled:  b.filled,
		Err:     b.err,
		Changed: b.changed,
	}
}

// Range returns records [from, to). The lock is held only to read the slice
// header; the returned view is capacity-clipped so callers cannot write into
// the log. to must not exceed a previously observed length.
func (b *Buffer) Range(from, to int) []storage.Record {
	b.mu.RLock()
	records := b.records
	b.mu.RUnlock()

	if from < 0 || to > len(records) || from > to {
		panic("history: range out of bounds")
	}
	return records[from:to:to]
}

// At returns the record at index i, which must be below an observed length.
func (b *Buffer) At(i int) storage.Record {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.records[i]
}

// Len returns the number of records appended so far.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

// Err returns the load error recorded by Finish.
func (b *Buffer) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.err
}

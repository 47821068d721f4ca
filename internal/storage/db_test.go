package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/entl/histsearch/internal/storage"
	"github.com/entl/histsearch/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, path string) []storage.Record {
	t.Helper()

	db, err := storage.OpenReadOnly(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	var records []storage.Record
	err = db.EachRecord(context.Background(), func(r storage.Record) error {
		records = append(records, r)
		return nil
	})
	require.NoError(t, err)
	return records
}

func TestEachRecord_NewestFirst(t *testing.T) {
	fixture := storagetest.New(t)
	base := time.Unix(1_700_000_000, 0)
	fixture.Add(
		storagetest.Entry{Command: "make", Start: base, Session: 1, Host: "h1", Dir: "/src"},
		storagetest.Entry{Command: "git status", Start: base.Add(2 * time.Minute), Session: 1, Host: "h1", Dir: "/src",
			ExitStatus: storagetest.Int64(0), Duration: storagetest.Int64(3)},
		storagetest.Entry{Command: "ls -la", Start: base.Add(time.Minute), Session: 2, Host: "h2", Dir: "/tmp"},
	)

	records := collect(t, fixture.Path)
	require.Len(t, records, 3)

	assert.Equal(t, "git status", records[0].Command)
	assert.Equal(t, "ls -la", records[1].Command)
	assert.Equal(t, "make", records[2].Command)

	first := records[0]
	require.NotNil(t, first.ExitStatus)
	assert.Equal(t, int64(0), *first.ExitStatus)
	require.NotNil(t, first.Duration)
	assert.Equal(t, int64(3), *first.Duration)
	assert.Equal(t, int64(1), first.Count)
	assert.Equal(t, int64(1), first.Session)
	assert.Equal(t, "h1", first.Host)
	assert.Equal(t, "/src", first.Dir)
	assert.True(t, first.Start.Equal(base.Add(2*time.Minute)))
	assert.Equal(t, storage.Range{Start: 11, End: 21}, first.Highlight)

	assert.Nil(t, records[2].ExitStatus)
	assert.Nil(t, records[2].Duration)
}

func TestEachRecord_SkipsDeletedCommands(t *testing.T) {
	fixture := storagetest.New(t)
	fixture.Add(
		storagetest.Entry{Command: "keep", Start: time.Unix(10, 0), Host: "h", Dir: "/"},
		storagetest.Entry{Command: "drop", Start: time.Unix(20, 0), Host: "h", Dir: "/"},
	)
	fixture.Exec(`DELETE FROM commands WHERE argv = 'drop'`)

	records := collect(t, fixture.Path)
	require.Len(t, records, 1)
	assert.Equal(t, "keep", records[0].Command)
}

func TestOpenReadOnly_Missing(t *testing.T) {
	_, err := storage.OpenReadOnly(context.Background(), filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestOpenReadOnly_SpecialCharactersInPath(t *testing.T) {
	for _, dir := range []string{"my#hist", "what?mode=rwc", "100%done", "with space"} {
		t.Run(dir, func(t *testing.T) {
			base := t.TempDir()
			path := filepath.Join(base, dir, "zsh-history.db")
			fixture := storagetest.NewAt(t, path)
			fixture.Add(storagetest.Entry{Command: "ls", Start: time.Unix(10, 0), Host: "h", Dir: "/"})

			records := collect(t, path)
			require.Len(t, records, 1)
			assert.Equal(t, "ls", records[0].Command)

			// Nothing is created next to the real directory.
			entries, err := os.ReadDir(base)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, dir, entries[0].Name())
		})
	}
}

func TestOpenReadOnly_MissingNeverCreates(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "my#hist.db")

	_, err := storage.OpenReadOnly(context.Background(), path)
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpenReadOnly_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not an sqlite database, just text padding it out"), 0o600))

	db, err := storage.OpenReadOnly(context.Background(), path)
	if err == nil {
		// The header is only checked once a statement runs.
		defer db.Close()
		err = db.EachRecord(context.Background(), func(storage.Record) error { return nil })
	}
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestDisplayLine(t *testing.T) {
	rec := storage.Record{Command: "echo hi", Highlight: storage.HighlightFor("echo hi")}

	line := rec.DisplayLine("12:30")
	assert.Equal(t, "12:30      echo hi", line)
	assert.Equal(t, "echo hi", line[rec.Highlight.Start:rec.Highlight.End])

	long := rec.DisplayLine("2024-01-02 10:00")
	assert.Equal(t, "echo hi", long[rec.Highlight.Start:rec.Highlight.End])
}

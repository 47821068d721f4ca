package selector

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/entl/histsearch/internal/controller"
	"github.com/entl/histsearch/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestSelector(t *testing.T, input io.Reader) *Selector {
	return New(Options{
		Now:    func() time.Time { return testNow },
		Logger: zaptest.NewLogger(t),
		ProgramOptions: []tea.ProgramOption{
			tea.WithInput(input),
			tea.WithOutput(io.Discard),
			tea.WithoutSignalHandler(),
		},
	})
}

func TestSelector_TypedQueryWithoutCandidates(t *testing.T) {
	sel := newTestSelector(t, strings.NewReader("ls\r"))

	sess, err := sel.Open(context.Background(), controller.Request{Header: "h"})
	require.NoError(t, err)

	res, err := sess.Wait()
	require.NoError(t, err)
	assert.Equal(t, controller.Result{Key: controller.KeyConfirm, Query: "ls"}, res)
}

func TestSelector_SelectsEmittedCandidate(t *testing.T) {
	in, out := io.Pipe()
	t.Cleanup(func() { _ = out.Close() })
	sel := newTestSelector(t, in)

	sess, err := sel.Open(context.Background(), controller.Request{Query: "mak"})
	require.NoError(t, err)

	// Send blocks until the program has taken each message.
	sess.Emit([]storage.Record{record(2, "ls", testNow), record(1, "make test", testNow)})
	sess.Exhausted(nil)

	_, err = out.Write([]byte("\r"))
	require.NoError(t, err)

	res, err := sess.Wait()
	require.NoError(t, err)
	assert.Equal(t, controller.KeyConfirm, res.Key)
	assert.Equal(t, "mak", res.Query)
	require.NotNil(t, res.Selected)
	assert.Equal(t, "make test", res.Selected.Command)
}

func TestSelector_CancelledContext(t *testing.T) {
	in, out := io.Pipe()
	t.Cleanup(func() { _ = out.Close() })
	sel := newTestSelector(t, in)

	ctx, cancel := context.WithCancel(context.Background())
	sess, err := sel.Open(ctx, controller.Request{})
	require.NoError(t, err)
	cancel()

	_, err = sess.Wait()
	require.Error(t, err)

	// A pass still running after the program exited must not block.
	sess.Emit([]storage.Record{record(1, "ls", testNow)})
	sess.Exhausted(nil)
}

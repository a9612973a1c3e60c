package analytics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"career-chat/internal/registry"
	"career-chat/internal/storage"
)

type staticStats registry.Stats

func (s staticStats) Stats() registry.Stats { return registry.Stats(s) }

func TestReporter_Report(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	rec, err := storage.NewFileRecorder(filepath.Join(t.TempDir(), "log.jsonl"))
	require.NoError(t, err)
	require.NoError(t, rec.AppendInteraction(storage.Event{Timestamp: now.Add(-time.Hour), SessionID: "a", UserMessage: "hi", AssistantResponse: "hello"}))

	core, logs := observer.New(zap.InfoLevel)
	r := NewReporter(staticStats{Sessions: 2, Exchanges: 5, Oldest: now.Add(-time.Minute)}, rec, zap.New(core))
	r.now = func() time.Time { return now }

	require.NoError(t, r.Report(context.Background()))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "registry usage", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.EqualValues(t, 2, ctx["sessions"])
	assert.EqualValues(t, 5, ctx["exchanges"])
	assert.Contains(t, entries[1].Message, "1 messages in 1 sessions")
}

func TestReporter_NoRecorder(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := NewReporter(staticStats{}, nil, zap.New(core))
	require.NoError(t, r.Report(context.Background()))
	assert.Equal(t, 1, logs.Len())
}

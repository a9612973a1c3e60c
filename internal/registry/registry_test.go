package registry

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-chat/internal/llm"
	"career-chat/internal/storage"
)

const persona = "You are a career counselor."

// countingClient counts priming turns (a single persona message) separately
// from regular turns.
type countingClient struct {
	primes atomic.Int32
	calls  atomic.Int32
	delay  time.Duration
	fail   atomic.Bool
}

func (c *countingClient) Generate(ctx context.Context, msgs []llm.Message) (llm.Response, error) {
	c.calls.Add(1)
	if len(msgs) == 1 && msgs[0].Content == persona {
		c.primes.Add(1)
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.fail.Load() {
		return llm.Response{}, errors.New("network down")
	}
	return llm.Response{Content: "reply to " + msgs[len(msgs)-1].Content}, nil
}

func TestGetOrCreate_PrimesOncePerSession(t *testing.T) {
	c := &countingClient{}
	r := New(c, persona)

	rec1, err := r.GetOrCreate(context.Background(), "a")
	require.NoError(t, err)
	rec2, err := r.GetOrCreate(context.Background(), "a")
	require.NoError(t, err)
	_, err = r.GetOrCreate(context.Background(), "b")
	require.NoError(t, err)

	assert.Same(t, rec1, rec2)
	assert.Equal(t, int32(2), c.primes.Load())
	assert.Equal(t, 2, r.Len())
	assert.Empty(t, r.Transcript("a"))
	assert.False(t, rec1.CreatedAt.IsZero())
}

func TestGetOrCreate_ConcurrentSameSession(t *testing.T) {
	c := &countingClient{delay: 20 * time.Millisecond}
	r := New(c, persona)

	const n = 50
	recs := make([]*Record, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := r.GetOrCreate(context.Background(), "same")
			assert.NoError(t, err)
			recs[i] = rec
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), c.primes.Load())
	assert.Equal(t, 1, r.Len())
	for _, rec := range recs {
		assert.Same(t, recs[0], rec)
	}
}

func TestGetOrCreate_ConcurrentDistinctSessions(t *testing.T) {
	c := &countingClient{delay: 5 * time.Millisecond}
	r := New(c, persona)

	var wg sync.WaitGroup
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, id := range ids {
		for k := 0; k < 4; k++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := r.GetOrCreate(context.Background(), id)
				assert.NoError(t, err)
			}(id)
		}
	}
	wg.Wait()

	assert.Equal(t, int32(len(ids)), c.primes.Load())
	assert.Equal(t, len(ids), r.Len())
}

func TestGetOrCreate_PrimingFailureLeavesNoRecord(t *testing.T) {
	c := &countingClient{}
	c.fail.Store(true)
	r := New(c, persona)

	_, err := r.GetOrCreate(context.Background(), "a")
	require.Error(t, err)
	var ue *llm.UpstreamError
	assert.True(t, errors.As(err, &ue))
	assert.Equal(t, 0, r.Len())
	assert.ErrorIs(t, r.AppendExchange("a", "u", "ai"), ErrNotFound)

	// a later attempt primes again and succeeds
	c.fail.Store(false)
	_, err = r.GetOrCreate(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, int32(2), c.primes.Load())
}

func TestGetOrCreate_EmptyID(t *testing.T) {
	c := &countingClient{}
	_, err := New(c, persona).GetOrCreate(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptySessionID)
	assert.Zero(t, c.calls.Load())
}

func TestRecordSend_PersonaPrecedesUserTurns(t *testing.T) {
	var seen []llm.Message
	client := clientFunc(func(_ context.Context, msgs []llm.Message) (llm.Response, error) {
		seen = msgs
		return llm.Response{Content: "ok"}, nil
	})
	r := New(client, persona)

	rec, err := r.GetOrCreate(context.Background(), "a")
	require.NoError(t, err)
	_, err = rec.Send(context.Background(), "I like math")
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.Equal(t, persona, seen[0].Content)
	assert.Equal(t, "I like math", seen[2].Content)
}

type clientFunc func(context.Context, []llm.Message) (llm.Response, error)

func (f clientFunc) Generate(ctx context.Context, msgs []llm.Message) (llm.Response, error) {
	return f(ctx, msgs)
}

func TestAppendExchangeAndTranscript(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := New(&countingClient{}, persona, WithClock(func() time.Time { return now }))

	assert.ErrorIs(t, r.AppendExchange("a", "u", "ai"), ErrNotFound)

	_, err := r.GetOrCreate(context.Background(), "a")
	require.NoError(t, err)

	for i, msg := range []string{"one", "two", "three"} {
		require.NoError(t, r.AppendExchange("a", msg, "re "+msg))
		tr := r.Transcript("a")
		require.Len(t, tr, i+1)
		assert.Equal(t, Exchange{User: msg, AI: "re " + msg, Timestamp: now}, tr[len(tr)-1])
	}

	// returned slices are copies
	tr := r.Transcript("a")
	tr[0].User = "mutated"
	assert.Equal(t, "one", r.Transcript("a")[0].User)

	assert.Equal(t, Stats{Sessions: 1, Exchanges: 3, Oldest: now}, r.Stats())
}

func TestClear(t *testing.T) {
	c := &countingClient{}
	r := New(c, persona)

	r.Clear("never-seen")

	_, err := r.GetOrCreate(context.Background(), "a")
	require.NoError(t, err)
	require.NoError(t, r.AppendExchange("a", "u", "ai"))
	_, err = r.GetOrCreate(context.Background(), "b")
	require.NoError(t, err)

	r.Clear("a")
	assert.NotNil(t, r.Transcript("a"))
	assert.Empty(t, r.Transcript("a"))
	assert.Equal(t, 1, r.Len())

	// a cleared session is primed afresh
	_, err = r.GetOrCreate(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, int32(3), c.primes.Load())
}

func TestAppendExchange_MirrorsToRecorder(t *testing.T) {
	rec, err := storage.NewFileRecorder(filepath.Join(t.TempDir(), "log.jsonl"))
	require.NoError(t, err)
	r := New(&countingClient{}, persona, WithRecorder(rec))

	_, err = r.GetOrCreate(context.Background(), "a")
	require.NoError(t, err)
	require.NoError(t, r.AppendExchange("a", "hello", "hi"))

	events, err := rec.LoadInteractions()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].SessionID)
	assert.Equal(t, "hello", events[0].UserMessage)
	assert.Equal(t, "hi", events[0].AssistantResponse)
}

// slowPrimer answers after delay unless ctx ends first.
type slowPrimer struct {
	delay   time.Duration
	started chan struct{}
	once    sync.Once
}

func (c *slowPrimer) Generate(ctx context.Context, msgs []llm.Message) (llm.Response, error) {
	c.once.Do(func() { close(c.started) })
	select {
	case <-time.After(c.delay):
		return llm.Response{Content: "hello"}, nil
	case <-ctx.Done():
		return llm.Response{}, ctx.Err()
	}
}

func TestGetOrCreate_FirstCallerCancelDoesNotFailOthers(t *testing.T) {
	c := &slowPrimer{delay: 200 * time.Millisecond, started: make(chan struct{})}
	r := New(c, persona)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()

	var wg sync.WaitGroup
	var errA, errB error
	var recB *Record

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errA = r.GetOrCreate(ctxA, "s")
	}()
	<-c.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		recB, errB = r.GetOrCreate(context.Background(), "s")
	}()
	time.Sleep(20 * time.Millisecond)
	cancelA()
	wg.Wait()

	require.NoError(t, errB)
	assert.NotNil(t, recB)
	assert.NoError(t, errA)
	assert.Equal(t, 1, r.Len())
}

func TestAppendTo_StaleRecordAfterRecreate(t *testing.T) {
	r := New(&countingClient{}, persona)

	old, err := r.GetOrCreate(context.Background(), "s")
	require.NoError(t, err)
	r.Clear("s")
	fresh, err := r.GetOrCreate(context.Background(), "s")
	require.NoError(t, err)
	require.NotSame(t, old, fresh)

	_, err = old.Send(context.Background(), "stale")
	require.NoError(t, err)
	assert.ErrorIs(t, r.AppendTo(old, "stale", "reply to stale"), ErrNotFound)
	assert.Empty(t, r.Transcript("s"))

	require.NoError(t, r.AppendTo(fresh, "hello", "hi"))
	got := r.Transcript("s")
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].User)
}

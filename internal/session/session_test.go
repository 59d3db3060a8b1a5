package session

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VoiceGate/internal/telemetry"
)

func exerciseOrder(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	m := NewManager(store)
	h := m.Get("42")
	require.Equal(t, "42", h.ID())

	const n = 5
	for i := 0; i < n; i++ {
		require.NoError(t, h.AddUser(ctx, fmt.Sprintf("question %d", i)))
		require.NoError(t, h.AddAssistant(ctx, fmt.Sprintf("answer %d", i)))
	}

	turns, err := m.Get("42").Turns(ctx)
	require.NoError(t, err)
	require.Len(t, turns, 2*n)
	for i := 0; i < n; i++ {
		assert.Equal(t, Turn{Role: RoleUser, Content: fmt.Sprintf("question %d", i)}, strip(turns[2*i]))
		assert.Equal(t, Turn{Role: RoleAssistant, Content: fmt.Sprintf("answer %d", i)}, strip(turns[2*i+1]))
	}

	other, err := m.Get("43").Turns(ctx)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func strip(t Turn) Turn {
	t.Timestamp = time.Time{}
	return t
}

func TestMemoryStoreOrder(t *testing.T) {
	exerciseOrder(t, NewMemoryStore())
}

func TestMemoryStoreReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Append(ctx, "1", Turn{Role: RoleUser, Content: "hi"}))

	turns, err := store.Turns(ctx, "1")
	require.NoError(t, err)
	turns[0].Content = "mutated"

	again, err := store.Turns(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "hi", again[0].Content)
	assert.Equal(t, 1, store.Count())
}

func TestEmptySessionID(t *testing.T) {
	ctx := context.Background()
	h := NewManager(NewMemoryStore()).Get("")
	assert.ErrorIs(t, h.AddUser(ctx, "hi"), ErrEmptyID)
	_, err := h.Turns(ctx)
	assert.ErrorIs(t, err, ErrEmptyID)
}

func TestSQLiteStoreOrderAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")

	db, err := telemetry.InitDB(path)
	require.NoError(t, err)
	exerciseOrder(t, NewSQLiteStore(db))
	require.NoError(t, db.Close())

	db, err = telemetry.InitDB(path)
	require.NoError(t, err)
	store := NewSQLiteStore(db)
	defer store.Close()

	turns, err := store.Turns(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, turns, 10)
	assert.Equal(t, "question 0", turns[0].Content)
	assert.Equal(t, "answer 4", turns[9].Content)
}

func TestRedisStoreOrder(t *testing.T) {
	store, err := NewRedisStore("localhost:6379")
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	id := fmt.Sprintf("test-%d", time.Now().UnixNano())
	require.NoError(t, store.Append(ctx, id, Turn{Role: RoleUser, Content: "one"}))
	require.NoError(t, store.Append(ctx, id, Turn{Role: RoleAssistant, Content: "two"}))
	t.Cleanup(func() { store.rdb.Del(context.Background(), redisKeyPrefix+id) })

	turns, err := store.Turns(ctx, id)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "one", turns[0].Content)
	assert.Equal(t, RoleAssistant, turns[1].Role)
}

func TestLockSerializesSession(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			unlock := m.Lock("shared")
			defer unlock()

			h := m.Get("shared")
			assert.NoError(t, h.AddUser(ctx, fmt.Sprintf("q%d", i)))
			time.Sleep(time.Millisecond)
			assert.NoError(t, h.AddAssistant(ctx, fmt.Sprintf("a%d", i)))
		}(i)
	}
	wg.Wait()

	turns, err := m.Get("shared").Turns(ctx)
	require.NoError(t, err)
	require.Len(t, turns, 40)
	for i := 0; i < len(turns); i += 2 {
		require.Equal(t, RoleUser, turns[i].Role)
		require.Equal(t, RoleAssistant, turns[i+1].Role)
		assert.Equal(t, turns[i].Content[1:], turns[i+1].Content[1:], "turn pair %d interleaved", i/2)
	}
}

func TestLockDoesNotBlockOtherSessions(t *testing.T) {
	m := NewManager(NewMemoryStore())
	unlock := m.Lock("a")
	defer unlock()

	done := make(chan struct{})
	go func() {
		m.Lock("b")()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on another session blocked")
	}
}

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"VoiceGate/internal/session"
)

func TestKey(t *testing.T) {
	turns := []session.Turn{
		{Role: session.RoleUser, Content: "what's the weather"},
		{Role: session.RoleAssistant, Content: "sunny"},
	}

	k := Key("weather", turns)
	assert.Len(t, k, 64)
	assert.Equal(t, k, Key("weather", turns))

	// timestamps do not take part
	stamped := append([]session.Turn(nil), turns...)
	stamped[0].Timestamp = time.Now()
	assert.Equal(t, k, Key("weather", stamped))

	assert.NotEqual(t, k, Key("chat", turns))
	assert.NotEqual(t, k, Key("weather", turns[:1]))

	// field boundaries matter
	a := []session.Turn{{Role: "user", Content: "ab"}}
	b := []session.Turn{{Role: "usera", Content: "b"}}
	assert.NotEqual(t, Key("chat", a), Key("chat", b))
}

func TestReplies(t *testing.T) {
	r := NewReplies()

	_, ok := r.Get("missing")
	assert.False(t, ok)

	r.Put("k", "hello")
	got, ok := r.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "hello", got.Reply)
	assert.False(t, got.Timestamp.IsZero())
}

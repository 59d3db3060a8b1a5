package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"VoiceGate/internal/session"
)

// CachedReply represents a memoized responder reply
type CachedReply struct {
	Reply     string
	Timestamp time.Time
}

// Key generates a cache key from the label and the history
func Key(label string, turns []session.Turn) string {
	h := sha256.New()
	h.Write([]byte(label))
	for _, t := range turns {
		h.Write([]byte{0})
		h.Write([]byte(t.Role))
		h.Write([]byte{0})
		h.Write([]byte(t.Content))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Replies is an unbounded in-process reply memo
type Replies struct {
	entries sync.Map
}

func NewReplies() *Replies {
	return &Replies{}
}

// Get returns the cached reply for key
func (r *Replies) Get(key string) (CachedReply, bool) {
	v, ok := r.entries.Load(key)
	if !ok {
		return CachedReply{}, false
	}
	return v.(CachedReply), true
}

// Put stores reply under key
func (r *Replies) Put(key, reply string) {
	r.entries.Store(key, CachedReply{Reply: reply, Timestamp: time.Now()})
}

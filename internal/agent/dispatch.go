package agent

import (
	"context"
	"log/slog"

	"VoiceGate/internal/cache"
	"VoiceGate/internal/session"
)

// FallbackReply is returned for conversations no responder handles
const FallbackReply = "I couldn't understand you. Please, try again."

// Dispatcher maps labels to responders
type Dispatcher struct {
	responders map[Label]Responder
	replies    *cache.Replies
	logger     *slog.Logger
}

// NewDispatcher creates a dispatcher. replies may be nil to disable caching.
func NewDispatcher(responders map[Label]Responder, replies *cache.Replies, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		responders: responders,
		replies:    replies,
		logger:     logger.With("component", "dispatcher"),
	}
}

// Dispatch runs the responder for label. Labels without a responder get
// FallbackReply and no responder is called.
func (d *Dispatcher) Dispatch(ctx context.Context, label Label, turns []session.Turn) (string, error) {
	r, ok := d.responders[label]
	if !ok {
		d.logger.Info("no responder for label", "label", label.String())
		return FallbackReply, nil
	}

	var key string
	if d.replies != nil {
		key = cache.Key(label.String(), turns)
		if cached, ok := d.replies.Get(key); ok {
			d.logger.Debug("reply cache hit", "responder", r.Name())
			return cached.Reply, nil
		}
	}

	reply, err := r.Ask(ctx, turns)
	if err != nil {
		return "", err
	}

	if d.replies != nil {
		d.replies.Put(key, reply)
	}
	return reply, nil
}

// NewDefaultDispatcher wires the three standard responders.
func NewDefaultDispatcher(weather *WeatherAgent, search *SearchAgent, chat *ChatterAgent, replies *cache.Replies, logger *slog.Logger) *Dispatcher {
	return NewDispatcher(map[Label]Responder{
		LabelWeather: weather,
		LabelSearch:  search,
		LabelChat:    chat,
	}, replies, logger)
}

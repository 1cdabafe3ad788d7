// Package chat is the outbound text channel of the service.
package chat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/events"
	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/jukebox"
)

type Message struct {
	To   string    `json:"to,omitempty"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Channel keeps the most recent messages and mirrors each one on the
// event feed, where the voice-server adapter picks them up.
type Channel struct {
	mu     sync.Mutex
	recent []Message
	limit  int
	sink   events.Sink
	logger *zap.Logger
	now    func() time.Time
}

var _ jukebox.Messenger = (*Channel)(nil)

func NewChannel(limit int, sink events.Sink, logger *zap.Logger) *Channel {
	if limit <= 0 {
		limit = 100
	}
	if sink == nil {
		sink = events.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{
		limit:  limit,
		sink:   sink,
		logger: logger.With(zap.String("component", "chat")),
		now:    time.Now,
	}
}

func (c *Channel) Broadcast(ctx context.Context, text string) {
	c.deliver(ctx, "", text)
}

func (c *Channel) SendTo(ctx context.Context, id, text string) {
	c.deliver(ctx, id, text)
}

// Recent returns the kept messages, oldest first.
func (c *Channel) Recent() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.recent...)
}

// Public returns the kept broadcasts, oldest first, leaving out whispers.
func (c *Channel) Public() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, 0, len(c.recent))
	for _, m := range c.recent {
		if m.To == "" {
			out = append(out, m)
		}
	}
	return out
}

func (c *Channel) deliver(ctx context.Context, to, text string) {
	c.mu.Lock()
	c.recent = append(c.recent, Message{To: to, Text: text, At: c.now()})
	if over := len(c.recent) - c.limit; over > 0 {
		c.recent = append([]Message(nil), c.recent[over:]...)
	}
	c.mu.Unlock()

	c.logger.Debug("chat message", zap.String("to", to), zap.String("text", text))
	c.sink.Publish(ctx, events.ChatMessage{To: to, Text: text})
}

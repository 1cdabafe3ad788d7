// Package relay carries engine events over Redis pub/sub to the dashboard
// websocket feed.
package relay

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/events"
)

// Channel is the Redis pub/sub channel every event goes through.
const Channel = "broadcast"

// Envelope is the wire format of one event.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Publisher is an events.Sink that publishes to Redis. Failures are logged
// and never reach the engines.
type Publisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

var _ events.Sink = (*Publisher)(nil)

func NewPublisher(rdb *redis.Client, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{rdb: rdb, logger: logger.With(zap.String("component", "relay"))}
}

func (p *Publisher) Publish(ctx context.Context, ev events.Event) {
	if p.rdb == nil || ev == nil {
		return
	}
	data, err := Encode(ev)
	if err != nil {
		p.logger.Error("marshal event failed", zap.String("type", ev.Type()), zap.Error(err))
		return
	}
	if err := p.rdb.Publish(ctx, Channel, string(data)).Err(); err != nil {
		p.logger.Warn("publish event failed", zap.String("type", ev.Type()), zap.Error(err))
	}
}

// Encode renders an event in its wire format.
func Encode(ev events.Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: ev.Type(), Payload: payload})
}

// HubSink delivers events straight to the local hub when no Redis is
// configured. Events the hub cannot take right away are dropped.
type HubSink struct {
	hub    *Hub
	logger *zap.Logger
}

var _ events.Sink = (*HubSink)(nil)

func NewHubSink(hub *Hub, logger *zap.Logger) *HubSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HubSink{hub: hub, logger: logger.With(zap.String("component", "relay"))}
}

func (s *HubSink) Publish(ctx context.Context, ev events.Event) {
	data, err := Encode(ev)
	if err != nil {
		s.logger.Error("marshal event failed", zap.String("type", ev.Type()), zap.Error(err))
		return
	}
	if !s.hub.Offer(data) {
		s.logger.Warn("hub busy or stopped, event dropped", zap.String("type", ev.Type()))
	}
}

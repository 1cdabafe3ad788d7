package chat

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/events"
)

func TestChannelKeepsRecentMessages(t *testing.T) {
	var published []events.ChatMessage
	sink := events.SinkFunc(func(_ context.Context, ev events.Event) {
		published = append(published, ev.(events.ChatMessage))
	})
	c := NewChannel(3, sink, nil)

	for i := 0; i < 5; i++ {
		c.Broadcast(context.Background(), fmt.Sprintf("msg %d", i))
	}
	c.SendTo(context.Background(), "alice", "psst")

	recent := c.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, "msg 3", recent[0].Text)
	assert.Equal(t, "alice", recent[2].To)
	assert.Equal(t, "psst", recent[2].Text)

	public := c.Public()
	require.Len(t, public, 2)
	for _, m := range public {
		assert.Empty(t, m.To)
	}
	assert.Equal(t, "msg 4", public[1].Text)

	require.Len(t, published, 6)
	assert.Equal(t, events.ChatMessage{To: "alice", Text: "psst"}, published[5])
}

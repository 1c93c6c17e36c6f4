package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(nil)

	err := p.Publish(context.Background(), Event{
		Type:           TypeStarted,
		RequestID:      "req-1",
		EnrichmentType: "company_profile",
		Timestamp:      time.Now(),
	})
	assert.NoError(t, err)
}

func TestRedisPublisher(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()

	sub := client.Subscribe(ctx, "enrichment.events")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	p := NewRedisPublisher(client, "")
	event := Event{
		Type:           TypeCompleted,
		RequestID:      "req-2",
		EnrichmentType: "company_profile",
		TenantID:       "acme",
		ProviderName:   "clearbit",
		Timestamp:      time.Now().UTC(),
	}
	require.NoError(t, p.Publish(ctx, event))

	select {
	case msg := <-sub.Channel():
		var got Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, TypeCompleted, got.Type)
		assert.Equal(t, "req-2", got.RequestID)
		assert.Equal(t, "clearbit", got.ProviderName)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published event")
	}
}

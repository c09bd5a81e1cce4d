package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore(2 * time.Hour)
	ctx := context.Background()

	_, err := s.Get(ctx, "+590690123456")
	assert.ErrorIs(t, err, ErrNotFound)

	sess := &Session{
		PhoneNumber:    "+590690123456",
		ConversationID: "conv-1",
		LastActivity:   time.Now(),
		Data:           map[string]string{"last_intent": "search"},
	}
	require.NoError(t, s.Save(ctx, sess))

	got, err := s.Get(ctx, "+590690123456")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", got.ConversationID)
	assert.Equal(t, "search", got.Data["last_intent"])

	require.NoError(t, s.Delete(ctx, "+590690123456"))
	_, err = s.Get(ctx, "+590690123456")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &Session{PhoneNumber: "+590690123456"}))

	now = now.Add(59 * time.Minute)
	_, err := s.Get(ctx, "+590690123456")
	assert.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, "+590690123456")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreWithClient(client, 2*time.Hour)
	ctx := context.Background()

	_, err := s.Get(ctx, "+590690123456")
	assert.ErrorIs(t, err, ErrNotFound)

	sess := &Session{
		PhoneNumber:    "+590690123456",
		ConversationID: "conv-1",
		LastActivity:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Save(ctx, sess))

	got, err := s.Get(ctx, "+590690123456")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", got.ConversationID)

	require.NoError(t, s.Delete(ctx, "+590690123456"))
	_, err = s.Get(ctx, "+590690123456")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreWithClient(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &Session{PhoneNumber: "+590690123456"}))

	mr.FastForward(61 * time.Minute)
	_, err := s.Get(ctx, "+590690123456")
	assert.ErrorIs(t, err, ErrNotFound)
}

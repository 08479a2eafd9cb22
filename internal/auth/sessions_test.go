package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "code-to-content/internal/errors"
)

func testSessions(t *testing.T, ttl time.Duration) (*Sessions, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionsWithClient(client, ttl), mr
}

func TestSessions_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	sessions, _ := testSessions(t, time.Hour)

	token, err := sessions.Create(ctx, "user_123")
	require.NoError(t, err)
	assert.Len(t, token, 64) // 32 random bytes, hex encoded

	externalID, err := sessions.Lookup(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user_123", externalID)
}

func TestSessions_TokensAreUnique(t *testing.T) {
	ctx := context.Background()
	sessions, _ := testSessions(t, time.Hour)

	first, err := sessions.Create(ctx, "user_123")
	require.NoError(t, err)
	second, err := sessions.Create(ctx, "user_123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestSessions_LookupUnknownToken(t *testing.T) {
	ctx := context.Background()
	sessions, _ := testSessions(t, time.Hour)

	_, err := sessions.Lookup(ctx, "deadbeef")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSessions_Expiry(t *testing.T) {
	ctx := context.Background()
	sessions, mr := testSessions(t, time.Minute)

	token, err := sessions.Create(ctx, "user_123")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = sessions.Lookup(ctx, token)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSessions_Revoke(t *testing.T) {
	ctx := context.Background()
	sessions, _ := testSessions(t, time.Hour)

	token, err := sessions.Create(ctx, "user_123")
	require.NoError(t, err)

	require.NoError(t, sessions.Revoke(ctx, token))

	_, err = sessions.Lookup(ctx, token)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// Revoking an already revoked token is not an error.
	assert.NoError(t, sessions.Revoke(ctx, token))
}

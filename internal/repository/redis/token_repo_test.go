package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStore(t *testing.T) {
	mr, rdb := newTestClient(t)
	store := NewTokenStore(rdb)
	ctx := context.Background()

	_, err := store.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, store.Set(ctx, "u1", "tok"))
	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "tok", got)
	assert.Equal(t, UserTokenExpire, mr.TTL("login:user:token:u1"))

	mr.FastForward(20 * time.Minute)
	require.NoError(t, store.Extend(ctx, "u1"))
	assert.Equal(t, UserTokenExpire, mr.TTL("login:user:token:u1"))

	mr.FastForward(UserTokenExpire + time.Second)
	_, err = store.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, store.Set(ctx, "u1", "tok2"))
	require.NoError(t, store.Delete(ctx, "u1"))
	_, err = store.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokenStoreUnavailable(t *testing.T) {
	mr, rdb := newTestClient(t)
	store := NewTokenStore(rdb)
	mr.Close()

	_, err := store.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrRedisUnavailable)
}

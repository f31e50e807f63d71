package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedThing struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func setupMiniredis(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
}

func TestAside(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	fetches := 0
	fetch := func(dest *cachedThing) func() error {
		return func() error {
			fetches++
			dest.ID = 7
			dest.Name = "from-db"
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, PostKey(7), &first, PostTTL, fetch(&first)))
	assert.Equal(t, 1, fetches)
	assert.Equal(t, "from-db", first.Name)

	// Second read must be served from the cache.
	var second cachedThing
	require.NoError(t, Aside(ctx, PostKey(7), &second, PostTTL, fetch(&second)))
	assert.Equal(t, 1, fetches)
	assert.Equal(t, first, second)

	// Invalidation forces a refetch.
	InvalidatePost(ctx, 7)
	var third cachedThing
	require.NoError(t, Aside(ctx, PostKey(7), &third, PostTTL, fetch(&third)))
	assert.Equal(t, 2, fetches)
}

func TestAsideWithoutClient(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	var dest cachedThing
	err := Aside(ctx, UserKey(1), &dest, time.Minute, func() error {
		dest.Name = "direct"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "direct", dest.Name)
}

func TestInvalidateUserClearsProfile(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, UserKey(3), cachedThing{ID: 3}, UserTTL))
	require.NoError(t, SetJSON(ctx, ProfileKey(3), cachedThing{ID: 3}, ProfileTTL))

	InvalidateUser(ctx, 3)

	var dest cachedThing
	found, err := GetJSON(ctx, UserKey(3), &dest)
	require.NoError(t, err)
	assert.False(t, found)
	found, err = GetJSON(ctx, ProfileKey(3), &dest)
	require.NoError(t, err)
	assert.False(t, found)
}

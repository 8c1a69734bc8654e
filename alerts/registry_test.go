package alerts_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnwee/live-alerts/alerts"
	"github.com/onnwee/live-alerts/testutil"
)

func sub(subscriber, channel, target string) alerts.Subscription {
	return alerts.Subscription{SubscriberID: subscriber, Channel: channel, TargetID: target}
}

func TestRegistryUpsert(t *testing.T) {
	r := alerts.NewRegistry(&testutil.FakeStore{})

	assert.True(t, r.Upsert(sub("u1", "ninja", "t1")))
	assert.False(t, r.Upsert(sub("u1", "ninja", "t1")), "duplicate must not be added")
	assert.True(t, r.Upsert(sub("u1", "ninja", "t2")), "same user in another target is distinct")
	assert.True(t, r.Upsert(sub("u2", "ninja", "t1")))

	assert.Equal(t, []alerts.Subscription{
		sub("u1", "ninja", "t1"),
		sub("u1", "ninja", "t2"),
		sub("u2", "ninja", "t1"),
	}, r.Subscriptions("ninja"))

	live, ok := r.Live("ninja")
	assert.True(t, ok)
	assert.True(t, live, "new channels start live")
}

func TestRegistryRemoveAtDeletesEmptyChannel(t *testing.T) {
	r := alerts.NewRegistry(&testutil.FakeStore{})
	r.Upsert(sub("u1", "ninja", "t1"))
	r.Upsert(sub("u2", "ninja", "t1"))

	i := r.Find(sub("u1", "ninja", "t1"))
	require.Equal(t, 0, i)
	require.NoError(t, r.RemoveAt("ninja", i))
	assert.Equal(t, []string{"ninja"}, r.Channels())

	require.NoError(t, r.RemoveAt("ninja", r.Find(sub("u2", "ninja", "t1"))))
	_, ok := r.Live("ninja")
	assert.False(t, ok, "channel with no subscriptions must be dropped")
	assert.Equal(t, 0, r.Len())

	assert.Error(t, r.RemoveAt("ninja", 0))
	assert.Equal(t, -1, r.Find(sub("u2", "ninja", "t1")))
}

func TestRegistryChannelsFor(t *testing.T) {
	r := alerts.NewRegistry(&testutil.FakeStore{})
	r.Upsert(sub("u1", "shroud", "t1"))
	r.Upsert(sub("u1", "ninja", "t1"))
	r.Upsert(sub("u1", "pokimane", "t2"))
	r.Upsert(sub("u2", "xqc", "t1"))

	assert.Equal(t, []string{"ninja", "shroud"}, r.ChannelsFor("u1", "t1"))
	assert.Equal(t, []string{"pokimane"}, r.ChannelsFor("u1", "t2"))
	assert.Empty(t, r.ChannelsFor("u3", "t1"))
}

func TestRegistrySetLiveAndSnapshot(t *testing.T) {
	r := alerts.NewRegistry(&testutil.FakeStore{})
	r.Upsert(sub("u1", "b", "t1"))
	r.Upsert(sub("u1", "a", "t1"))
	r.SetLive("a", false)
	r.SetLive("unknown", true)

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].Channel)
	assert.False(t, snap[0].Live)
	assert.True(t, snap[1].Live)

	// Snapshot is a copy.
	snap[0].Subscriptions[0].SubscriberID = "changed"
	assert.Equal(t, "u1", r.Subscriptions("a")[0].SubscriberID)
	_, ok := r.Live("unknown")
	assert.False(t, ok)
}

func TestRegistryEnsureLoaded(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		store := &testutil.FakeStore{}
		r := alerts.NewRegistry(store)
		res, n, err := r.EnsureLoaded(ctx)
		require.NoError(t, err)
		assert.Equal(t, alerts.LoadEmpty, res)
		assert.Zero(t, n)
	})

	t.Run("populated then cached", func(t *testing.T) {
		store := &testutil.FakeStore{Rows: []alerts.Subscription{
			sub("u1", "ninja", "t1"),
			sub("u2", "ninja", "t1"),
			sub("u1", "shroud", "t2"),
		}}
		r := alerts.NewRegistry(store)
		res, n, err := r.EnsureLoaded(ctx)
		require.NoError(t, err)
		assert.Equal(t, alerts.LoadPopulated, res)
		assert.Equal(t, 3, n)
		assert.Equal(t, []string{"ninja", "shroud"}, r.Channels())

		res, _, err = r.EnsureLoaded(ctx)
		require.NoError(t, err)
		assert.Equal(t, alerts.LoadAlreadyLoaded, res)
		assert.Equal(t, 1, store.Loads)
	})

	t.Run("store failure", func(t *testing.T) {
		store := &testutil.FakeStore{LoadErr: errors.New("connection refused")}
		r := alerts.NewRegistry(store)
		_, _, err := r.EnsureLoaded(ctx)
		var se *alerts.StoreError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "load", se.Op)
		assert.Equal(t, "store", alerts.ErrorKind(err))
		assert.Equal(t, 0, r.Len())
	})

	t.Run("concurrent callers load once", func(t *testing.T) {
		store := &testutil.FakeStore{Rows: []alerts.Subscription{sub("u1", "ninja", "t1")}}
		r := alerts.NewRegistry(store)
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, _ = r.EnsureLoaded(ctx)
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, store.Loads)
		assert.Len(t, r.Subscriptions("ninja"), 1)
	})

	t.Run("close forces reload", func(t *testing.T) {
		store := &testutil.FakeStore{Rows: []alerts.Subscription{sub("u1", "ninja", "t1")}}
		r := alerts.NewRegistry(store)
		_, _, err := r.EnsureLoaded(ctx)
		require.NoError(t, err)
		r.Close()
		assert.Equal(t, 0, r.Len())
		res, _, err := r.EnsureLoaded(ctx)
		require.NoError(t, err)
		assert.Equal(t, alerts.LoadPopulated, res)
		assert.Equal(t, 2, store.Loads)
	})
}

func TestLoadResultString(t *testing.T) {
	assert.Equal(t, "already_loaded", alerts.LoadAlreadyLoaded.String())
	assert.Equal(t, "empty", alerts.LoadEmpty.String())
	assert.Equal(t, "populated", alerts.LoadPopulated.String())
}

package service_test

import (
	"context"
	"testing"
	"time"

	"Lee_Social/internal/broker"
	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLocationRequiresFriendship(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")

	_, err := e.locations.SetLocation(ctx, b.ID, coords(10, 20))
	require.NoError(t, err)

	_, err = e.locations.GetLocation(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, pkg.ErrUsersNotFriends)

	e.befriend(t, a.ID, b.ID)
	loc, err := e.locations.GetLocation(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, loc.UserID)
	assert.InDelta(t, 10.0, loc.Latitude, 1e-9)
	assert.InDelta(t, 20.0, loc.Longitude, 1e-9)
}

func TestGetLocationNotFound(t *testing.T) {
	e := newEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	e.befriend(t, a.ID, b.ID)

	_, err := e.locations.GetLocation(context.Background(), a.ID, b.ID)
	assert.ErrorIs(t, err, pkg.ErrLocationNotFound)
}

func TestSetLocationValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")

	cases := map[string]model.Coordinates{
		"lat too high": coords(91, 0),
		"lat too low":  coords(-90.5, 0),
		"lon too high": coords(0, 180.1),
		"missing lat":  {Longitude: coords(0, 1).Longitude},
		"missing both": {},
		"lon too low":  coords(0, -181),
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.locations.SetLocation(ctx, a.ID, c)
			assert.ErrorIs(t, err, pkg.ErrValidation)
		})
	}

	loc, err := e.locations.SetLocation(ctx, a.ID, coords(-90, 180))
	require.NoError(t, err)
	assert.InDelta(t, -90.0, loc.Latitude, 1e-9)
}

func TestSetLocationDoesNotBroadcast(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")

	sub, err := e.hub.Subscribe(ctx, broker.Channel(broker.DefaultLocationPrefix, a.ID))
	require.NoError(t, err)
	defer sub.Close()

	_, err = e.locations.SetLocation(ctx, a.ID, coords(1, 2))
	require.NoError(t, err)

	select {
	case <-sub.Messages():
		t.Fatal("unexpected broadcast")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLiveLocationReachesFriendStream(t *testing.T) {
	e := newEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	e.befriend(t, a.ID, b.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := e.locations.StreamLocation(ctx, b.ID, a.ID)
	require.NoError(t, err)

	require.NoError(t, e.locations.PublishLiveLocation(ctx, a.ID, coords(48.85, 2.35)))

	select {
	case ev := <-events:
		assert.Equal(t, a.ID, ev.UserID)
		assert.InDelta(t, 48.85, ev.Latitude, 1e-9)
		assert.InDelta(t, 2.35, ev.Longitude, 1e-9)
	case <-time.After(time.Second):
		t.Fatal("no location event")
	}

	// 实时上报同样落库
	loc, err := e.locations.GetLocation(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.InDelta(t, 48.85, loc.Latitude, 1e-9)

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("stream not closed after cancel")
	}
	assert.Eventually(t, func() bool {
		return e.hub.Subscribers(broker.Channel(broker.DefaultLocationPrefix, a.ID)) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestStreamLocationRequiresFriendship(t *testing.T) {
	e := newEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")

	_, err := e.locations.StreamLocation(context.Background(), b.ID, a.ID)
	assert.ErrorIs(t, err, pkg.ErrUsersNotFriends)
	assert.Zero(t, e.hub.Subscribers(broker.Channel(broker.DefaultLocationPrefix, a.ID)))
}

func TestStreamLocationFiltersForeignEvents(t *testing.T) {
	e := newEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	e.befriend(t, a.ID, b.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := e.locations.StreamLocation(ctx, b.ID, a.ID)
	require.NoError(t, err)

	ch := broker.Channel(broker.DefaultLocationPrefix, a.ID)
	require.NoError(t, e.hub.Publish(ctx, ch, []byte(`not json`)))
	require.NoError(t, e.hub.Publish(ctx, ch, []byte(`{"user_id":"someone-else","latitude":1,"longitude":1}`)))
	require.NoError(t, e.locations.PublishLiveLocation(ctx, a.ID, coords(3, 4)))

	select {
	case ev := <-events:
		assert.Equal(t, a.ID, ev.UserID)
		assert.InDelta(t, 3.0, ev.Latitude, 1e-9)
	case <-time.After(time.Second):
		t.Fatal("no location event")
	}
}

func TestPublishLiveLocationValidation(t *testing.T) {
	e := newEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")

	err := e.locations.PublishLiveLocation(context.Background(), a.ID, coords(100, 0))
	assert.ErrorIs(t, err, pkg.ErrValidation)
}

func TestFriendsLocations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	c := testutil.CreateUser(t, e.db, "carol")
	e.befriend(t, a.ID, b.ID)

	_, err := e.locations.SetLocation(ctx, b.ID, coords(1, 1))
	require.NoError(t, err)
	_, err = e.locations.SetLocation(ctx, c.ID, coords(2, 2))
	require.NoError(t, err)

	locs, err := e.locations.FriendsLocations(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, b.ID, locs[0].UserID)
}

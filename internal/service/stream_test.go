package service

import (
	"context"
	"testing"
	"time"

	"Lee_Social/internal/broker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	N int `json:"n"`
}

func TestPumpFiltersAndClosesOnSubscriptionEnd(t *testing.T) {
	hub := broker.NewHub(0)
	ctx := context.Background()
	sub, err := hub.Subscribe(ctx, "c")
	require.NoError(t, err)

	out := pump(ctx, sub, func(e event) bool { return e.N%2 == 0 })
	for _, raw := range []string{`{"n":1}`, `oops`, `{"n":2}`} {
		require.NoError(t, hub.Publish(ctx, "c", []byte(raw)))
	}

	select {
	case e := <-out:
		assert.Equal(t, 2, e.N)
	case <-time.After(time.Second):
		t.Fatal("no event")
	}

	require.NoError(t, sub.Close())
	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("output not closed")
	}
}

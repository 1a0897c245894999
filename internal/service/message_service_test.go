package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"
	"Lee_Social/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessageRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")

	_, err := e.messages.Send(ctx, a.ID, a.ID, "hi")
	assert.ErrorIs(t, err, pkg.ErrMessageToSelf)

	_, err = e.messages.Send(ctx, a.ID, b.ID, "hi")
	assert.ErrorIs(t, err, pkg.ErrMessageToNonFriend)

	e.befriend(t, a.ID, b.ID)

	_, err = e.messages.Send(ctx, a.ID, b.ID, "   ")
	assert.ErrorIs(t, err, pkg.ErrValidation)
	_, err = e.messages.Send(ctx, a.ID, b.ID, strings.Repeat("x", 4001))
	assert.ErrorIs(t, err, pkg.ErrValidation)

	msg, err := e.messages.Send(ctx, a.ID, b.ID, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, a.ID, msg.SenderID)
	assert.Equal(t, b.ID, msg.RecipientID)
	assert.NotEmpty(t, msg.ID)
}

func TestMessageStreamAndHistory(t *testing.T) {
	e := newEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	e.befriend(t, a.ID, b.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inbox, err := e.messages.Stream(ctx, b.ID)
	require.NoError(t, err)

	sent, err := e.messages.Send(ctx, a.ID, b.ID, "ping")
	require.NoError(t, err)

	select {
	case got := <-inbox:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, "ping", got.Text)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	_, err = e.messages.Send(ctx, b.ID, a.ID, "pong")
	require.NoError(t, err)

	history, err := e.messages.History(ctx, a.ID, b.ID, mysql.Page{})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "ping", history[0].Text)
	assert.Equal(t, "pong", history[1].Text)
}

func TestMessageHistoryRequiresFriendship(t *testing.T) {
	e := newEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")

	_, err := e.messages.History(context.Background(), a.ID, b.ID, mysql.Page{})
	assert.ErrorIs(t, err, pkg.ErrUsersNotFriends)
}

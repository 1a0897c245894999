package mysql_test

import (
	"context"
	"testing"

	"Lee_Social/internal/model"
	"Lee_Social/internal/repository/mysql"
	"Lee_Social/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRetryUntilFailed(t *testing.T) {
	db := testutil.NewDB(t)
	repo := mysql.NewOutboxRepository(db)
	ctx := context.Background()
	ob := &model.SocialOutbox{
		EventType:      model.EventFriendRequestSent,
		RelationshipID: "r1",
		RequesterID:    "a",
		AddresseeID:    "b",
		Payload:        "{}",
	}
	require.NoError(t, db.Create(ob).Error)

	require.NoError(t, repo.RetryUpdate(ctx, ob, 2))
	rows, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Retry)

	require.NoError(t, repo.RetryUpdate(ctx, &rows[0], 2))
	rows, err = repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)

	failed, err := repo.CountByStatus(ctx, model.OutboxFailed)
	require.NoError(t, err)
	assert.EqualValues(t, 1, failed)
}

func TestOutboxRetryKeepsDelivered(t *testing.T) {
	db := testutil.NewDB(t)
	repo := mysql.NewOutboxRepository(db)
	ctx := context.Background()
	ob := &model.SocialOutbox{EventType: model.EventFriendRequestSent, Payload: "{}"}
	require.NoError(t, db.Create(ob).Error)

	ob.Delivered = 0b01
	require.NoError(t, repo.RetryUpdate(ctx, ob, 5))

	rows, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 0b01, rows[0].Delivered)
	assert.Equal(t, 1, rows[0].Retry)
}

func TestOutboxSuccessUpdate(t *testing.T) {
	db := testutil.NewDB(t)
	repo := mysql.NewOutboxRepository(db)
	ctx := context.Background()
	ob := &model.SocialOutbox{EventType: model.EventFriendRequestAccepted, Payload: "{}"}
	require.NoError(t, db.Create(ob).Error)

	require.NoError(t, repo.SuccessUpdate(ctx, ob.ID))

	sent, err := repo.CountByStatus(ctx, model.OutboxSent)
	require.NoError(t, err)
	assert.EqualValues(t, 1, sent)
}

package service

import (
	"context"
	"errors"
	"testing"

	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"
	"Lee_Social/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainOnceMarksSentAndRetries(t *testing.T) {
	db := testutil.NewDB(t)
	repo := mysql.NewOutboxRepository(db)
	ctx := context.Background()
	for _, id := range []string{"ok", "bad"} {
		require.NoError(t, db.Create(&model.SocialOutbox{
			EventType:      model.EventFriendRequestSent,
			RelationshipID: id,
			Payload:        "{}",
		}).Error)
	}

	var seen []string
	sender := func(_ context.Context, ob *model.SocialOutbox) error {
		seen = append(seen, ob.RelationshipID)
		if ob.RelationshipID == "bad" {
			return errors.New("broker down")
		}
		return nil
	}
	r := NewOutboxRelayer(repo, sender, nil)
	r.maxRetry = 2

	r.drainOnce(ctx)
	assert.Equal(t, []string{"ok", "bad"}, seen)
	sent, err := repo.CountByStatus(ctx, model.OutboxSent)
	require.NoError(t, err)
	assert.EqualValues(t, 1, sent)

	r.drainOnce(ctx)
	r.drainOnce(ctx)
	assert.Equal(t, []string{"ok", "bad", "bad"}, seen)
	failed, err := repo.CountByStatus(ctx, model.OutboxFailed)
	require.NoError(t, err)
	assert.EqualValues(t, 1, failed)
}

func TestRelayerStopsWithContext(t *testing.T) {
	r := NewOutboxRelayer(nil, LogSender, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	<-done
}

func TestMultiSenderJoinsErrors(t *testing.T) {
	calls := 0
	ok := func(context.Context, *model.SocialOutbox) error { calls++; return nil }
	fail := func(context.Context, *model.SocialOutbox) error { calls++; return errors.New("nope") }

	err := MultiSender(fail, ok, LogSender)(context.Background(), &model.SocialOutbox{})
	assert.EqualError(t, err, "nope")
	assert.Equal(t, 2, calls)

	assert.NoError(t, MultiSender(ok)(context.Background(), &model.SocialOutbox{}))
}

func TestMultiSenderSkipsDeliveredSenders(t *testing.T) {
	var kafkaCalls, mailCalls int
	kafka := func(context.Context, *model.SocialOutbox) error { kafkaCalls++; return nil }
	mail := func(context.Context, *model.SocialOutbox) error {
		mailCalls++
		if mailCalls == 1 {
			return errors.New("smtp down")
		}
		return nil
	}
	send := MultiSender(kafka, mail)
	ob := &model.SocialOutbox{}

	assert.EqualError(t, send(context.Background(), ob), "smtp down")
	assert.EqualValues(t, 0b01, ob.Delivered)

	require.NoError(t, send(context.Background(), ob))
	assert.EqualValues(t, 0b11, ob.Delivered)
	assert.Equal(t, 1, kafkaCalls)
	assert.Equal(t, 2, mailCalls)
}

func TestDrainOnceDoesNotRepeatSucceededSenders(t *testing.T) {
	db := testutil.NewDB(t)
	repo := mysql.NewOutboxRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Create(&model.SocialOutbox{
		EventType: model.EventFriendRequestSent, RelationshipID: "r1", Payload: "{}",
	}).Error)

	var kafkaCalls, mailCalls int
	kafka := func(context.Context, *model.SocialOutbox) error { kafkaCalls++; return nil }
	mail := func(context.Context, *model.SocialOutbox) error {
		mailCalls++
		if mailCalls < 3 {
			return errors.New("smtp down")
		}
		return nil
	}
	r := NewOutboxRelayer(repo, MultiSender(kafka, mail), nil)

	for i := 0; i < 4; i++ {
		r.drainOnce(ctx)
	}
	assert.Equal(t, 1, kafkaCalls)
	assert.Equal(t, 3, mailCalls)
	sent, err := repo.CountByStatus(ctx, model.OutboxSent)
	require.NoError(t, err)
	assert.EqualValues(t, 1, sent)
}

type recordingWriter struct {
	key       string
	eventType string
	value     []byte
}

func (w *recordingWriter) Send(_ context.Context, key, eventType string, value []byte) error {
	w.key, w.eventType, w.value = key, eventType, value
	return nil
}

func TestKafkaSenderKeysByAddressee(t *testing.T) {
	w := &recordingWriter{}
	err := KafkaSender(w)(context.Background(), &model.SocialOutbox{
		EventType:   model.EventFriendRequestSent,
		AddresseeID: "b",
		Payload:     `{"x":1}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "b", w.key)
	assert.Equal(t, model.EventFriendRequestSent, w.eventType)
	assert.JSONEq(t, `{"x":1}`, string(w.value))
}

func TestFriendRequestMailer(t *testing.T) {
	db := testutil.NewDB(t)
	users := mysql.NewUserRepository(db)
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")

	type mail struct{ to, subject, body string }
	var sent []mail
	m := NewFriendRequestMailer(users, pkg.SMTPConfig{Host: "smtp.example.com"})
	m.send = func(_ context.Context, _ pkg.SMTPConfig, to, subject, body string) error {
		sent = append(sent, mail{to, subject, body})
		return nil
	}
	ctx := context.Background()

	require.NoError(t, m.Send(ctx, &model.SocialOutbox{
		EventType: model.EventFriendRequestSent, RequesterID: a.ID, AddresseeID: b.ID,
	}))
	require.Len(t, sent, 1)
	assert.Equal(t, "bob@example.com", sent[0].to)
	assert.Contains(t, sent[0].body, "alice")

	// 接受事件不发邮件
	require.NoError(t, m.Send(ctx, &model.SocialOutbox{
		EventType: model.EventFriendRequestAccepted, RequesterID: a.ID, AddresseeID: b.ID,
	}))
	// 用户已不存在
	require.NoError(t, m.Send(ctx, &model.SocialOutbox{
		EventType: model.EventFriendRequestSent, RequesterID: a.ID, AddresseeID: "gone",
	}))
	assert.Len(t, sent, 1)

	m.send = func(context.Context, pkg.SMTPConfig, string, string, string) error { return errors.New("smtp down") }
	err := m.Send(ctx, &model.SocialOutbox{
		EventType: model.EventFriendRequestSent, RequesterID: a.ID, AddresseeID: b.ID,
	})
	assert.ErrorContains(t, err, "smtp down")
}

package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"Lee_Social/internal/broker"
	"Lee_Social/internal/model"
	"Lee_Social/internal/observability"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"

	"github.com/google/uuid"
)

const maxMessageLen = 4000

type messageStore interface {
	Create(ctx context.Context, msg *model.Message) error
	Conversation(ctx context.Context, userID, otherID string, page mysql.Page) ([]model.Message, error)
}

type friendChecker interface {
	IsFriends(ctx context.Context, userID, otherID string) (bool, error)
	Authorize(ctx context.Context, viewerID, targetID string) error
}

// MessageService 好友之间的私信
type MessageService struct {
	store   messageStore
	friends friendChecker
	broker  broker.Broker
	prefix  string
	metrics *observability.Metrics
}

func NewMessageService(store messageStore, friends friendChecker, b broker.Broker, prefix string, metrics *observability.Metrics) *MessageService {
	if prefix == "" {
		prefix = broker.DefaultChatPrefix
	}
	return &MessageService{
		store:   store,
		friends: friends,
		broker:  b,
		prefix:  prefix,
		metrics: metrics,
	}
}

// Send 先落库再推送，推送失败不影响发送结果
func (s *MessageService) Send(ctx context.Context, senderID, recipientID, text string) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > maxMessageLen {
		return nil, pkg.ErrValidation
	}
	if senderID == recipientID {
		return nil, pkg.ErrMessageToSelf
	}
	ok, err := s.friends.IsFriends(ctx, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkg.ErrMessageToNonFriend
	}

	msg := &model.Message{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Text:        text,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := s.store.Create(ctx, msg); err != nil {
		return nil, err
	}
	s.metrics.MessageSent()

	payload, err := json.Marshal(msg)
	if err == nil {
		err = s.broker.Publish(ctx, broker.Channel(s.prefix, recipientID), payload)
	}
	if err != nil {
		slog.WarnContext(ctx, "publish message failed", "message_id", msg.ID, "err", err)
	}
	return msg, nil
}

// History 两人之间的消息记录
func (s *MessageService) History(ctx context.Context, actorID, otherID string, page mysql.Page) ([]model.Message, error) {
	if err := s.friends.Authorize(ctx, actorID, otherID); err != nil {
		return nil, err
	}
	return s.store.Conversation(ctx, actorID, otherID, page)
}

// Stream 推送发给 actor 的新消息
func (s *MessageService) Stream(ctx context.Context, actorID string) (<-chan model.Message, error) {
	sub, err := s.broker.Subscribe(ctx, broker.Channel(s.prefix, actorID))
	if err != nil {
		return nil, err
	}
	return pump(ctx, sub, func(m model.Message) bool {
		return m.RecipientID == actorID
	}), nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"Lee_Social/internal/model"
	"Lee_Social/internal/observability"
	"Lee_Social/internal/pkg"
)

type outboxStore interface {
	List(ctx context.Context, batchSize int) ([]model.SocialOutbox, error)
	RetryUpdate(ctx context.Context, ob *model.SocialOutbox, maxRetry int) error
	SuccessUpdate(ctx context.Context, id uint64) error
}

type Sender func(ctx context.Context, ob *model.SocialOutbox) error

// OutboxRelayer 从outbox表读取好友事件异步投递
type OutboxRelayer struct {
	repo      outboxStore
	sender    Sender
	batchSize int
	interval  time.Duration
	maxRetry  int
	metrics   *observability.Metrics
}

func NewOutboxRelayer(repo outboxStore, sender Sender, metrics *observability.Metrics) *OutboxRelayer {
	return &OutboxRelayer{
		repo:      repo,
		sender:    sender,
		batchSize: 200,
		interval:  time.Second,
		maxRetry:  5,
		metrics:   metrics,
	}
}

// Run outbox启动器
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.drainOnce(ctx)
		}
	}
}

// drainOnce 按id顺序投递一批，失败的记重试次数，超过上限后不再投递
func (r *OutboxRelayer) drainOnce(ctx context.Context) {
	rows, err := r.repo.List(ctx, r.batchSize)
	if err != nil {
		slog.ErrorContext(ctx, "outbox query failed", "err", err)
		return
	}
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			slog.WarnContext(ctx, "outbox send failed", "id", ob.ID, "event", ob.EventType, "retry", ob.Retry, "err", err)
			r.metrics.OutboxDelivery("retry")
			if err = r.repo.RetryUpdate(ctx, &ob, r.maxRetry); err != nil {
				slog.ErrorContext(ctx, "outbox retry update failed", "id", ob.ID, "err", err)
			}
			continue
		}
		r.metrics.OutboxDelivery("sent")
		if err = r.repo.SuccessUpdate(ctx, ob.ID); err != nil {
			slog.ErrorContext(ctx, "outbox success update failed", "id", ob.ID, "err", err)
		}
	}
}

// LogSender 没有配置 Kafka 和邮件时使用
func LogSender(ctx context.Context, ob *model.SocialOutbox) error {
	slog.InfoContext(ctx, "outbox event",
		"type", ob.EventType, "requester_id", ob.RequesterID, "addressee_id", ob.AddresseeID, "payload", ob.Payload)
	return nil
}

type kafkaWriter interface {
	Send(ctx context.Context, key, eventType string, value []byte) error
}

// KafkaSender 以接收方id为key，保证同一用户的事件有序
func KafkaSender(p kafkaWriter) Sender {
	return func(ctx context.Context, ob *model.SocialOutbox) error {
		return p.Send(ctx, ob.AddresseeID, ob.EventType, []byte(ob.Payload))
	}
}

// MultiSender 依次调用，所有错误合并返回。第 i 个发送方成功后置 ob.Delivered 的第 i 位，
// 重试时跳过已成功的，失败的那个不会拖着其他发送方重复投递
func MultiSender(senders ...Sender) Sender {
	if len(senders) > 32 {
		panic("outbox: at most 32 senders")
	}
	return func(ctx context.Context, ob *model.SocialOutbox) error {
		var errs []error
		for i, s := range senders {
			bit := uint32(1) << i
			if ob.Delivered&bit != 0 {
				continue
			}
			if err := s(ctx, ob); err != nil {
				errs = append(errs, err)
				continue
			}
			ob.Delivered |= bit
		}
		return errors.Join(errs...)
	}
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// FriendRequestMailer 收到好友请求时给接收方发邮件
type FriendRequestMailer struct {
	users userFinder
	cfg   pkg.SMTPConfig
	send  func(ctx context.Context, cfg pkg.SMTPConfig, to, subject, htmlBody string) error
}

func NewFriendRequestMailer(users userFinder, cfg pkg.SMTPConfig) *FriendRequestMailer {
	return &FriendRequestMailer{users: users, cfg: cfg, send: pkg.SendEmail}
}

func (m *FriendRequestMailer) Send(ctx context.Context, ob *model.SocialOutbox) error {
	if ob.EventType != model.EventFriendRequestSent {
		return nil
	}
	addressee, err := m.users.FindByID(ctx, ob.AddresseeID)
	if err != nil {
		return err
	}
	requester, err := m.users.FindByID(ctx, ob.RequesterID)
	if err != nil {
		return err
	}
	// 用户已被删除，没有可通知的人
	if addressee == nil || requester == nil || addressee.Email == "" {
		return nil
	}
	body := pkg.FriendRequestHTML(addressee.Username, requester.Username)
	if err := m.send(ctx, m.cfg, addressee.Email, "New friend request", body); err != nil {
		return fmt.Errorf("send friend request mail: %w", err)
	}
	return nil
}

package redis

import (
	"context"
	"sync"

	"Lee_Social/internal/broker"

	"github.com/redis/go-redis/v9"
)

const subscriptionBuffer = 64

// PubSub 基于 Redis PUBLISH/SUBSCRIBE 的 Broker，多实例部署时使用
type PubSub struct {
	RDB *redis.Client
}

func NewPubSub(rdb *redis.Client) *PubSub {
	return &PubSub{RDB: rdb}
}

func (p *PubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.RDB.Publish(ctx, channel, payload).Err()
}

// Subscribe 等到 Redis 确认订阅后才返回，之后发布的消息不会丢
func (p *PubSub) Subscribe(ctx context.Context, channel string) (broker.Subscription, error) {
	ps := p.RDB.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	s := &subscription{
		ps:  ps,
		out: make(chan []byte, subscriptionBuffer),
	}
	go s.pump(ps.Channel())
	return s, nil
}

type subscription struct {
	ps   *redis.PubSub
	out  chan []byte
	once sync.Once
	err  error
}

func (s *subscription) pump(in <-chan *redis.Message) {
	defer close(s.out)
	for msg := range in {
		select {
		case s.out <- []byte(msg.Payload):
		default:
		}
	}
}

func (s *subscription) Messages() <-chan []byte {
	return s.out
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.err = s.ps.Close()
	})
	return s.err
}

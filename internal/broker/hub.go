package broker

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultBuffer = 64

// Hub 进程内的 Broker，没有配置 Redis 时使用，只能在单实例内广播
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*hubSubscription]struct{}
	buffer   int
	dropped  atomic.Int64
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		channels: make(map[string]map[*hubSubscription]struct{}),
		buffer:   buffer,
	}
}

type hubSubscription struct {
	hub     *Hub
	channel string
	ch      chan []byte
	once    sync.Once
}

func (s *hubSubscription) Messages() <-chan []byte {
	return s.ch
}

func (s *hubSubscription) Close() error {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
	})
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &hubSubscription{
		hub:     h,
		channel: channel,
		ch:      make(chan []byte, h.buffer),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[*hubSubscription]struct{})
	}
	h.channels[channel][s] = struct{}{}
	return s, nil
}

func (h *Hub) unsubscribe(s *hubSubscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.channels[s.channel]; ok {
		if _, ok := subs[s]; ok {
			delete(subs, s)
			// 关闭通道通知读取方退出
			close(s.ch)
			if len(subs) == 0 {
				delete(h.channels, s.channel)
			}
		}
	}
}

// Publish 非阻塞投递，订阅方缓冲区满时丢弃这条消息
func (h *Hub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.channels[channel] {
		select {
		case s.ch <- payload:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

// Dropped 因为订阅方跟不上而丢弃的消息数
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Subscribers 当前通道上的订阅数
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

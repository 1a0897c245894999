package broker

import (
	"context"
	"fmt"
)

const (
	DefaultLocationPrefix = "channel:location"
	DefaultChatPrefix     = "channel:chat"
)

// Subscription 一次订阅。Messages 在 Close 之后会被关闭
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// Broker 发布订阅通道，发布方不会被慢订阅者阻塞
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Channel 按用户拆分的通道名，例如 channel:location:<user_id>
func Channel(prefix, userID string) string {
	return fmt.Sprintf("%s:%s", prefix, userID)
}

package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"Lee_Social/internal/broker"
)

const streamBuffer = 16

// pump 把订阅里的原始消息解码后转发出去，ctx 结束或订阅关闭时退出并释放订阅
func pump[T any](ctx context.Context, sub broker.Subscription, keep func(T) bool) <-chan T {
	out := make(chan T, streamBuffer)
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-sub.Messages():
				if !ok {
					return
				}
				var v T
				if err := json.Unmarshal(raw, &v); err != nil {
					slog.WarnContext(ctx, "drop malformed event", "err", err)
					continue
				}
				if !keep(v) {
					continue
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

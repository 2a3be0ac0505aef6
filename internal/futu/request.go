package futu

import (
	"context"
	"errors"
	"time"
)

// await 把 SDK 的单次响应通道转成带超时与取消语义的同步等待。
func await[T any](ctx context.Context, timeout time.Duration, ch <-chan *T) (*T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case resp, ok := <-ch:
		if !ok || resp == nil {
			return nil, errors.New("futu: 网关连接已关闭")
		}
		return resp, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}

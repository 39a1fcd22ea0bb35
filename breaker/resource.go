package breaker

import (
	"context"
	"time"
)

// Operation 受熔断保护的操作
type Operation func(ctx context.Context) (any, error)

// TimeoutRunner 资源可选实现的有界执行能力。
// 仅在半开状态且配置了 HalfOpenResourceTimeout 时使用。
type TimeoutRunner interface {
	RunWithTimeout(ctx context.Context, timeout time.Duration, op Operation) (any, error)
}

// ContextTimeout 基于 context.WithTimeout 的 TimeoutRunner。
// 超时后立即返回 ErrResourceTimeout，op 在后台收到取消信号后自行结束。
type ContextTimeout struct{}

func (ContextTimeout) RunWithTimeout(ctx context.Context, timeout time.Duration, op Operation) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   any
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := op(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrResourceTimeout
		}
		return nil, ctx.Err()
	}
}

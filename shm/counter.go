package shm

import "context"

const counterSuffix = "counter"

// Counter 共享计数器，段内只有一个 int32
type Counter struct {
	*handle
}

// NewCounter 创建或连接名为 name 的计数器，新建时为 0
func NewCounter(name string, opts ...Option) (*Counter, error) {
	o, err := applyOptions(opts...)
	if err != nil {
		return nil, err
	}
	h, err := attach(name, counterSuffix, 1, nil, o)
	if err != nil {
		return nil, err
	}
	return &Counter{handle: h}, nil
}

// Increment 加一并返回新值
func (c *Counter) Increment(ctx context.Context) (int, error) {
	var n int
	err := c.withLock(ctx, func(d []int32) error {
		d[0]++
		n = int(d[0])
		return nil
	})
	return n, err
}

// Reset 归零
func (c *Counter) Reset(ctx context.Context) error {
	return c.withLock(ctx, func(d []int32) error {
		d[0] = 0
		return nil
	})
}

// Value 当前值
func (c *Counter) Value(ctx context.Context) (int, error) {
	var n int
	err := c.withLock(ctx, func(d []int32) error {
		n = int(d[0])
		return nil
	})
	return n, err
}

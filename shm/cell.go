package shm

import "context"

const cellSuffix = "cell"

// Cell 共享状态单元，保存一个小的枚举值
type Cell struct {
	*handle
}

// NewCell 创建或连接名为 name 的状态单元，新建时为 0
func NewCell(name string, opts ...Option) (*Cell, error) {
	o, err := applyOptions(opts...)
	if err != nil {
		return nil, err
	}
	h, err := attach(name, cellSuffix, 1, nil, o)
	if err != nil {
		return nil, err
	}
	return &Cell{handle: h}, nil
}

// Set 写入 v
func (c *Cell) Set(ctx context.Context, v int32) error {
	return c.withLock(ctx, func(d []int32) error {
		d[0] = v
		return nil
	})
}

// Value 当前值
func (c *Cell) Value(ctx context.Context) (int32, error) {
	var v int32
	err := c.withLock(ctx, func(d []int32) error {
		v = d[0]
		return nil
	})
	return v, err
}

// Is 当前值是否等于 v
func (c *Cell) Is(ctx context.Context, v int32) (bool, error) {
	cur, err := c.Value(ctx)
	return cur == v, err
}

// Swap 写入 v 并返回旧值
func (c *Cell) Swap(ctx context.Context, v int32) (old int32, err error) {
	err = c.withLock(ctx, func(d []int32) error {
		old, d[0] = d[0], v
		return nil
	})
	return old, err
}

// CompareAndSwap 当前值等于 old 时写入 v
func (c *Cell) CompareAndSwap(ctx context.Context, old, v int32) (swapped bool, err error) {
	err = c.withLock(ctx, func(d []int32) error {
		if d[0] == old {
			d[0] = v
			swapped = true
		}
		return nil
	})
	return swapped, err
}

package shm

import (
	"context"

	"github.com/ceyewan/shmbreaker/clog"
	"github.com/ceyewan/shmbreaker/internal/ipc"
	"github.com/ceyewan/shmbreaker/xerrors"
)

// MaxWindowSize 窗口容量上限，限制单个段的共享内存占用
const MaxWindowSize = 10000

// 段布局：[max_size, length, start, end, data[max_size]]，均为 int32
const (
	hdrMaxSize = iota
	hdrLength
	hdrStart
	hdrEnd
	hdrSlots
)

const windowSuffix = "window"

// Window 共享滑动窗口：固定容量的环形缓冲区，保存 int32 时间戳。
//
// 逻辑顺序从 start 处最旧的元素开始，向后 length 个（模容量）。
// 所有操作都在跨进程锁内完成。
type Window struct {
	*handle
	maxSize int
}

// NewWindow 创建或连接名为 name 的窗口。
//
// maxSize 必须在 1..MaxWindowSize 内；已存在的窗口容量不同也返回 ErrInvalidSize。
func NewWindow(ctx context.Context, name string, maxSize int, opts ...Option) (*Window, error) {
	if maxSize <= 0 || maxSize > MaxWindowSize {
		return nil, xerrors.Wrapf(ErrInvalidSize, "max size %d not in 1..%d", maxSize, MaxWindowSize)
	}
	o, err := applyOptions(opts...)
	if err != nil {
		return nil, err
	}

	h, err := attach(name, windowSuffix, hdrSlots+maxSize, func(data []int32) {
		data[hdrMaxSize] = int32(maxSize)
	}, o)
	if xerrors.Is(err, ipc.ErrSizeMismatch) {
		return nil, xerrors.Combine(ErrInvalidSize, err)
	}
	if err != nil {
		return nil, err
	}

	w := &Window{handle: h, maxSize: maxSize}
	err = w.withLock(ctx, func(d []int32) error {
		switch d[hdrMaxSize] {
		case int32(maxSize):
			return nil
		case 0:
			// 信号量被删除后段被重新创建，头部未初始化
			d[hdrMaxSize] = int32(maxSize)
			d[hdrLength], d[hdrStart], d[hdrEnd] = 0, 0, 0
			return nil
		default:
			return xerrors.Wrapf(ErrInvalidSize, "window %q has max size %d, want %d", name, d[hdrMaxSize], maxSize)
		}
	})
	if err != nil {
		_ = h.Close()
		return nil, err
	}
	return w, nil
}

// MaxSize 窗口容量
func (w *Window) MaxSize() int { return w.maxSize }

// Push 写入 v，窗口已满时先淘汰最旧的一个
func (w *Window) Push(ctx context.Context, v int32) error {
	return w.withLock(ctx, func(d []int32) error {
		capacity := int32(w.maxSize)
		if d[hdrLength] == capacity {
			d[hdrStart] = (d[hdrStart] + 1) % capacity
			d[hdrLength]--
		}
		d[hdrSlots+d[hdrEnd]] = v
		d[hdrEnd] = (d[hdrEnd] + 1) % capacity
		d[hdrLength]++
		return nil
	})
}

// PushEvicting 在同一个临界区内先删除满足 expired 的最旧前缀，再写入 v，返回写入后的元素个数。
//
// v 小于窗口中最新的值时按最新值写入，窗口始终保持非递减。
// expired 在锁内执行，不能再访问本窗口。
func (w *Window) PushEvicting(ctx context.Context, v int32, expired func(int32) bool) (int, error) {
	var n int
	err := w.withLock(ctx, func(d []int32) error {
		capacity := int32(w.maxSize)
		for d[hdrLength] > 0 && expired(d[hdrSlots+d[hdrStart]]) {
			d[hdrStart] = (d[hdrStart] + 1) % capacity
			d[hdrLength]--
		}
		if d[hdrLength] > 0 {
			v = max(v, d[hdrSlots+(d[hdrEnd]-1+capacity)%capacity])
		}
		if d[hdrLength] == capacity {
			d[hdrStart] = (d[hdrStart] + 1) % capacity
			d[hdrLength]--
		}
		d[hdrSlots+d[hdrEnd]] = v
		d[hdrEnd] = (d[hdrEnd] + 1) % capacity
		d[hdrLength]++
		n = int(d[hdrLength])
		return nil
	})
	return n, err
}

// Size 当前元素个数
func (w *Window) Size(ctx context.Context) (int, error) {
	var n int
	err := w.withLock(ctx, func(d []int32) error {
		n = int(d[hdrLength])
		return nil
	})
	return n, err
}

// Values 按从旧到新的顺序返回所有元素的快照
func (w *Window) Values(ctx context.Context) ([]int32, error) {
	var values []int32
	err := w.withLock(ctx, func(d []int32) error {
		values = w.snapshot(d)
		return nil
	})
	return values, err
}

// Last 最近一次写入的值，窗口为空时 ok 为 false
func (w *Window) Last(ctx context.Context) (v int32, ok bool, err error) {
	err = w.withLock(ctx, func(d []int32) error {
		if d[hdrLength] == 0 {
			return nil
		}
		capacity := int32(w.maxSize)
		v, ok = d[hdrSlots+(d[hdrEnd]-1+capacity)%capacity], true
		return nil
	})
	return v, ok, err
}

// Reject 从最旧的一端删除满足 pred 的连续前缀。
//
// pred 先在全部元素上求值；一旦某个元素不满足之后又出现满足的元素，
// 返回 ErrContractViolation，窗口保持不变。
// pred 在锁内执行，不能再访问本窗口。
func (w *Window) Reject(ctx context.Context, pred func(int32) bool) error {
	return w.withLock(ctx, func(d []int32) error {
		values := w.snapshot(d)
		prefix := 0
		for prefix < len(values) && pred(values[prefix]) {
			prefix++
		}
		for i := prefix + 1; i < len(values); i++ {
			if pred(values[i]) {
				w.logger.Warn("reject predicate is not prefix monotonic",
					clog.Int("index", i), clog.Int("prefix", prefix))
				return xerrors.Wrapf(ErrContractViolation, "entry %d selected after entry %d was kept", i, prefix)
			}
		}
		if prefix == 0 {
			return nil
		}
		d[hdrStart] = (d[hdrStart] + int32(prefix)) % int32(w.maxSize)
		d[hdrLength] -= int32(prefix)
		return nil
	})
}

// Clear 清空窗口
func (w *Window) Clear(ctx context.Context) error {
	return w.withLock(ctx, func(d []int32) error {
		d[hdrLength], d[hdrStart], d[hdrEnd] = 0, 0, 0
		return nil
	})
}

func (w *Window) snapshot(d []int32) []int32 {
	n := int(d[hdrLength])
	values := make([]int32, n)
	start := int(d[hdrStart])
	for i := 0; i < n; i++ {
		values[i] = d[hdrSlots+(start+i)%w.maxSize]
	}
	return values
}

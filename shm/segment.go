package shm

import (
	"context"
	"sync"

	"github.com/ceyewan/shmbreaker/clog"
	"github.com/ceyewan/shmbreaker/internal/ipc"
	"github.com/ceyewan/shmbreaker/xerrors"
)

// handle 绑定到一个派生 key 的段，三种原语共用
type handle struct {
	name   string
	seg    ipc.Segment
	logger clog.Logger

	mu     sync.RWMutex
	closed bool
}

func attach(name, suffix string, slots int, init ipc.InitFunc, o *options) (*handle, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	key := ipc.DeriveKey(name, suffix)
	logger := o.logger.With(clog.String("name", name), clog.String("kind", suffix))
	seg, err := o.backend.Attach(key, slots, init)
	if err != nil {
		logger.Warn("attach segment failed",
			clog.Int("key", int(key)),
			clog.ErrorWithCode(err, xerrors.GetCode(err)))
		return nil, xerrors.Wrapf(err, "attach %s %q", suffix, name)
	}

	if seg.Created() {
		logger.Debug("segment created",
			clog.Int("key", int(key)),
			clog.String("driver", string(o.backend.Driver())))
	}
	return &handle{name: name, seg: seg, logger: logger}, nil
}

// withLock 在跨进程锁内访问段数据
func (h *handle) withLock(ctx context.Context, fn func(data []int32) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrClosed
	}
	return ipc.WithLock(ctx, h.seg.Semaphore(), func() error {
		return fn(h.seg.Data())
	})
}

// Name 原语名称
func (h *handle) Name() string { return h.name }

// Close 解除本进程映射，段本身保留给其它进程
func (h *handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.seg.Detach()
}

// Destroy 删除段和信号量（尽力而为），之后句柄不可用
func (h *handle) Destroy() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	if err := h.seg.Remove(); err != nil {
		h.logger.Warn("destroy segment failed", clog.Error(err))
		return err
	}
	return nil
}

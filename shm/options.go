package shm

import (
	"time"

	"github.com/ceyewan/shmbreaker/clog"
	"github.com/ceyewan/shmbreaker/internal/ipc"
)

// Driver 共享内存驱动类型
type Driver = ipc.Driver

const (
	// DriverSysV SysV 共享内存 + 信号量，跨进程共享
	DriverSysV = ipc.DriverSysV
	// DriverMemory 进程内实现，用于测试
	DriverMemory = ipc.DriverMemory
)

// Option 原语初始化选项
type Option func(*options)

type options struct {
	ipc     ipc.Config
	backend ipc.Backend
	logger  clog.Logger
}

// WithDriver 选择驱动，默认 sysv
func WithDriver(driver Driver) Option {
	return func(o *options) {
		o.ipc.Driver = driver
	}
}

// WithLockTimeout 设置获取跨进程锁的最长等待时间，0 表示无限等待
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		o.ipc.LockTimeout = d
	}
}

// WithPermissions 设置新建段的权限位，默认 0660
func WithPermissions(perm uint32) Option {
	return func(o *options) {
		o.ipc.Permissions = perm
	}
}

// WithLogger 注入日志记录器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("shm")
		}
	}
}

func applyOptions(opts ...Option) (*options, error) {
	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	if o.backend == nil {
		b, err := ipc.New(&o.ipc)
		if err != nil {
			return nil, err
		}
		o.backend = b
	}
	return o, nil
}

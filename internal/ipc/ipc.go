// Package ipc 提供单机多进程共享的底层原语：按 key 定位的共享内存段，
// 以及与之配对、用作跨进程互斥锁的二值信号量。
//
// 两种驱动：
//   - sysv:   SysV shmget/shmat + semget/semtimedop，真正跨进程共享
//   - memory: 进程内注册表，语义与 sysv 相同，用于测试和不支持 SysV 的平台
//
// 段的生命周期不做引用计数：Attach 时不存在则创建，Remove 显式销毁，
// Detach 只解除本进程的映射。
package ipc

import (
	"context"
	"time"

	"github.com/ceyewan/shmbreaker/xerrors"
)

// Driver 共享内存驱动类型
type Driver string

const (
	DriverSysV   Driver = "sysv"
	DriverMemory Driver = "memory"
)

// DefaultPermissions 新建段与信号量的默认权限
const DefaultPermissions = 0o660

// Config 后端配置
type Config struct {
	// Driver 选择使用的后端 (sysv | memory)，默认 sysv
	Driver Driver `json:"driver" yaml:"driver" mapstructure:"driver"`

	// Permissions 新建 IPC 对象的权限位，默认 0660
	Permissions uint32 `json:"permissions" yaml:"permissions" mapstructure:"permissions"`

	// LockTimeout 获取信号量的最长等待时间，0 表示无限等待
	LockTimeout time.Duration `json:"lock_timeout" yaml:"lock_timeout" mapstructure:"lock_timeout"`
}

func (c *Config) setDefaults() {
	if c.Driver == "" {
		c.Driver = DriverSysV
	}
	if c.Permissions == 0 {
		c.Permissions = DefaultPermissions
	}
}

func (c *Config) validate() error {
	switch c.Driver {
	case DriverSysV, DriverMemory:
	default:
		return xerrors.Wrapf(ErrUnsupported, "driver %q", c.Driver)
	}
	if c.Permissions > 0o777 {
		return xerrors.Mark(xerrors.New("ipc: permissions must be within 0777"), xerrors.ErrInvalidInput)
	}
	if c.LockTimeout < 0 {
		return xerrors.Mark(xerrors.New("ipc: lock timeout must not be negative"), xerrors.ErrInvalidInput)
	}
	return nil
}

// Semaphore 跨进程二值信号量，作为不可重入的互斥锁使用
type Semaphore interface {
	// Lock 阻塞直到获得锁
	// ctx 结束时返回 ctx.Err()，超过 LockTimeout 返回 ErrLockTimeout
	Lock(ctx context.Context) error

	// Unlock 释放锁，每次成功的 Lock 必须对应且仅对应一次 Unlock
	Unlock() error
}

// Segment 已映射到本进程的共享内存段
type Segment interface {
	// Key 段的 IPC key
	Key() int32

	// Data 段内容，按 int32 槽位访问；只能在持有 Semaphore 时读写
	Data() []int32

	// Semaphore 与段配对的锁
	Semaphore() Semaphore

	// Created 本次 Attach 是否由当前调用者创建并完成初始化
	Created() bool

	// Detach 解除本进程映射，不影响其它进程
	Detach() error

	// Remove 销毁段和信号量（尽力而为，其它进程可能仍持有映射）
	Remove() error
}

// InitFunc 创建者在信号量放行前对新段做的初始化
type InitFunc func(data []int32)

// Backend 按 key 获取共享段
type Backend interface {
	// Attach 获取 key 对应的段，不存在则创建。
	// 创建者在其它进程能拿到锁之前调用 init，不存在无锁的并发初始化。
	Attach(key int32, slots int, init InitFunc) (Segment, error)

	// Driver 后端类型
	Driver() Driver
}

// New 根据配置创建后端
func New(cfg *Config) (Backend, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	c := *cfg
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	switch c.Driver {
	case DriverMemory:
		return newMemoryBackend(&c), nil
	default:
		return newSysVBackend(&c)
	}
}

// WithLock 在持有 sem 的情况下执行 fn。
// 任何退出路径（包括 fn 返回错误或 panic）都会释放锁，释放失败与 fn 的错误合并返回。
func WithLock(ctx context.Context, sem Semaphore, fn func() error) (err error) {
	if err := sem.Lock(ctx); err != nil {
		return err
	}
	defer func() {
		if unlockErr := sem.Unlock(); unlockErr != nil {
			err = xerrors.Combine(err, unlockErr)
		}
	}()
	return fn()
}

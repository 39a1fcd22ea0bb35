package ipc

import "github.com/ceyewan/shmbreaker/xerrors"

var (
	// ErrSharedMemory 创建、映射或操作共享段/信号量失败
	ErrSharedMemory = xerrors.Mark(xerrors.New("ipc: shared memory failure"), xerrors.ErrUnavailable)

	// ErrLockTimeout 在 LockTimeout 内未能获得信号量
	ErrLockTimeout = xerrors.Mark(xerrors.New("ipc: lock acquisition timed out"), xerrors.ErrUnavailable)

	// ErrStaleSemaphore 信号量的创建者在放行前退出，信号量永远停留在 0
	ErrStaleSemaphore = xerrors.Mark(xerrors.New("ipc: semaphore was never released by its creator"), xerrors.ErrUnavailable)

	// ErrNotLocked 释放了未持有的锁
	ErrNotLocked = xerrors.New("ipc: unlock of unlocked semaphore")

	// ErrUnsupported 当前平台不支持该驱动
	ErrUnsupported = xerrors.Mark(xerrors.New("ipc: driver not supported on this platform"), xerrors.ErrUnavailable)

	// ErrInvalidSlots 段大小无效
	ErrInvalidSlots = xerrors.New("ipc: segment must hold at least one slot")

	// ErrSizeMismatch 已存在的段与请求的槽位数不一致
	ErrSizeMismatch = xerrors.New("ipc: existing segment has a different size")
)

// Attach 失败时附带的错误码，标记失败发生在哪一步
const (
	CodeSemaphore = "IPC_SEMAPHORE"
	CodeSegment   = "IPC_SEGMENT"
	CodeMap       = "IPC_MAP"
)

package shm

import (
	"github.com/ceyewan/shmbreaker/internal/ipc"
	"github.com/ceyewan/shmbreaker/xerrors"
)

var (
	// ErrInvalidSize 窗口容量不在 1..MaxWindowSize 内，或与已存在的段不一致
	ErrInvalidSize = xerrors.Mark(xerrors.New("shm: invalid window size"), xerrors.ErrInvalidInput)

	// ErrInvalidName 名称为空
	ErrInvalidName = xerrors.Mark(xerrors.New("shm: name must not be empty"), xerrors.ErrInvalidInput)

	// ErrContractViolation Reject 的谓词选中的不是一个连续前缀
	ErrContractViolation = xerrors.New("shm: reject predicate must select a contiguous prefix")

	// ErrClosed 句柄已关闭或已销毁
	ErrClosed = xerrors.New("shm: handle closed")

	// ErrSharedMemory 共享段或信号量操作失败
	ErrSharedMemory = ipc.ErrSharedMemory

	// ErrLockTimeout 获取跨进程锁超时
	ErrLockTimeout = ipc.ErrLockTimeout
)

//go:build linux && (amd64 || arm64)

package ipc

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ceyewan/shmbreaker/xerrors"
)

const (
	// SEM_UNDO: 进程退出时由内核撤销其未释放的信号量操作
	semUndo = 0x1000

	semGetVal = 12 // GETVAL
	semSetVal = 16 // SETVAL

	// lockSlice 每次 semtimedop 的最长阻塞时间
	lockSlice = 100 * time.Millisecond

	releasePoll  = 10 * time.Millisecond
	staleRetries = 3
)

// staleAfter 信号量自创建起保持为 0 超过该时长，视为创建者已在放行前退出
var staleAfter = 2 * time.Second

// sembuf 对应内核的 struct sembuf
type sembuf struct {
	num uint16
	op  int16
	flg int16
}

type sysvBackend struct {
	perm        int
	lockTimeout time.Duration
}

func newSysVBackend(c *Config) (Backend, error) {
	return &sysvBackend{perm: int(c.Permissions), lockTimeout: c.LockTimeout}, nil
}

func (b *sysvBackend) Driver() Driver { return DriverSysV }

// Attach 获取 key 对应的段和信号量。
//
// 信号量以 IPC_CREAT|IPC_EXCL 创建，新建信号量的值为 0（已加锁）。
// 只有创建者执行 init，随后把值置为 1 放行；
// 其它进程在首次 Lock 时阻塞，直到初始化完成。
func (b *sysvBackend) Attach(key int32, slots int, init InitFunc) (Segment, error) {
	if slots <= 0 {
		return nil, ErrInvalidSlots
	}

	semID, created, err := b.semaphore(key)
	if err != nil {
		return nil, err
	}

	// 失败时回滚本次创建的信号量，避免留下永远为 0 的锁
	fail := func(err error, code string) (Segment, error) {
		if created {
			_ = semctl(semID, unix.IPC_RMID, 0)
		}
		return nil, xerrors.WithCode(err, code)
	}

	size := slots * 4
	shmID, err := unix.SysvShmGet(int(key), size, unix.IPC_CREAT|b.perm)
	if err != nil {
		if errors.Is(err, unix.EINVAL) {
			return fail(xerrors.Wrapf(ErrSizeMismatch, "shmget key %d", key), CodeSegment)
		}
		return fail(xerrors.Wrapf(xerrors.Mark(err, ErrSharedMemory), "shmget key %d", key), CodeSegment)
	}

	buf, err := unix.SysvShmAttach(shmID, 0, 0)
	if err != nil {
		return fail(xerrors.Wrapf(xerrors.Mark(err, ErrSharedMemory), "shmat key %d", key), CodeMap)
	}
	if len(buf) != size {
		_ = unix.SysvShmDetach(buf)
		return fail(xerrors.Wrapf(ErrSizeMismatch, "key %d: have %d bytes, want %d", key, len(buf), size), CodeSegment)
	}

	seg := &sysvSegment{
		key:     key,
		shmID:   shmID,
		buf:     buf,
		data:    unsafe.Slice((*int32)(unsafe.Pointer(&buf[0])), slots),
		created: created,
		sem:     &sysvSemaphore{id: semID, timeout: b.lockTimeout},
	}

	if created {
		if init != nil {
			init(seg.data)
		}
		if err := semctl(semID, semSetVal, 1); err != nil {
			_ = unix.SysvShmDetach(buf)
			return fail(xerrors.Wrapf(xerrors.Mark(err, ErrSharedMemory), "semctl SETVAL key %d", key), CodeSemaphore)
		}
	}
	return seg, nil
}

// semaphore 获取 key 对应的信号量，created 为 true 时由本次调用创建且值为 0。
//
// 已存在的信号量在 staleAfter 内始终未被放行时，视为创建者在 SETVAL 之前退出：
// 删除后重新创建，由本次调用接管初始化。
func (b *sysvBackend) semaphore(key int32) (id int, created bool, err error) {
	for attempt := 0; attempt < staleRetries; attempt++ {
		id, err = semget(key, unix.IPC_CREAT|unix.IPC_EXCL|b.perm)
		if err == nil {
			return id, true, nil
		}
		if !errors.Is(err, unix.EEXIST) {
			return -1, false, semError(err, "semget", key)
		}

		id, err = semget(key, b.perm)
		if errors.Is(err, unix.ENOENT) {
			continue // 刚被删除
		}
		if err != nil {
			return -1, false, semError(err, "semget", key)
		}

		stale, err := awaitRelease(id)
		if gone(err) {
			continue
		}
		if err != nil {
			return -1, false, semError(err, "semctl IPC_STAT", key)
		}
		if !stale {
			return id, false, nil
		}
		if err := semctl(id, unix.IPC_RMID, 0); err != nil && !gone(err) {
			return -1, false, semError(err, "semctl IPC_RMID", key)
		}
	}
	return -1, false, xerrors.WithCode(xerrors.Wrapf(ErrStaleSemaphore, "key %d", key), CodeSemaphore)
}

func semError(err error, op string, key int32) error {
	return xerrors.WithCode(xerrors.Wrapf(xerrors.Mark(err, ErrSharedMemory), "%s key %d", op, key), CodeSemaphore)
}

// awaitRelease 等待创建者放行信号量，staleAfter 内仍未放行时返回 true
func awaitRelease(id int) (stale bool, err error) {
	deadline := time.Now().Add(staleAfter)
	for {
		released, err := semReleased(id)
		if err != nil || released {
			return false, err
		}
		if time.Now().After(deadline) {
			return true, nil
		}
		time.Sleep(releasePoll)
	}
}

type sysvSegment struct {
	key     int32
	shmID   int
	buf     []byte
	data    []int32
	created bool
	sem     *sysvSemaphore

	detached atomic.Bool
}

func (s *sysvSegment) Key() int32           { return s.key }
func (s *sysvSegment) Data() []int32        { return s.data }
func (s *sysvSegment) Semaphore() Semaphore { return s.sem }
func (s *sysvSegment) Created() bool        { return s.created }

func (s *sysvSegment) Detach() error {
	if !s.detached.CompareAndSwap(false, true) {
		return nil
	}
	if err := unix.SysvShmDetach(s.buf); err != nil {
		return xerrors.Wrapf(xerrors.Mark(err, ErrSharedMemory), "shmdt key %d", s.key)
	}
	return nil
}

// Remove 标记段删除（最后一个映射解除后由内核回收）并立即删除信号量
func (s *sysvSegment) Remove() error {
	var errs []error
	if _, err := unix.SysvShmCtl(s.shmID, unix.IPC_RMID, nil); err != nil && !gone(err) {
		errs = append(errs, xerrors.Wrapf(xerrors.Mark(err, ErrSharedMemory), "shmctl IPC_RMID key %d", s.key))
	}
	if err := semctl(s.sem.id, unix.IPC_RMID, 0); err != nil && !gone(err) {
		errs = append(errs, xerrors.Wrapf(xerrors.Mark(err, ErrSharedMemory), "semctl IPC_RMID key %d", s.key))
	}
	if err := s.Detach(); err != nil {
		errs = append(errs, err)
	}
	return xerrors.Combine(errs...)
}

type sysvSemaphore struct {
	id      int
	timeout time.Duration
	held    atomic.Int32
}

// Lock P 操作。
// 按 lockSlice 分片等待，每片之间检查 ctx 和 LockTimeout；
// 信号量自创建起从未被放行且等待超过 staleAfter 时返回 ErrStaleSemaphore。
func (s *sysvSemaphore) Lock(ctx context.Context) error {
	ops := []sembuf{{num: 0, op: -1, flg: semUndo}}

	start := time.Now()
	var lockDeadline time.Time
	if s.timeout > 0 {
		lockDeadline = start.Add(s.timeout)
	}
	ctxDeadline, hasCtxDeadline := ctx.Deadline()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		wait := lockSlice
		if !lockDeadline.IsZero() {
			remain := time.Until(lockDeadline)
			if remain <= 0 {
				return ErrLockTimeout
			}
			wait = min(wait, remain)
		}
		if hasCtxDeadline {
			remain := time.Until(ctxDeadline)
			if remain <= 0 {
				return context.DeadlineExceeded
			}
			wait = min(wait, remain)
		}
		ts := unix.NsecToTimespec(int64(wait))

		err := semtimedop(s.id, ops, &ts)
		switch {
		case err == nil:
			s.held.Add(1)
			return nil
		case errors.Is(err, unix.EAGAIN):
			if time.Since(start) < staleAfter {
				continue
			}
			if released, err := semReleased(s.id); err == nil && !released {
				return xerrors.Wrapf(ErrStaleSemaphore, "semaphore %d", s.id)
			}
		case errors.Is(err, unix.EINTR):
			continue
		default:
			return xerrors.Wrap(xerrors.Mark(err, ErrSharedMemory), "semtimedop")
		}
	}
}

// Unlock V 操作
func (s *sysvSemaphore) Unlock() error {
	if s.held.Add(-1) < 0 {
		s.held.Add(1)
		return ErrNotLocked
	}
	ops := []sembuf{{num: 0, op: 1, flg: semUndo}}
	for {
		err := semtimedop(s.id, ops, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return xerrors.Wrap(xerrors.Mark(err, ErrSharedMemory), "semop")
		}
		return nil
	}
}

// value 读取信号量当前值，仅用于测试
func (s *sysvSemaphore) value() (int, error) {
	return semValue(s.id)
}

// semidDS 对应内核的 struct semid64_ds，只读取 sem_otime，其余字段按两种架构中较大的布局留出空间
type semidDS struct {
	perm  [48]byte // struct ipc64_perm
	otime int64
	_     [64]byte
}

// semReleased 信号量是否已被放行过：值非 0，或者曾有进程对它执行过 semop
func semReleased(id int) (bool, error) {
	v, err := semValue(id)
	if err != nil || v != 0 {
		return v != 0, err
	}
	var ds semidDS
	_, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(id), 0, unix.IPC_STAT, uintptr(unsafe.Pointer(&ds)), 0, 0)
	if errno != 0 {
		return false, errno
	}
	return ds.otime != 0, nil
}

func semValue(id int) (int, error) {
	v, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(id), 0, semGetVal, 0, 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return int(v), nil
}

func semget(key int32, flags int) (int, error) {
	id, _, errno := unix.Syscall(unix.SYS_SEMGET, uintptr(key), 1, uintptr(flags))
	if errno != 0 {
		return -1, errno
	}
	return int(id), nil
}

func semctl(id, cmd, val int) error {
	_, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(id), 0, uintptr(cmd), uintptr(val), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func semtimedop(id int, ops []sembuf, ts *unix.Timespec) error {
	_, _, errno := unix.Syscall6(unix.SYS_SEMTIMEDOP,
		uintptr(id), uintptr(unsafe.Pointer(&ops[0])), uintptr(len(ops)),
		uintptr(unsafe.Pointer(ts)), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// gone 对象已被其它进程删除
func gone(err error) bool {
	return errors.Is(err, unix.EINVAL) || errors.Is(err, unix.EIDRM)
}

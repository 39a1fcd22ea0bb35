package ipc

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// memRegion 进程内的"共享段"，同一 key 的所有 Attach 共享同一份数据
type memRegion struct {
	data []int32
	sem  chan struct{} // 容量为 1，有令牌表示未加锁
}

var memRegistry = struct {
	sync.Mutex
	regions map[int32]*memRegion
}{regions: make(map[int32]*memRegion)}

type memoryBackend struct {
	lockTimeout time.Duration
}

func newMemoryBackend(c *Config) Backend {
	return &memoryBackend{lockTimeout: c.LockTimeout}
}

func (b *memoryBackend) Driver() Driver { return DriverMemory }

func (b *memoryBackend) Attach(key int32, slots int, init InitFunc) (Segment, error) {
	if slots <= 0 {
		return nil, ErrInvalidSlots
	}

	memRegistry.Lock()
	defer memRegistry.Unlock()

	region, ok := memRegistry.regions[key]
	if ok {
		if len(region.data) != slots {
			return nil, ErrSizeMismatch
		}
	} else {
		region = &memRegion{
			data: make([]int32, slots),
			sem:  make(chan struct{}, 1),
		}
		// 注册表锁保证初始化先于任何 Lock
		if init != nil {
			init(region.data)
		}
		region.sem <- struct{}{}
		memRegistry.regions[key] = region
	}

	return &memSegment{
		key:     key,
		region:  region,
		created: !ok,
		sem:     &memSemaphore{region: region, timeout: b.lockTimeout},
	}, nil
}

type memSegment struct {
	key     int32
	region  *memRegion
	created bool
	sem     *memSemaphore
}

func (s *memSegment) Key() int32           { return s.key }
func (s *memSegment) Data() []int32        { return s.region.data }
func (s *memSegment) Semaphore() Semaphore { return s.sem }
func (s *memSegment) Created() bool        { return s.created }
func (s *memSegment) Detach() error        { return nil }

func (s *memSegment) Remove() error {
	memRegistry.Lock()
	defer memRegistry.Unlock()
	if memRegistry.regions[s.key] == s.region {
		delete(memRegistry.regions, s.key)
	}
	return nil
}

type memSemaphore struct {
	region  *memRegion
	timeout time.Duration
	held    atomic.Int32
}

func (m *memSemaphore) Lock(ctx context.Context) error {
	// 快路径
	select {
	case <-m.region.sem:
		m.held.Add(1)
		return nil
	default:
	}

	var timeoutC <-chan time.Time
	if m.timeout > 0 {
		timer := time.NewTimer(m.timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	select {
	case <-m.region.sem:
		m.held.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timeoutC:
		return ErrLockTimeout
	}
}

func (m *memSemaphore) Unlock() error {
	if m.held.Add(-1) < 0 {
		m.held.Add(1)
		return ErrNotLocked
	}
	select {
	case m.region.sem <- struct{}{}:
		return nil
	default:
		return ErrNotLocked
	}
}

package breaker

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/shmbreaker/shm"
	"github.com/ceyewan/shmbreaker/testkit"
	"github.com/ceyewan/shmbreaker/xerrors"
)

// ============================================================
// 辅助函数
// ============================================================

var errBoom = errors.New("boom")

func newTestConfig() *Config {
	return &Config{
		Name:             testkit.NewName("breaker"),
		SuccessThreshold: 2,
		ErrorThreshold:   3,
		ErrorTimeout:     10 * time.Second,
		Driver:           shm.DriverMemory,
	}
}

func newTestBreaker(t *testing.T, cfg *Config, clock *testkit.Clock, opts ...Option) *Breaker {
	t.Helper()
	opts = append([]Option{
		WithClock(clock.Now),
		WithLogger(testkit.NewLogger()),
		WithKillSwitch(KillSwitchFunc(func() bool { return false })),
	}, opts...)
	b, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Destroy() })
	return b
}

func fail(err error) Operation {
	return func(context.Context) (any, error) { return nil, err }
}

func succeed(v any) Operation {
	return func(context.Context) (any, error) { return v, nil }
}

func requireState(t *testing.T, b *Breaker, want State) {
	t.Helper()
	got, err := b.State(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got, "state")
}

// recordEvents 收集指定熔断器的状态变更事件
func recordEvents(t *testing.T, name string) func() []Event {
	t.Helper()
	var mu sync.Mutex
	var events []Event
	unsubscribe := Subscribe(func(e Event) {
		if e.Breaker != name {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})
	t.Cleanup(unsubscribe)
	return func() []Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]Event(nil), events...)
	}
}

// ============================================================
// 构造与配置
// ============================================================

func TestNew(t *testing.T) {
	t.Run("nil 配置", func(t *testing.T) {
		_, err := New(nil)
		assert.ErrorIs(t, err, ErrConfigNil)
	})

	invalid := map[string]func(c *Config){
		"空名称":        func(c *Config) { c.Name = "" },
		"成功阈值为 0":    func(c *Config) { c.SuccessThreshold = 0 },
		"失败阈值为负":     func(c *Config) { c.ErrorThreshold = -1 },
		"失败阈值超过窗口上限": func(c *Config) { c.ErrorThreshold = shm.MaxWindowSize + 1 },
		"错误超时为 0":    func(c *Config) { c.ErrorTimeout = 0 },
		"负的资源超时":     func(c *Config) { c.HalfOpenResourceTimeout = -time.Second },
		"未知驱动":       func(c *Config) { c.Driver = "posix" },
		"权限越界":       func(c *Config) { c.Permissions = 0o1000 },
	}
	for name, mutate := range invalid {
		t.Run(name, func(t *testing.T) {
			cfg := newTestConfig()
			mutate(cfg)
			_, err := New(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
		})
	}

	t.Run("默认值", func(t *testing.T) {
		cfg := newTestConfig()
		b := newTestBreaker(t, cfg, testkit.NewClock(time.Now()))
		assert.Equal(t, cfg.ErrorTimeout, b.Config().ErrorThresholdWindow)
		assert.Equal(t, cfg.Name, b.Name())
		requireState(t, b, StateClosed)
	})

	t.Run("调用方的配置不被修改", func(t *testing.T) {
		cfg := newTestConfig()
		newTestBreaker(t, cfg, testkit.NewClock(time.Now()))
		assert.Zero(t, cfg.ErrorThresholdWindow)
	})
}

// ============================================================
// 状态机场景
// ============================================================

func TestThresholdTrip(t *testing.T) {
	ctx := context.Background()
	clock := testkit.NewClock(time.Unix(1_700_000_000, 0))
	b := newTestBreaker(t, newTestConfig(), clock)

	for i := 0; i < 2; i++ {
		_, err := b.Acquire(ctx, nil, fail(errBoom))
		require.ErrorIs(t, err, errBoom)
		requireState(t, b, StateClosed)
	}

	_, err := b.Acquire(ctx, nil, fail(errBoom))
	assert.Same(t, errBoom, err, "原始错误原样返回")
	requireState(t, b, StateOpen)

	called := false
	_, err = b.Acquire(ctx, nil, func(context.Context) (any, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrOpenCircuit)
	assert.False(t, called, "打开状态不执行操作")

	var openErr *OpenCircuitError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, b.Name(), openErr.Breaker)
	assert.Equal(t, clock.Now().Unix(), openErr.LastErrorAt.Unix())
	assert.Equal(t, errBoom, b.LastError())
}

func TestRecovery(t *testing.T) {
	ctx := context.Background()
	clock := testkit.NewClock(time.Unix(1_700_000_000, 0))
	b := newTestBreaker(t, newTestConfig(), clock)
	events := recordEvents(t, b.Name())

	for i := 0; i < 3; i++ {
		_, _ = b.Acquire(ctx, nil, fail(errBoom))
	}
	requireState(t, b, StateOpen)

	t.Run("未超时仍拒绝", func(t *testing.T) {
		clock.Advance(5 * time.Second)
		_, err := b.Acquire(ctx, nil, succeed("ok"))
		assert.ErrorIs(t, err, ErrOpenCircuit)
	})

	clock.Advance(6 * time.Second)
	v, err := b.Acquire(ctx, nil, succeed("ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	requireState(t, b, StateHalfOpen)

	_, err = b.Acquire(ctx, nil, succeed("ok"))
	require.NoError(t, err)
	requireState(t, b, StateClosed)

	snap, err := b.Snapshot(ctx)
	require.NoError(t, err)
	assert.Zero(t, snap.ErrorCount, "关闭时清空窗口")
	assert.False(t, snap.InUse)

	var transitions [][2]State
	for _, e := range events() {
		transitions = append(transitions, [2]State{e.From, e.To})
	}
	assert.Equal(t, [][2]State{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}, transitions)
}

func TestHalfOpenRegression(t *testing.T) {
	ctx := context.Background()
	clock := testkit.NewClock(time.Unix(1_700_000_000, 0))
	cfg := newTestConfig()
	cfg.SuccessThreshold = 5
	b := newTestBreaker(t, cfg, clock)

	for i := 0; i < 3; i++ {
		_, _ = b.Acquire(ctx, nil, fail(errBoom))
	}
	clock.Advance(11 * time.Second)

	for i := 0; i < 4; i++ {
		_, err := b.Acquire(ctx, nil, succeed(i))
		require.NoError(t, err)
	}
	requireState(t, b, StateHalfOpen)

	_, err := b.Acquire(ctx, nil, fail(errBoom))
	assert.ErrorIs(t, err, errBoom)
	requireState(t, b, StateOpen)

	_, err = b.Acquire(ctx, nil, succeed(nil))
	assert.ErrorIs(t, err, ErrOpenCircuit)
}

func TestErrorOptOut(t *testing.T) {
	ctx := context.Background()
	clock := testkit.NewClock(time.Unix(1_700_000_000, 0))
	b := newTestBreaker(t, newTestConfig(), clock)

	for i := 0; i < 5; i++ {
		ignored := Ignore(errBoom)
		_, err := b.Acquire(ctx, nil, fail(ignored))
		assert.Same(t, ignored, err)
		assert.ErrorIs(t, err, errBoom)
	}

	snap, err := b.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, snap.State)
	assert.Zero(t, snap.ErrorCount)
	assert.Nil(t, b.LastError())
}

func TestCountableErrors(t *testing.T) {
	ctx := context.Background()
	clock := testkit.NewClock(time.Unix(1_700_000_000, 0))
	errTimeout := errors.New("timeout")

	b := newTestBreaker(t, newTestConfig(), clock, WithCountableErrors(errTimeout))

	for i := 0; i < 5; i++ {
		_, _ = b.Acquire(ctx, nil, fail(errBoom))
	}
	requireState(t, b, StateClosed)

	for i := 0; i < 3; i++ {
		_, _ = b.Acquire(ctx, nil, fail(xerrors.Wrap(errTimeout, "query")))
	}
	requireState(t, b, StateOpen)
}

func TestErrorThresholdWindow(t *testing.T) {
	ctx := context.Background()
	clock := testkit.NewClock(time.Unix(1_700_000_000, 0))
	cfg := newTestConfig()
	cfg.ErrorThresholdWindow = 5 * time.Second
	b := newTestBreaker(t, cfg, clock)

	_, _ = b.Acquire(ctx, nil, fail(errBoom))
	_, _ = b.Acquire(ctx, nil, fail(errBoom))
	clock.Advance(6 * time.Second)

	// 前两次失败已滑出窗口
	_, _ = b.Acquire(ctx, nil, fail(errBoom))
	requireState(t, b, StateClosed)
	snap, err := b.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ErrorCount)

	_, _ = b.Acquire(ctx, nil, fail(errBoom))
	_, _ = b.Acquire(ctx, nil, fail(errBoom))
	requireState(t, b, StateOpen)
}

func TestInUse(t *testing.T) {
	ctx := context.Background()
	clock := testkit.NewClock(time.Unix(1_700_000_000, 0))
	b := newTestBreaker(t, newTestConfig(), clock)

	inUse, err := b.InUse(ctx)
	require.NoError(t, err)
	assert.False(t, inUse, "窗口为空")

	_, _ = b.Acquire(ctx, nil, fail(errBoom))
	inUse, err = b.InUse(ctx)
	require.NoError(t, err)
	assert.True(t, inUse)

	clock.Advance(11 * time.Second)
	inUse, err = b.InUse(ctx)
	require.NoError(t, err)
	assert.False(t, inUse, "超过 ErrorTimeout")
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	clock := testkit.NewClock(time.Unix(1_700_000_000, 0))
	b := newTestBreaker(t, newTestConfig(), clock)

	for i := 0; i < 3; i++ {
		_, _ = b.Acquire(ctx, nil, fail(errBoom))
	}
	requireState(t, b, StateOpen)

	require.NoError(t, b.Reset(ctx))
	snap, err := b.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{State: StateClosed}, snap)
}

// ============================================================
// 共享状态
// ============================================================

func TestSharedAcrossHandles(t *testing.T) {
	ctx := context.Background()
	clock := testkit.NewClock(time.Unix(1_700_000_000, 0))
	cfg := newTestConfig()
	first := newTestBreaker(t, cfg, clock)

	second, err := New(cfg, WithClock(clock.Now), WithKeepSharedState(),
		WithKillSwitch(KillSwitchFunc(func() bool { return false })))
	require.NoError(t, err)
	defer second.Close()

	_, _ = first.Acquire(ctx, nil, fail(errBoom))
	_, _ = second.Acquire(ctx, nil, fail(errBoom))
	_, _ = first.Acquire(ctx, nil, fail(errBoom))

	_, err = second.Acquire(ctx, nil, succeed(nil))
	assert.ErrorIs(t, err, ErrOpenCircuit, "其它句柄的失败同样生效")
	assert.Equal(t, errBoom, second.LastError())

	t.Run("默认构造会重置共享状态", func(t *testing.T) {
		third, err := New(cfg, WithClock(clock.Now),
			WithKillSwitch(KillSwitchFunc(func() bool { return false })))
		require.NoError(t, err)
		defer third.Close()
		requireState(t, first, StateClosed)
	})
}

func TestSingleHalfOpenTransition(t *testing.T) {
	ctx := context.Background()
	clock := testkit.NewClock(time.Unix(1_700_000_000, 0))
	cfg := newTestConfig()
	cfg.SuccessThreshold = 100
	first := newTestBreaker(t, cfg, clock)
	events := recordEvents(t, cfg.Name)

	handles := []*Breaker{first}
	for i := 0; i < 3; i++ {
		h, err := New(cfg, WithClock(clock.Now), WithKeepSharedState(),
			WithKillSwitch(KillSwitchFunc(func() bool { return false })))
		require.NoError(t, err)
		defer h.Close()
		handles = append(handles, h)
	}

	for i := 0; i < 3; i++ {
		_, _ = first.Acquire(ctx, nil, fail(errBoom))
	}
	clock.Advance(11 * time.Second)

	var wg sync.WaitGroup
	for _, h := range handles {
		wg.Add(1)
		go func(h *Breaker) {
			defer wg.Done()
			_, err := h.Acquire(ctx, nil, succeed(nil))
			assert.NoError(t, err)
		}(h)
	}
	wg.Wait()

	halfOpen := 0
	for _, e := range events() {
		if e.To == StateHalfOpen {
			halfOpen++
		}
	}
	assert.Equal(t, 1, halfOpen, "只有一个句柄执行 Open -> HalfOpen")
}

// attachHandle 以 WithKeepSharedState 连接到 cfg 对应的共享状态，模拟另一个进程
func attachHandle(t *testing.T, cfg *Config, clock *testkit.Clock) *Breaker {
	t.Helper()
	h, err := New(cfg, WithClock(clock.Now), WithKeepSharedState(),
		WithLogger(testkit.NewLogger()),
		WithKillSwitch(KillSwitchFunc(func() bool { return false })))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func requireSnapshot(t *testing.T, b *Breaker) Snapshot {
	t.Helper()
	snap, err := b.Snapshot(context.Background())
	require.NoError(t, err)
	return snap
}

func TestHalfOpenCountStartsFresh(t *testing.T) {
	ctx := context.Background()
	clock := testkit.NewClock(time.Unix(1_700_000_000, 0))
	cfg := newTestConfig()
	cfg.SuccessThreshold = 5
	a := newTestBreaker(t, cfg, clock)
	b := attachHandle(t, cfg, clock)

	for i := 0; i < 3; i++ {
		_, _ = a.Acquire(ctx, nil, fail(errBoom))
	}
	clock.Advance(11 * time.Second)
	for i := 0; i < 4; i++ {
		_, err := a.Acquire(ctx, nil, succeed(nil))
		require.NoError(t, err)
	}
	_, _ = a.Acquire(ctx, nil, fail(errBoom))
	requireState(t, a, StateOpen)
	assert.Zero(t, requireSnapshot(t, a).SuccessCount, "进入 Open 时清零成功计数")

	// a 完成 Open -> HalfOpen 后，b 的一次成功只计一次
	clock.Advance(11 * time.Second)
	require.NoError(t, a.transitionToHalfOpenIfDue(ctx))
	requireState(t, b, StateHalfOpen)

	_, err := b.Acquire(ctx, nil, succeed(nil))
	require.NoError(t, err)
	requireState(t, b, StateHalfOpen)
	assert.Equal(t, 1, requireSnapshot(t, b).SuccessCount)

	for i := 0; i < 4; i++ {
		_, err := b.Acquire(ctx, nil, succeed(nil))
		require.NoError(t, err)
	}
	requireState(t, a, StateClosed)
}

func TestStaleTransitionsDoNotOverride(t *testing.T) {
	ctx := context.Background()
	clock := testkit.NewClock(time.Unix(1_700_000_000, 0))
	cfg := newTestConfig()
	a := newTestBreaker(t, cfg, clock)
	b := attachHandle(t, cfg, clock)

	for i := 0; i < 3; i++ {
		_, _ = a.Acquire(ctx, nil, fail(errBoom))
	}
	clock.Advance(11 * time.Second)
	_, err := a.Acquire(ctx, nil, succeed(nil))
	require.NoError(t, err)
	requireState(t, a, StateHalfOpen)

	// b 的失败先把熔断器打开，a 基于旧状态的关闭不再生效
	_, err = b.Acquire(ctx, nil, fail(errBoom))
	require.ErrorIs(t, err, errBoom)
	requireState(t, a, StateOpen)

	require.NoError(t, a.transitionTo(ctx, StateHalfOpen, StateClosed))
	requireState(t, a, StateOpen)
	snap := requireSnapshot(t, a)
	assert.NotZero(t, snap.ErrorCount, "窗口保留失败记录")
	assert.Equal(t, clock.Now().Unix(), snap.LastErrorAt.Unix())

	_, err = a.Acquire(ctx, nil, succeed(nil))
	assert.ErrorIs(t, err, ErrOpenCircuit)

	t.Run("旧的 Closed 判断不会打开已半开的熔断器", func(t *testing.T) {
		clock.Advance(11 * time.Second)
		require.NoError(t, a.transitionToHalfOpenIfDue(ctx))
		require.NoError(t, b.transitionTo(ctx, StateClosed, StateOpen))
		requireState(t, a, StateHalfOpen)
	})
}

func TestInterleavedFailuresKeepTripping(t *testing.T) {
	ctx := context.Background()
	start := time.Unix(1_700_000_000, 0)

	t.Run("乱序窗口", func(t *testing.T) {
		clock := testkit.NewClock(start)
		b := newTestBreaker(t, newTestConfig(), clock)

		// 两个进程的淘汰与写入交错后留下的 [T, T-1]
		require.NoError(t, b.window.Push(ctx, int32(start.Unix())))
		require.NoError(t, b.window.Push(ctx, int32(start.Unix()-1)))
		clock.Advance(11 * time.Second)

		for i := 0; i < 3; i++ {
			_, err := b.Acquire(ctx, nil, fail(errBoom))
			require.Same(t, errBoom, err, "失败被正常记录")
		}
		requireState(t, b, StateOpen)
	})

	t.Run("句柄时钟交错", func(t *testing.T) {
		ahead := testkit.NewClock(start)
		behind := testkit.NewClock(start.Add(-time.Second))
		cfg := newTestConfig()
		a := newTestBreaker(t, cfg, ahead)
		b := attachHandle(t, cfg, behind)

		_, _ = a.Acquire(ctx, nil, fail(errBoom))
		_, _ = b.Acquire(ctx, nil, fail(errBoom))
		values, err := a.window.Values(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int32{int32(start.Unix()), int32(start.Unix())}, values)

		ahead.Advance(10 * time.Second)
		behind.Advance(10 * time.Second)
		_, err = b.Acquire(ctx, nil, fail(errBoom))
		require.Same(t, errBoom, err)
		requireState(t, a, StateOpen)
	})
}

// ============================================================
// 外部能力
// ============================================================

func TestKillSwitch(t *testing.T) {
	ctx := context.Background()
	clock := testkit.NewClock(time.Unix(1_700_000_000, 0))
	cfg := newTestConfig()

	disabled := false
	b := newTestBreaker(t, cfg, clock, WithKillSwitch(KillSwitchFunc(func() bool { return disabled })))

	for i := 0; i < 3; i++ {
		_, _ = b.Acquire(ctx, nil, fail(errBoom))
	}
	requireState(t, b, StateOpen)

	disabled = true
	v, err := b.Acquire(ctx, nil, succeed("direct"))
	require.NoError(t, err)
	assert.Equal(t, "direct", v)

	_, err = b.Acquire(ctx, nil, fail(errBoom))
	assert.ErrorIs(t, err, errBoom)
	snap, err := b.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.ErrorCount, "禁用时不记账")

	disabled = false
	_, err = b.Acquire(ctx, nil, succeed(nil))
	assert.ErrorIs(t, err, ErrOpenCircuit, "每次调用重新检查")
}

func TestEnvKillSwitch(t *testing.T) {
	ks := EnvKillSwitch{}

	unset := func(t *testing.T, keys ...string) {
		for _, key := range keys {
			t.Setenv(key, "") // 测试结束时恢复原值
			require.NoError(t, os.Unsetenv(key))
		}
	}

	t.Run("未设置", func(t *testing.T) {
		unset(t, EnvDisabled, EnvCircuitBreakerDisabled)
		assert.False(t, ks.Disabled())
	})

	t.Run("空值同样生效", func(t *testing.T) {
		unset(t, EnvCircuitBreakerDisabled)
		t.Setenv(EnvDisabled, "")
		assert.True(t, ks.Disabled())
	})

	t.Run("SHMBREAKER_DISABLED", func(t *testing.T) {
		t.Setenv(EnvDisabled, "1")
		assert.True(t, ks.Disabled())
	})

	t.Run("SHMBREAKER_CIRCUIT_BREAKER_DISABLED", func(t *testing.T) {
		t.Setenv(EnvCircuitBreakerDisabled, "true")
		assert.True(t, ks.Disabled())
	})
}

// slowResource 实现 TimeoutRunner 并记录调用
type slowResource struct {
	ContextTimeout
	calls int
}

func (r *slowResource) RunWithTimeout(ctx context.Context, timeout time.Duration, op Operation) (any, error) {
	r.calls++
	return r.ContextTimeout.RunWithTimeout(ctx, timeout, op)
}

func TestHalfOpenResourceTimeout(t *testing.T) {
	ctx := context.Background()
	clock := testkit.NewClock(time.Unix(1_700_000_000, 0))
	cfg := newTestConfig()
	cfg.HalfOpenResourceTimeout = 20 * time.Millisecond
	b := newTestBreaker(t, cfg, clock)
	res := &slowResource{}

	slow := func(ctx context.Context) (any, error) {
		select {
		case <-time.After(time.Second):
			return "late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	t.Run("Closed 时不使用时间上限", func(t *testing.T) {
		_, err := b.Acquire(ctx, res, succeed(nil))
		require.NoError(t, err)
		assert.Zero(t, res.calls)
	})

	for i := 0; i < 3; i++ {
		_, _ = b.Acquire(ctx, res, fail(errBoom))
	}
	clock.Advance(11 * time.Second)

	_, err := b.Acquire(ctx, res, slow)
	assert.ErrorIs(t, err, ErrResourceTimeout)
	assert.Equal(t, 1, res.calls)
	requireState(t, b, StateOpen)

	t.Run("资源未实现 TimeoutRunner", func(t *testing.T) {
		clock.Advance(11 * time.Second)
		v, err := b.Acquire(ctx, "plain", succeed("ok"))
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
	})
}

func TestExecuteGeneric(t *testing.T) {
	ctx := context.Background()
	b := newTestBreaker(t, newTestConfig(), testkit.NewClock(time.Unix(1_700_000_000, 0)))

	n, err := Execute(ctx, b, nil, func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n, err = Execute(ctx, b, nil, func(context.Context) (int, error) { return 0, errBoom })
	assert.ErrorIs(t, err, errBoom)
	assert.Zero(t, n)
}

func TestBookkeepingFailure(t *testing.T) {
	ctx := context.Background()
	b := newTestBreaker(t, newTestConfig(), testkit.NewClock(time.Unix(1_700_000_000, 0)))

	// 关闭句柄后记账必然失败
	require.NoError(t, b.window.Close())
	_, err := b.Acquire(ctx, nil, fail(errBoom))
	assert.ErrorIs(t, err, errBoom)
	assert.ErrorIs(t, err, shm.ErrClosed)
}

func TestOpenCircuitError(t *testing.T) {
	err := error(&OpenCircuitError{Breaker: "mysql"})
	assert.ErrorIs(t, err, ErrOpenCircuit)
	assert.NotErrorIs(t, errBoom, ErrOpenCircuit)
	assert.Contains(t, err.Error(), "mysql")

	wrapped := xerrors.Wrap(err, "query users")
	assert.ErrorIs(t, wrapped, ErrOpenCircuit)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}

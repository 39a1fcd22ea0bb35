// Package breaker 提供单机多进程共享的熔断器。
//
// 熔断器的状态、半开成功计数和失败时间窗口都保存在以 Name 派生 key 的
// SysV 共享内存段中，由二值信号量保护。一个进程观察到的失败会立即保护
// 同一主机上使用相同 Name 的所有进程，不需要任何网络协调。
//
// 状态机：
//
//	Closed   --(窗口内失败数达到 ErrorThreshold)-->  Open
//	Open     --(距最近一次失败超过 ErrorTimeout)-->   HalfOpen（每次调用时惰性检查）
//	HalfOpen --(连续成功达到 SuccessThreshold)-->   Closed
//	HalfOpen --(任意一次失败)-->                     Open
//
// 被保护的操作永远不在跨进程锁内执行。
//
// ## 基本使用
//
//	brk, err := breaker.New(&breaker.Config{
//		Name:             "mysql_primary",
//		SuccessThreshold: 2,
//		ErrorThreshold:   3,
//		ErrorTimeout:     10 * time.Second,
//	}, breaker.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer brk.Close()
//
//	rows, err := breaker.Execute(ctx, brk, nil, func(ctx context.Context) (int, error) {
//		return queryRows(ctx)
//	})
//	if errors.Is(err, breaker.ErrOpenCircuit) {
//		// 快速失败
//	}
//
// ## 全局禁用
//
// 设置环境变量 SHMBREAKER_DISABLED 或 SHMBREAKER_CIRCUIT_BREAKER_DISABLED 后，
// Acquire 直接执行操作，跳过所有熔断逻辑。每次调用都会重新检查。
package breaker

import (
	"context"
	"sync"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/shmbreaker/clog"
	"github.com/ceyewan/shmbreaker/shm"
	"github.com/ceyewan/shmbreaker/xerrors"
)

// State 熔断器状态，数值即共享状态单元中保存的值
type State int32

const (
	// StateClosed 闭合状态（正常）
	StateClosed State = iota
	// StateOpen 打开状态（快速失败）
	StateOpen
	// StateHalfOpen 半开状态（探测恢复）
	StateHalfOpen
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// 共享段名称后缀，窗口直接使用 Name
const (
	stateSuffix     = "/state"
	successesSuffix = "/successes"
)

// Breaker 绑定到一组共享段的熔断器句柄。
// 同一进程内可并发使用；不同进程通过相同 Name 共享状态。
type Breaker struct {
	cfg Config

	state     *shm.Cell
	successes *shm.Counter
	window    *shm.Window

	logger     clog.Logger
	now        func() time.Time
	killSwitch KillSwitch
	countable  func(error) bool
	ins        *instruments
	tracer     oteltrace.Tracer

	// 仅本进程可见，用于诊断
	mu          sync.Mutex
	lastError   error
	lastErrorAt time.Time
}

// Snapshot 熔断器状态快照
type Snapshot struct {
	State        State
	ErrorCount   int
	SuccessCount int
	LastErrorAt  time.Time // 窗口中最新的失败时间，窗口为空时为零值
	InUse        bool
}

// New 创建或连接名为 cfg.Name 的熔断器。
//
// 默认会把共享状态重置为 Closed，见 WithKeepSharedState。
func New(cfg *Config, opts ...Option) (*Breaker, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	c := *cfg
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With(clog.String(LabelBreaker, c.Name))

	ctx := context.Background()
	shmOpts := append(c.shmOptions(), shm.WithLogger(o.logger))

	window, err := shm.NewWindow(ctx, c.Name, c.ErrorThreshold, shmOpts...)
	if err != nil {
		return nil, xerrors.Wrapf(err, "breaker %q", c.Name)
	}
	successes, err := shm.NewCounter(c.Name+successesSuffix, shmOpts...)
	if err != nil {
		_ = window.Close()
		return nil, xerrors.Wrapf(err, "breaker %q", c.Name)
	}
	state, err := shm.NewCell(c.Name+stateSuffix, shmOpts...)
	if err != nil {
		_ = xerrors.Combine(window.Close(), successes.Close())
		return nil, xerrors.Wrapf(err, "breaker %q", c.Name)
	}

	b := &Breaker{
		cfg:        c,
		state:      state,
		successes:  successes,
		window:     window,
		logger:     logger,
		now:        o.now,
		killSwitch: o.killSwitch,
		countable:  o.countable,
		ins:        newInstruments(o.meter, logger),
		tracer:     o.tracerProvider.Tracer(tracerName),
	}

	if !o.keepState {
		if err := b.Reset(ctx); err != nil {
			_ = b.Close()
			return nil, err
		}
	}

	logger.Info("circuit breaker created",
		clog.Int("success_threshold", c.SuccessThreshold),
		clog.Int("error_threshold", c.ErrorThreshold),
		clog.Duration("error_timeout", c.ErrorTimeout),
		clog.Duration("error_threshold_window", c.ErrorThresholdWindow),
		clog.Duration("half_open_resource_timeout", c.HalfOpenResourceTimeout),
		clog.String("driver", string(c.Driver)))
	return b, nil
}

// Name 熔断器名称
func (b *Breaker) Name() string { return b.cfg.Name }

// Config 返回生效的配置（已填充默认值）
func (b *Breaker) Config() Config { return b.cfg }

// Acquire 在熔断保护下执行 op。
//
//  1. 全局禁用时直接执行 op
//  2. 惰性检查 Open -> HalfOpen
//  3. 非 Closed/HalfOpen 时返回 *OpenCircuitError，不执行 op
//  4. 执行 op；HalfOpen 且配置了 HalfOpenResourceTimeout 时，
//     若 resource 实现了 TimeoutRunner，则在时间上限内执行
//  5. 计入统计的失败：记录到窗口并可能打开熔断器，原样返回 op 的错误
//  6. 成功：HalfOpen 下累加成功次数，达到阈值后关闭
//
// 记账本身失败时返回 errors.Join(opErr, bookkeepingErr)。
func (b *Breaker) Acquire(ctx context.Context, resource any, op Operation) (v any, err error) {
	ctx, span := b.startSpan(ctx)
	defer func() { endSpan(span, err) }()

	if b.killSwitch.Disabled() {
		b.record(ctx, resultBypassed, 0)
		return op(ctx)
	}

	if err := b.transitionToHalfOpenIfDue(ctx); err != nil {
		return nil, err
	}
	state, err := b.State(ctx)
	if err != nil {
		return nil, err
	}
	b.ins.recordState(ctx, b.cfg.Name, state)
	if state != StateClosed && state != StateHalfOpen {
		b.record(ctx, resultRejected, 0)
		return nil, b.openCircuitError(ctx)
	}

	start := time.Now()
	result, opErr := b.run(ctx, state, resource, op)
	duration := time.Since(start)

	if opErr != nil {
		if !b.counts(opErr) {
			b.record(ctx, resultIgnored, duration)
			return result, opErr
		}
		b.record(ctx, resultFailure, duration)
		if err := b.markFailed(ctx, opErr); err != nil {
			b.logger.Error("record failure failed",
				clog.Error(err),
				clog.String("operation_error", opErr.Error()))
			return result, xerrors.Join(opErr, err)
		}
		return result, opErr
	}

	b.record(ctx, resultSuccess, duration)
	if err := b.markSuccess(ctx); err != nil {
		b.logger.Error("record success failed", clog.Error(err))
		return result, err
	}
	return result, nil
}

// Execute 是 Acquire 的泛型版本
func Execute[T any](ctx context.Context, b *Breaker, resource any, op func(ctx context.Context) (T, error)) (T, error) {
	v, err := b.Acquire(ctx, resource, func(ctx context.Context) (any, error) {
		return op(ctx)
	})
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, err
	}
	return t, err
}

// State 当前共享状态
func (b *Breaker) State(ctx context.Context) (State, error) {
	v, err := b.state.Value(ctx)
	return State(v), err
}

// InUse 距最近一次失败未超过 ErrorTimeout 且窗口非空
func (b *Breaker) InUse(ctx context.Context) (bool, error) {
	expired, err := b.errorTimeoutExpired(ctx)
	if err != nil {
		return false, err
	}
	if expired {
		return false, nil
	}
	size, err := b.window.Size(ctx)
	return size > 0, err
}

// LastError 本进程最近一次计入统计的失败
func (b *Breaker) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastError
}

// Snapshot 读取当前状态快照，各字段分别加锁读取
func (b *Breaker) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	var err error
	if s.State, err = b.State(ctx); err != nil {
		return s, err
	}
	if s.ErrorCount, err = b.window.Size(ctx); err != nil {
		return s, err
	}
	if s.SuccessCount, err = b.successes.Value(ctx); err != nil {
		return s, err
	}
	last, ok, err := b.window.Last(ctx)
	if err != nil {
		return s, err
	}
	if ok {
		s.LastErrorAt = time.Unix(int64(last), 0)
	}
	s.InUse = ok && !b.timeoutElapsedSince(last)
	return s, nil
}

// Reset 清空窗口与成功计数并强制进入 Closed
func (b *Breaker) Reset(ctx context.Context) error {
	if err := b.window.Clear(ctx); err != nil {
		return err
	}
	if err := b.successes.Reset(ctx); err != nil {
		return err
	}
	old, err := b.state.Swap(ctx, int32(StateClosed))
	if err != nil {
		return err
	}
	if from := State(old); from != StateClosed {
		b.emitTransition(ctx, from, StateClosed)
	}
	return nil
}

// Close 解除本进程的映射，共享状态保留给其它进程
func (b *Breaker) Close() error {
	return xerrors.Combine(b.window.Close(), b.successes.Close(), b.state.Close())
}

// Destroy 删除共享段（尽力而为），仍连接着的其它进程不受影响直到它们重新连接
func (b *Breaker) Destroy() error {
	err := xerrors.Combine(b.window.Destroy(), b.successes.Destroy(), b.state.Destroy())
	if err != nil {
		b.logger.Warn("destroy circuit breaker failed", clog.Error(err))
	}
	return err
}

func (b *Breaker) counts(err error) bool {
	if b.countable != nil && !b.countable(err) {
		return false
	}
	return marksCircuit(err)
}

func (b *Breaker) run(ctx context.Context, state State, resource any, op Operation) (any, error) {
	if state == StateHalfOpen && b.cfg.HalfOpenResourceTimeout > 0 {
		if runner, ok := resource.(TimeoutRunner); ok {
			return runner.RunWithTimeout(ctx, b.cfg.HalfOpenResourceTimeout, op)
		}
	}
	return op(ctx)
}

// transitionToHalfOpenIfDue Open 且距最近一次失败超过 ErrorTimeout 时进入 HalfOpen。
// 多个进程同时发现超时时，只有 CAS 成功的一个执行转换。
// 成功计数在 CAS 之前清零，CAS 之后被放行的调用都计入本轮半开。
func (b *Breaker) transitionToHalfOpenIfDue(ctx context.Context) error {
	state, err := b.State(ctx)
	if err != nil || state != StateOpen {
		return err
	}
	// 窗口为空的 Open 只会由并发的关闭与打开交错产生，没有需要等待的失败
	last, ok, err := b.window.Last(ctx)
	if err != nil || (ok && !b.timeoutElapsedSince(last)) {
		return err
	}
	if err := b.successes.Reset(ctx); err != nil {
		return err
	}
	swapped, err := b.state.CompareAndSwap(ctx, int32(StateOpen), int32(StateHalfOpen))
	if err != nil || !swapped {
		return err
	}
	b.emitTransition(ctx, StateOpen, StateHalfOpen)
	return nil
}

func (b *Breaker) markFailed(ctx context.Context, opErr error) error {
	now := b.now()
	b.mu.Lock()
	b.lastError = opErr
	b.lastErrorAt = now
	b.mu.Unlock()

	nowSec := time.Unix(now.Unix(), 0)
	size, err := b.window.PushEvicting(ctx, int32(nowSec.Unix()), func(t int32) bool {
		return time.Unix(int64(t), 0).Add(b.cfg.ErrorThresholdWindow).Before(nowSec)
	})
	if err != nil {
		return err
	}

	state, err := b.State(ctx)
	if err != nil {
		return err
	}
	switch state {
	case StateClosed:
		if size >= b.cfg.ErrorThreshold {
			return b.transitionTo(ctx, StateClosed, StateOpen)
		}
	case StateHalfOpen:
		return b.transitionTo(ctx, StateHalfOpen, StateOpen)
	}
	return nil
}

func (b *Breaker) markSuccess(ctx context.Context) error {
	state, err := b.State(ctx)
	if err != nil || state != StateHalfOpen {
		return err
	}
	n, err := b.successes.Increment(ctx)
	if err != nil {
		return err
	}
	if n >= b.cfg.SuccessThreshold {
		return b.transitionTo(ctx, StateHalfOpen, StateClosed)
	}
	return nil
}

// transitionTo 仅当共享状态仍为 from 时切换到 to，并重置对应原语。
// 其它进程已先一步改变状态时什么也不做。
func (b *Breaker) transitionTo(ctx context.Context, from, to State) error {
	swapped, err := b.state.CompareAndSwap(ctx, int32(from), int32(to))
	if err != nil || !swapped {
		return err
	}
	switch to {
	case StateClosed:
		err = b.window.Clear(ctx)
	case StateOpen:
		err = b.successes.Reset(ctx)
	}
	if err != nil {
		return err
	}
	b.emitTransition(ctx, from, to)
	return nil
}

func (b *Breaker) emitTransition(ctx context.Context, from, to State) {
	now := b.now()
	notify(Event{Breaker: b.cfg.Name, From: from, To: to, Time: now})
	b.ins.recordTransition(ctx, b.cfg.Name, from, to)
	traceTransition(ctx, from, to)

	fields := []clog.Field{
		clog.String("from", from.String()),
		clog.String("to", to.String()),
		clog.Int("success_threshold", b.cfg.SuccessThreshold),
		clog.Int("error_threshold", b.cfg.ErrorThreshold),
		clog.Duration("error_timeout", b.cfg.ErrorTimeout),
	}
	if n, err := b.window.Size(ctx); err == nil {
		fields = append(fields, clog.Int("error_count", n))
	}
	if n, err := b.successes.Value(ctx); err == nil {
		fields = append(fields, clog.Int("success_count", n))
	}
	b.mu.Lock()
	lastErr, lastAt := b.lastError, b.lastErrorAt
	b.mu.Unlock()
	if lastErr != nil {
		fields = append(fields,
			clog.String("last_error", lastErr.Error()),
			clog.Time("last_error_at", lastAt))
	}
	b.logger.Info("circuit breaker state changed", fields...)
}

func (b *Breaker) errorTimeoutExpired(ctx context.Context) (bool, error) {
	last, ok, err := b.window.Last(ctx)
	if err != nil || !ok {
		return false, err
	}
	return b.timeoutElapsedSince(last), nil
}

func (b *Breaker) timeoutElapsedSince(last int32) bool {
	return time.Unix(int64(last), 0).Add(b.cfg.ErrorTimeout).Before(b.now())
}

func (b *Breaker) openCircuitError(ctx context.Context) error {
	e := &OpenCircuitError{Breaker: b.cfg.Name}
	if last, ok, err := b.window.Last(ctx); err == nil && ok {
		e.LastErrorAt = time.Unix(int64(last), 0)
	}
	return e
}

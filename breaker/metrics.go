package breaker

import (
	"context"
	"time"

	"github.com/ceyewan/shmbreaker/clog"
	"github.com/ceyewan/shmbreaker/metrics"
)

// Metrics 指标常量定义
const (
	// MetricAcquireTotal Acquire 调用次数 (Counter)，按 result 区分
	MetricAcquireTotal = "shmbreaker_acquire_total"

	// MetricStateChanges 状态变更次数 (Counter)
	MetricStateChanges = "shmbreaker_state_changes_total"

	// MetricAcquireDuration 被保护操作耗时 (Histogram)
	MetricAcquireDuration = "shmbreaker_acquire_duration_seconds"

	// MetricState 当前状态 (Gauge)：0=closed 1=open 2=half_open
	MetricState = "shmbreaker_state"

	// LabelBreaker 熔断器名称标签
	LabelBreaker = "breaker"

	// LabelResult 结果标签
	LabelResult = "result"

	// LabelFromState 源状态标签
	LabelFromState = "from_state"

	// LabelToState 目标状态标签
	LabelToState = "to_state"
)

// result 标签取值
const (
	resultSuccess  = "success"
	resultFailure  = "failure"
	resultIgnored  = "ignored"
	resultRejected = "rejected"
	resultBypassed = "bypassed"
)

// instruments 创建失败的指标保持为 nil，记录时跳过
type instruments struct {
	acquires     metrics.Counter
	stateChanges metrics.Counter
	duration     metrics.Histogram
	state        metrics.Gauge
}

func newInstruments(meter metrics.Meter, logger clog.Logger) *instruments {
	ins := &instruments{}
	if meter == nil {
		return ins
	}
	var err error
	if ins.acquires, err = meter.Counter(MetricAcquireTotal, "Circuit breaker acquire calls"); err != nil {
		logger.Warn("create metric failed", clog.String("metric", MetricAcquireTotal), clog.Error(err))
	}
	if ins.stateChanges, err = meter.Counter(MetricStateChanges, "Circuit breaker state changes"); err != nil {
		logger.Warn("create metric failed", clog.String("metric", MetricStateChanges), clog.Error(err))
	}
	if ins.duration, err = meter.Histogram(MetricAcquireDuration, "Protected operation duration", metrics.WithUnit("s")); err != nil {
		logger.Warn("create metric failed", clog.String("metric", MetricAcquireDuration), clog.Error(err))
	}
	if ins.state, err = meter.Gauge(MetricState, "Circuit breaker state observed by this process"); err != nil {
		logger.Warn("create metric failed", clog.String("metric", MetricState), clog.Error(err))
	}
	return ins
}

func (ins *instruments) recordAcquire(ctx context.Context, name, result string, duration time.Duration) {
	if ins.acquires != nil {
		ins.acquires.Inc(ctx, metrics.L(LabelBreaker, name), metrics.L(LabelResult, result))
	}
	if ins.duration != nil && duration > 0 {
		ins.duration.Record(ctx, duration.Seconds(), metrics.L(LabelBreaker, name))
	}
}

func (ins *instruments) recordTransition(ctx context.Context, name string, from, to State) {
	if ins.stateChanges != nil {
		ins.stateChanges.Inc(ctx,
			metrics.L(LabelBreaker, name),
			metrics.L(LabelFromState, from.String()),
			metrics.L(LabelToState, to.String()))
	}
	ins.recordState(ctx, name, to)
}

func (ins *instruments) recordState(ctx context.Context, name string, s State) {
	if ins.state != nil {
		ins.state.Set(ctx, float64(s), metrics.L(LabelBreaker, name))
	}
}

package breaker

import (
	"time"

	"go.opentelemetry.io/otel"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/shmbreaker/clog"
	"github.com/ceyewan/shmbreaker/metrics"
	"github.com/ceyewan/shmbreaker/xerrors"
)

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	logger     clog.Logger
	meter      metrics.Meter
	now        func() time.Time
	killSwitch KillSwitch
	countable  func(error) bool
	keepState  bool

	tracerProvider oteltrace.TracerProvider
}

func defaultOptions() options {
	return options{
		logger:     clog.Discard(),
		now:        time.Now,
		killSwitch: EnvKillSwitch{},

		tracerProvider: otel.GetTracerProvider(),
	}
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
// 内部会自动添加 namespace: "breaker"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("breaker")
		}
	}
}

// WithMeter 设置指标收集器，nil 表示不记录指标
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithClock 替换时间源，主要用于测试
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithKillSwitch 替换全局禁用开关，默认读取环境变量
func WithKillSwitch(ks KillSwitch) Option {
	return func(o *options) {
		if ks != nil {
			o.killSwitch = ks
		}
	}
}

// WithCountableErrors 只有匹配 targets 之一（errors.Is）的错误才计入熔断统计
//
// 使用示例:
//
//	brk, _ := breaker.New(cfg,
//		breaker.WithCountableErrors(context.DeadlineExceeded, syscall.ECONNREFUSED),
//	)
func WithCountableErrors(targets ...error) Option {
	return func(o *options) {
		o.countable = func(err error) bool {
			for _, target := range targets {
				if xerrors.Is(err, target) {
					return true
				}
			}
			return false
		}
	}
}

// WithErrorClassifier 自定义哪些错误计入熔断统计，覆盖 WithCountableErrors
func WithErrorClassifier(fn func(error) bool) Option {
	return func(o *options) {
		o.countable = fn
	}
}

// WithKeepSharedState 构造时不重置共享状态。
// 默认 New 会把熔断器重置为 Closed；新进程加入已在运行的进程组时，
// 使用该选项以保留其它进程观察到的状态。
func WithKeepSharedState() Option {
	return func(o *options) {
		o.keepState = true
	}
}

// WithTracerProvider 设置 TracerProvider，默认使用 otel 全局 Provider
func WithTracerProvider(tp oteltrace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// Package metrics 提供基于 OpenTelemetry 的指标收集能力。
//
// 指标通过 OpenTelemetry Prometheus Exporter 导出，每个 Meter 使用独立的
// Prometheus Registry，可通过 Handler 挂载到任意 HTTP 服务，
// 或在 Config.Port > 0 时由内置 HTTP 服务器暴露。
//
// 快速开始：
//
//	meter, err := metrics.New(&metrics.Config{
//	    Enabled:     true,
//	    ServiceName: "order-worker",
//	    Port:        9090,
//	    Path:        "/metrics",
//	})
//	if err != nil {
//	    return err
//	}
//	defer meter.Shutdown(ctx)
//
//	brk, _ := breaker.New(cfg, breaker.WithMeter(meter))
package metrics

import "context"

// Counter 计数器，只增不减
type Counter interface {
	// Inc 加 1
	Inc(ctx context.Context, labels ...Label)
	// Add 加 val，val 应为非负数
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 仪表盘，记录可增可减的瞬时值，例如熔断器当前状态
type Gauge interface {
	// Set 设置为 val
	Set(ctx context.Context, val float64, labels ...Label)
	// Inc 加 1
	Inc(ctx context.Context, labels ...Label)
	// Dec 减 1
	Dec(ctx context.Context, labels ...Label)
}

// Histogram 直方图，记录值的分布，例如被保护操作的耗时
type Histogram interface {
	Record(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标创建工厂。
// 同名指标重复创建时返回同一底层 instrument，可在多个 goroutine 中并发使用。
type Meter interface {
	// Counter 创建计数器，name 应符合 Prometheus 命名规范
	Counter(name string, desc string, opts ...MetricOption) (Counter, error)

	// Gauge 创建仪表盘
	Gauge(name string, desc string, opts ...MetricOption) (Gauge, error)

	// Histogram 创建直方图
	Histogram(name string, desc string, opts ...MetricOption) (Histogram, error)

	// Shutdown 刷新指标并关闭内置 HTTP 服务器
	Shutdown(ctx context.Context) error
}

// MetricOption 指标配置选项
type MetricOption func(*MetricOptions)

// MetricOptions 指标选项
type MetricOptions struct {
	// Unit 单位，建议使用 UCUM 代码，例如 "s"、"By"
	Unit string
}

// WithUnit 设置指标单位
func WithUnit(unit string) MetricOption {
	return func(o *MetricOptions) {
		o.Unit = unit
	}
}

func applyMetricOptions(opts []MetricOption) *MetricOptions {
	o := &MetricOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

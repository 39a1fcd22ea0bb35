package breaker

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/ceyewan/shmbreaker/breaker"

	// SpanAcquire 每次 Acquire 对应的 span 名称
	SpanAcquire = "shmbreaker.acquire"

	// EventStateChange 状态变更时添加到当前 span 的事件名称
	EventStateChange = "shmbreaker.state_change"

	attrBreaker = "shmbreaker.breaker"
	attrResult  = "shmbreaker.result"
)

func (b *Breaker) startSpan(ctx context.Context) (context.Context, oteltrace.Span) {
	return b.tracer.Start(ctx, SpanAcquire,
		oteltrace.WithSpanKind(oteltrace.SpanKindInternal),
		oteltrace.WithAttributes(attribute.String(attrBreaker, b.cfg.Name)))
}

func endSpan(span oteltrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// record 同时写入指标与 span 属性
func (b *Breaker) record(ctx context.Context, result string, duration time.Duration) {
	b.ins.recordAcquire(ctx, b.cfg.Name, result, duration)
	oteltrace.SpanFromContext(ctx).SetAttributes(attribute.String(attrResult, result))
}

func traceTransition(ctx context.Context, from, to State) {
	oteltrace.SpanFromContext(ctx).AddEvent(EventStateChange, oteltrace.WithAttributes(
		attribute.String(LabelFromState, from.String()),
		attribute.String(LabelToState, to.String()),
	))
}

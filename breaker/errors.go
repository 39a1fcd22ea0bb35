package breaker

import (
	"fmt"
	"time"

	"github.com/ceyewan/shmbreaker/xerrors"
)

// 错误定义
var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.Mark(xerrors.New("breaker: config is nil"), xerrors.ErrInvalidInput)

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = xerrors.Mark(xerrors.New("breaker: invalid config"), xerrors.ErrInvalidInput)

	// ErrOpenCircuit 熔断器处于打开状态，请求未执行
	ErrOpenCircuit = xerrors.New("breaker: circuit is open")

	// ErrResourceTimeout 半开状态下资源调用超出时间上限
	ErrResourceTimeout = xerrors.New("breaker: resource timed out while half open")

	// ErrRegistryClosed 注册表已关闭
	ErrRegistryClosed = xerrors.New("breaker: registry closed")
)

// OpenCircuitError 熔断器打开时 Acquire 返回的错误
//
// 与被保护操作自身的失败区分：
//
//	if errors.Is(err, breaker.ErrOpenCircuit) {
//		// 快速失败，走降级
//	}
type OpenCircuitError struct {
	// Breaker 熔断器名称
	Breaker string
	// LastErrorAt 最近一次失败的时间（共享窗口中的最新时间戳）
	LastErrorAt time.Time
}

func (e *OpenCircuitError) Error() string {
	if e.LastErrorAt.IsZero() {
		return fmt.Sprintf("breaker %q: circuit is open", e.Breaker)
	}
	return fmt.Sprintf("breaker %q: circuit is open (last error at %s)", e.Breaker, e.LastErrorAt.Format(time.RFC3339))
}

// Is 支持 errors.Is(err, ErrOpenCircuit)
func (e *OpenCircuitError) Is(target error) bool {
	return target == ErrOpenCircuit
}

// CircuitMarker 可由被保护操作返回的错误实现，用于声明该错误是否计入熔断统计。
// 未实现时默认计入。
type CircuitMarker interface {
	MarksCircuit() bool
}

// marksCircuit 错误链上第一个 CircuitMarker 决定是否计入
func marksCircuit(err error) bool {
	var marker CircuitMarker
	if xerrors.As(err, &marker) {
		return marker.MarksCircuit()
	}
	return true
}

// IgnoredError 包装一个不计入熔断统计的错误
type IgnoredError struct {
	Err error
}

// Ignore 包装 err，使其不计入熔断统计；Is/As 仍能穿透到 err
func Ignore(err error) error {
	if err == nil {
		return nil
	}
	return &IgnoredError{Err: err}
}

func (e *IgnoredError) Error() string      { return e.Err.Error() }
func (e *IgnoredError) Unwrap() error      { return e.Err }
func (e *IgnoredError) MarksCircuit() bool { return false }

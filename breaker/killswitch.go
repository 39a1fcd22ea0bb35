package breaker

import "os"

// 全局禁用熔断的环境变量，存在即生效（与取值无关）
const (
	EnvDisabled               = "SHMBREAKER_DISABLED"
	EnvCircuitBreakerDisabled = "SHMBREAKER_CIRCUIT_BREAKER_DISABLED"
)

// KillSwitch 全局禁用开关，每次 Acquire 都会重新查询
type KillSwitch interface {
	Disabled() bool
}

// KillSwitchFunc 函数适配器
type KillSwitchFunc func() bool

func (f KillSwitchFunc) Disabled() bool { return f() }

// EnvKillSwitch 任一环境变量存在时禁用
type EnvKillSwitch struct{}

func (EnvKillSwitch) Disabled() bool {
	if _, ok := os.LookupEnv(EnvDisabled); ok {
		return true
	}
	_, ok := os.LookupEnv(EnvCircuitBreakerDisabled)
	return ok
}

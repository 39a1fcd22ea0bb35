package breaker

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/ceyewan/shmbreaker/shm"
	"github.com/ceyewan/shmbreaker/xerrors"
)

// Config 熔断器配置，New 之后不可变
//
// 典型配置示例（YAML）：
//
//	name: mysql_primary
//	success_threshold: 2
//	error_threshold: 3
//	error_timeout: 10s
//	error_threshold_window: 60s
//	half_open_resource_timeout: 1s
type Config struct {
	// Name 熔断器标识，派生共享段的 key；相同 Name 的进程共享同一个熔断器
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// SuccessThreshold 半开状态下连续成功多少次后关闭
	SuccessThreshold int `json:"success_threshold" yaml:"success_threshold" mapstructure:"success_threshold"`

	// ErrorThreshold 窗口内失败多少次后打开，同时是窗口容量
	ErrorThreshold int `json:"error_threshold" yaml:"error_threshold" mapstructure:"error_threshold"`

	// ErrorTimeout 打开后距最近一次失败多久进入半开
	ErrorTimeout time.Duration `json:"error_timeout" yaml:"error_timeout" mapstructure:"error_timeout"`

	// ErrorThresholdWindow 失败计数的时间窗口，默认等于 ErrorTimeout
	ErrorThresholdWindow time.Duration `json:"error_threshold_window" yaml:"error_threshold_window" mapstructure:"error_threshold_window"`

	// HalfOpenResourceTimeout 半开状态下资源调用的时间上限，0 表示不限制
	HalfOpenResourceTimeout time.Duration `json:"half_open_resource_timeout" yaml:"half_open_resource_timeout" mapstructure:"half_open_resource_timeout"`

	// Driver 共享内存驱动 (sysv | memory)，默认 sysv
	Driver shm.Driver `json:"driver" yaml:"driver" mapstructure:"driver"`

	// LockTimeout 获取跨进程锁的最长等待时间，0 表示无限等待
	LockTimeout time.Duration `json:"lock_timeout" yaml:"lock_timeout" mapstructure:"lock_timeout"`

	// Permissions 新建共享段的权限位，默认 0660
	Permissions uint32 `json:"permissions" yaml:"permissions" mapstructure:"permissions"`
}

func (c *Config) setDefaults() {
	if c.ErrorThresholdWindow == 0 {
		c.ErrorThresholdWindow = c.ErrorTimeout
	}
	if c.Driver == "" {
		c.Driver = shm.DriverSysV
	}
}

// Validate 校验配置，错误可用 errors.Is(err, ErrInvalidConfig) 判断
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.SuccessThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.ErrorThreshold, validation.Required, validation.Min(1), validation.Max(shm.MaxWindowSize)),
		validation.Field(&c.ErrorTimeout, validation.Required, validation.Min(time.Duration(0)).Exclusive()),
		validation.Field(&c.ErrorThresholdWindow, validation.Min(time.Duration(0))),
		validation.Field(&c.HalfOpenResourceTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Driver, validation.In(shm.DriverSysV, shm.DriverMemory)),
		validation.Field(&c.LockTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Permissions, validation.Max(uint32(0o777))),
	)
	if err != nil {
		return xerrors.Mark(err, ErrInvalidConfig)
	}
	return nil
}

// shmOptions 三个共享原语共用的选项
func (c *Config) shmOptions() []shm.Option {
	return []shm.Option{
		shm.WithDriver(c.Driver),
		shm.WithLockTimeout(c.LockTimeout),
		shm.WithPermissions(c.Permissions),
	}
}

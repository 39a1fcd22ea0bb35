package breaker

import (
	"context"
	"sync"

	"github.com/ceyewan/shmbreaker/clog"
	"github.com/ceyewan/shmbreaker/xerrors"
)

// RegistryConfig 按名称管理多个熔断器的配置
//
// 典型配置示例（YAML）：
//
//	breakers:
//	  default:
//	    success_threshold: 2
//	    error_threshold: 3
//	    error_timeout: 10s
//	  services:
//	    mysql_primary:
//	      error_threshold: 5
//	    redis_cache:
//	      error_timeout: 2s
//	      half_open_resource_timeout: 500ms
type RegistryConfig struct {
	// Default 默认策略（应用到所有未单独配置的熔断器）
	Default Config `json:"default" yaml:"default" mapstructure:"default"`

	// Services 按名称覆盖默认策略，只覆盖非零字段
	Services map[string]Config `json:"services" yaml:"services" mapstructure:"services"`
}

// Registry 进程内的熔断器注册表，同一名称只创建一次
type Registry struct {
	cfg    RegistryConfig
	opts   []Option
	logger clog.Logger

	breakers sync.Map // map[string]*Breaker

	mu     sync.Mutex // 串行化创建与关闭
	closed bool
}

// NewRegistry 创建注册表，并提前校验所有 Services 的合并配置
func NewRegistry(cfg *RegistryConfig, opts ...Option) (*Registry, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	for name, override := range cfg.Services {
		c := mergeConfig(cfg.Default, override, name)
		c.setDefaults()
		if err := c.Validate(); err != nil {
			return nil, xerrors.Wrapf(err, "breaker %q", name)
		}
	}

	return &Registry{
		cfg:    *cfg,
		opts:   opts,
		logger: o.logger,
	}, nil
}

// Get 返回名为 name 的熔断器，不存在时按合并后的配置创建
func (r *Registry) Get(name string) (*Breaker, error) {
	if val, ok := r.breakers.Load(name); ok {
		return val.(*Breaker), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	if val, ok := r.breakers.Load(name); ok {
		return val.(*Breaker), nil
	}

	cfg := r.ConfigFor(name)
	b, err := New(&cfg, r.opts...)
	if err != nil {
		return nil, err
	}
	r.breakers.Store(name, b)
	return b, nil
}

// ConfigFor 返回 name 的合并配置（未填充默认值）
func (r *Registry) ConfigFor(name string) Config {
	return mergeConfig(r.cfg.Default, r.cfg.Services[name], name)
}

// Each 遍历已创建的熔断器，fn 返回 false 时停止
func (r *Registry) Each(fn func(*Breaker) bool) {
	r.breakers.Range(func(_, val any) bool {
		return fn(val.(*Breaker))
	})
}

// ResetAll 重置所有已创建的熔断器
func (r *Registry) ResetAll(ctx context.Context) error {
	var errs []error
	r.Each(func(b *Breaker) bool {
		if err := b.Reset(ctx); err != nil {
			errs = append(errs, xerrors.Wrapf(err, "reset %q", b.Name()))
		}
		return true
	})
	return xerrors.Combine(errs...)
}

// Close 关闭所有熔断器句柄，共享状态保留
func (r *Registry) Close() error {
	return r.shutdown(func(b *Breaker) error { return b.Close() })
}

// DestroyAll 删除所有熔断器的共享段
func (r *Registry) DestroyAll() error {
	return r.shutdown(func(b *Breaker) error { return b.Destroy() })
}

func (r *Registry) shutdown(fn func(*Breaker) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true

	var errs []error
	r.breakers.Range(func(key, val any) bool {
		if err := fn(val.(*Breaker)); err != nil {
			errs = append(errs, err)
		}
		r.breakers.Delete(key)
		return true
	})
	if len(errs) > 0 {
		r.logger.Warn("registry shutdown finished with errors", clog.Int("errors", len(errs)))
	}
	return xerrors.Combine(errs...)
}

// mergeConfig 以 def 为基础，用 override 中的非零字段覆盖
func mergeConfig(def, override Config, name string) Config {
	c := def
	c.Name = name
	if override.SuccessThreshold != 0 {
		c.SuccessThreshold = override.SuccessThreshold
	}
	if override.ErrorThreshold != 0 {
		c.ErrorThreshold = override.ErrorThreshold
	}
	if override.ErrorTimeout != 0 {
		c.ErrorTimeout = override.ErrorTimeout
	}
	if override.ErrorThresholdWindow != 0 {
		c.ErrorThresholdWindow = override.ErrorThresholdWindow
	}
	if override.HalfOpenResourceTimeout != 0 {
		c.HalfOpenResourceTimeout = override.HalfOpenResourceTimeout
	}
	if override.Driver != "" {
		c.Driver = override.Driver
	}
	if override.LockTimeout != 0 {
		c.LockTimeout = override.LockTimeout
	}
	if override.Permissions != 0 {
		c.Permissions = override.Permissions
	}
	return c
}

package config

import (
	"github.com/ceyewan/shmbreaker/breaker"
	"github.com/ceyewan/shmbreaker/clog"
	"github.com/ceyewan/shmbreaker/metrics"
	"github.com/ceyewan/shmbreaker/trace"
	"github.com/ceyewan/shmbreaker/xerrors"
)

// App 一个使用共享熔断器的进程的完整配置
//
//	log:
//	  level: info
//	  format: json
//	metrics:
//	  enabled: true
//	  service_name: order-worker
//	  port: 9090
//	trace:
//	  service_name: order-worker
//	  endpoint: localhost:4317
//	breakers:
//	  default:
//	    success_threshold: 2
//	    error_threshold: 3
//	    error_timeout: 10s
//	  services:
//	    mysql_primary:
//	      error_threshold: 5
type App struct {
	Log      clog.Config            `json:"log" yaml:"log" mapstructure:"log"`
	Metrics  metrics.Config         `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
	Trace    trace.Config           `json:"trace" yaml:"trace" mapstructure:"trace"`
	Breakers breaker.RegistryConfig `json:"breakers" yaml:"breakers" mapstructure:"breakers"`
}

// Decode 将已加载的配置解码为 App
func Decode(l Loader) (*App, error) {
	var app App
	if err := l.Unmarshal(&app); err != nil {
		return nil, xerrors.Mark(xerrors.Wrap(err, "decode config"), xerrors.ErrInvalidInput)
	}
	return &app, nil
}

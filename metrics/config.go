package metrics

import (
	"fmt"
	"strings"
)

// Config 指标配置
//
// 典型配置示例（YAML）：
//
//	metrics:
//	  enabled: true
//	  service_name: "order-worker"
//	  version: "v1.2.3"
//	  port: 9090
//	  path: "/metrics"
type Config struct {
	// Enabled 为 false 时 New 返回 noop Meter
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// ServiceName 作为 OpenTelemetry Resource 的 service.name
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`

	// Version 作为 OpenTelemetry Resource 的 service.version
	Version string `json:"version" yaml:"version" mapstructure:"version"`

	// Port 内置 HTTP 服务器端口，0 表示不启动（可用 Handler 自行挂载）
	Port int `json:"port" yaml:"port" mapstructure:"port"`

	// Path 指标路径，默认 /metrics
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// NewDevDefaultConfig 开发环境默认配置：启用收集，不启动 HTTP 服务器
func NewDevDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     "dev",
		Path:        "/metrics",
	}
}

// NewProdDefaultConfig 生产环境默认配置：在 9090 端口暴露 /metrics
func NewProdDefaultConfig(serviceName, version string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     version,
		Port:        9090,
		Path:        "/metrics",
	}
}

func (c *Config) validate() error {
	if c.Path == "" {
		c.Path = "/metrics"
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("metrics path must start with '/': %q", c.Path)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Port)
	}
	return nil
}

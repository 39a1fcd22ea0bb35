package trace

// Config 链路追踪配置
//
//	trace:
//	  service_name: order-worker
//	  endpoint: localhost:4317
//	  sampler: 0.1
//	  batcher: batch
//	  insecure: true
type Config struct {
	ServiceName string  `json:"service_name" yaml:"service_name" mapstructure:"service_name"`
	Endpoint    string  `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"` // OTLP gRPC 地址，为空时 Init 使用 Discard
	Sampler     float64 `json:"sampler" yaml:"sampler" mapstructure:"sampler"`    // 采样率 0..1
	Batcher     string  `json:"batcher" yaml:"batcher" mapstructure:"batcher"`    // batch | simple
	Insecure    bool    `json:"insecure" yaml:"insecure" mapstructure:"insecure"`
}

// DefaultConfig 返回默认配置
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Endpoint:    "localhost:4317",
		Sampler:     1.0,
		Batcher:     "batch",
		Insecure:    true,
	}
}

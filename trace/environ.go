package trace

import (
	"context"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// EnvPrefix 追踪上下文在环境变量中的前缀，例如 SHMBREAKER_TRACE_TRACEPARENT
const EnvPrefix = "SHMBREAKER_TRACE_"

// Environ 把 ctx 中的追踪上下文编码为 KEY=VALUE 形式的环境变量，
// 用于启动共享同一熔断器的子进程。
func Environ(ctx context.Context) []string {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	env := make([]string, 0, len(carrier))
	for key, value := range carrier {
		env = append(env, envName(key)+"="+value)
	}
	slices.Sort(env)
	return env
}

// FromEnviron 从环境变量（通常是 os.Environ()）恢复追踪上下文
func FromEnviron(ctx context.Context, environ []string) context.Context {
	carrier := propagation.MapCarrier{}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		carrier[headerName(name)] = value
	}
	if len(carrier) == 0 {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

func envName(header string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(header, "-", "_"))
}

func headerName(env string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(env, EnvPrefix), "_", "-"))
}

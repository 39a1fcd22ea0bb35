// Package config 负责加载 shmbreaker 进程的配置，基于 Viper 实现。
//
// 特性：
//   - 多源配置加载：YAML/JSON 文件、环境变量、.env 文件
//   - 配置优先级：环境变量 > .env > 环境特定配置 > 基础配置
//   - 热更新：监听配置文件变化，按 key 通知订阅者
//
// 基本使用：
//
//	loader, err := config.New(&config.Config{Name: "shmbreaker", Paths: []string{"./config"}})
//	if err != nil {
//		return err
//	}
//	if err := loader.Load(ctx); err != nil {
//		return err
//	}
//
//	app, err := config.Decode(loader)
//	if err != nil {
//		return err
//	}
//	registry, err := breaker.NewRegistry(&app.Breakers)
//
// 环境变量使用 SHMBREAKER_ 前缀，层级用下划线分隔，
// 例如 SHMBREAKER_BREAKERS_DEFAULT_ERROR_THRESHOLD=5。
package config

import (
	"context"
	"time"
)

// Loader 配置加载器：加载、解析和监听配置变化
type Loader interface {
	// Load 加载配置并开始监听配置文件
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体
	Unmarshal(v any) error

	// UnmarshalKey 将指定 Key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Watch 监听 key 的变化，ctx 取消后通道关闭
	Watch(ctx context.Context, key string) (<-chan Event, error)

	// Validate 验证当前配置的有效性
	Validate() error
}

// Event 配置变更事件
type Event struct {
	Key       string // 配置 key
	Value     any    // 新值
	OldValue  any    // 旧值
	Source    string // "file"
	Timestamp time.Time
}

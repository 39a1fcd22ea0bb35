package breaker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/shmbreaker/shm"
	"github.com/ceyewan/shmbreaker/testkit"
)

func newTestRegistryConfig() *RegistryConfig {
	return &RegistryConfig{
		Default: Config{
			SuccessThreshold: 2,
			ErrorThreshold:   3,
			ErrorTimeout:     10 * time.Second,
			Driver:           shm.DriverMemory,
		},
		Services: map[string]Config{},
	}
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	cfg := newTestRegistryConfig()
	mysql := testkit.NewName("mysql")
	redis := testkit.NewName("redis")
	cfg.Services[mysql] = Config{ErrorThreshold: 5}
	cfg.Services[redis] = Config{ErrorTimeout: 2 * time.Second, HalfOpenResourceTimeout: 500 * time.Millisecond}

	clock := testkit.NewClock(time.Unix(1_700_000_000, 0))
	reg, err := NewRegistry(cfg, WithClock(clock.Now), WithLogger(testkit.NewLogger()),
		WithKillSwitch(KillSwitchFunc(func() bool { return false })))
	require.NoError(t, err)
	defer reg.DestroyAll()

	t.Run("合并策略", func(t *testing.T) {
		b, err := reg.Get(mysql)
		require.NoError(t, err)
		assert.Equal(t, mysql, b.Name())
		assert.Equal(t, 5, b.Config().ErrorThreshold)
		assert.Equal(t, 2, b.Config().SuccessThreshold)
		assert.Equal(t, 10*time.Second, b.Config().ErrorTimeout)

		r, err := reg.Get(redis)
		require.NoError(t, err)
		assert.Equal(t, 3, r.Config().ErrorThreshold)
		assert.Equal(t, 2*time.Second, r.Config().ErrorTimeout)
		assert.Equal(t, 2*time.Second, r.Config().ErrorThresholdWindow, "窗口默认等于合并后的 ErrorTimeout")
		assert.Equal(t, 500*time.Millisecond, r.Config().HalfOpenResourceTimeout)
	})

	t.Run("未配置的名称使用默认策略", func(t *testing.T) {
		name := testkit.NewName("http")
		b, err := reg.Get(name)
		require.NoError(t, err)
		assert.Equal(t, 3, b.Config().ErrorThreshold)
	})

	t.Run("同名只创建一次", func(t *testing.T) {
		a, err := reg.Get(mysql)
		require.NoError(t, err)
		b, err := reg.Get(mysql)
		require.NoError(t, err)
		assert.Same(t, a, b)
	})

	t.Run("ResetAll", func(t *testing.T) {
		r, err := reg.Get(redis)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			_, _ = r.Acquire(ctx, nil, fail(errBoom))
		}
		requireState(t, r, StateOpen)

		require.NoError(t, reg.ResetAll(ctx))
		requireState(t, r, StateClosed)
	})

	t.Run("Each", func(t *testing.T) {
		count := 0
		reg.Each(func(*Breaker) bool {
			count++
			return true
		})
		assert.Equal(t, 3, count)
	})
}

func TestRegistryInvalid(t *testing.T) {
	t.Run("nil 配置", func(t *testing.T) {
		_, err := NewRegistry(nil)
		assert.ErrorIs(t, err, ErrConfigNil)
	})

	t.Run("非法的服务配置提前报错", func(t *testing.T) {
		cfg := newTestRegistryConfig()
		cfg.Services["bad"] = Config{ErrorThreshold: -1}
		_, err := NewRegistry(cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("关闭后不能再创建", func(t *testing.T) {
		reg, err := NewRegistry(newTestRegistryConfig())
		require.NoError(t, err)
		require.NoError(t, reg.Close())
		_, err = reg.Get(testkit.NewName("late"))
		assert.ErrorIs(t, err, ErrRegistryClosed)
	})
}

func TestMergeConfig(t *testing.T) {
	def := Config{
		Name:             "ignored",
		SuccessThreshold: 1,
		ErrorThreshold:   2,
		ErrorTimeout:     time.Second,
		Driver:           shm.DriverSysV,
		Permissions:      0o600,
	}
	got := mergeConfig(def, Config{
		SuccessThreshold: 4,
		Driver:           shm.DriverMemory,
		LockTimeout:      time.Second,
	}, "svc")

	assert.Equal(t, Config{
		Name:             "svc",
		SuccessThreshold: 4,
		ErrorThreshold:   2,
		ErrorTimeout:     time.Second,
		Driver:           shm.DriverMemory,
		LockTimeout:      time.Second,
		Permissions:      0o600,
	}, got)
}

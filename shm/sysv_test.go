package shm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/shmbreaker/internal/ipc"
	"github.com/ceyewan/shmbreaker/testkit"
	"github.com/ceyewan/shmbreaker/xerrors"
)

func TestWindowSysV(t *testing.T) {
	ctx := context.Background()
	name := testkit.NewName("sysv-window")
	opts := []Option{WithDriver(DriverSysV), WithLockTimeout(time.Second), WithLogger(testkit.NewLogger())}

	w, err := NewWindow(ctx, name, 3, opts...)
	if xerrors.Is(err, xerrors.ErrUnavailable) {
		t.Skipf("sysv ipc unavailable: %v", err)
	}
	require.NoError(t, err)
	defer w.Destroy()

	pushAll(t, w, 1, 2, 3, 4)

	other, err := NewWindow(ctx, name, 3, opts...)
	require.NoError(t, err)
	defer other.Close()
	assert.Equal(t, []int32{2, 3, 4}, mustValues(t, other))

	_, err = NewWindow(ctx, name, 4, opts...)
	assert.ErrorIs(t, err, ErrInvalidSize)
	assert.Equal(t, ipc.CodeSegment, xerrors.GetCode(err), "attach 失败带有步骤错误码")

	require.NoError(t, other.Reject(ctx, func(v int32) bool { return v < 3 }))
	assert.Equal(t, []int32{3, 4}, mustValues(t, w))
}

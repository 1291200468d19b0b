package vkframe

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestNewError(t *testing.T) {
	assert.NoError(t, NewError(vk.Success))

	err := NewError(vk.ErrorDeviceLost)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vulkan error")
	assert.Contains(t, err.Error(), "(-4)")

	ret, ok := ResultOf(errors.Wrap(err, "submit"))
	assert.True(t, ok)
	assert.Equal(t, vk.ErrorDeviceLost, ret)

	ret, ok = ResultOf(errors.New("plain"))
	assert.False(t, ok)
	assert.Equal(t, vk.Success, ret)
}

func TestSurfaceResult(t *testing.T) {
	assert.NoError(t, surfaceResult(vk.Success, "present"))

	err := surfaceResult(vk.Suboptimal, "present")
	assert.True(t, errors.Is(err, ErrSuboptimal))
	assert.True(t, IsSurfaceChanged(err))

	err = surfaceResult(vk.ErrorOutOfDate, "present")
	assert.True(t, errors.Is(err, ErrOutOfDate))
	assert.True(t, IsSurfaceChanged(errors.Wrap(err, "frame")))

	err = surfaceResult(vk.ErrorSurfaceLost, "present")
	assert.False(t, IsSurfaceChanged(err))
	assert.Contains(t, err.Error(), "present")
	ret, _ := ResultOf(err)
	assert.Equal(t, vk.ErrorSurfaceLost, ret)
}

func TestMust(t *testing.T) {
	assert.NotPanics(t, func() { must(true, "never") })
	assert.PanicsWithValue(t, "vkframe: bad value 3", func() { must(false, "bad value %d", 3) })
}

func TestCheckErr(t *testing.T) {
	f := func() (err error) {
		defer checkErr(&err)
		orPanic(NewError(vk.ErrorInitializationFailed))
		return nil
	}
	err := f()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vulkan error")
}

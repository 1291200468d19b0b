package vkframe

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

var (
	// ErrOutOfDate is returned by acquire and present when the surface no longer
	// matches the swap chain. The swap chain must be recreated.
	ErrOutOfDate = errors.New("swap chain out of date")
	// ErrSuboptimal is returned when the swap chain still works but no longer
	// matches the surface exactly. An image index returned alongside it is valid.
	ErrSuboptimal = errors.New("swap chain suboptimal")

	ErrNoDevice              = errors.New("no Vulkan devices found")
	ErrNoSuitableDevice      = errors.New("no device with the required features and queue families")
	ErrMissingExtension      = errors.New("required device extension missing")
	ErrUnsupportedTransition = errors.New("unsupported layout transition")
	ErrShaderCount           = errors.New("number of shader files does not match number of stages")
	ErrNoMemoryType          = errors.New("no suitable memory type")
	ErrNoDepthFormat         = errors.New("depth/stencil buffer requested but not supported by device")
)

// VulkanError carries a failed vk.Result.
type VulkanError struct {
	Result vk.Result
}

func (e VulkanError) Error() string {
	if err := vk.Error(e.Result); err != nil {
		return fmt.Sprintf("vulkan error: %s (%d)", err.Error(), e.Result)
	}
	return fmt.Sprintf("vulkan error: (%d)", e.Result)
}

func isError(ret vk.Result) bool {
	return ret != vk.Success
}

// NewError converts a non-success result into an error annotated with the
// caller's stack. It returns nil for vk.Success.
func NewError(ret vk.Result) error {
	if !isError(ret) {
		return nil
	}
	return errors.WithStack(VulkanError{Result: ret})
}

// ResultOf extracts the vk.Result carried by err, if any.
func ResultOf(err error) (vk.Result, bool) {
	var verr VulkanError
	if errors.As(err, &verr) {
		return verr.Result, true
	}
	return vk.Success, false
}

// IsSurfaceChanged reports whether err means the swap chain has to be rebuilt
// rather than the frame loop aborted.
func IsSurfaceChanged(err error) bool {
	return errors.Is(err, ErrOutOfDate) || errors.Is(err, ErrSuboptimal)
}

// surfaceResult maps the acquire/present results that signal a changed surface
// onto the sentinel errors.
func surfaceResult(ret vk.Result, op string) error {
	switch ret {
	case vk.Success:
		return nil
	case vk.Suboptimal:
		return errors.WithStack(ErrSuboptimal)
	case vk.ErrorOutOfDate:
		return errors.WithStack(ErrOutOfDate)
	}
	return errors.Wrap(NewError(ret), op)
}

// Fatal reports err with its stack trace, runs the finalizers and terminates
// the process with a failure status.
func Fatal(err error, finalizers ...func()) {
	if err == nil {
		return
	}
	for _, fn := range finalizers {
		fn()
	}
	Logger().Error("fatal", "error", fmt.Sprintf("%+v", err))
	fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
	os.Exit(1)
}

// must panics when a caller violated a precondition.
func must(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("vkframe: "+format, args...))
	}
}

func checkErr(err *error) {
	if v := recover(); v != nil {
		*err = errors.Errorf("%+v", v)
	}
}

package gwutils

import (
	"github.com/pkg/errors"
	"github.com/xiaonanln/protopatch/engine/gwlog"
)

// RunPanicless calls a function panic-freely
func RunPanicless(f func()) (paniced bool) {
	defer func() {
		err := recover()
		if err != nil {
			gwlog.TraceError("%p panic: %s", f, err)
			paniced = true
		}
	}()

	f()
	return
}

// CatchPanic calls f and converts a panic into an error
//
// Errors returned by f are passed through unchanged.
func CatchPanic(f func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if re, ok := r.(error); ok {
			err = errors.Wrap(re, "panic")
		} else {
			err = errors.Errorf("panic: %v", r)
		}
	}()

	return f()
}

package patch

import (
	"fmt"

	"github.com/pkg/errors"
)

// LoadError is a malformed patch file or entry
type LoadError struct {
	File  string
	Index int // entry index in the file, -1 for the whole file
	Msg   string
}

func (e *LoadError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("load %s: %s", e.File, e.Msg)
	}
	return fmt.Sprintf("load %s entry %d: %s", e.File, e.Index, e.Msg)
}

// ResolutionError is a name that could not be resolved to a prototype, asset or property
type ResolutionError struct {
	What string
	Name string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unresolved %s %q", e.What, e.Name)
}

// NavigationError is a missing field, an out-of-range index or a field of the wrong kind
type NavigationError struct {
	Path string
	Msg  string
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

// CoercionError is a value that can not be converted to the target type
type CoercionError struct {
	Value  interface{}
	Target string
	Msg    string
}

func (e *CoercionError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("can not convert %v (%T) to %s", e.Value, e.Value, e.Target)
	}
	return fmt.Sprintf("can not convert %v (%T) to %s: %s", e.Value, e.Value, e.Target, e.Msg)
}

func loadError(file string, index int, format string, args ...interface{}) error {
	return errors.WithStack(&LoadError{File: file, Index: index, Msg: fmt.Sprintf(format, args...)})
}

func resolutionError(what string, name string) error {
	return errors.WithStack(&ResolutionError{What: what, Name: name})
}

func navigationError(path string, format string, args ...interface{}) error {
	return errors.WithStack(&NavigationError{Path: path, Msg: fmt.Sprintf(format, args...)})
}

func coercionError(v interface{}, target fmt.Stringer, format string, args ...interface{}) error {
	return errors.WithStack(&CoercionError{Value: v, Target: target.String(), Msg: fmt.Sprintf(format, args...)})
}

// IsLoadError returns if the cause of err is a LoadError
func IsLoadError(err error) bool {
	_, ok := errors.Cause(err).(*LoadError)
	return ok
}

// IsResolutionError returns if the cause of err is a ResolutionError
func IsResolutionError(err error) bool {
	_, ok := errors.Cause(err).(*ResolutionError)
	return ok
}

// IsNavigationError returns if the cause of err is a NavigationError
func IsNavigationError(err error) bool {
	_, ok := errors.Cause(err).(*NavigationError)
	return ok
}

// IsCoercionError returns if the cause of err is a CoercionError
func IsCoercionError(err error) bool {
	_, ok := errors.Cause(err).(*CoercionError)
	return ok
}

package inspector

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNativeCode        = errors.New("native code functions cannot be inspected")
	ErrUnresolvedCapture = errors.New("required captured variable cannot be resolved")
	ErrRejectedPromise   = errors.New("promise was rejected")

	// ErrNotCaptured and ErrGlobal are returned by Host.ResolveCaptured.
	ErrNotCaptured = errors.New("variable is not bound in the closure scope")
	ErrGlobal      = errors.New("variable names a realm global")
)

type FrameKind int

const (
	FrameFunction FrameKind = iota
	FrameVariable
	FrameProperty
	FrameIndex
	FramePrototype
)

// Frame is one step of the path from the inspected root to a failing value.
type Frame struct {
	Kind FrameKind
	Name string
}

func (f Frame) String() string {
	switch f.Kind {
	case FrameFunction:
		if f.Name == "" {
			return "function <anonymous>"
		}
		return "function " + f.Name
	case FrameVariable:
		return "variable " + f.Name
	case FrameIndex:
		return "index " + f.Name
	case FramePrototype:
		return "prototype"
	default:
		return "property " + f.Name
	}
}

// InspectionError reports a value that could not be inspected, with the
// chain of frames leading to it.
type InspectionError struct {
	Frames []Frame
	Err    error
}

func (e *InspectionError) Error() string {
	if len(e.Frames) == 0 {
		return fmt.Sprintf("inspector: %v", e.Err)
	}
	parts := make([]string, len(e.Frames))
	for i, f := range e.Frames {
		parts[i] = f.String()
	}
	return fmt.Sprintf("inspector: %v (at %s)", e.Err, strings.Join(parts, " > "))
}

func (e *InspectionError) Unwrap() error { return e.Err }

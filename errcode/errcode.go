package errcode

import "errors"

// Code is a stable, caller-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Code lets a bare Code satisfy the same interface as *E.
func (c Code) Code() Code { return c }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Failed         Code = "failed"
	InvalidHandle  Code = "invalid_handle"
	NotInitialized Code = "not_initialized"

	InvalidParams Code = "invalid_params"
	Timeout       Code = "timeout"
	Unsupported   Code = "unsupported"

	Error Code = "error" // generic fallback
)

// Status returns the small-integer status a code reports to callers:
// 0 success, 1 operation failure, 2 invalid handle, 3 used before init.
func (c Code) Status() uint8 {
	switch c {
	case OK:
		return 0
	case InvalidHandle:
		return 2
	case NotInitialized:
		return 3
	default:
		return 1
	}
}

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets a context-free sentinel (no Op, no cause) match any *E carrying
// the same code and message.
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok || t.Op != "" || t.Err != nil {
		return false
	}
	return e.C == t.C && e.Msg == t.Msg
}

// With returns a copy of e annotated with an operation and a cause.
func (e *E) With(op string, cause error) *E {
	return &E{C: e.C, Op: op, Msg: e.Msg, Err: cause}
}

// Of extracts the outermost Code in err's chain, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var x interface{ Code() Code }
	if errors.As(err, &x) {
		return x.Code()
	}
	return Error
}

// Status maps any error onto the status table of Code.Status.
func Status(err error) uint8 { return Of(err).Status() }

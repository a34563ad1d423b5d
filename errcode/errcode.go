package errcode

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Busy           Code = "busy"
	Unsupported    Code = "unsupported"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"
	InvalidTopic   Code = "invalid_topic"
	InvalidConfig  Code = "invalid_config"
	Timeout        Code = "timeout"

	UnknownGauge  Code = "unknown_gauge"
	UnknownField  Code = "unknown_field"
	UnknownDriver Code = "unknown_driver"
	UnknownPin    Code = "unknown_pin"
	PinInUse      Code = "pin_in_use"
	NoConfig      Code = "no_config"

	Error Code = "error" // generic fallback
)

// E keeps context and a cause alongside a Code.
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

// Is lets errors.Is(err, errcode.InvalidConfig) match a wrapped *E.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// New is shorthand for &E{C: c, Op: op, Msg: msg}.
func New(c Code, op, msg string) *E { return &E{C: c, Op: op, Msg: msg} }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	type coder interface{ Code() Code }
	for err != nil {
		if c, ok := err.(Code); ok {
			return c
		}
		if x, ok := err.(coder); ok {
			return x.Code()
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return Error
}

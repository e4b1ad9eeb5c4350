package ctd

import "fmt"

// Result classifies the outcome of every driver operation.
//
// Positive values mean a reply was received and interpreted; zero and
// negative values mean no usable reply. StrictMismatch and StrictException
// are numerically greater than Success: test Replied for "a reply was
// obtained" and compare against Success for full validation.
type Result int

const (
	ChatFailure     Result = -4 // command/prompt exchange could not be run
	NoResponse      Result = -3 // nothing received from the instrument
	RegexException  Result = -2 // reply received, loose pattern engine fault
	NullArgument    Result = -1 // missing driver, port or output
	LooseMismatch   Result = 0  // reply received, loose pattern no-match
	GeneralFailure  Result = 0  // general failure
	Success         Result = 1  // reply received, strict pattern match
	StrictMismatch  Result = 2  // reply received, strict pattern no-match
	StrictException Result = 3  // reply received, strict pattern engine fault
)

func (r Result) String() string {
	switch r {
	case ChatFailure:
		return "chat failure"
	case NoResponse:
		return "no response"
	case RegexException:
		return "regex exception"
	case NullArgument:
		return "null argument"
	case LooseMismatch:
		return "loose mismatch"
	case Success:
		return "success"
	case StrictMismatch:
		return "strict mismatch"
	case StrictException:
		return "strict exception"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Replied reports whether a reply was received and interpreted.
func (r Result) Replied() bool { return r > 0 }

// OK reports whether the reply passed full validation.
func (r Result) OK() bool { return r == Success }

// Err converts r into an error wrapping the matching sentinel. It returns
// nil for Success.
func (r Result) Err() error {
	var sentinel error
	switch r {
	case Success:
		return nil
	case ChatFailure:
		sentinel = ErrChatFailure
	case NoResponse:
		sentinel = ErrNoResponse
	case RegexException:
		sentinel = ErrRegexException
	case NullArgument:
		sentinel = ErrNullArgument
	case LooseMismatch:
		sentinel = ErrLooseMismatch
	case StrictMismatch:
		sentinel = ErrStrictMismatch
	case StrictException:
		sentinel = ErrStrictException
	default:
		return fmt.Errorf("ctd: unknown result %d", int(r))
	}
	return fmt.Errorf("%w (result %d)", sentinel, int(r))
}

package attendance

import "errors"

// Category is the user-facing class every attempt resolves to.
type Category int

const (
	CategoryNone Category = iota
	CategoryNoActivePeriod
	CategoryNonMarkablePeriod
	CategoryInvalidCapture
	CategoryAlreadyMarked
	CategoryRejected
	CategoryTransportFailure
)

func (c Category) String() string {
	switch c {
	case CategoryNoActivePeriod:
		return "no_active_period"
	case CategoryNonMarkablePeriod:
		return "non_markable_period"
	case CategoryInvalidCapture:
		return "invalid_capture"
	case CategoryAlreadyMarked:
		return "already_marked"
	case CategoryRejected:
		return "rejected"
	case CategoryTransportFailure:
		return "transport_failure"
	default:
		return "none"
	}
}

// Retryable reports whether capturing again right away can change the outcome.
func (c Category) Retryable() bool {
	switch c {
	case CategoryInvalidCapture, CategoryRejected, CategoryTransportFailure:
		return true
	default:
		return false
	}
}

// Error is a pre-flight rejection: nothing was sent to the server.
type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same category, so callers can compare with
// the sentinels below regardless of the wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Category == e.Category
}

var (
	ErrNoActivePeriod    = &Error{Category: CategoryNoActivePeriod, Message: "there is no active period to mark attendance for"}
	ErrNonMarkablePeriod = &Error{Category: CategoryNonMarkablePeriod, Message: "the active period does not take attendance"}
	ErrInvalidCapture    = &Error{Category: CategoryInvalidCapture, Message: "no usable image was captured"}
)

// ErrBusy is returned when a capture arrives while another is in flight.
var ErrBusy = errors.New("a submission is already in progress")

func invalidCapture(err error) *Error {
	return &Error{Category: CategoryInvalidCapture, Message: ErrInvalidCapture.Message, Err: err}
}

package measure

import (
	"errors"
)

// Kind categorizes why a measurement attempt did not produce a result.
type Kind int

const (
	// KindUnknown is an error that was not produced by this package.
	KindUnknown Kind = iota
	// KindPrecondition means no image or no unit was selected. Never reaches the network.
	KindPrecondition
	// KindAcquisition means the image picker failed. The previous selection is kept.
	KindAcquisition
	// KindSetup means the request could not be constructed or sent.
	KindSetup
	// KindTransport means the request was sent but no reply arrived.
	KindTransport
	// KindServer means the server replied with a non-2xx status.
	KindServer
	// KindContract means a success reply was empty or not a JSON object.
	KindContract
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindAcquisition:
		return "acquisition"
	case KindSetup:
		return "setup"
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindContract:
		return "contract"
	default:
		return "unknown"
	}
}

// User-visible messages.
const (
	MsgNoImage        = "Please select an image first."
	MsgNoUnit         = "Please select a unit first."
	MsgInProgress     = "Calculating..."
	MsgEmptyResponse  = "Received an empty or unexpected response from server."
	MsgServerError    = "Error from server."
	MsgNoResponse     = "No response from server. Is it running? (Check IP address)"
	MsgSetupError     = "Error setting up the request."
	msgAcquisitionPfx = "Error selecting image: "
)

// Error is a measurement failure carrying the text shown to the user.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	// ErrNoImage is returned when submitting without a selected image.
	ErrNoImage = &Error{Kind: KindPrecondition, Message: MsgNoImage}
	// ErrNoUnit is returned when submitting without a selected unit.
	ErrNoUnit = &Error{Kind: KindPrecondition, Message: MsgNoUnit}
)

// NewAcquisitionError wraps an image picker failure.
func NewAcquisitionError(err error) *Error {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: KindAcquisition, Message: msgAcquisitionPfx + msg, Err: err}
}

// KindOf returns the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var mErr *Error
	if errors.As(err, &mErr) {
		return mErr.Kind
	}
	return KindUnknown
}

// UserMessage returns the text to show for err. Errors not produced by this
// package are reported as a request setup failure.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var mErr *Error
	if errors.As(err, &mErr) && mErr.Message != "" {
		return mErr.Message
	}
	return MsgSetupError
}

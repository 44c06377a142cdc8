package notifysvc

import "fmt"

// ErrorTag is the protocol-level error category, mirroring NETCONF
// error-tag values.
type ErrorTag string

const (
	TagOperationFailed ErrorTag = "operation-failed"
	TagBadElement      ErrorTag = "bad-element"
	TagUnknownElement  ErrorTag = "unknown-element"
)

// Application tags identifying each rejection, usable for client retry
// logic and asserted in tests.
const (
	AppTagAlreadySubscribed = "already-subscribed"
	AppTagStreamNotFound    = "stream-not-found"
	AppTagMissingStartTime  = "missing-start-time"
	AppTagReplayUnsupported = "replay-not-supported"
	AppTagStopBeforeStart   = "stop-before-start"
	AppTagStartAfterNow     = "start-after-now"
	AppTagBadFilter         = "bad-filter"
)

// Error is the structured rejection returned synchronously from
// subscription admission. It never escapes the router boundary as a panic
// or a wrapped infrastructure error; callers recover it with errors.As.
type Error struct {
	Tag    ErrorTag
	AppTag string
	// Field names the offending request field, when one exists.
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s): %s: %s", e.Tag, e.AppTag, e.Field, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Tag, e.AppTag, e.Message)
}

func errAlreadySubscribed(client string) *Error {
	return &Error{
		Tag:     TagOperationFailed,
		AppTag:  AppTagAlreadySubscribed,
		Message: fmt.Sprintf("client %q already has an active subscription", client),
	}
}

func errStreamNotFound(stream string) *Error {
	return &Error{
		Tag:     TagUnknownElement,
		AppTag:  AppTagStreamNotFound,
		Field:   "stream",
		Message: fmt.Sprintf("stream %q is not configured", stream),
	}
}

func errMissingStartTime() *Error {
	return &Error{
		Tag:     TagBadElement,
		AppTag:  AppTagMissingStartTime,
		Field:   "startTime",
		Message: "stopTime requires a startTime",
	}
}

func errReplayUnsupported(stream string) *Error {
	return &Error{
		Tag:     TagBadElement,
		AppTag:  AppTagReplayUnsupported,
		Field:   "startTime",
		Message: fmt.Sprintf("stream %q does not support replay", stream),
	}
}

func errStopBeforeStart() *Error {
	return &Error{
		Tag:     TagBadElement,
		AppTag:  AppTagStopBeforeStart,
		Field:   "stopTime",
		Message: "stopTime must not precede startTime",
	}
}

func errStartAfterNow() *Error {
	return &Error{
		Tag:     TagBadElement,
		AppTag:  AppTagStartAfterNow,
		Field:   "startTime",
		Message: "startTime must not be in the future",
	}
}

func errBadFilter(cause error) *Error {
	return &Error{
		Tag:     TagBadElement,
		AppTag:  AppTagBadFilter,
		Field:   "filter",
		Message: cause.Error(),
	}
}

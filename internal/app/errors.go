package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound       = errors.New("not found")
	ErrNoDragSession  = errors.New("no card is being dragged")
	ErrRenameInactive = errors.New("no column rename in progress")
	ErrBoardClosed    = errors.New("board client closed")
)

// apiFailure is satisfied by transport errors that carry a server response.
type apiFailure interface {
	error
	APIDetail() string
	StatusCode() int
}

// Failure is an operation error whose Notice is ready to show to the user.
type Failure struct {
	Op     string
	Notice string
	Err    error
}

// Error returns the user-facing notice.
func (f *Failure) Error() string {
	return f.Notice
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error {
	return f.Err
}

// NoticeFor returns the text to surface for err.
func NoticeFor(err error) string {
	if err == nil {
		return ""
	}
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Notice
	}
	return err.Error()
}

// requestFailure wraps a transport error as "<prefix>: <reason>".
// The server detail wins; a response without one falls back to fallback.
func requestFailure(op, prefix, fallback string, err error) *Failure {
	reason := err.Error()
	var apiErr apiFailure
	if errors.As(err, &apiErr) {
		reason = apiErr.APIDetail()
		if reason == "" {
			reason = fallback
		}
	}
	return &Failure{Op: op, Notice: prefix + ": " + reason, Err: err}
}

// validationFailure reports a rejected input before any request is made.
func validationFailure(op, notice string, err error) *Failure {
	return &Failure{Op: op, Notice: notice, Err: err}
}

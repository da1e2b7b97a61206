package errors

import "errors"

// NewConflict builds the error returned when one or more deltas could not be
// safely resolved. The count is never downgraded or folded into another
// error kind.
func NewConflict(count int) *CastorError {
	return Newf(ErrConflict, "%d conflict(s) prevent checkout", count).
		WithDetail("conflicts", count)
}

// ConflictCount returns the number of conflicts recorded on a CONFLICT
// error, or zero for any other error.
func ConflictCount(err error) int {
	var ce *CastorError
	if !errors.As(err, &ce) || ce.Code != ErrConflict {
		return 0
	}
	if n, ok := ce.Details["conflicts"].(int); ok {
		return n
	}
	return 0
}

// NewCancelled wraps a notify-callback cancellation code. The code is
// carried verbatim so the caller can recover exactly what their callback
// returned.
func NewCancelled(code int) *CastorError {
	return Newf(ErrCancelled, "checkout cancelled by notify callback (code %d)", code).
		WithDetail("code", code)
}

// CancelCode extracts the caller-supplied cancellation code. The second
// return is false when the error is not a cancellation.
func CancelCode(err error) (int, bool) {
	var ce *CastorError
	if !errors.As(err, &ce) || ce.Code != ErrCancelled {
		return 0, false
	}
	code, ok := ce.Details["code"].(int)
	return code, ok
}

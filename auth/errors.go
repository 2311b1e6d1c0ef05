package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated means the tenant has no usable credential at all;
	// the caller should surface a re-authorization prompt.
	ErrNotAuthenticated = errors.New("not authenticated with QuickBooks")

	// ErrReauthenticationRequired means a refresh attempt failed; the stored
	// record is left untouched so a human can restart authorization.
	ErrReauthenticationRequired = errors.New("token refresh failed, re-authentication required")
)

// CallbackError reports a failed authorization callback.
type CallbackError struct {
	Reason string
	Err    error
}

func (e *CallbackError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authorization callback failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authorization callback failed: %s", e.Reason)
}

func (e *CallbackError) Unwrap() error { return e.Err }

package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the gateway taxonomy. Callers match with errors.Is;
// the concrete *APIError carries the remote fault payload for diagnosis.
var (
	ErrUnauthorized = errors.New("quickbooks: unauthorized")
	ErrConflict     = errors.New("quickbooks: stale sync token")
	ErrNotFound     = errors.New("quickbooks: object not found")
	ErrValidation   = errors.New("quickbooks: request rejected")
	ErrTransient    = errors.New("quickbooks: transient failure")
)

// QuickBooks fault codes that need distinct handling.
const (
	faultCodeStaleObject = "5010"
	faultCodeNotFound    = "610"
)

type faultDetail struct {
	Message string `json:"Message"`
	Detail  string `json:"Detail"`
	Code    string `json:"code"`
}

type faultEnvelope struct {
	Fault struct {
		Error []faultDetail `json:"Error"`
		Type  string        `json:"type"`
	} `json:"Fault"`
}

// APIError is a classified remote failure. Unwrap yields one of the
// sentinel errors above.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Detail     string
	kind       error
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%v (status %d, code %s): %s", e.kind, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%v (status %d): %s", e.kind, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.kind }

// newAPIError classifies a non-2xx response body into the taxonomy.
func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status}

	var env faultEnvelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Fault.Error) > 0 {
		f := env.Fault.Error[0]
		e.Code = f.Code
		e.Message = f.Message
		e.Detail = f.Detail
	} else {
		e.Message = string(body)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.kind = ErrUnauthorized
	case e.Code == faultCodeStaleObject:
		e.kind = ErrConflict
	case e.Code == faultCodeNotFound || status == http.StatusNotFound:
		e.kind = ErrNotFound
	case status >= 500 || status == http.StatusTooManyRequests:
		e.kind = ErrTransient
	default:
		e.kind = ErrValidation
	}
	return e
}

// newTransportError wraps a network-level failure as transient.
func newTransportError(err error) error {
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

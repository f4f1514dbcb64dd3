package universe

import "errors"

// ErrorKind classifies order failures. All kinds are local and recoverable;
// an order that fails leaves the universe unchanged.
type ErrorKind string

const (
	KindNotFound              ErrorKind = "not_found"
	KindForbidden             ErrorKind = "forbidden"
	KindUnknownModule         ErrorKind = "unknown_module"
	KindBuildInProgress       ErrorKind = "build_in_progress"
	KindInsufficientMaterials ErrorKind = "insufficient_materials"
	KindOverBudget            ErrorKind = "over_budget"
)

// OrderError is a rejected order. Message strings are stable: clients key
// off them, keep them boring.
type OrderError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *OrderError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func orderErr(kind ErrorKind, message string) *OrderError {
	return &OrderError{Kind: kind, Message: message}
}

// AsOrderError unwraps err into an OrderError when it is one.
func AsOrderError(err error) (*OrderError, bool) {
	var oe *OrderError
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

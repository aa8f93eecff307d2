package service

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSKU means a SKU has no lot rows and no master balance row at
// all. It fails only the line item that named the SKU.
var ErrUnknownSKU = errors.New("unknown sku")

// ValidationError rejects malformed input synchronously, before any store
// mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PartialFailureError reports transient store errors hit mid-allocation.
// Processing continued past each failure; the result's TotalDeducted may
// fall short of the request.
type PartialFailureError struct {
	Causes []error
}

func (e *PartialFailureError) Error() string {
	msgs := make([]string, len(e.Causes))
	for i, c := range e.Causes {
		msgs[i] = c.Error()
	}
	return fmt.Sprintf("allocation partially failed: %s", strings.Join(msgs, "; "))
}

func (e *PartialFailureError) Unwrap() []error {
	return e.Causes
}

package backend

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/crosspostme/crosspost-agent/internal/domain"
)

// APIError is a non-2xx response from the backend with its parsed error body.
type APIError struct {
	StatusCode int
	Detail     string
	Class      domain.RejectionClass // empty when the backend did not classify
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Detail)
}

// Recoverable reports whether the backend classified the rejection as
// user-correctable. Unclassified rejections are treated as structural.
func (e *APIError) Recoverable() bool {
	return e.Class == domain.RejectionRecoverable
}

// AsAPIError unwraps err into an *APIError if one is in the chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsTimeout reports whether err represents an expired request deadline,
// either from the bounded client timeout or a cancelled context deadline.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

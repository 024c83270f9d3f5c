package platform

import (
	"errors"
	"fmt"
)

// Authentication error codes reported by the platform.
const (
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeMustRefresh          = "MUST_REFRESH"
	CodeInvalidToken         = "INVALID_TOKEN"
)

// AuthError is the error class for expired, invalid, or must-refresh
// credentials. The session store evicts the offending entry when it sees
// one; the caller must re-authenticate from scratch.
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("platform auth: %s", e.Code)
	}
	return fmt.Sprintf("platform auth: %s: %s", e.Code, e.Message)
}

// IsAuthError reports whether err is (or wraps) an authentication failure.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

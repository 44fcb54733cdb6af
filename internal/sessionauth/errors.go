package sessionauth

import "errors"

const (
	defaultLoginMessage    = "Failed to log in"
	defaultRegisterMessage = "Failed to create account"
	defaultLogoutMessage   = "Failed to log out"
)

var ErrClosed = errors.New("sessionauth: store closed")

// AuthenticationError is returned when the auth API answers a login,
// register or logout with a non-2xx status. Error returns Message verbatim
// so it can be shown to the user as is.
type AuthenticationError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *AuthenticationError) Error() string {
	return e.Message
}

// IsAuthenticationError reports whether err is or wraps an AuthenticationError.
func IsAuthenticationError(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}

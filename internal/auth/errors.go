package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("a user with this email already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrInvalidRole        = errors.New("role must be student or teacher")
	ErrNoEmail            = errors.New("identity provider returned no email")
)

// Error is returned by every sign-in, sign-up, sign-out and session operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "auth: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func authErr(op string, err error) error {
	return &Error{Op: op, Err: err}
}

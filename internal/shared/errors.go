package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAuthRequired indicates the request carried no usable credential.
	ErrAuthRequired = errors.New("authentication required")
	// ErrForbidden indicates the principal lacks the required role.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrSecurityConfig indicates a fatal security misconfiguration.
	ErrSecurityConfig = errors.New("security configuration error")
)

package rankings

import "fmt"

// ErrInvalidConfig returns an error for an invalid configuration
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("rankings: invalid config: %s", msg)
}

// ErrRequest wraps a transport failure
func ErrRequest(err error) error {
	return fmt.Errorf("rankings: request failed: %w", err)
}

// ErrStatus reports a non-200 response
func ErrStatus(code int, status string) error {
	return fmt.Errorf("rankings: unexpected status %d (%s)", code, status)
}

// ErrDecode wraps a malformed response body or stored row
func ErrDecode(err error) error {
	return fmt.Errorf("rankings: decode failed: %w", err)
}

// ErrQuery wraps a database query failure
func ErrQuery(err error) error {
	return fmt.Errorf("rankings: query failed: %w", err)
}

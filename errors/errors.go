package errors

import "fmt"

// VFSError is the interface every wrapped error implements; a bare Kind
// offers the same WithMessage and Wrap but has no Unwrap. It lets call sites
// chain context onto a sentinel kind while still supporting
// errors.Is/errors.As against that kind via Unwrap.
type VFSError interface {
	error
	WithMessage(message string) VFSError
	Wrap(err error) VFSError
	Unwrap() error
}

// -----------------------------------------------------------------------------

type customVFSError struct {
	message  string
	original error
}

// Error implements the `error` interface.
func (e customVFSError) Error() string {
	return e.message
}

func (e customVFSError) WithMessage(message string) VFSError {
	return customVFSError{
		message:  fmt.Sprintf("%s: %s", e.message, message),
		original: e,
	}
}

func (e customVFSError) Wrap(err error) VFSError {
	return customVFSError{
		message:  fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		original: e,
	}
}

func (e customVFSError) Unwrap() error {
	return e.original
}

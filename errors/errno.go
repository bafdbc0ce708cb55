// Package errors defines the closed set of error kinds the file system can
// return, in the spirit of POSIX errno codes but trimmed to what a
// single-file virtual file system actually raises.
package errors

type Kind string

const ErrNotFound = Kind("No such file or directory")
const ErrAlreadyExists = Kind("File exists")
const ErrNotADirectory = Kind("Not a directory")
const ErrIsADirectory = Kind("Is a directory")
const ErrNameTooLong = Kind("File name too long")
const ErrOutOfSpace = Kind("No space left on device")
const ErrNoIndexSpace = Kind("Inode table is full")
const ErrMetadataMissing = Kind("Metadata sidecar is missing")
const ErrCorruption = Kind("Structure needs cleaning")
const ErrInvalidArgument = Kind("Invalid argument")
const ErrDirectoryNotEmpty = Kind("Directory not empty")
const ErrClosed = Kind("File system is closed")

func (k Kind) Error() string {
	return string(k)
}

func (k Kind) WithMessage(message string) VFSError {
	return customVFSError{
		message:  string(k) + ": " + message,
		original: k,
	}
}

func (k Kind) Wrap(err error) VFSError {
	return customVFSError{
		message:  string(k) + ": " + err.Error(),
		original: k,
	}
}

package treefs

// Error is a domain error returned by the tree engine, the closure store,
// the authorization engine, or a blob driver.
//
// These are business errors (name invalid, file not found, permission
// denied) as opposed to infrastructure errors (connection refused, disk
// full), which are wrapped and surfaced as ErrBlobIOError/ErrIOError.
type Error struct {
	Code ErrorCode
	// Message is a human-readable description.
	Message string
	// Path is the anchor path related to the error, when applicable.
	Path string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode categorizes an Error; see SPEC_FULL.md §9 for the taxonomy.
type ErrorCode int

const (
	// Validation
	ErrInvalidName ErrorCode = iota
	ErrInvalidPath

	// Lookup
	ErrNotFound

	// Conflict
	ErrAlreadyExists
	ErrIsDirectory
	ErrNotDirectory
	ErrInvalidMove

	// Authorization
	ErrPermissionDenied

	// Blob
	ErrBlobNotFound
	ErrBlobTooLarge
	ErrBlobIOError

	// Infrastructure
	ErrIOError
)

func (c ErrorCode) String() string {
	switch c {
	case ErrInvalidName:
		return "InvalidName"
	case ErrInvalidPath:
		return "InvalidPath"
	case ErrNotFound:
		return "NotFound"
	case ErrAlreadyExists:
		return "AlreadyExists"
	case ErrIsDirectory:
		return "IsADirectory"
	case ErrNotDirectory:
		return "NotADirectory"
	case ErrInvalidMove:
		return "InvalidMove"
	case ErrPermissionDenied:
		return "PermissionDenied"
	case ErrBlobNotFound:
		return "BlobNotFound"
	case ErrBlobTooLarge:
		return "BlobTooLarge"
	case ErrBlobIOError:
		return "BlobIOError"
	case ErrIOError:
		return "IOError"
	default:
		return "Unknown"
	}
}

func NewInvalidNameError(name string) *Error {
	return &Error{Code: ErrInvalidName, Message: "invalid name", Path: name}
}

func NewInvalidPathError(path string) *Error {
	return &Error{Code: ErrInvalidPath, Message: "invalid path", Path: path}
}

func NewNotFoundError(path string) *Error {
	return &Error{Code: ErrNotFound, Message: "not found", Path: path}
}

func NewAlreadyExistsError(path string) *Error {
	return &Error{Code: ErrAlreadyExists, Message: "already exists", Path: path}
}

func NewIsDirectoryError(path string) *Error {
	return &Error{Code: ErrIsDirectory, Message: "is a directory", Path: path}
}

func NewNotDirectoryError(path string) *Error {
	return &Error{Code: ErrNotDirectory, Message: "not a directory", Path: path}
}

func NewInvalidMoveError(reason string, path string) *Error {
	return &Error{Code: ErrInvalidMove, Message: reason, Path: path}
}

func NewPermissionDeniedError(path string) *Error {
	return &Error{Code: ErrPermissionDenied, Message: "permission denied", Path: path}
}

func NewBlobNotFoundError(path string) *Error {
	return &Error{Code: ErrBlobNotFound, Message: "blob not found", Path: path}
}

func NewBlobTooLargeError(path string) *Error {
	return &Error{Code: ErrBlobTooLarge, Message: "blob exceeds max_file_size", Path: path}
}

func NewBlobIOError(path string, reason string) *Error {
	return &Error{Code: ErrBlobIOError, Message: reason, Path: path}
}

func NewIOError(reason string) *Error {
	return &Error{Code: ErrIOError, Message: reason}
}

// IsNotFound reports whether err is a *Error with ErrNotFound.
func IsNotFound(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == ErrNotFound
}

// IsAlreadyExists reports whether err is a *Error with ErrAlreadyExists.
func IsAlreadyExists(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == ErrAlreadyExists
}

// IsPermissionDenied reports whether err is a *Error with ErrPermissionDenied.
func IsPermissionDenied(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == ErrPermissionDenied
}

// IsBlobNotFound reports whether err is a *Error with ErrBlobNotFound.
func IsBlobNotFound(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == ErrBlobNotFound
}

// IsBlobTooLarge reports whether err is a *Error with ErrBlobTooLarge.
func IsBlobTooLarge(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == ErrBlobTooLarge
}

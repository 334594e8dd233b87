package mesh

import "github.com/pkg/errors"

// Kind distinguishes the error categories the core must propagate
// distinctly, per spec.md §7.
type Kind int

const (
	// AllocationFailed is any container growth failure.
	AllocationFailed Kind = iota
	// InvalidInput covers malformed caller input: insufficient
	// floats-per-vertex, wrong primitive kind, out-of-range index,
	// malformed file tokens, odd-degree vertices, degenerate hull
	// input, and similar.
	InvalidInput
	// GeometryInconsistent marks a non-recoverable internal failure:
	// a horizon walk that didn't close, a missing neighbor across an
	// edge, an open triangulation cusp, a ray-walk that revisited a
	// face.
	GeometryInconsistent
	// FileError is a file open/read/write failure at the CLI boundary.
	FileError
)

func (k Kind) String() string {
	switch k {
	case AllocationFailed:
		return "allocation failed"
	case InvalidInput:
		return "invalid input"
	case GeometryInconsistent:
		return "geometry inconsistent"
	case FileError:
		return "file error"
	default:
		return "unknown error"
	}
}

// Error is a classified error: every kernel boundary wraps its failures
// in one of these so callers can recover the Kind with errors.As even
// after additional context has been layered on with errors.Wrap.
type Error struct {
	Kind Kind
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

// New creates a classified error with a message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, msg: msg}
}

// Errorf creates a classified error with a formatted message.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, msg: errors.Errorf(format, args...).Error()}
}

// As recovers the Kind of err, if err is (or wraps) a classified Error.
func As(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

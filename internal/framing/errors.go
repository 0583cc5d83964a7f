// file: internal/framing/errors.go
package framing

import (
	"errors"

	"github.com/dkoosis/lsprpc/internal/rpcerr"
)

// Kind discriminates between a malformed frame and a lost connection. The
// dispatcher (internal/dispatcher) treats both alike: either one ends its
// read loop and tears it down; Kind lets other callers tell them apart.
type Kind int

const (
	// KindFramingError indicates malformed header syntax, a missing or
	// invalid Content-Length, or an unsupported Content-Type.
	KindFramingError Kind = iota
	// KindConnectionLost indicates the underlying stream ended or failed
	// mid-read, including EOF before any header byte was received.
	KindConnectionLost
)

// Error is returned by Framer.ReadMessage and Framer.WriteMessage. It wraps
// a categorized rpcerr.Error so transport failures carry the same
// structured-context and stack-trace shape as protocol and handler errors.
type Error struct {
	Kind   Kind
	Detail *rpcerr.Error
}

func (e *Error) Error() string {
	return e.Detail.Error()
}

// Unwrap exposes the wrapped rpcerr.Error for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Detail }

// NewFramingError builds a KindFramingError from a description.
func NewFramingError(msg string) *Error {
	return &Error{
		Kind:   KindFramingError,
		Detail: rpcerr.Newf(rpcerr.CategoryTransport, rpcerr.CodeInvalidRequest, "%s", msg),
	}
}

// NewConnectionLostError wraps an underlying read/write failure (including
// io.EOF) as a KindConnectionLost error.
func NewConnectionLostError(cause error) *Error {
	return &Error{
		Kind:   KindConnectionLost,
		Detail: rpcerr.New(cause, rpcerr.CategoryTransport, rpcerr.CodeInternalError, nil),
	}
}

// IsConnectionLost reports whether err (or any error it wraps) is a
// KindConnectionLost framing error.
func IsConnectionLost(err error) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Kind == KindConnectionLost
}

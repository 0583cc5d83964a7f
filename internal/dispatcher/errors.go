// file: internal/dispatcher/errors.go
package dispatcher

import (
	"errors"

	"github.com/dkoosis/lsprpc/internal/rpcerr"
)

// ErrClosed is returned by send_request/send_notification once teardown
// has begun.
var ErrClosed = rpcerr.New(errors.New("dispatcher closed"), rpcerr.CategoryHandler, rpcerr.CodeInternalError, nil)

// errClosedWaiter is returned by RequestHandle.Await if the waiter's
// channel was closed without a completion ever being sent, which should
// not happen under normal operation (teardown always sends a cancellation
// first) but is defended against anyway.
var errClosedWaiter = errors.New("dispatcher: waiter closed without completion")

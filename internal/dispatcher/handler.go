// file: internal/dispatcher/handler.go
package dispatcher

import (
	"github.com/dkoosis/lsprpc/internal/jsonvalue"
	"github.com/dkoosis/lsprpc/internal/rpc"
)

// HandlerContext is threaded immutably through each handler invocation. Go
// has no portable thread-local storage, so the id of the request currently
// being serviced is exposed as a field here instead of a Dispatcher method.
type HandlerContext struct {
	RequestId    rpc.Id
	HasRequestId bool
}

// HandlerResult is delivered by an AsyncHandlerFunc once its work
// completes.
type HandlerResult struct {
	Result    jsonvalue.Value
	HasResult bool
	Err       error
}

// HandlerFunc answers a request or services a notification synchronously,
// on the dispatcher's read thread. Its return value is ignored for
// notifications.
type HandlerFunc func(ctx *HandlerContext, params jsonvalue.Value, hasParams bool) (result jsonvalue.Value, hasResult bool, err error)

// AsyncHandlerFunc services a request or notification on internal/workerpool
// instead of the read thread. The returned channel must be sent to exactly
// once and then left for the garbage collector; the dispatcher receives
// from it inside a pool task.
type AsyncHandlerFunc func(ctx *HandlerContext, params jsonvalue.Value, hasParams bool) <-chan HandlerResult

// handler is the internal handler-table entry: exactly one of sync/async is
// set.
type handler struct {
	sync  HandlerFunc
	async AsyncHandlerFunc
}

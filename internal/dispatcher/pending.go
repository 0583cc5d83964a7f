// file: internal/dispatcher/pending.go
package dispatcher

import (
	"context"

	"github.com/dkoosis/lsprpc/internal/jsonvalue"
	"github.com/dkoosis/lsprpc/internal/rpc"
	"github.com/dkoosis/lsprpc/internal/rpcerr"
)

// waiter is a pending-request-table entry: a sink that receives the
// eventual result or error for one outbound request. Exactly one
// completion path is armed per waiter: either the channel (for
// RequestHandle.Await) or the callback pair (for the
// send_request(params, onResult, onError) variant).
type waiter struct {
	done     chan *rpc.Response
	onResult func(jsonvalue.Value)
	onError  func(*rpc.ResponseError)
}

func (w *waiter) complete(resp *rpc.Response) {
	if w.done != nil {
		w.done <- resp
		close(w.done)
		return
	}
	if resp.Error != nil {
		if w.onError != nil {
			w.onError(resp.Error)
		}
		return
	}
	if w.onResult != nil {
		w.onResult(resp.Result)
	}
}

// cancel completes the waiter with a RequestCancelled response, used when
// teardown abandons any outbound request still awaiting a reply.
func (w *waiter) cancel() {
	w.complete(rpc.NewErrorResponse(rpc.NullId(), rpcerr.CodeRequestCancelled, "Request cancelled", jsonvalue.Value{}, false))
}

// RequestHandle is returned by Dispatcher.SendRequest. It carries the
// allocated Id (for the caller to compose a $/cancelRequest notification)
// and a read-side completion receiver.
type RequestHandle struct {
	Id   rpc.Id
	done chan *rpc.Response
}

// Await blocks until the response arrives or ctx is cancelled, returning
// the decoded result, a ResponseError if the peer replied with one, or a
// context error.
func (h *RequestHandle) Await(ctx context.Context) (result jsonvalue.Value, hasResult bool, respErr *rpc.ResponseError, err error) {
	select {
	case resp, ok := <-h.done:
		if !ok {
			return jsonvalue.Value{}, false, nil, errClosedWaiter
		}
		if resp.Error != nil {
			return jsonvalue.Value{}, false, resp.Error, nil
		}
		return resp.Result, resp.HasResult, nil, nil
	case <-ctx.Done():
		return jsonvalue.Value{}, false, nil, ctx.Err()
	}
}

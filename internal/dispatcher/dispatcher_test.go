// file: internal/dispatcher/dispatcher_test.go
package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dkoosis/lsprpc/internal/framing"
	"github.com/dkoosis/lsprpc/internal/jsonvalue"
	"github.com/dkoosis/lsprpc/internal/rpc"
	"github.com/dkoosis/lsprpc/internal/rpcerr"
	"github.com/dkoosis/lsprpc/internal/streams"
)

// pair wires two Dispatchers back-to-back over an in-memory byte-stream
// pair, each fed by its own Framer, to exercise round trips without a real
// transport.
type pair struct {
	client *Dispatcher
	server *Dispatcher
}

func newPair(t *testing.T) *pair {
	t.Helper()
	a, b := streams.NewInMemoryPair()
	client := New(framing.New(a, false), 1, 2, nil)
	server := New(framing.New(b, false), 1, 2, nil)

	go pump(t, client)
	go pump(t, server)

	return &pair{client: client, server: server}
}

func pump(t *testing.T, d *Dispatcher) {
	t.Helper()
	for {
		if err := d.ProcessOne(context.Background()); err != nil {
			return
		}
	}
}

func TestRequestResponseRoundTrip(t *testing.T) {
	p := newPair(t)
	p.server.Register("echo", func(_ *HandlerContext, params jsonvalue.Value, hasParams bool) (jsonvalue.Value, bool, error) {
		return params, hasParams, nil
	})

	handle, err := p.client.SendRequest("echo", jsonvalue.Str("hi"), true)
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	result, hasResult, respErr, err := handle.Await(ctx)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if respErr != nil {
		t.Fatalf("unexpected response error: %+v", respErr)
	}
	if !hasResult || result.Str() != "hi" {
		t.Fatalf("expected echoed result %q, got %+v (hasResult=%v)", "hi", result, hasResult)
	}
}

func TestUnknownMethodReturnsMethodNotFound(t *testing.T) {
	p := newPair(t)

	handle, err := p.client.SendRequest("nonexistent", jsonvalue.Value{}, false)
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _, respErr, err := handle.Await(ctx)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if respErr == nil || respErr.Code != rpcerr.CodeMethodNotFound {
		t.Fatalf("expected MethodNotFound, got %+v", respErr)
	}
}

func TestHandlerRequestErrorIsPropagatedVerbatim(t *testing.T) {
	p := newPair(t)
	p.server.Register("boom", func(_ *HandlerContext, _ jsonvalue.Value, _ bool) (jsonvalue.Value, bool, error) {
		return jsonvalue.Value{}, false, rpcerr.NewRequestError(-32099, "custom failure", nil)
	})

	handle, err := p.client.SendRequest("boom", jsonvalue.Value{}, false)
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _, respErr, err := handle.Await(ctx)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if respErr == nil || respErr.Code != -32099 || respErr.Message != "custom failure" {
		t.Fatalf("expected verbatim custom error, got %+v", respErr)
	}
}

func TestNotificationNeverProducesAResponse(t *testing.T) {
	p := newPair(t)
	var called sync.WaitGroup
	called.Add(1)
	p.server.Register("notifyMe", func(_ *HandlerContext, _ jsonvalue.Value, _ bool) (jsonvalue.Value, bool, error) {
		called.Done()
		return jsonvalue.Value{}, false, rpcerr.NewRequestError(rpcerr.CodeInternalError, "should never surface", nil)
	})

	if err := p.client.SendNotification("notifyMe", jsonvalue.Value{}, false); err != nil {
		t.Fatalf("SendNotification: %v", err)
	}

	done := make(chan struct{})
	go func() { called.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notification handler was never invoked")
	}

	// Follow up with a real request so we'd observe desynchronization if
	// the notification had incorrectly written a response frame.
	p.server.Register("ping", func(_ *HandlerContext, _ jsonvalue.Value, _ bool) (jsonvalue.Value, bool, error) {
		return jsonvalue.Str("pong"), true, nil
	})
	handle, err := p.client.SendRequest("ping", jsonvalue.Value{}, false)
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	result, hasResult, respErr, err := handle.Await(ctx)
	if err != nil || respErr != nil || !hasResult || result.Str() != "pong" {
		t.Fatalf("expected pong after notification, got result=%+v hasResult=%v respErr=%+v err=%v", result, hasResult, respErr, err)
	}
}

func TestAsyncHandlerCompletesOutOfOrder(t *testing.T) {
	p := newPair(t)
	release := make(chan struct{})
	p.server.RegisterAsync("slow", func(_ *HandlerContext, _ jsonvalue.Value, _ bool) <-chan HandlerResult {
		out := make(chan HandlerResult, 1)
		go func() {
			<-release
			out <- HandlerResult{Result: jsonvalue.Str("slow-done"), HasResult: true}
		}()
		return out
	})
	p.server.Register("fast", func(_ *HandlerContext, _ jsonvalue.Value, _ bool) (jsonvalue.Value, bool, error) {
		return jsonvalue.Str("fast-done"), true, nil
	})

	slowHandle, err := p.client.SendRequest("slow", jsonvalue.Value{}, false)
	if err != nil {
		t.Fatalf("SendRequest(slow): %v", err)
	}
	fastHandle, err := p.client.SendRequest("fast", jsonvalue.Value{}, false)
	if err != nil {
		t.Fatalf("SendRequest(fast): %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	result, hasResult, respErr, err := fastHandle.Await(ctx)
	if err != nil || respErr != nil || !hasResult || result.Str() != "fast-done" {
		t.Fatalf("expected fast request to complete first, got result=%+v err=%v respErr=%+v", result, err, respErr)
	}

	close(release)
	result, hasResult, respErr, err = slowHandle.Await(ctx)
	if err != nil || respErr != nil || !hasResult || result.Str() != "slow-done" {
		t.Fatalf("expected slow request to complete after release, got result=%+v err=%v respErr=%+v", result, err, respErr)
	}
}

func TestTeardownCancelsPendingRequests(t *testing.T) {
	p := newPair(t)
	block := make(chan struct{})
	p.server.RegisterAsync("neverReplies", func(_ *HandlerContext, _ jsonvalue.Value, _ bool) <-chan HandlerResult {
		out := make(chan HandlerResult)
		go func() { <-block; close(out) }()
		return out
	})

	handle, err := p.client.SendRequest("neverReplies", jsonvalue.Value{}, false)
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}

	if err := p.client.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _, respErr, err := handle.Await(ctx)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if respErr == nil || respErr.Code != rpcerr.CodeRequestCancelled {
		t.Fatalf("expected RequestCancelled on teardown, got %+v", respErr)
	}
	close(block)
}

func TestSendRequestAfterCloseIsRejected(t *testing.T) {
	p := newPair(t)
	if err := p.client.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := p.client.SendRequest("anything", jsonvalue.Value{}, false); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestRequestBatchProducesMatchingResponseBatch(t *testing.T) {
	// This exercises the batch wire format directly rather than through
	// newPair, since the client side's own ProcessOne loop would otherwise
	// race to consume the response batch meant for this test's manual read.
	a, b := streams.NewInMemoryPair()
	clientFramer := framing.New(a, false)
	server := New(framing.New(b, false), 1, 2, nil)
	go pump(t, server)

	server.Register("double", func(_ *HandlerContext, params jsonvalue.Value, hasParams bool) (jsonvalue.Value, bool, error) {
		if !hasParams || !params.IsNumber() {
			return jsonvalue.Value{}, false, rpcerr.NewRequestError(rpcerr.CodeInvalidParams, "expected a number", nil)
		}
		return jsonvalue.Int(params.Int() * 2), true, nil
	})

	reqs := []*rpc.Request{
		rpc.NewRequest(rpc.IntegerId(100), "double", jsonvalue.Int(1), true),
		rpc.NewRequest(rpc.IntegerId(101), "double", jsonvalue.Int(2), true),
		rpc.NewRequest(rpc.IntegerId(102), "double", jsonvalue.Str("nope"), true),
	}
	if err := clientFramer.WriteMessage(rpc.RequestBatchToValue(reqs)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	v, err := clientFramer.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if v.Kind() != jsonvalue.KindArray || len(v.Array()) != 3 {
		t.Fatalf("expected a 3-element response batch, got %+v", v)
	}
}

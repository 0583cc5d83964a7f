// Package dispatcher implements the bidirectional message dispatcher: the
// central component that reads framed JSON-RPC messages, routes inbound
// requests to registered handlers, correlates inbound responses with
// outstanding outbound requests, and serializes the send path.
//
// The routing algorithm and handler invocation rules are grounded on
// original_source/lsp/messagedispatcher.h and messagehandler.h's fused
// handler model: one handler table serves both requests and notifications,
// with no separate dispatcher-versus-handler split type. The
// Running/Draining/Finalized lifecycle is built on internal/fsm, a wrapper
// around looplab/fsm.
// file: internal/dispatcher/dispatcher.go
package dispatcher

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dkoosis/lsprpc/internal/fsm"
	"github.com/dkoosis/lsprpc/internal/framing"
	"github.com/dkoosis/lsprpc/internal/jsonvalue"
	"github.com/dkoosis/lsprpc/internal/logging"
	"github.com/dkoosis/lsprpc/internal/rpc"
	"github.com/dkoosis/lsprpc/internal/rpcerr"
	"github.com/dkoosis/lsprpc/internal/workerpool"
)

// Dispatcher is a single endpoint's message router: one framed transport,
// one handler table, one pending-request table, and one worker pool for
// async handler execution.
type Dispatcher struct {
	framer *framing.Framer
	pool   *workerpool.Pool
	logger logging.Logger

	lifecycle fsm.FSM
	teardownOnce sync.Once

	handlerMu sync.RWMutex
	handlers  map[string]*handler

	pendingMu sync.Mutex
	pending   map[int64]*waiter

	nextID atomic.Int64
}

// New creates a Dispatcher reading and writing over framer, running async
// handlers on a pool sized by initialThreads/maxThreads.
func New(framer *framing.Framer, initialThreads, maxThreads int, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &Dispatcher{
		framer:    framer,
		pool:      workerpool.New(initialThreads, maxThreads),
		logger:    logger.WithField("component", "dispatcher"),
		lifecycle: newLifecycle(),
		handlers:  make(map[string]*handler),
		pending:   make(map[int64]*waiter),
	}
}

// Register binds method to a synchronous handler. Replacing an existing
// binding is allowed.
func (d *Dispatcher) Register(method string, fn HandlerFunc) {
	d.handlerMu.Lock()
	d.handlers[method] = &handler{sync: fn}
	d.handlerMu.Unlock()
}

// RegisterAsync binds method to a handler that completes on
// internal/workerpool instead of the read thread.
func (d *Dispatcher) RegisterAsync(method string, fn AsyncHandlerFunc) {
	d.handlerMu.Lock()
	d.handlers[method] = &handler{async: fn}
	d.handlerMu.Unlock()
}

// Unregister removes method's binding, if any.
func (d *Dispatcher) Unregister(method string) {
	d.handlerMu.Lock()
	delete(d.handlers, method)
	d.handlerMu.Unlock()
}

func (d *Dispatcher) lookupHandler(method string) (*handler, bool) {
	d.handlerMu.RLock()
	defer d.handlerMu.RUnlock()
	h, ok := d.handlers[method]
	return h, ok
}

// ProcessOne reads exactly one inbound message and routes it. Callers loop
// this from a single dedicated read goroutine; calling it from more than
// one goroutine concurrently is not supported — the framer's own read
// mutex only prevents torn reads, not interleaved routing.
func (d *Dispatcher) ProcessOne(ctx context.Context) error {
	v, err := d.framer.ReadMessage()
	if err != nil {
		if fe, ok := err.(*framing.Error); ok {
			d.teardown(ctx)
			return fe
		}
		if pe, ok := err.(*jsonvalue.ParseError); ok {
			d.logger.Warn("parse error reading message body", "error", pe)
			d.writeErrorResponse(rpc.NullId(), rpcerr.CodeParseError, rpcerr.UserFacingMessage(rpcerr.CodeParseError), jsonvalue.Value{}, false)
			return nil
		}
		d.teardown(ctx)
		return err
	}

	switch v.Kind() {
	case jsonvalue.KindObject:
		d.routeValue(v)
	case jsonvalue.KindArray:
		d.routeBatch(v)
	default:
		d.logger.Warn("dropping message that is neither an object nor an array")
	}
	return nil
}

func (d *Dispatcher) routeValue(v jsonvalue.Value) {
	msg, err := rpc.DecodeValue(v)
	if err != nil {
		d.handleProtocolError(v, err)
		return
	}
	switch {
	case msg.Request != nil:
		d.routeRequest(msg.Request)
	case msg.Response != nil:
		d.routeResponse(msg.Response)
	}
}

func (d *Dispatcher) handleProtocolError(v jsonvalue.Value, cause error) {
	if id, ok := bestEffortId(v); ok {
		d.writeErrorResponse(id, rpcerr.CodeInvalidRequest, rpcerr.UserFacingMessage(rpcerr.CodeInvalidRequest), jsonvalue.Value{}, false)
		return
	}
	d.logger.Warn("dropping malformed message", "error", cause)
}

// bestEffortId extracts a legal id from a JSON object that otherwise
// failed decoding, so an InvalidRequest reply can still echo it when
// possible.
func bestEffortId(v jsonvalue.Value) (rpc.Id, bool) {
	if v.Kind() != jsonvalue.KindObject {
		return rpc.Id{}, false
	}
	idVal, ok := v.Object().Get("id")
	if !ok {
		return rpc.Id{}, false
	}
	switch idVal.Kind() {
	case jsonvalue.KindString:
		return rpc.StringId(idVal.Str()), true
	case jsonvalue.KindInteger:
		return rpc.IntegerId(idVal.Int()), true
	case jsonvalue.KindNull:
		return rpc.NullId(), true
	default:
		return rpc.Id{}, false
	}
}

func (d *Dispatcher) routeRequest(req *rpc.Request) {
	h, ok := d.lookupHandler(req.Method)
	if !ok {
		if !req.IsNotification() {
			d.writeErrorResponse(req.Id, rpcerr.CodeMethodNotFound, rpcerr.UserFacingMessage(rpcerr.CodeMethodNotFound), jsonvalue.Value{}, false)
		}
		return
	}
	d.invokeHandler(h, req)
}

func (d *Dispatcher) invokeHandler(h *handler, req *rpc.Request) {
	ctx := &HandlerContext{RequestId: req.Id, HasRequestId: req.HasId}

	if h.sync != nil {
		result, hasResult, err := h.sync(ctx, req.Params, req.HasParams)
		d.completeSyncInvocation(req, result, hasResult, err)
		return
	}

	// Async handlers always run on the pool; responses may be emitted out
	// of arrival order, which is allowed for asynchronously handled requests.
	err := d.pool.Submit(func() {
		resCh := h.async(ctx, req.Params, req.HasParams)
		res := <-resCh
		d.completeSyncInvocation(req, res.Result, res.HasResult, res.Err)
	})
	if err != nil {
		// Pool is draining mid-teardown; answer with Cancelled rather than
		// silently dropping a request that already has an id.
		d.completeSyncInvocation(req, jsonvalue.Value{}, false, rpcerr.NewRequestError(rpcerr.CodeRequestCancelled, "Request cancelled", nil))
	}
}

// completeSyncInvocation wraps a normal handler return into a result
// response, maps a typed RequestError or any other error into an error
// response, and never emits anything for a notification regardless of
// outcome.
func (d *Dispatcher) completeSyncInvocation(req *rpc.Request, result jsonvalue.Value, hasResult bool, err error) {
	if req.IsNotification() {
		if err != nil {
			d.logger.Warn("handler error servicing notification", "method", req.Method, "error", err)
		}
		return
	}

	if err != nil {
		if reqErr, ok := err.(*rpcerr.RequestError); ok {
			data, hasData := jsonvalue.Value{}, false
			if reqErr.Data != nil {
				if dv, ok := reqErr.Data.(jsonvalue.Value); ok {
					data, hasData = dv, true
				}
			}
			d.writeErrorResponse(req.Id, reqErr.Code, reqErr.Message, data, hasData)
			return
		}
		d.writeErrorResponse(req.Id, rpcerr.CodeInternalError, err.Error(), jsonvalue.Value{}, false)
		return
	}

	d.writeResultResponse(req.Id, result, hasResult)
}

func (d *Dispatcher) routeBatch(v jsonvalue.Value) {
	batch, err := rpc.DecodeBatch(v)
	if err != nil {
		d.logger.Warn("dropping malformed batch", "error", err)
		return
	}

	if len(batch.Requests) > 0 {
		d.routeRequestBatch(batch.Requests)
	}
	for _, resp := range batch.Responses {
		d.routeResponse(resp)
	}
}

// routeRequestBatch handles a batch of requests: notifications inside the
// batch may run asynchronously in parallel since they contribute nothing to
// the response batch; requests with an id are answered in input order so
// the emitted response batch matches it.
func (d *Dispatcher) routeRequestBatch(reqs []*rpc.Request) {
	responses := make([]*rpc.Response, 0, len(reqs))
	for _, req := range reqs {
		h, ok := d.lookupHandler(req.Method)
		if req.IsNotification() {
			if ok {
				d.invokeHandler(h, req)
			}
			continue
		}
		if !ok {
			responses = append(responses, rpc.NewErrorResponse(req.Id, rpcerr.CodeMethodNotFound, rpcerr.UserFacingMessage(rpcerr.CodeMethodNotFound), jsonvalue.Value{}, false))
			continue
		}
		responses = append(responses, d.invokeHandlerInOrder(h, req))
	}
	if len(responses) > 0 {
		d.writeResponseBatch(responses)
	}
}

// invokeHandlerInOrder runs h synchronously even if it is async-typed,
// blocking on its completion channel, so a batch's response order matches
// its request order.
func (d *Dispatcher) invokeHandlerInOrder(h *handler, req *rpc.Request) *rpc.Response {
	ctx := &HandlerContext{RequestId: req.Id, HasRequestId: req.HasId}

	var result jsonvalue.Value
	var hasResult bool
	var err error
	if h.sync != nil {
		result, hasResult, err = h.sync(ctx, req.Params, req.HasParams)
	} else {
		res := <-h.async(ctx, req.Params, req.HasParams)
		result, hasResult, err = res.Result, res.HasResult, res.Err
	}

	if err != nil {
		if reqErr, ok := err.(*rpcerr.RequestError); ok {
			data, hasData := jsonvalue.Value{}, false
			if dv, ok := reqErr.Data.(jsonvalue.Value); ok {
				data, hasData = dv, true
			}
			return rpc.NewErrorResponse(req.Id, reqErr.Code, reqErr.Message, data, hasData)
		}
		return rpc.NewErrorResponse(req.Id, rpcerr.CodeInternalError, err.Error(), jsonvalue.Value{}, false)
	}
	return rpc.NewResponse(req.Id, result)
}

func (d *Dispatcher) routeResponse(resp *rpc.Response) {
	if resp.Id.Kind() != rpc.IdKindInteger {
		d.logger.Warn("dropping response with non-integer id")
		return
	}
	key := resp.Id.Integer()

	d.pendingMu.Lock()
	w, ok := d.pending[key]
	if ok {
		delete(d.pending, key)
	}
	d.pendingMu.Unlock()

	if !ok {
		d.logger.Debug("dropping response with no matching pending request", "id", key)
		return
	}
	w.complete(resp)
}

// SendRequest allocates an id, registers a waiter, and writes the request.
// The caller receives a handle to await the eventual result.
func (d *Dispatcher) SendRequest(method string, params jsonvalue.Value, hasParams bool) (*RequestHandle, error) {
	id := rpc.IntegerId(d.nextID.Add(1))
	w := &waiter{done: make(chan *rpc.Response, 1)}

	if err := d.registerWaiter(id.Integer(), w); err != nil {
		return nil, err
	}
	if err := d.framer.WriteMessage(rpc.RequestToValue(rpc.NewRequest(id, method, params, hasParams))); err != nil {
		d.removeWaiter(id.Integer())
		return nil, err
	}
	return &RequestHandle{Id: id, done: w.done}, nil
}

// SendRequestCallback is the callback variant of SendRequest: onResult or
// onError runs on the read thread once the response arrives.
func (d *Dispatcher) SendRequestCallback(method string, params jsonvalue.Value, hasParams bool, onResult func(jsonvalue.Value), onError func(*rpc.ResponseError)) (rpc.Id, error) {
	id := rpc.IntegerId(d.nextID.Add(1))
	w := &waiter{onResult: onResult, onError: onError}

	if err := d.registerWaiter(id.Integer(), w); err != nil {
		return rpc.Id{}, err
	}
	if err := d.framer.WriteMessage(rpc.RequestToValue(rpc.NewRequest(id, method, params, hasParams))); err != nil {
		d.removeWaiter(id.Integer())
		return rpc.Id{}, err
	}
	return id, nil
}

// SendNotification writes a notification; there is no id and no waiter.
func (d *Dispatcher) SendNotification(method string, params jsonvalue.Value, hasParams bool) error {
	if d.isTerminal() {
		return ErrClosed
	}
	return d.framer.WriteMessage(rpc.RequestToValue(rpc.NewNotification(method, params, hasParams)))
}

func (d *Dispatcher) registerWaiter(id int64, w *waiter) error {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	if d.isTerminal() {
		return ErrClosed
	}
	d.pending[id] = w
	return nil
}

func (d *Dispatcher) removeWaiter(id int64) {
	d.pendingMu.Lock()
	delete(d.pending, id)
	d.pendingMu.Unlock()
}

func (d *Dispatcher) writeResultResponse(id rpc.Id, result jsonvalue.Value, hasResult bool) {
	resp := &rpc.Response{Id: id, Result: result, HasResult: hasResult}
	if !hasResult {
		resp.Result = jsonvalue.Null()
		resp.HasResult = true
	}
	if err := d.framer.WriteMessage(rpc.ResponseToValue(resp)); err != nil {
		d.logger.Error("failed to write response", "error", err)
	}
}

func (d *Dispatcher) writeErrorResponse(id rpc.Id, code int, message string, data jsonvalue.Value, hasData bool) {
	resp := rpc.NewErrorResponse(id, code, message, data, hasData)
	if err := d.framer.WriteMessage(rpc.ResponseToValue(resp)); err != nil {
		d.logger.Error("failed to write error response", "error", err)
	}
}

func (d *Dispatcher) writeResponseBatch(responses []*rpc.Response) {
	if err := d.framer.WriteMessage(rpc.ResponseBatchToValue(responses)); err != nil {
		d.logger.Error("failed to write response batch", "error", err)
	}
}

// Close tears the dispatcher down: stops accepting new sends, cancels
// every pending waiter, drains the worker pool, and closes the transport
// and closes the transport.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.teardown(ctx)
	return d.framer.Close()
}

func (d *Dispatcher) teardown(ctx context.Context) {
	d.teardownOnce.Do(func() {
		d.beginTeardown(ctx)

		d.pendingMu.Lock()
		pending := d.pending
		d.pending = make(map[int64]*waiter)
		d.pendingMu.Unlock()
		for _, w := range pending {
			w.cancel()
		}

		d.pool.Drain()
		d.finishTeardown(ctx)
	})
}

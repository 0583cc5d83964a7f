// Package rpc implements the JSON-RPC 2.0 envelope: request, notification,
// response, and batch discrimination, id handling, and error encoding, atop
// the internal/jsonvalue tree rather than encoding/json.
//
// The exact decode validation order (jsonrpc version, then method, then id
// type discrimination, then params type) is grounded on
// original_source/lsp/jsonrpc/jsonrpc.cpp's requestFromJson.
// file: internal/rpc/envelope.go
package rpc

import (
	"github.com/dkoosis/lsprpc/internal/jsonvalue"
	"github.com/dkoosis/lsprpc/internal/rpcerr"
)

// Version is the only JSON-RPC version this package accepts or emits.
const Version = "2.0"

// IdKind discriminates the three legal shapes of a message id.
type IdKind int

// The three Id variants.
const (
	IdKindNull IdKind = iota
	IdKindString
	IdKindInteger
)

// Id is a JSON-RPC message id: a String, an Integer, or Null.
type Id struct {
	kind IdKind
	str  string
	num  int64
}

// NullId returns the Null id.
func NullId() Id { return Id{kind: IdKindNull} }

// StringId returns a String id.
func StringId(s string) Id { return Id{kind: IdKindString, str: s} }

// IntegerId returns an Integer id.
func IntegerId(n int64) Id { return Id{kind: IdKindInteger, num: n} }

// Kind reports which variant the id holds.
func (id Id) Kind() IdKind { return id.kind }

// String returns the string payload; valid only for IdKindString.
func (id Id) String() string { return id.str }

// Integer returns the integer payload; valid only for IdKindInteger.
func (id Id) Integer() int64 { return id.num }

// Equal reports whether two ids denote the same value.
func (id Id) Equal(other Id) bool {
	if id.kind != other.kind {
		return false
	}
	switch id.kind {
	case IdKindString:
		return id.str == other.str
	case IdKindInteger:
		return id.num == other.num
	default:
		return true
	}
}

// ToValue converts the id to its JSON representation.
func (id Id) ToValue() jsonvalue.Value {
	switch id.kind {
	case IdKindString:
		return jsonvalue.Str(id.str)
	case IdKindInteger:
		return jsonvalue.Int(id.num)
	default:
		return jsonvalue.Null()
	}
}

// idFromValue discriminates a JSON value into an Id, or reports that the
// value is not a legal id shape (object/array/boolean/decimal).
func idFromValue(v jsonvalue.Value) (Id, bool) {
	switch v.Kind() {
	case jsonvalue.KindString:
		return StringId(v.Str()), true
	case jsonvalue.KindInteger:
		return IntegerId(v.Int()), true
	case jsonvalue.KindNull:
		return NullId(), true
	default:
		return Id{}, false
	}
}

// Request is a JSON-RPC request (Id present) or notification (Id absent).
type Request struct {
	Id     Id
	HasId  bool
	Method string
	Params jsonvalue.Value
	HasParams bool
}

// IsNotification reports whether this Request carries no id.
func (r *Request) IsNotification() bool { return !r.HasId }

// ResponseError is the `error` member of a Response.
type ResponseError struct {
	Code    int
	Message string
	Data    jsonvalue.Value
	HasData bool
}

// Response is a JSON-RPC response: exactly one of Result or Error is set.
type Response struct {
	Id      Id
	Result  jsonvalue.Value
	HasResult bool
	Error   *ResponseError
}

// NewRequest builds a request with an id.
func NewRequest(id Id, method string, params jsonvalue.Value, hasParams bool) *Request {
	return &Request{Id: id, HasId: true, Method: method, Params: params, HasParams: hasParams}
}

// NewNotification builds a request with no id.
func NewNotification(method string, params jsonvalue.Value, hasParams bool) *Request {
	return &Request{HasId: false, Method: method, Params: params, HasParams: hasParams}
}

// NewResponse builds a successful response.
func NewResponse(id Id, result jsonvalue.Value) *Response {
	return &Response{Id: id, Result: result, HasResult: true}
}

// NewErrorResponse builds an error response.
func NewErrorResponse(id Id, code int, message string, data jsonvalue.Value, hasData bool) *Response {
	return &Response{Id: id, Error: &ResponseError{Code: code, Message: message, Data: data, HasData: hasData}}
}

// RequestToValue encodes a Request/Notification to its JSON form.
func RequestToValue(r *Request) jsonvalue.Value {
	o := jsonvalue.NewObject()
	o.Set("jsonrpc", jsonvalue.Str(Version))
	if r.HasId {
		o.Set("id", r.Id.ToValue())
	}
	o.Set("method", jsonvalue.Str(r.Method))
	if r.HasParams {
		o.Set("params", r.Params)
	}
	return jsonvalue.Obj(o)
}

// ResponseToValue encodes a Response to its JSON form. A Response with
// neither Result nor Error set is an invariant violation and must never be
// constructed; this function does not defend against it because internal
// callers always set one of the two (NewResponse, NewErrorResponse, and the
// dispatcher's own result path, which substitutes null for a missing
// result).
func ResponseToValue(r *Response) jsonvalue.Value {
	o := jsonvalue.NewObject()
	o.Set("jsonrpc", jsonvalue.Str(Version))
	o.Set("id", r.Id.ToValue())
	if r.HasResult {
		o.Set("result", r.Result)
	}
	if r.Error != nil {
		eo := jsonvalue.NewObject()
		eo.Set("code", jsonvalue.Int(int64(r.Error.Code)))
		eo.Set("message", jsonvalue.Str(r.Error.Message))
		if r.Error.HasData {
			eo.Set("data", r.Error.Data)
		}
		o.Set("error", jsonvalue.Obj(eo))
	}
	return jsonvalue.Obj(o)
}

// Message is the decoded sum type produced by DecodeValue: exactly one of
// Request or Response is non-nil (never both), matching the C++ origin's
// std::variant<Request, Response>.
type Message struct {
	Request  *Request
	Response *Response
}

// Batch is the decoded sum type produced by DecodeBatch: exactly one of
// Requests or Responses is non-nil.
type Batch struct {
	Requests  []*Request
	Responses []*Response
}

// DecodeValue discriminates a single JSON object into a Request or a
// Response, following original_source/lsp/jsonrpc/jsonrpc.cpp's
// requestFromJson validation order: jsonrpc version, then method-vs-result/
// error discrimination, then id type, then params type.
func DecodeValue(v jsonvalue.Value) (*Message, error) {
	if v.Kind() != jsonvalue.KindObject {
		return nil, rpcerr.Newf(rpcerr.CategoryProtocol, rpcerr.CodeInvalidRequest, "expected a JSON object")
	}
	obj := v.Object()

	jsonrpcField, ok := obj.Get("jsonrpc")
	if !ok || jsonrpcField.Kind() != jsonvalue.KindString || jsonrpcField.Str() != Version {
		return nil, rpcerr.Newf(rpcerr.CategoryProtocol, rpcerr.CodeInvalidRequest, "missing or unsupported jsonrpc version")
	}

	_, hasMethod := obj.Get("method")
	_, hasResult := obj.Get("result")
	_, hasError := obj.Get("error")

	switch {
	case hasMethod:
		return decodeRequest(obj)
	case hasResult || hasError:
		return decodeResponse(obj)
	default:
		return nil, rpcerr.Newf(rpcerr.CategoryProtocol, rpcerr.CodeInvalidRequest, "message is neither a request nor a response")
	}
}

func decodeRequest(obj *jsonvalue.Object) (*Message, error) {
	methodVal, ok := obj.Get("method")
	if !ok || methodVal.Kind() != jsonvalue.KindString {
		return nil, rpcerr.Newf(rpcerr.CategoryProtocol, rpcerr.CodeInvalidRequest, "missing or invalid method")
	}

	req := &Request{Method: methodVal.Str()}

	if idVal, present := obj.Get("id"); present {
		id, ok := idFromValue(idVal)
		if !ok {
			return nil, rpcerr.Newf(rpcerr.CategoryProtocol, rpcerr.CodeInvalidRequest, "id must be string, number, or null")
		}
		req.Id = id
		req.HasId = true
	}

	if paramsVal, present := obj.Get("params"); present {
		if paramsVal.Kind() != jsonvalue.KindObject && paramsVal.Kind() != jsonvalue.KindArray {
			return nil, rpcerr.Newf(rpcerr.CategoryProtocol, rpcerr.CodeInvalidRequest, "params must be object or array")
		}
		req.Params = paramsVal
		req.HasParams = true
	}

	return &Message{Request: req}, nil
}

func decodeResponse(obj *jsonvalue.Object) (*Message, error) {
	resp := &Response{Id: NullId()}

	if idVal, present := obj.Get("id"); present {
		id, ok := idFromValue(idVal)
		if !ok {
			return nil, rpcerr.Newf(rpcerr.CategoryProtocol, rpcerr.CodeInvalidRequest, "id must be string, number, or null")
		}
		resp.Id = id
	}

	resultVal, hasResult := obj.Get("result")
	errVal, hasError := obj.Get("error")

	if hasResult && hasError {
		return nil, rpcerr.Newf(rpcerr.CategoryProtocol, rpcerr.CodeInvalidRequest, "response cannot contain both result and error")
	}
	if !hasResult && !hasError {
		return nil, rpcerr.Newf(rpcerr.CategoryProtocol, rpcerr.CodeInvalidRequest, "response must contain result or error")
	}

	if hasResult {
		resp.Result = resultVal
		resp.HasResult = true
		return &Message{Response: resp}, nil
	}

	if errVal.Kind() != jsonvalue.KindObject {
		return nil, rpcerr.Newf(rpcerr.CategoryProtocol, rpcerr.CodeInvalidRequest, "error must be an object")
	}
	eo := errVal.Object()
	codeVal, ok := eo.Get("code")
	if !ok || !codeVal.IsNumber() {
		return nil, rpcerr.Newf(rpcerr.CategoryProtocol, rpcerr.CodeInvalidRequest, "error.code must be a number")
	}
	msgVal, ok := eo.Get("message")
	if !ok || msgVal.Kind() != jsonvalue.KindString {
		return nil, rpcerr.Newf(rpcerr.CategoryProtocol, rpcerr.CodeInvalidRequest, "error.message must be a string")
	}
	respErr := &ResponseError{Code: int(codeVal.AsFloat()), Message: msgVal.Str()}
	if dataVal, present := eo.Get("data"); present {
		respErr.Data = dataVal
		respErr.HasData = true
	}
	resp.Error = respErr
	return &Message{Response: resp}, nil
}

// DecodeBatch discriminates a JSON array into a homogeneous batch of
// requests or responses. A batch mixing request and response elements is
// rejected as an invalid request.
func DecodeBatch(v jsonvalue.Value) (*Batch, error) {
	if v.Kind() != jsonvalue.KindArray {
		return nil, rpcerr.Newf(rpcerr.CategoryProtocol, rpcerr.CodeInvalidRequest, "expected a JSON array")
	}
	items := v.Array()
	batch := &Batch{}
	for _, item := range items {
		msg, err := DecodeValue(item)
		if err != nil {
			return nil, err
		}
		switch {
		case msg.Request != nil:
			if len(batch.Responses) > 0 {
				return nil, rpcerr.Newf(rpcerr.CategoryProtocol, rpcerr.CodeInvalidRequest, "mixed batch: request alongside responses")
			}
			batch.Requests = append(batch.Requests, msg.Request)
		case msg.Response != nil:
			if len(batch.Requests) > 0 {
				return nil, rpcerr.Newf(rpcerr.CategoryProtocol, rpcerr.CodeInvalidRequest, "mixed batch: response alongside requests")
			}
			batch.Responses = append(batch.Responses, msg.Response)
		}
	}
	return batch, nil
}

// RequestBatchToValue encodes a homogeneous request batch.
func RequestBatchToValue(reqs []*Request) jsonvalue.Value {
	items := make([]jsonvalue.Value, len(reqs))
	for i, r := range reqs {
		items[i] = RequestToValue(r)
	}
	return jsonvalue.Arr(items...)
}

// ResponseBatchToValue encodes a homogeneous response batch.
func ResponseBatchToValue(resps []*Response) jsonvalue.Value {
	items := make([]jsonvalue.Value, len(resps))
	for i, r := range resps {
		items[i] = ResponseToValue(r)
	}
	return jsonvalue.Arr(items...)
}

// Package validation offers optional JSON Schema validation of request
// params or results, wrapping github.com/santhosh-tekuri/jsonschema/v5.
//
// Validation is opt-in per message shape: a handler that wants schema
// enforcement registers one schema by name and validates against it, so
// unregistered names are simply skipped by callers rather than rejected.
// file: internal/validation/validator.go
package validation

import (
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dkoosis/lsprpc/internal/jsonvalue"
	"github.com/dkoosis/lsprpc/internal/rpcerr"
)

// Validator compiles and caches JSON schemas, validating decoded
// jsonvalue.Value trees against them.
type Validator struct {
	compiler *jsonschema.Compiler

	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

// New returns a Validator configured for the 2020-12 draft.
func New() *Validator {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	return &Validator{
		compiler: compiler,
		schemas:  make(map[string]*jsonschema.Schema),
	}
}

// AddSchema compiles schemaJSON and registers it under name for later use
// with Validate.
func (v *Validator) AddSchema(name string, schemaJSON string) error {
	if err := v.compiler.AddResource(name, strings.NewReader(schemaJSON)); err != nil {
		return rpcerr.New(err, rpcerr.CategoryProtocol, rpcerr.CodeInternalError,
			map[string]any{"schema": name})
	}
	schema, err := v.compiler.Compile(name)
	if err != nil {
		return rpcerr.New(err, rpcerr.CategoryProtocol, rpcerr.CodeInternalError,
			map[string]any{"schema": name})
	}

	v.mu.Lock()
	v.schemas[name] = schema
	v.mu.Unlock()
	return nil
}

// Has reports whether a schema is registered under name, letting a caller
// skip validation for message shapes that opted out.
func (v *Validator) Has(name string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.schemas[name]
	return ok
}

// Validate checks value against the schema registered under name. A schema
// violation is surfaced as an InvalidParams RequestError, ready for a
// handler to return directly.
func (v *Validator) Validate(name string, value jsonvalue.Value) error {
	v.mu.RLock()
	schema, ok := v.schemas[name]
	v.mu.RUnlock()
	if !ok {
		return rpcerr.Newf(rpcerr.CategoryProtocol, rpcerr.CodeInternalError, "no schema registered under %q", name)
	}

	if err := schema.Validate(toNative(value)); err != nil {
		return rpcerr.NewRequestError(rpcerr.CodeInvalidParams, "params failed schema validation", describeValidationError(err))
	}
	return nil
}

// toNative converts a jsonvalue.Value tree into the map[string]interface{}/
// []interface{}/scalar shape jsonschema/v5 expects, the same shape
// encoding/json.Unmarshal would produce into interface{}.
func toNative(v jsonvalue.Value) any {
	switch v.Kind() {
	case jsonvalue.KindNull:
		return nil
	case jsonvalue.KindBoolean:
		return v.Bool()
	case jsonvalue.KindInteger:
		return float64(v.Int())
	case jsonvalue.KindDecimal:
		return v.Float()
	case jsonvalue.KindString:
		return v.Str()
	case jsonvalue.KindArray:
		items := v.Array()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = toNative(item)
		}
		return out
	case jsonvalue.KindObject:
		obj := v.Object()
		out := make(map[string]any, obj.Len())
		for _, key := range obj.Keys() {
			val, _ := obj.Get(key)
			out[key] = toNative(val)
		}
		return out
	default:
		return nil
	}
}

// describeValidationError renders a jsonschema validation failure as a
// single-line string suitable for a RequestError's Data field.
func describeValidationError(err error) string {
	if ve, ok := err.(*jsonschema.ValidationError); ok {
		return ve.Error()
	}
	return err.Error()
}

// file: internal/validation/validator_test.go
package validation

import (
	"testing"

	"github.com/dkoosis/lsprpc/internal/jsonvalue"
)

const hoverParamsSchema = `{
	"$id": "hoverParams",
	"type": "object",
	"properties": {
		"position": {"type": "object"}
	},
	"required": ["position"]
}`

func TestValidateAcceptsConformingValue(t *testing.T) {
	v := New()
	if err := v.AddSchema("hoverParams", hoverParamsSchema); err != nil {
		t.Fatalf("AddSchema: %v", err)
	}

	o := jsonvalue.NewObject()
	pos := jsonvalue.NewObject()
	pos.Set("line", jsonvalue.Int(1))
	o.Set("position", jsonvalue.Obj(pos))

	if err := v.Validate("hoverParams", jsonvalue.Obj(o)); err != nil {
		t.Fatalf("expected valid params to pass, got %v", err)
	}
}

func TestValidateRejectsMissingRequiredField(t *testing.T) {
	v := New()
	if err := v.AddSchema("hoverParams", hoverParamsSchema); err != nil {
		t.Fatalf("AddSchema: %v", err)
	}

	o := jsonvalue.NewObject()
	o.Set("unrelated", jsonvalue.Str("oops"))

	err := v.Validate("hoverParams", jsonvalue.Obj(o))
	if err == nil {
		t.Fatal("expected validation error for missing required field")
	}
}

func TestValidateUnknownSchemaNameIsAnError(t *testing.T) {
	v := New()
	o := jsonvalue.NewObject()
	if err := v.Validate("does-not-exist", jsonvalue.Obj(o)); err == nil {
		t.Fatal("expected error for unregistered schema name")
	}
}

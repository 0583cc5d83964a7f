// file: endpoint_test.go
package lsprpc

import (
	"context"
	"testing"
	"time"

	"github.com/dkoosis/lsprpc/internal/config"
	"github.com/dkoosis/lsprpc/internal/dispatcher"
	"github.com/dkoosis/lsprpc/internal/jsonvalue"
	"github.com/dkoosis/lsprpc/internal/streams"
)

type hoverParams struct {
	Line      int64
	Character int64
}

type hoverResult struct {
	Contents string
}

var hoverDescriptor = NewRequestDescriptor[hoverParams, hoverResult]("textDocument/hover", ClientToServer)

func encodeHoverParams(p hoverParams) (jsonvalue.Value, bool) {
	o := jsonvalue.NewObject()
	o.Set("line", jsonvalue.Int(p.Line))
	o.Set("character", jsonvalue.Int(p.Character))
	return jsonvalue.Obj(o), true
}

func decodeHoverParams(v jsonvalue.Value, hasParams bool) (hoverParams, error) {
	if !hasParams || v.Kind() != jsonvalue.KindObject {
		return hoverParams{}, errInvalidHoverParams
	}
	line, _ := v.Object().Get("line")
	character, _ := v.Object().Get("character")
	return hoverParams{Line: line.Int(), Character: character.Int()}, nil
}

var errInvalidHoverParams = &invalidHoverParamsError{}

type invalidHoverParamsError struct{}

func (*invalidHoverParamsError) Error() string { return "hover params must be an object" }

func encodeHoverResult(r hoverResult) (jsonvalue.Value, bool) {
	o := jsonvalue.NewObject()
	o.Set("contents", jsonvalue.Str(r.Contents))
	return jsonvalue.Obj(o), true
}

func decodeHoverResult(v jsonvalue.Value, hasResult bool) (hoverResult, error) {
	if !hasResult || v.Kind() != jsonvalue.KindObject {
		return hoverResult{}, errInvalidHoverParams
	}
	contents, _ := v.Object().Get("contents")
	return hoverResult{Contents: contents.Str()}, nil
}

func TestEndpointTypedRequestRoundTrip(t *testing.T) {
	a, b := streams.NewInMemoryPair()
	settings := config.New()
	client := NewEndpoint(a, settings)
	server := NewEndpoint(b, settings)

	RegisterRequest(server, hoverDescriptor, decodeHoverParams, func(_ *dispatcher.HandlerContext, p hoverParams) (hoverResult, error) {
		return hoverResult{Contents: "line " + itoa(p.Line)}, nil
	}, encodeHoverResult)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)
	go server.Run(ctx)

	reqCtx, reqCancel := context.WithTimeout(context.Background(), time.Second)
	defer reqCancel()
	result, err := SendRequest(reqCtx, client, hoverDescriptor, hoverParams{Line: 3, Character: 1}, encodeHoverParams, decodeHoverResult)
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	if result.Contents != "line 3" {
		t.Fatalf("expected %q, got %q", "line 3", result.Contents)
	}
}

func TestEndpointNotificationRoundTrip(t *testing.T) {
	a, b := streams.NewInMemoryPair()
	settings := config.New()
	client := NewEndpoint(a, settings)
	server := NewEndpoint(b, settings)

	received := make(chan hoverParams, 1)
	RegisterNotification(server, "textDocument/didFocus", decodeHoverParams, func(_ *dispatcher.HandlerContext, p hoverParams) {
		received <- p
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)
	go server.Run(ctx)

	if err := SendNotification(client, "textDocument/didFocus", hoverParams{Line: 7, Character: 2}, encodeHoverParams); err != nil {
		t.Fatalf("SendNotification: %v", err)
	}

	select {
	case p := <-received:
		if p.Line != 7 || p.Character != 2 {
			t.Fatalf("unexpected params: %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("notification was never delivered")
	}
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

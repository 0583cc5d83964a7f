// Package lsprpc is a transport-agnostic framework for building Language
// Server Protocol endpoints, client or server, over any blocking
// bidirectional byte stream.
//
// A typical server:
//
//	settings := config.New()
//	endpoint := lsprpc.NewEndpoint(streams.Stdio(), settings)
//	lsprpc.RegisterRequest(endpoint, hoverDescriptor, decodeHoverParams, handleHover, encodeHoverResult)
//	if err := endpoint.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// The framework supplies framing (internal/framing), the JSON-RPC envelope
// (internal/rpc), a bidirectional dispatcher (internal/dispatcher), and a
// bounded worker pool for asynchronous handlers (internal/workerpool).
// Generating a catalogue of LSP message types is explicitly out of scope;
// callers supply their own param/result types and encode/decode functions
// at each Descriptor registration or send call.
// file: doc.go
package lsprpc

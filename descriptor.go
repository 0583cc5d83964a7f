// file: descriptor.go
package lsprpc

// Direction describes which side of a conversation originates a message.
type Direction int

const (
	// ClientToServer messages are sent by the client and handled by the
	// server (e.g. textDocument/didOpen, initialize).
	ClientToServer Direction = iota
	// ServerToClient messages are sent by the server and handled by the
	// client (e.g. window/showMessage, workspace/applyEdit).
	ServerToClient
	// Bidirectional messages may originate from either side (e.g.
	// $/cancelRequest, $/progress).
	Bidirectional
)

// Kind distinguishes a request (expects a response) from a notification
// (fire-and-forget).
type Kind int

const (
	// RequestKind messages carry an id and expect a matching response.
	RequestKind Kind = iota
	// NotificationKind messages carry no id and never receive a response.
	NotificationKind
)

// Descriptor names one message in a protocol: its method string, which side
// sends it, and whether it is a request or a notification. P and R are the
// caller's own Go types for the message's params and result; Descriptor
// itself carries no codec, since generating a full catalogue of LSP message
// types is out of scope for this framework. Encode/decode functions for P
// and R are supplied by the caller at each registration or send call
// instead, mirroring the typed wrapper methods in
// troberti-clangd-query/go/internal/lsp/client.go
// (GetDefinition/GetReferences) generalized into a reusable type rather
// than one method per fixed message.
type Descriptor[P, R any] struct {
	Method    string
	Direction Direction
	Kind      Kind
}

// NewRequestDescriptor builds a Descriptor for a request-shaped message.
func NewRequestDescriptor[P, R any](method string, direction Direction) Descriptor[P, R] {
	return Descriptor[P, R]{Method: method, Direction: direction, Kind: RequestKind}
}

// NewNotificationDescriptor builds a Descriptor for a notification-shaped
// message. R is typically struct{} for a notification descriptor since
// notifications never produce a result.
func NewNotificationDescriptor[P, R any](method string, direction Direction) Descriptor[P, R] {
	return Descriptor[P, R]{Method: method, Direction: direction, Kind: NotificationKind}
}

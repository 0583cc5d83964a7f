// Package framing implements reading and writing LSP-framed JSON-RPC
// messages over a blocking byte stream: Content-Length/Content-Type headers
// terminated by a blank line, followed by exactly Content-Length bytes of
// UTF-8 JSON.
//
// The read/write contract (content-type verified only after the full body
// is consumed, a bare '\n' without '\r' inside a header line is a framing
// error, EOF before any header byte is a connection-lost condition) is
// grounded literally on original_source/lsp/connection.cpp's
// Connection::readMessage/readMessageHeader/readNextMessageHeaderField.
// file: internal/framing/framing.go
package framing

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/dkoosis/lsprpc/internal/jsonvalue"
)

// DefaultContentType is emitted on every outbound frame to maximize
// interoperability, even when the peer omitted it on the frame being
// replied to.
const DefaultContentType = "application/vscode-jsonrpc; charset=utf-8"

// Framer reads and writes length-prefixed JSON-RPC messages over a single
// underlying byte stream. Reads are serialized by one mutex and writes by
// another, so a single Framer may be read and written concurrently from
// different goroutines.
type Framer struct {
	r      *bufio.Reader
	w      io.Writer
	closer io.Closer

	readMu  sync.Mutex
	writeMu sync.Mutex

	strictContentType bool
}

// New wraps stream in a Framer. strictContentType selects Content-Type
// parameter leniency: false (the recommended default) accepts and ignores
// unknown Content-Type parameters beyond charset=; true rejects them.
func New(stream io.ReadWriteCloser, strictContentType bool) *Framer {
	return &Framer{
		r:                 bufio.NewReader(stream),
		w:                 stream,
		closer:            stream,
		strictContentType: strictContentType,
	}
}

// Close closes the underlying stream.
func (f *Framer) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// ReadMessage blocks until one complete framed message is available,
// returning its decoded JSON value.
func (f *Framer) ReadMessage() (jsonvalue.Value, error) {
	f.readMu.Lock()
	defer f.readMu.Unlock()

	if _, err := f.r.Peek(1); err != nil {
		return jsonvalue.Value{}, NewConnectionLostError(err)
	}

	contentLength := -1
	contentType := DefaultContentType

	for {
		line, err := readHeaderLine(f.r)
		if err != nil {
			return jsonvalue.Value{}, err
		}
		if line == "" {
			break
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			return jsonvalue.Value{}, NewFramingError("malformed header line: " + line)
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		switch key {
		case "Content-Length":
			n, convErr := strconv.Atoi(value)
			if convErr != nil || n < 0 {
				return jsonvalue.Value{}, NewFramingError("invalid Content-Length: " + value)
			}
			contentLength = n
		case "Content-Type":
			contentType = value
		}
	}

	if contentLength < 0 {
		return jsonvalue.Value{}, NewFramingError("missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(f.r, body); err != nil {
		return jsonvalue.Value{}, NewConnectionLostError(err)
	}

	// Content-Type is verified only after the full body has been consumed,
	// so a malformed content type never leaves a partially-read message in
	// the stream.
	if err := verifyContentType(contentType, f.strictContentType); err != nil {
		return jsonvalue.Value{}, err
	}

	v, err := jsonvalue.Parse(body)
	if err != nil {
		return jsonvalue.Value{}, err
	}
	return v, nil
}

// WriteMessage serializes v compactly and writes one framed message as a
// single write call.
func (f *Framer) WriteMessage(v jsonvalue.Value) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	body := jsonvalue.Compact(v)
	header := "Content-Length: " + strconv.Itoa(len(body)) + "\r\n" +
		"Content-Type: " + DefaultContentType + "\r\n\r\n"

	buf := make([]byte, 0, len(header)+len(body))
	buf = append(buf, header...)
	buf = append(buf, body...)

	_, err := f.w.Write(buf)
	if err != nil {
		return NewConnectionLostError(err)
	}
	return nil
}

// readHeaderLine reads one header line terminated by "\r\n". A bare '\n'
// without a preceding '\r' is a framing error, matching
// readNextMessageHeaderField's behavior in the C++ origin.
func readHeaderLine(r *bufio.Reader) (string, error) {
	var buf []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", NewConnectionLostError(err)
		}
		if b == '\r' {
			next, err := r.ReadByte()
			if err != nil {
				return "", NewConnectionLostError(err)
			}
			if next != '\n' {
				return "", NewFramingError("expected '\\n' after '\\r' in header line")
			}
			return string(buf), nil
		}
		if b == '\n' {
			return "", NewFramingError("embedded '\\n' without preceding '\\r' in header line")
		}
		buf = append(buf, b)
	}
}

// verifyContentType checks that ct starts with "application/vscode-jsonrpc"
// and, if a charset parameter is present, that it names utf-8. Unknown
// parameters beyond charset are accepted unless strict is true.
func verifyContentType(ct string, strict bool) error {
	lower := strings.ToLower(ct)
	if !strings.HasPrefix(lower, "application/vscode-jsonrpc") {
		return NewFramingError("unsupported Content-Type: " + ct)
	}

	parts := strings.Split(ct, ";")
	for _, raw := range parts[1:] {
		param := strings.TrimSpace(raw)
		if param == "" {
			continue
		}
		lowerParam := strings.ToLower(param)
		if strings.HasPrefix(lowerParam, "charset=") {
			charset := strings.TrimSpace(strings.TrimPrefix(lowerParam, "charset="))
			if charset != "utf-8" && charset != "utf8" {
				return NewFramingError("unsupported charset in Content-Type: " + param)
			}
			continue
		}
		if strict {
			return NewFramingError("unrecognized Content-Type parameter: " + param)
		}
	}
	return nil
}

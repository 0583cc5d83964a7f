// Package streams provides the concrete byte streams an endpoint frames
// messages over: standard input/output, a TCP listener/dialer, a managed
// child process, and an in-memory pair for tests.
//
// Stdio and ChildProcess are grounded on
// troberti-clangd-query/go/internal/lsp/client.go's subprocess
// stdin/stdout pipe wiring (NewClangdClient: cmd.StdinPipe/StdoutPipe,
// cmd.Start, and a graceful-then-forced shutdown in Close). NewInMemoryPair produces
// plain byte streams (io.Pipe-based) rather than message-shaped channels,
// since framing owns message boundaries on top of them.
// file: internal/streams/streams.go
package streams

import (
	"io"
	"net"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
)

// Stdio returns the process's standard input/output as a single duplex
// stream. Close is a no-op: closing a server's own stdio would sever
// stderr logging too, so lifecycle is left to process exit.
func Stdio() io.ReadWriteCloser {
	return &stdio{in: os.Stdin, out: os.Stdout}
}

type stdio struct {
	in  *os.File
	out *os.File
}

func (s *stdio) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s *stdio) Write(p []byte) (int, error) { return s.out.Write(p) }
func (s *stdio) Close() error                { return nil }

// ListenTCP accepts a single connection on address and returns it as a
// stream, along with a close function for the listener itself. backlog
// sets the kernel's pending-connection queue size for that listener.
//
// net.ListenConfig has no backlog parameter of its own; net.Listen always
// sizes the queue from the OS default (SOMAXCONN on Linux). When backlog
// is positive this builds the listening socket directly with the syscall
// package instead, so the requested queue size reaches listen(2); a
// non-positive backlog takes the net.Listen fast path.
func ListenTCP(address string, backlog int) (io.ReadWriteCloser, func() error, error) {
	var ln net.Listener
	if backlog > 0 {
		built, err := listenWithBacklog(address, backlog)
		if err != nil {
			return nil, nil, errors.Wrap(err, "streams: listen")
		}
		ln = built
	} else {
		built, err := net.Listen("tcp", address)
		if err != nil {
			return nil, nil, errors.Wrap(err, "streams: listen")
		}
		ln = built
	}
	conn, err := ln.Accept()
	if err != nil {
		ln.Close()
		return nil, nil, errors.Wrap(err, "streams: accept")
	}
	return conn, ln.Close, nil
}

// listenWithBacklog resolves address, then performs socket/bind/listen
// directly so backlog reaches the listen(2) call, and wraps the resulting
// file descriptor as a net.Listener.
func listenWithBacklog(address string, backlog int) (net.Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, errors.Wrap(err, "resolve address")
	}

	domain := syscall.AF_INET
	sa := &syscall.SockaddrInet4{Port: tcpAddr.Port}
	if ip4 := tcpAddr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	} else if ip6 := tcpAddr.IP.To16(); ip6 != nil {
		domain = syscall.AF_INET6
		sa6 := &syscall.SockaddrInet6{Port: tcpAddr.Port}
		copy(sa6.Addr[:], ip6)
		return listenFD(domain, sa6, backlog, address)
	}
	return listenFD(domain, sa, backlog, address)
}

func listenFD(domain int, sa syscall.Sockaddr, backlog int, address string) (net.Listener, error) {
	fd, err := syscall.Socket(domain, syscall.SOCK_STREAM, syscall.IPPROTO_TCP)
	if err != nil {
		return nil, errors.Wrap(err, "socket")
	}
	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
		syscall.Close(fd)
		return nil, errors.Wrap(err, "setsockopt SO_REUSEADDR")
	}
	if err := syscall.Bind(fd, sa); err != nil {
		syscall.Close(fd)
		return nil, errors.Wrap(err, "bind")
	}
	if err := syscall.Listen(fd, backlog); err != nil {
		syscall.Close(fd)
		return nil, errors.Wrap(err, "listen")
	}
	file := os.NewFile(uintptr(fd), address)
	defer file.Close()
	ln, err := net.FileListener(file)
	if err != nil {
		return nil, errors.Wrap(err, "file listener")
	}
	return ln, nil
}

// DialTCP connects to addr and returns the connection as a stream.
func DialTCP(addr string) (io.ReadWriteCloser, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "streams: dial")
	}
	return conn, nil
}

// ChildProcess is a running child process (see StartChildProcess) whose
// stdin/stdout form a duplex stream. Its Close requests graceful
// termination, falling back to Kill after gracePeriod.
type ChildProcess struct {
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     io.ReadCloser
	gracePeriod time.Duration
}

// StartChildProcess launches command, wiring its stdin/stdout for framed
// communication; stderr is inherited for diagnostics.
func StartChildProcess(command string, args []string) (*ChildProcess, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "streams: stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "streams: stdout pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "streams: start %s", command)
	}
	return &ChildProcess{cmd: cmd, stdin: stdin, stdout: stdout, gracePeriod: 2 * time.Second}, nil
}

func (c *ChildProcess) Read(p []byte) (int, error)  { return c.stdout.Read(p) }
func (c *ChildProcess) Write(p []byte) (int, error) { return c.stdin.Write(p) }

// Close closes stdin (signaling the child to exit), waits up to the grace
// period, then kills the process if it has not exited.
func (c *ChildProcess) Close() error {
	_ = c.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(c.gracePeriod):
		if err := c.cmd.Process.Kill(); err != nil {
			return errors.Wrap(err, "streams: kill child process")
		}
		<-done
		return nil
	}
}

// pipeStream joins an io.PipeReader and io.PipeWriter into one duplex
// stream.
type pipeStream struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *pipeStream) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeStream) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p *pipeStream) Close() error {
	rErr := p.r.Close()
	wErr := p.w.Close()
	if rErr != nil {
		return rErr
	}
	return wErr
}

// NewInMemoryPair returns two duplex streams, a and b, such that bytes
// written to a are read from b and vice versa. Useful for exercising a
// dispatcher and its peer within a single test process without a real
// transport.
func NewInMemoryPair() (a io.ReadWriteCloser, b io.ReadWriteCloser) {
	arPipe, bwPipe := io.Pipe()
	brPipe, awPipe := io.Pipe()
	a = &pipeStream{r: arPipe, w: awPipe}
	b = &pipeStream{r: brPipe, w: bwPipe}
	return a, b
}

// Package listener implements spec.md §4.D: binding with port-sharing,
// non-blocking listeners, and accept fan-out to the event loop via a
// producer-consumer channel, with a dedicated accept goroutine per listener.
//
// Grounded on pkg/selenia/socket/{sendfile,tuning}*.go for the
// platform-tuning half, and golang.org/x/sys/unix for SO_REUSEPORT, which
// Go's net package does not expose directly.
package listener

import (
	"context"
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/socket"
)

// Backlog is the listen backlog spec.md mandates.
const Backlog = 1024

// Accepted is one accepted connection handed from the accept loop to the
// event loop, tagged with the listener it came from (useful when one engine
// owns several vhost listeners).
type Accepted struct {
	Conn     net.Conn
	Listener *Listener
}

// Listener owns one bound, listening, non-blocking socket and the goroutine
// that drains its accept queue.
type Listener struct {
	Addr string

	ln     net.Listener
	cfg    socket.Config
	out    chan<- Accepted
	cancel context.CancelFunc
}

// Bind resolves addr ("host:port"), creates a socket with SO_REUSEADDR and
// (where supported) SO_REUSEPORT so multiple worker processes can share the
// port and let the kernel balance new connections, and listens with
// spec.md's backlog of 1024.
func Bind(addr string, cfg socket.Config, out chan<- Accepted) (*Listener, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var ctlErr error
			err := c.Control(func(fd uintptr) {
				_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
				ctlErr = setReusePort(int(fd))
			})
			if err != nil {
				return err
			}
			// SO_REUSEPORT may be unsupported on some kernels/platforms;
			// that is not fatal to binding, only to multi-process sharing.
			_ = ctlErr
			return nil
		},
	}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, err
	}
	if tl, ok := ln.(*net.TCPListener); ok {
		if rc, err := tl.SyscallConn(); err == nil {
			// net.ListenConfig has no backlog option; listen(2) on a socket
			// that is already listening updates its backlog instead.
			_ = rc.Control(func(fd uintptr) { _ = unix.Listen(int(fd), Backlog) })
		}
	}
	_ = socket.ApplyListener(ln, &cfg)
	l := &Listener{Addr: addr, ln: ln, cfg: cfg, out: out}
	return l, nil
}

// Serve starts the dedicated accept goroutine. It returns immediately; the
// goroutine runs until ctx is cancelled or the listener is closed.
func (l *Listener) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	go l.acceptLoop(ctx)
}

func (l *Listener) acceptLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Transient accept errors (e.g. too many open files) should not
			// kill the accept loop; the listener keeps retrying, matching
			// spec.md's "yields on WouldBlock" framing for the analogous
			// non-blocking accept path.
			continue
		}
		_ = socket.Apply(conn, &l.cfg)
		select {
		case l.out <- Accepted{Conn: conn, Listener: l}:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

// Close stops the accept loop and closes the underlying socket.
func (l *Listener) Close() error {
	if l.cancel != nil {
		l.cancel()
	}
	return l.ln.Close()
}

// udpReadBufferSize is sized for the largest packet this server's QUIC
// front door accepts -- an Initial packet, which RFC 9000 §14.1 requires to
// be padded to at least 1200 bytes and which in practice rarely exceeds the
// common-case Ethernet MTU.
const udpReadBufferSize = 1500

// UDPAccepted is one received datagram handed from a UDPListener's read
// loop to whatever dispatches QUIC packets, tagged with the listener it
// arrived on so a reply can be written back to the same socket.
type UDPAccepted struct {
	Data     []byte
	Addr     *net.UDPAddr
	Listener *UDPListener
}

// UDPListener owns one bound UDP socket and the goroutine draining it, the
// QUIC-over-UDP counterpart to Listener's TCP accept loop.
type UDPListener struct {
	Addr string

	conn   *net.UDPConn
	cfg    socket.Config
	out    chan<- UDPAccepted
	cancel context.CancelFunc
}

// BindUDP resolves addr and opens a UDP socket sized per cfg, for QUIC
// traffic.
func BindUDP(addr string, cfg socket.Config, out chan<- UDPAccepted) (*UDPListener, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	_ = socket.ApplyUDP(conn, &cfg)
	return &UDPListener{Addr: addr, conn: conn, cfg: cfg, out: out}, nil
}

// Serve starts the dedicated read goroutine. It returns immediately; the
// goroutine runs until ctx is cancelled or the socket is closed.
func (l *UDPListener) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	go l.readLoop(ctx)
}

func (l *UDPListener) readLoop(ctx context.Context) {
	buf := make([]byte, udpReadBufferSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, addr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case l.out <- UDPAccepted{Data: data, Addr: addr, Listener: l}:
		case <-ctx.Done():
			return
		}
	}
}

// WriteTo sends a reply datagram (a Version Negotiation or Retry packet) to
// addr on this listener's socket.
func (l *UDPListener) WriteTo(data []byte, addr *net.UDPAddr) (int, error) {
	return l.conn.WriteToUDP(data, addr)
}

// Close stops the read loop and closes the underlying socket.
func (l *UDPListener) Close() error {
	if l.cancel != nil {
		l.cancel()
	}
	return l.conn.Close()
}

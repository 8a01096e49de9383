package reactor

import (
	"errors"
	"net"
	"time"

	"github.com/flowmesh/reactor/pkg/logging"
	"github.com/flowmesh/reactor/pkg/ringbuffer"
	tlspkg "github.com/flowmesh/reactor/pkg/tls"
)

// tlsConnAdapter presents a Channel's raw byte stream as a net.Conn so the
// TLS record layer can parse it without knowing about loops, ring buffers,
// or non-blocking sockets. Reads are fed from bytes already drained off the
// wire by onReadable; there is no independent syscall read here.
type tlsConnAdapter struct {
	ch *Channel
}

func (a *tlsConnAdapter) Read(p []byte) (int, error) {
	n, err := a.ch.inbound.Read(p)
	if n == 0 && (err == nil || errors.Is(err, ringbuffer.ErrIsEmpty)) {
		return 0, tlspkg.ErrNotEnough
	}
	return n, err
}

func (a *tlsConnAdapter) Write(p []byte) (int, error) { return rawWrite(a.ch.fd, p) }
func (a *tlsConnAdapter) Close() error                 { return nil }
func (a *tlsConnAdapter) LocalAddr() net.Addr          { return a.ch.localAddr }
func (a *tlsConnAdapter) RemoteAddr() net.Addr         { return a.ch.remoteAddr }
func (a *tlsConnAdapter) SetDeadline(time.Time) error      { return nil }
func (a *tlsConnAdapter) SetReadDeadline(time.Time) error  { return nil }
func (a *tlsConnAdapter) SetWriteDeadline(time.Time) error { return nil }

// tlsSession drives a server-side TLS handshake and record layer over a
// Channel's raw byte stream, buffering decrypted application bytes until the
// data callback consumes them.
type tlsSession struct {
	conn      *tlspkg.Conn
	app       *tlspkg.MsgBuffer
	completed bool
}

func newTLSSession(ch *Channel, cfg *tlspkg.Config) *tlsSession {
	return &tlsSession{
		conn: tlspkg.Server(&tlsConnAdapter{ch: ch}, cfg),
		app:  tlspkg.NewBuffer(4096),
	}
}

// feed drives the handshake to completion (if not yet done) and then decrypts
// whatever application records are available, appending them to app. It
// reports whether the channel should be closed.
func (s *tlsSession) feed(ch *Channel) (closeChannel bool) {
	if !s.completed {
		for ch.inbound.Length() > 0 {
			err := s.conn.Handshake()
			if errors.Is(err, tlspkg.ErrNotEnough) {
				return false
			}
			if err != nil {
				logging.Errorf("tls handshake failed for session %d: %v", ch.id, err)
				return true
			}
			if s.conn.HandshakeCompleted() {
				s.completed = true
				break
			}
		}
		if !s.completed {
			return false
		}
	}

	scratch := make([]byte, 2048)
	for {
		n, err := s.conn.Read(scratch)
		if n > 0 {
			s.app.Write(scratch[:n])
		}
		if err != nil {
			if errors.Is(err, tlspkg.ErrNotEnough) {
				return false
			}
			return true
		}
		if n == 0 {
			return false
		}
	}
}

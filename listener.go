package reactor

import (
	"fmt"
	"net"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/flowmesh/reactor/pkg/logging"
	"github.com/flowmesh/reactor/pkg/socket"
)

// acceptCallback hands a freshly accepted, non-blocking fd to the service
// for admission. Runs synchronously on the listen thread.
type acceptCallback func(fd int, local, remote net.Addr)

// listener is the Listen Thread: a single goroutine blocked in accept(),
// forwarding each new connection to the service's admission callback.
type listener struct {
	fd       int
	addr     net.Addr
	onAccept acceptCallback

	stopped int32
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func newListener(host string, port int, ipv6 bool, reusePort bool, onAccept acceptCallback) (*listener, error) {
	proto := "tcp4"
	if ipv6 {
		proto = "tcp6"
	}
	addrStr := fmt.Sprintf("%s:%d", host, port)

	var opts []socket.Option[int]
	if reusePort {
		opts = append(opts, socket.Option[int]{SetSockOpt: socket.SetReuseport, Opt: 1})
	}
	opts = append(opts, socket.Option[int]{SetSockOpt: socket.SetReuseAddr, Opt: 1})

	fd, addr, err := socket.TCPSocket(proto, addrStr, true, opts, nil)
	if err != nil {
		return nil, err
	}
	// The listen thread parks in a blocking accept() rather than polling;
	// every other socket in the service stays non-blocking.
	if err := setBlocking(fd, true); err != nil {
		_ = rawClose(fd)
		return nil, err
	}

	return &listener{
		fd:       fd,
		addr:     addr,
		onAccept: onAccept,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Addr returns the address the listener bound to.
func (ln *listener) Addr() net.Addr { return ln.addr }

// run blocks accepting connections until close is called. A transient
// accept error is logged and retried; anything else terminates the thread.
func (ln *listener) run() {
	defer close(ln.doneCh)
	for {
		if atomic.LoadInt32(&ln.stopped) != 0 {
			return
		}
		connFD, sa, err := socket.Accept(ln.fd)
		if err != nil {
			if isWouldBlock(err) {
				continue
			}
			logging.Warnf("listener accept error: %v", err)
			switch err {
			case unix.EMFILE, unix.ENFILE, unix.ECONNABORTED, unix.ENOBUFS, unix.ENOMEM:
				continue
			}
			return
		}

		if atomic.LoadInt32(&ln.stopped) != 0 {
			// close() dialed our own address to unblock the accept() above;
			// that connection is not a real client and must never reach
			// admission.
			_ = rawClose(connFD)
			return
		}

		remote := socket.SockaddrToTCPOrUnixAddr(sa)
		ln.onAccept(connFD, ln.addr, remote)
	}
}

// close stops the listen thread. A connect-to-self against the listener's
// own address unblocks a thread parked in accept().
func (ln *listener) close() {
	if !atomic.CompareAndSwapInt32(&ln.stopped, 0, 1) {
		return
	}
	if c, err := net.Dial("tcp", ln.addr.String()); err == nil {
		_ = c.Close()
	}
	<-ln.doneCh
	_ = rawClose(ln.fd)
}

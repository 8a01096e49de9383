package reactor

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flowmesh/reactor/pkg/listbuffer"
	"github.com/flowmesh/reactor/pkg/logging"
	"github.com/flowmesh/reactor/pkg/netpoll"
	"github.com/flowmesh/reactor/pkg/ringbuffer"
	tlspkg "github.com/flowmesh/reactor/pkg/tls"
)

type closeState int32

const (
	channelOpen closeState = iota
	channelShuttingDown
	channelClosed
)

// sentCallback is invoked, on the owning loop's thread, once its packet has
// been fully written to the socket (or dropped because the channel closed
// first).
type sentCallback func(err error)

type pendingSend struct {
	n  int
	cb sentCallback
}

// Channel is one live TCP connection: the file descriptor, its buffers, its
// close state machine, and (when enabled) its TLS session. It is created by
// a loop worker after admission and is mutated only on that loop's thread,
// except for enqueue, which takes the send lock so other threads can hand it
// packets.
type Channel struct {
	id   SessionID
	fd   int
	loop *eventLoop
	pa   *netpoll.PollAttachment
	svc  *Service

	maxRecvBuf int
	inbound    *ringbuffer.RingBuffer

	sendMu     sync.Mutex
	outbound   *listbuffer.ListBuffer
	pending    []pendingSend
	writeArmed bool

	shutdownAfterDrain bool

	tls *tlsSession

	pingInterval time.Duration
	lastActivity int64 // unix nanoseconds, atomic

	state int32 // closeState, atomic

	ctx interface{}

	localAddr  net.Addr
	remoteAddr net.Addr
}

func newChannel(fd int, loop *eventLoop, svc *Service, maxRecvBuf int, local, remote net.Addr) *Channel {
	ch := &Channel{
		fd:         fd,
		loop:       loop,
		svc:        svc,
		maxRecvBuf: maxRecvBuf,
		inbound:    ringbuffer.New(4096),
		outbound:   &listbuffer.ListBuffer{},
		localAddr:  local,
		remoteAddr: remote,
	}
	ch.touch()
	return ch
}

// ID returns the channel's stable session handle.
func (ch *Channel) ID() SessionID { return ch.id }

// Context returns the arbitrary value last set with SetContext.
func (ch *Channel) Context() interface{} { return ch.ctx }

// SetContext attaches an arbitrary value to the channel, for application use.
func (ch *Channel) SetContext(v interface{}) { ch.ctx = v }

// LocalAddr returns the local endpoint of the connection.
func (ch *Channel) LocalAddr() net.Addr { return ch.localAddr }

// RemoteAddr returns the peer's endpoint.
func (ch *Channel) RemoteAddr() net.Addr { return ch.remoteAddr }

func (ch *Channel) touch() {
	atomic.StoreInt64(&ch.lastActivity, time.Now().UnixNano())
}

func (ch *Channel) closeState() closeState {
	return closeState(atomic.LoadInt32(&ch.state))
}

// enableTLS installs a server-side TLS session on the channel. Must be
// called before the channel starts receiving traffic.
func (ch *Channel) enableTLS(cfg *tlspkg.Config) {
	ch.tls = newTLSSession(ch, cfg)
}

// onReadable drains the socket into the inbound buffer, runs the TLS record
// layer if enabled, and delivers whatever application bytes are available to
// the service's data callback.
func (ch *Channel) onReadable() {
	if ch.closeState() == channelClosed {
		return
	}

	scratch := make([]byte, 64*1024)
	for {
		n, err := rawRead(ch.fd, scratch)
		if n > 0 {
			ch.touch()
			if ch.inbound.Length()+n > ch.maxRecvBuf {
				logging.Warnf("session %d exceeded max receive buffer, disconnecting", ch.id)
				ch.transitionClosed()
				return
			}
			_, _ = ch.inbound.Write(scratch[:n])
		}
		if err != nil {
			if isWouldBlock(err) {
				break
			}
			ch.transitionClosed()
			return
		}
		if n == 0 {
			ch.transitionClosed()
			return
		}
		if n < len(scratch) {
			break
		}
	}

	if ch.tls != nil {
		if ch.tls.feed(ch) {
			ch.transitionClosed()
			return
		}
		ch.deliver(ch.tls.app.Bytes(), func(consumed int) {
			ch.tls.app.Shift(consumed)
		})
		return
	}

	head, tail := ch.inbound.PeekAll()
	buf := head
	if len(tail) > 0 {
		// The ring buffer has wrapped: stitch the two segments into one
		// contiguous view for the callback. Rare compared to the common
		// single-segment case.
		buf = append(append([]byte(nil), head...), tail...)
	}
	ch.deliver(buf, func(consumed int) {
		ch.inbound.Discard(consumed)
	})
}

func (ch *Channel) deliver(buf []byte, consume func(int)) {
	if len(buf) == 0 || ch.svc.dataCB == nil {
		return
	}
	n := ch.svc.dataCB(ch.id, buf)
	if n < 0 {
		n = 0
	}
	if n > len(buf) {
		n = len(buf)
	}
	if n > 0 {
		consume(n)
	}
}

// onWritable drains the outbound queue, firing each packet's sent-callback
// once it has been fully written, and stops at the first EAGAIN or hard
// error.
func (ch *Channel) onWritable() {
	if ch.closeState() == channelClosed {
		return
	}

	ch.sendMu.Lock()
	hardError := false
	for !ch.outbound.IsEmpty() {
		bs := ch.outbound.PeekBytesList(0)
		written := 0
		stop := false
		for _, b := range bs {
			n, err := rawWrite(ch.fd, b)
			if n > 0 {
				written += n
			}
			if err != nil {
				if isWouldBlock(err) {
					stop = true
					break
				}
				hardError = true
				stop = true
				break
			}
			if n < len(b) {
				stop = true
				break
			}
		}
		if written > 0 {
			ch.touch()
			ch.outbound.DiscardBytes(written)
			ch.fireSentCallbacksLocked(written)
		}
		if stop {
			break
		}
	}

	drained := ch.outbound.IsEmpty()
	if drained {
		ch.writeArmed = false
	}
	shutdownNow := drained && ch.shutdownAfterDrain
	ch.sendMu.Unlock()

	if hardError {
		ch.transitionClosed()
		return
	}
	if drained {
		_ = ch.loop.armReadOnly(ch.pa)
	}
	if shutdownNow {
		_ = shutdownWrite(ch.fd)
	}
}

// fireSentCallbacksLocked must be called with sendMu held.
func (ch *Channel) fireSentCallbacksLocked(n int) {
	for n > 0 && len(ch.pending) > 0 {
		p := &ch.pending[0]
		if n < p.n {
			p.n -= n
			n = 0
		} else {
			n -= p.n
			cb := p.cb
			ch.pending = ch.pending[1:]
			if cb != nil {
				cb(nil)
			}
		}
	}
}

// enqueue appends packet to the outbound queue. Safe to call from any
// thread; arms write-interest on the loop the first time the queue becomes
// non-empty.
func (ch *Channel) enqueue(packet []byte, cb sentCallback) {
	if ch.closeState() != channelOpen {
		if cb != nil {
			cb(errClosed)
		}
		return
	}

	ch.sendMu.Lock()
	ch.outbound.PushBytesBack(packet)
	ch.pending = append(ch.pending, pendingSend{n: len(packet), cb: cb})
	needArm := !ch.writeArmed
	if needArm {
		ch.writeArmed = true
	}
	ch.sendMu.Unlock()

	if needArm {
		_ = ch.loop.armReadWrite(ch.pa)
	}
}

// beginShutdown stops accepting new application sends, lets the outbound
// queue drain, and then sends a TCP FIN. The disconnect callback still fires
// once the peer's close (or a subsequent force_disconnect) is observed.
func (ch *Channel) beginShutdown() {
	if !atomic.CompareAndSwapInt32(&ch.state, int32(channelOpen), int32(channelShuttingDown)) {
		return
	}

	ch.sendMu.Lock()
	empty := ch.outbound.IsEmpty()
	ch.shutdownAfterDrain = true
	ch.sendMu.Unlock()

	if empty {
		_ = shutdownWrite(ch.fd)
	}
}

// forceDisconnect immediately cancels pending writes and closes the channel.
func (ch *Channel) forceDisconnect() {
	ch.transitionClosed()
}

// setPingCheck arms (or disarms, with interval<=0) the idle-timeout watchdog.
func (ch *Channel) setPingCheck(interval time.Duration) {
	ch.pingInterval = interval
}

// checkPing force-disconnects the channel if no bytes have flowed for at
// least the configured ping-check interval. Called by the owning loop on
// every timer tick.
func (ch *Channel) checkPing(now time.Time) {
	if ch.pingInterval <= 0 || ch.closeState() == channelClosed {
		return
	}
	last := time.Unix(0, atomic.LoadInt64(&ch.lastActivity))
	if now.Sub(last) >= ch.pingInterval {
		ch.forceDisconnect()
	}
}

// transitionClosed moves the channel into the closed state exactly once,
// firing the disconnect callback and scheduling loop-side teardown
// (fd close, poller deregistration, slot release).
func (ch *Channel) transitionClosed() {
	swapped := atomic.CompareAndSwapInt32(&ch.state, int32(channelOpen), int32(channelClosed))
	if !swapped {
		swapped = atomic.CompareAndSwapInt32(&ch.state, int32(channelShuttingDown), int32(channelClosed))
	}
	if !swapped {
		return
	}
	if ch.svc.disconnectCB != nil {
		ch.svc.disconnectCB(ch.id)
	}
	ch.loop.scheduleReap(ch)
}

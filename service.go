package reactor

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flowmesh/reactor/pkg/socket"
	tlspkg "github.com/flowmesh/reactor/pkg/tls"
)

// EnterCallback is invoked once, on the owning loop's thread, right after a
// session is admitted.
type EnterCallback func(id SessionID, peerIP string)

// DisconnectCallback is invoked exactly once when a session's close state
// machine reaches closed: on the owning loop's thread, or, for a session
// still open when StopWorkers runs, on the goroutine that called StopWorkers
// after that loop has exited.
type DisconnectCallback func(id SessionID)

// DataCallback is invoked on the owning loop's thread whenever new bytes are
// available; it returns how many leading bytes of buf were consumed.
type DataCallback func(id SessionID, buf []byte) int

// FrameCallback runs on a loop worker's goroutine after each ready fd that
// loop dispatches, giving applications a cooperative tick without spawning
// their own timers. It does not run for wakeups that carry only posted work,
// so a loop with no fd activity never invokes it.
type FrameCallback func()

// ConnectCallback reports the outcome of an async_connect request. fd is -1
// on failure. It runs on a goroutine of the service's goroutine pool, or
// inline on the goroutine that produced the result when the pool rejects
// the task.
type ConnectCallback func(fd int, userID uint64)

// Service is the top-level coordinator: it owns the loop workers, the listen
// thread, the async connector, and the public API described by the package
// documentation.
type Service struct {
	enterCB      EnterCallback
	disconnectCB DisconnectCallback
	dataCB       DataCallback
	frameCB      FrameCallback

	pool *goroutinePool

	mu       sync.RWMutex
	loops    []*eventLoop
	nextLoop uint32

	started int32

	listenMu sync.Mutex
	ln       *listener

	connector *connector

	opts *serviceOptions
}

// NewService constructs a Service with no running workers or listener.
func NewService(opts ...Option) *Service {
	o := defaultOptions()
	for _, fn := range opts {
		fn(o)
	}
	svc := &Service{pool: newGoroutinePool(o.goroutinePoolSize), opts: o}
	svc.connector = newConnector(svc)
	return svc
}

// SetEnterCallback configures the callback fired once per admitted session.
func (s *Service) SetEnterCallback(fn EnterCallback) { s.enterCB = fn }

// SetDisconnectCallback configures the callback fired once per session close.
func (s *Service) SetDisconnectCallback(fn DisconnectCallback) { s.disconnectCB = fn }

// SetDataCallback configures the callback fired on new inbound bytes.
func (s *Service) SetDataCallback(fn DataCallback) { s.dataCB = fn }

// StartWorkers spawns count loop workers, each invoking frameCB, if non-nil,
// after every ready fd it dispatches.
func (s *Service) StartWorkers(count int, frameCB FrameCallback) error {
	if count <= 0 {
		count = 1
	}
	if count > MaxLoops {
		count = MaxLoops
	}
	s.frameCB = frameCB

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.loops) > 0 {
		return nil
	}
	loops := make([]*eventLoop, 0, count)
	for i := 0; i < count; i++ {
		l, err := newEventLoop(uint32(i), s)
		if err != nil {
			for _, done := range loops {
				done.stop()
			}
			return err
		}
		loops = append(loops, l)
	}
	s.loops = loops
	atomic.StoreInt32(&s.started, 1)
	for _, l := range loops {
		go l.run()
	}
	return nil
}

// StopWorkers stops every loop worker, firing disconnect for any session
// still open.
func (s *Service) StopWorkers() {
	s.mu.Lock()
	loops := s.loops
	s.loops = nil
	atomic.StoreInt32(&s.started, 0)
	s.mu.Unlock()

	for _, l := range loops {
		l.stop()
		l.closeAll()
	}
}

// StartListen starts the listen thread on host:port, optionally over TLS
// when both certFile and keyFile are non-empty.
func (s *Service) StartListen(host string, port int, ipv6 bool, maxRecvBuf int, certFile, keyFile string) error {
	if port <= 0 || port > 65535 {
		return ErrInvalidAddress
	}

	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	if s.ln != nil {
		return ErrListenInUse
	}

	var tlsCfg *tlspkg.Config
	if certFile != "" && keyFile != "" {
		cert, err := tlspkg.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return err
		}
		tlsCfg = &tlspkg.Config{Certificates: []tlspkg.Certificate{cert}}
	}

	ln, err := newListener(host, port, ipv6, s.opts.reusePort, func(fd int, local, remote net.Addr) {
		if _, err := s.AddChannel(fd, local, remote, tlsCfg, maxRecvBuf, false); err != nil {
			_ = rawClose(fd)
		}
	})
	if err != nil {
		return err
	}
	s.ln = ln
	go ln.run()
	return nil
}

// CloseListen stops the listen thread without touching already-admitted
// sessions.
func (s *Service) CloseListen() {
	s.listenMu.Lock()
	ln := s.ln
	s.ln = nil
	s.listenMu.Unlock()
	if ln != nil {
		ln.close()
	}
}

// CloseService stops the listener, the connector, and every loop worker, in
// that order, firing disconnect callbacks for all surviving sessions.
func (s *Service) CloseService() {
	s.CloseListen()
	s.connector.close()
	s.StopWorkers()
	s.pool.release()
}

func (s *Service) pickLoop(pinCurrentThread bool) (*eventLoop, bool) {
	if pinCurrentThread {
		if l, ok := currentLoop(); ok && s.ownsLoop(l) {
			return l, true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.loops) == 0 {
		return nil, false
	}
	idx := atomic.AddUint32(&s.nextLoop, 1) % uint32(len(s.loops))
	return s.loops[idx], true
}

func (s *Service) ownsLoop(l *eventLoop) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cand := range s.loops {
		if cand == l {
			return true
		}
	}
	return false
}

// RandomLoop returns the index of an arbitrary running loop, or -1 if none
// are running. Pure introspection: it does not advance the round-robin
// cursor used by pickLoop.
func (s *Service) RandomLoop() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.loops) == 0 {
		return -1
	}
	return int(atomic.LoadUint32(&s.nextLoop) % uint32(len(s.loops)))
}

// LoopBySession returns the loop index encoded in id.
func (s *Service) LoopBySession(id SessionID) int {
	return int(id.loopIndex())
}

func (s *Service) loopAt(idx uint32) (*eventLoop, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(idx) >= len(s.loops) {
		return nil, false
	}
	return s.loops[idx], true
}

func (s *Service) resolve(id SessionID) (*Channel, bool) {
	l, ok := s.loopAt(id.loopIndex())
	if !ok {
		return nil, false
	}
	return l.table.lookup(id)
}

// Lookup returns the Channel live behind id, if any. The returned Channel
// must only be read from, never mutated, unless the caller happens to be
// running on id's owning loop.
func (s *Service) Lookup(id SessionID) (*Channel, bool) {
	return s.resolve(id)
}

// AddChannel admits fd as a new session: it constructs a Channel, selects a
// loop, allocates a session ID, and arms the enter callback on that loop's
// thread. On error the caller still owns fd and must close it.
func (s *Service) AddChannel(fd int, local, remote net.Addr, tlsCfg *tlspkg.Config, maxRecvBuf int, pinCurrentThread bool) (SessionID, error) {
	if atomic.LoadInt32(&s.started) == 0 {
		return 0, ErrServiceNotStarted
	}
	l, ok := s.pickLoop(pinCurrentThread)
	if !ok {
		return 0, ErrServiceNotStarted
	}

	if s.opts.tcpKeepAlive > 0 {
		_ = socket.SetKeepAlivePeriod(fd, int(s.opts.tcpKeepAlive.Seconds()))
	}

	ch := newChannel(fd, l, s, maxRecvBuf, local, remote)
	if tlsCfg != nil {
		ch.enableTLS(tlsCfg)
	}

	var registered bool
	if cur, onLoop := currentLoop(); onLoop && cur == l {
		registered = l.registerChannel(ch)
	} else {
		result := make(chan bool, 1)
		l.post(func() { result <- l.registerChannel(ch) })
		registered = <-result
	}
	if !registered {
		return 0, ErrAllocatorExhausted
	}
	return ch.id, nil
}

// Send resolves id's owning loop and posts an enqueue closure. A stale or
// unknown id sends nothing: when id's loop is running, cb (if non-nil)
// receives errClosed on that loop; when it names no running loop, cb is
// never called.
func (s *Service) Send(id SessionID, packet []byte, cb func(err error)) {
	l, ok := s.loopAt(id.loopIndex())
	if !ok {
		return
	}
	l.post(func() {
		ch, ok := l.table.lookup(id)
		if !ok {
			if cb != nil {
				cb(errClosed)
			}
			return
		}
		ch.enqueue(packet, cb)
	})
}

// Shutdown posts a graceful half-close for id.
func (s *Service) Shutdown(id SessionID) {
	l, ok := s.loopAt(id.loopIndex())
	if !ok {
		return
	}
	l.post(func() {
		if ch, ok := l.table.lookup(id); ok {
			ch.beginShutdown()
		}
	})
}

// Disconnect posts a hard close for id.
func (s *Service) Disconnect(id SessionID) {
	l, ok := s.loopAt(id.loopIndex())
	if !ok {
		return
	}
	l.post(func() {
		if ch, ok := l.table.lookup(id); ok {
			ch.forceDisconnect()
		}
	})
}

// SetPingCheck posts a ping-check timer arm for id.
func (s *Service) SetPingCheck(id SessionID, interval time.Duration) {
	l, ok := s.loopAt(id.loopIndex())
	if !ok {
		return
	}
	l.post(func() {
		if ch, ok := l.table.lookup(id); ok {
			ch.setPingCheck(interval)
		}
	})
}

// Wakeup posts a no-op to id's owning loop, forcing an extra iteration.
func (s *Service) Wakeup(id SessionID) {
	l, ok := s.loopAt(id.loopIndex())
	if !ok {
		return
	}
	l.post(func() {})
}

// WakeupAll posts a no-op to every running loop.
func (s *Service) WakeupAll() {
	s.mu.RLock()
	loops := append([]*eventLoop(nil), s.loops...)
	s.mu.RUnlock()
	for _, l := range loops {
		l.post(func() {})
	}
}

// AsyncConnect submits a non-blocking outbound connect; result is delivered
// to cb through the service's goroutine pool.
func (s *Service) AsyncConnect(ip string, port int, timeout time.Duration, userID uint64, cb ConnectCallback) {
	if port <= 0 || port > 65535 || ip == "" {
		if cb != nil {
			s.pool.submit(func() { cb(-1, userID) })
		}
		return
	}
	s.connector.submit(connectRequest{ip: ip, port: port, timeout: timeout, userID: userID, cb: cb})
}

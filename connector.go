package reactor

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/flowmesh/reactor/pkg/socket"
)

// maxInFlightConnects bounds how many connect attempts the connector drives
// concurrently; requests beyond the bound wait in the pending queue.
const maxInFlightConnects = 1024

// connectQuantum is the longest the connector thread ever sleeps between
// readiness checks, so timeout sweeps and newly submitted requests are never
// starved behind a single slow connect.
const connectQuantum = 10 * time.Millisecond

// connectRequest is one async_connect ask, submitted from any thread.
type connectRequest struct {
	ip      string
	port    int
	timeout time.Duration
	userID  uint64
	cb      ConnectCallback
}

// connectingEntry tracks one in-flight non-blocking connect.
type connectingEntry struct {
	fd      int
	started time.Time
	timeout time.Duration
	userID  uint64
	cb      ConnectCallback
}

// connector is the Async Connector: a single dedicated thread that drives
// every outbound non-blocking connect to completion (or timeout) on its own
// 10ms quantum, using poll(2) directly rather than the reactor's own epoll
// poller since readiness here is a one-shot completion check, not a
// long-lived multiplexed stream. Results are reported through the service's
// goroutine pool so one slow callback cannot stall the connector.
type connector struct {
	svc *Service

	reqMu    sync.Mutex
	requests []connectRequest

	inFlight map[int]*connectingEntry

	stopCh chan struct{}
	doneCh chan struct{}
	wakeCh chan struct{}
}

func newConnector(svc *Service) *connector {
	c := &connector{
		svc:      svc,
		inFlight: make(map[int]*connectingEntry),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		wakeCh:   make(chan struct{}, 1),
	}
	go c.run()
	return c
}

// submit queues req for the connector thread to pick up on its next tick.
func (c *connector) submit(req connectRequest) {
	c.reqMu.Lock()
	c.requests = append(c.requests, req)
	c.reqMu.Unlock()
	select {
	case c.wakeCh <- struct{}{}:
	default:
	}
}

func (c *connector) run() {
	defer close(c.doneCh)

	ticker := time.NewTicker(connectQuantum)
	defer ticker.Stop()

	for {
		c.pollReady()
		c.admitPending()
		c.sweepTimeouts()

		select {
		case <-c.stopCh:
			c.failAll()
			return
		case <-ticker.C:
		case <-c.wakeCh:
		}
	}
}

// pollReady checks every in-flight socket for write-readiness (connect
// completion) with a zero-timeout poll(2) call, never blocking the thread.
func (c *connector) pollReady() {
	if len(c.inFlight) == 0 {
		return
	}
	fds := make([]unix.PollFd, 0, len(c.inFlight))
	for fd := range c.inFlight {
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLOUT})
	}

	n, err := unix.Poll(fds, 0)
	if err != nil || n == 0 {
		return
	}
	for _, pfd := range fds {
		if pfd.Revents == 0 {
			continue
		}
		entry, ok := c.inFlight[int(pfd.Fd)]
		if !ok {
			continue
		}
		delete(c.inFlight, int(pfd.Fd))
		c.finish(entry, socket.GetSocketError(entry.fd))
	}
}

func (c *connector) admitPending() {
	c.reqMu.Lock()
	pending := c.requests
	c.requests = nil
	c.reqMu.Unlock()

	var deferred []connectRequest
	for _, req := range pending {
		if len(c.inFlight) >= maxInFlightConnects {
			deferred = append(deferred, req)
			continue
		}
		c.startConnect(req)
	}
	if len(deferred) > 0 {
		c.reqMu.Lock()
		c.requests = append(deferred, c.requests...)
		c.reqMu.Unlock()
	}
}

func (c *connector) startConnect(req connectRequest) {
	addr := fmt.Sprintf("%s:%d", req.ip, req.port)
	fd, _, err := socket.TCPSocket("tcp", addr, false, nil, nil)
	if err != nil {
		c.report(req.cb, -1, req.userID)
		return
	}

	entry := &connectingEntry{
		fd:      fd,
		started: time.Now(),
		timeout: req.timeout,
		userID:  req.userID,
		cb:      req.cb,
	}
	c.inFlight[fd] = entry
}

func (c *connector) finish(entry *connectingEntry, sockErr error) {
	if sockErr != nil {
		_ = rawClose(entry.fd)
		c.report(entry.cb, -1, entry.userID)
		return
	}
	c.report(entry.cb, entry.fd, entry.userID)
}

func (c *connector) sweepTimeouts() {
	now := time.Now()
	for fd, entry := range c.inFlight {
		if entry.timeout <= 0 || now.Sub(entry.started) < entry.timeout {
			continue
		}
		delete(c.inFlight, fd)
		_ = rawClose(fd)
		c.report(entry.cb, -1, entry.userID)
	}
}

func (c *connector) failAll() {
	for fd, entry := range c.inFlight {
		delete(c.inFlight, fd)
		_ = rawClose(fd)
		c.report(entry.cb, -1, entry.userID)
	}
	c.reqMu.Lock()
	pending := c.requests
	c.requests = nil
	c.reqMu.Unlock()
	for _, req := range pending {
		c.report(req.cb, -1, req.userID)
	}
}

// report trampolines cb onto the service's goroutine pool so a slow
// application callback cannot stall the connector thread.
func (c *connector) report(cb ConnectCallback, fd int, userID uint64) {
	if cb == nil {
		return
	}
	c.svc.pool.submit(func() { cb(fd, userID) })
}

// close stops the connector thread, failing every in-flight and pending
// connect, and waits for the thread to exit.
func (c *connector) close() {
	select {
	case <-c.stopCh:
		return
	default:
		close(c.stopCh)
	}
	<-c.doneCh
}

package reactor

import "errors"

// Error taxonomy for the reactor service. Socket-level, TLS, and timeout
// failures are surfaced only through the disconnect/connect-failure
// callbacks per the package's failure semantics; these values are returned
// directly from the handful of APIs that can fail synchronously.
var (
	// errClosed is delivered to a packet's sent-callback when the packet is
	// sent to a session that is shutting down, closed, or no longer live.
	errClosed = errors.New("reactor: channel closed")

	// ErrServiceNotStarted is returned by AddChannel when no loop worker is
	// running. Send and the other per-session calls return no error and
	// ignore requests made while no loop is running.
	ErrServiceNotStarted = errors.New("reactor: service has no running workers")

	// ErrAllocatorExhausted is returned by AddChannel when the chosen loop
	// could not register the channel: its slot table has no free slots left,
	// or its poller refused the fd.
	ErrAllocatorExhausted = errors.New("reactor: session allocator exhausted for loop")

	// ErrListenInUse is returned by start_listen when a listener is already
	// running.
	ErrListenInUse = errors.New("reactor: listener already started")

	// ErrInvalidAddress is returned by start_listen for a port outside
	// 1..65535. A host that fails to resolve yields the resolver's own error,
	// and async connect reports bad input as fd -1 through its callback.
	ErrInvalidAddress = errors.New("reactor: invalid network address")

	// errLoopStopped is used internally to unwind Poller.Polling once stop()
	// has been requested; it never escapes the package.
	errLoopStopped = errors.New("reactor: loop stopped")
)

package reactor

import (
	"time"

	"github.com/flowmesh/reactor/pkg/logging"
	"github.com/flowmesh/reactor/pkg/netpoll"
)

// task is a closure posted from another thread to run on the loop's own
// goroutine: new channel registrations, cross-thread sends, shutdown and
// force-disconnect requests, and ping-check arming all travel this way.
type task func()

// eventLoop is one reactor worker: it owns a readiness set and a disjoint
// partition of the service's live sessions (via its slotTable). Everything
// except lookup on the slot table is touched only from the loop's own
// goroutine. There is no separate posted-task queue: post() hands the
// closure straight to the poller's own job queue, which is what actually
// gets drained on wakeup.
type eventLoop struct {
	idx    uint32
	svc    *Service
	poller *netpoll.Poller
	table  *slotTable

	pendingReap []*Channel

	pingTick *time.Ticker
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func newEventLoop(idx uint32, svc *Service) (*eventLoop, error) {
	poller, err := netpoll.OpenPoller()
	if err != nil {
		return nil, err
	}
	return &eventLoop{
		idx:    idx,
		svc:    svc,
		poller: poller,
		table:  newSlotTable(idx),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}, nil
}

// post hands fn to the poller's job queue and wakes the loop if it is
// blocked in Polling. The poller drains and runs its job queue itself on
// every wakeup (see Poller.Polling), so fn runs on the loop's own goroutine
// whether or not any fd happens to be ready at the same time. reapClosed
// runs right after fn, since a job-only wakeup never reaches the per-fd
// callback where reaping otherwise happens, and fn (a force-disconnect or a
// ping-check sweep) may itself have just closed a channel.
func (l *eventLoop) post(fn task) {
	_ = l.poller.Trigger(func(interface{}) error {
		fn()
		l.reapClosed()
		return nil
	}, nil)
}

func (l *eventLoop) armReadWrite(pa *netpoll.PollAttachment) error {
	return l.poller.ModReadWrite(pa, false)
}

func (l *eventLoop) armReadOnly(pa *netpoll.PollAttachment) error {
	return l.poller.ModRead(pa, false)
}

// scheduleReap queues ch for teardown at the end of the current iteration.
// Called from transitionClosed, which runs on this loop's goroutine, or on
// the StopWorkers caller's goroutine via closeAll once this loop has exited.
func (l *eventLoop) scheduleReap(ch *Channel) {
	l.pendingReap = append(l.pendingReap, ch)
}

func (l *eventLoop) reapClosed() {
	if len(l.pendingReap) == 0 {
		return
	}
	for _, ch := range l.pendingReap {
		_ = l.poller.Delete(ch.fd)
		_ = rawClose(ch.fd)
		l.table.release(ch.id)
		netpoll.PutPollAttachment(ch.pa)
	}
	l.pendingReap = l.pendingReap[:0]
}

// registerChannel allocates a session ID for ch, wires it into the poller,
// and arms the enter callback. Runs on this loop's goroutine: add_channel
// calls it directly when it is already running there, and through a posted
// task otherwise.
func (l *eventLoop) registerChannel(ch *Channel) bool {
	id, ok := l.table.allocate(ch)
	if !ok {
		return false
	}
	ch.id = id
	ch.loop = l

	pa := netpoll.GetPollAttachment()
	pa.FD = ch.fd
	pa.Callback = func(fd int, event netpoll.IOEvent, flags netpoll.IOFlags) error {
		l.handleEvent(ch, event, flags)
		return nil
	}
	ch.pa = pa

	if err := l.poller.AddRead(pa, false); err != nil {
		l.table.release(id)
		netpoll.PutPollAttachment(pa)
		return false
	}

	if l.svc.enterCB != nil {
		l.svc.enterCB(ch.id, ch.RemoteAddr().String())
	}
	return true
}

func (l *eventLoop) handleEvent(ch *Channel, event netpoll.IOEvent, flags netpoll.IOFlags) {
	if netpoll.IsErrorEvent(event, flags) {
		ch.transitionClosed()
		return
	}
	if netpoll.IsReadEvent(event) {
		ch.onReadable()
	}
	if ch.closeState() != channelClosed && netpoll.IsWriteEvent(event) {
		ch.onWritable()
	}
}

// run is the loop's main sequence: a blocking poll dispatching ready fds to
// handleEvent and posted jobs (registrations, sends, shutdowns, ping-check
// sweeps) to their closures, then per-event frame callback and reaping.
// Polling itself drains and runs the poller's job queue on every wakeup, so
// posted work runs whether or not a real fd happens to be ready at the same
// time; see Poller.Polling.
func (l *eventLoop) run() {
	defer close(l.doneCh)

	registerLoopGoroutine(l)
	defer unregisterLoopGoroutine()

	l.pingTick = time.NewTicker(200 * time.Millisecond)
	defer l.pingTick.Stop()

	go func() {
		for {
			select {
			case <-l.pingTick.C:
				now := time.Now()
				l.post(func() {
					l.table.forEach(func(ch *Channel) { ch.checkPing(now) })
				})
			case <-l.stopCh:
				return
			}
		}
	}()

	err := l.poller.Polling(func(fd int, event netpoll.IOEvent, flags netpoll.IOFlags) error {
		if pa, ok := l.poller.Attachment(fd); ok {
			_ = pa.Callback(fd, event, flags)
		}

		if l.svc.frameCB != nil {
			l.svc.frameCB()
		}
		l.reapClosed()

		select {
		case <-l.stopCh:
			return errLoopStopped
		default:
			return nil
		}
	})
	if err != nil && err != errLoopStopped {
		logging.Errorf("loop %d exited polling with error: %v", l.idx, err)
	}
}

// stop requests the loop to exit. The triggered job returns errLoopStopped
// directly, so the poller's job queue itself unblocks Polling — this does
// not depend on a real fd event ever firing again.
func (l *eventLoop) stop() {
	close(l.stopCh)
	_ = l.poller.Trigger(func(interface{}) error { return errLoopStopped }, nil)
	<-l.doneCh
}

// closeAll force-disconnects every still-open channel owned by this loop,
// firing the disconnect callback for each exactly once.
func (l *eventLoop) closeAll() {
	l.table.forEach(func(ch *Channel) { ch.forceDisconnect() })
	l.reapClosed()
	_ = l.poller.Close()
}

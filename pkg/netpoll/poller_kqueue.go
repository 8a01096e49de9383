// Copyright (c) 2019 The Gnet Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package netpoll

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/flowmesh/reactor/pkg/logging"
)

// Poller wraps a kqueue instance. The wakeup mechanism differs by OS family:
// darwin/dragonfly/freebsd use an EVFILT_USER event (see poller_kqueue_wakeup.go),
// netbsd/openbsd fall back to a self-pipe (see poller_kqueue_wakeup1.go).
type Poller struct {
	fd   int
	pipe []int
	jobs jobQueue

	mu          sync.RWMutex
	attachments map[int]*PollAttachment
}

// OpenPoller creates a new kqueue-backed Poller.
func OpenPoller() (*Poller, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}

	p := &Poller{fd: fd, attachments: make(map[int]*PollAttachment)}
	if err := p.addWakeupEvent(); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

// Close releases the poller's file descriptors.
func (p *Poller) Close() error {
	if len(p.pipe) == 2 {
		_ = unix.Close(p.pipe[0])
		_ = unix.Close(p.pipe[1])
	}
	return unix.Close(p.fd)
}

// Trigger enqueues fn to be run on the poller's own goroutine and wakes up
// Polling if it is currently blocked.
func (p *Poller) Trigger(fn Job, arg interface{}) error {
	if p.jobs.push(fn, arg) == 1 {
		return p.wakePoller()
	}
	return nil
}

func (p *Poller) kevent(fd int, filter int16, flags uint16) error {
	_, err := unix.Kevent(p.fd, []unix.Kevent_t{{Ident: uint64(fd), Flags: flags, Filter: filter}}, nil, nil)
	return err
}

func (p *Poller) remember(pa *PollAttachment) {
	p.mu.Lock()
	p.attachments[pa.FD] = pa
	p.mu.Unlock()
}

// Attachment returns the PollAttachment previously registered for fd.
func (p *Poller) Attachment(fd int) (*PollAttachment, bool) {
	p.mu.RLock()
	pa, ok := p.attachments[fd]
	p.mu.RUnlock()
	return pa, ok
}

// AddRead registers fd for read events.
func (p *Poller) AddRead(pa *PollAttachment, _ bool) error {
	p.remember(pa)
	return p.kevent(pa.FD, unix.EVFILT_READ, unix.EV_ADD)
}

// AddWrite registers fd for write events.
func (p *Poller) AddWrite(pa *PollAttachment, _ bool) error {
	p.remember(pa)
	return p.kevent(pa.FD, unix.EVFILT_WRITE, unix.EV_ADD)
}

// AddReadWrite registers fd for both read and write events.
func (p *Poller) AddReadWrite(pa *PollAttachment, _ bool) error {
	p.remember(pa)
	if err := p.kevent(pa.FD, unix.EVFILT_READ, unix.EV_ADD); err != nil {
		return err
	}
	return p.kevent(pa.FD, unix.EVFILT_WRITE, unix.EV_ADD)
}

// ModRead disarms write-interest, leaving read-interest active.
func (p *Poller) ModRead(pa *PollAttachment, _ bool) error {
	return p.kevent(pa.FD, unix.EVFILT_WRITE, unix.EV_DELETE)
}

// ModReadWrite arms write-interest alongside the existing read-interest.
func (p *Poller) ModReadWrite(pa *PollAttachment, _ bool) error {
	return p.kevent(pa.FD, unix.EVFILT_WRITE, unix.EV_ADD)
}

// Delete removes fd's read and write filters from the kqueue.
func (p *Poller) Delete(fd int) error {
	p.mu.Lock()
	delete(p.attachments, fd)
	p.mu.Unlock()
	_ = p.kevent(fd, unix.EVFILT_READ, unix.EV_DELETE)
	_ = p.kevent(fd, unix.EVFILT_WRITE, unix.EV_DELETE)
	return nil
}

// Polling blocks the calling goroutine, dispatching readiness events to
// callback and draining posted jobs, until callback or a posted job returns
// an error.
func (p *Poller) Polling(callback func(fd int, event IOEvent, flags IOFlags) error) error {
	el := make([]unix.Kevent_t, InitPollEventsCap)
	for {
		n, err := unix.Kevent(p.fd, nil, el, nil)
		if err != nil && err != unix.EINTR {
			logging.Warnf("kevent wait error: %v", err)
			continue
		}

		for i := 0; i < n; i++ {
			ev := &el[i]
			fd := int(ev.Ident)
			if ev.Filter == unix.EVFILT_USER {
				p.drainWakeupEvent()
				if err := p.jobs.drain(); err != nil {
					return err
				}
				continue
			}
			if len(p.pipe) == 2 && fd == p.pipe[0] {
				p.drainWakeupEvent()
				if err := p.jobs.drain(); err != nil {
					return err
				}
				continue
			}

			var event IOEvent
			switch ev.Filter {
			case unix.EVFILT_READ:
				event = ReadEvents
			case unix.EVFILT_WRITE:
				event = WriteEvents
			}
			var flags IOFlags
			if ev.Flags&unix.EV_EOF != 0 || ev.Flags&unix.EV_ERROR != 0 {
				flags = IOFlags(ErrEvents)
			}
			if err := callback(fd, event, flags); err != nil {
				return err
			}
		}

		if n == len(el) && len(el) < MaxPollEventsCap {
			el = make([]unix.Kevent_t, len(el)<<1)
		}
	}
}

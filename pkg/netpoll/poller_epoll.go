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

//go:build linux

package netpoll

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/flowmesh/reactor/pkg/logging"
)

type epollevent = unix.EpollEvent

// Poller wraps an epoll instance together with an eventfd used to interrupt
// a blocked epoll_wait from another goroutine.
type Poller struct {
	fd     int
	wfd    int
	wfdBuf [8]byte
	jobs   jobQueue

	mu          sync.RWMutex
	attachments map[int]*PollAttachment
}

// OpenPoller creates a new epoll-backed Poller.
func OpenPoller() (*Poller, error) {
	p := &Poller{attachments: make(map[int]*PollAttachment)}
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	p.fd = fd

	wfd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	p.wfd = wfd

	if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, p.wfd, &epollevent{Events: unix.EPOLLIN, Fd: int32(p.wfd)}); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

// Close releases the poller's file descriptors.
func (p *Poller) Close() error {
	if p.wfd != 0 {
		_ = unix.Close(p.wfd)
	}
	return unix.Close(p.fd)
}

// Trigger enqueues fn to be run on the poller's own goroutine and wakes up
// Polling if it is currently blocked.
func (p *Poller) Trigger(fn Job, arg interface{}) error {
	if p.jobs.push(fn, arg) == 1 {
		var b [8]byte
		b[0] = 1
		_, err := unix.Write(p.wfd, b[:])
		return err
	}
	return nil
}

// AddRead registers fd for read (and, if et, edge-triggered) events.
func (p *Poller) AddRead(pa *PollAttachment, et bool) error {
	var events uint32 = ReadEvents
	if et {
		events |= unix.EPOLLET
	}
	return p.ctl(unix.EPOLL_CTL_ADD, pa, events)
}

// AddWrite registers fd for write events.
func (p *Poller) AddWrite(pa *PollAttachment, et bool) error {
	var events uint32 = WriteEvents
	if et {
		events |= unix.EPOLLET
	}
	return p.ctl(unix.EPOLL_CTL_ADD, pa, events)
}

// AddReadWrite registers fd for both read and write events.
func (p *Poller) AddReadWrite(pa *PollAttachment, et bool) error {
	var events uint32 = ReadWriteEvents
	if et {
		events |= unix.EPOLLET
	}
	return p.ctl(unix.EPOLL_CTL_ADD, pa, events)
}

// ModRead switches fd back to read-only interest.
func (p *Poller) ModRead(pa *PollAttachment, et bool) error {
	var events uint32 = ReadEvents
	if et {
		events |= unix.EPOLLET
	}
	return p.ctl(unix.EPOLL_CTL_MOD, pa, events)
}

// ModReadWrite arms write-interest alongside the existing read-interest.
func (p *Poller) ModReadWrite(pa *PollAttachment, et bool) error {
	var events uint32 = ReadWriteEvents
	if et {
		events |= unix.EPOLLET
	}
	return p.ctl(unix.EPOLL_CTL_MOD, pa, events)
}

// Delete removes fd from the poller.
func (p *Poller) Delete(fd int) error {
	p.mu.Lock()
	delete(p.attachments, fd)
	p.mu.Unlock()
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Attachment returns the PollAttachment previously registered for fd.
func (p *Poller) Attachment(fd int) (*PollAttachment, bool) {
	p.mu.RLock()
	pa, ok := p.attachments[fd]
	p.mu.RUnlock()
	return pa, ok
}

func (p *Poller) ctl(op int, pa *PollAttachment, events uint32) error {
	ev := epollevent{Events: events, Fd: int32(pa.FD)}
	if op == unix.EPOLL_CTL_ADD {
		p.mu.Lock()
		p.attachments[pa.FD] = pa
		p.mu.Unlock()
	}
	return unix.EpollCtl(p.fd, op, pa.FD, &ev)
}

// Polling blocks the calling goroutine, dispatching readiness events to
// callback and draining posted jobs, until callback or a posted job returns
// an error.
func (p *Poller) Polling(callback func(fd int, event IOEvent, flags IOFlags) error) error {
	events := make([]epollevent, InitPollEventsCap)
	for {
		n, err := unix.EpollWait(p.fd, events, -1)
		if err != nil && err != unix.EINTR {
			logging.Warnf("epoll_wait error: %v", err)
			continue
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == p.wfd {
				_, _ = unix.Read(p.wfd, p.wfdBuf[:])
				if err := p.jobs.drain(); err != nil {
					return err
				}
				continue
			}
			if err := callback(fd, events[i].Events, 0); err != nil {
				return err
			}
		}

		if n == len(events) && len(events) < MaxPollEventsCap {
			events = make([]epollevent, len(events)<<1)
		}
	}
}

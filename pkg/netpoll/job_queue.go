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

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd

package netpoll

import "sync"

// Job is a task posted from another goroutine to be run on the poller's own thread.
type Job func(arg interface{}) error

// jobQueue is a mutex-protected FIFO of pending jobs. It is drained by the
// poller goroutine on every wakeup, never by the submitting goroutine.
type jobQueue struct {
	mu   sync.Mutex
	jobs []asyncJob
}

type asyncJob struct {
	fn  Job
	arg interface{}
}

// push appends a job and reports how many jobs are now pending, which the
// caller uses to decide whether a wakeup write is actually necessary.
func (q *jobQueue) push(fn Job, arg interface{}) (pending int) {
	q.mu.Lock()
	q.jobs = append(q.jobs, asyncJob{fn: fn, arg: arg})
	pending = len(q.jobs)
	q.mu.Unlock()
	return
}

// drain atomically takes ownership of all pending jobs and runs them in
// submission order, stopping at the first error.
func (q *jobQueue) drain() error {
	q.mu.Lock()
	jobs := q.jobs
	q.jobs = nil
	q.mu.Unlock()
	for i := range jobs {
		if err := jobs[i].fn(jobs[i].arg); err != nil {
			return err
		}
	}
	return nil
}

// PollAttachment couples a file descriptor with the callback invoked whenever
// the poller reports an event on it.
type PollAttachment struct {
	FD       int
	Callback func(fd int, event IOEvent, flags IOFlags) error
}

var pollAttachmentPool = sync.Pool{New: func() interface{} { return new(PollAttachment) }}

// GetPollAttachment retrieves a PollAttachment from the pool.
func GetPollAttachment() *PollAttachment {
	return pollAttachmentPool.Get().(*PollAttachment)
}

// PutPollAttachment returns a PollAttachment to the pool.
func PutPollAttachment(pa *PollAttachment) {
	if pa == nil {
		return
	}
	pa.FD, pa.Callback = 0, nil
	pollAttachmentPool.Put(pa)
}

// Copyright 2019 Andy Pan. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reactor

import "time"

// Option configures a Service at construction time.
type Option func(opts *serviceOptions)

type serviceOptions struct {
	goroutinePoolSize int
	reusePort         bool
	tcpKeepAlive      time.Duration
}

func defaultOptions() *serviceOptions {
	return &serviceOptions{
		goroutinePoolSize: 1 << 14,
	}
}

// WithGoroutinePoolSize bounds the pool used to trampoline connect-result
// callbacks off their originating thread.
func WithGoroutinePoolSize(n int) Option {
	return func(o *serviceOptions) { o.goroutinePoolSize = n }
}

// WithReusePort sets SO_REUSEPORT on the listening socket.
func WithReusePort(reusePort bool) Option {
	return func(o *serviceOptions) { o.reusePort = reusePort }
}

// WithTCPKeepAlive sets the keepalive period applied to every admitted
// socket.
func WithTCPKeepAlive(d time.Duration) Option {
	return func(o *serviceOptions) { o.tcpKeepAlive = d }
}

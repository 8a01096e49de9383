// Copyright (c) 2024 The Gnet Authors. All rights reserved.
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

//go:build freebsd || dragonfly || netbsd

package socket

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"

	errorx "github.com/flowmesh/reactor/pkg/errors"
)

// SetKeepAlivePeriod enables SO_KEEPALIVE and sets TCP_KEEPIDLE/TCP_KEEPINTVL
// to the given number of seconds.
func SetKeepAlivePeriod(fd, secs int) error {
	return SetKeepAlive(fd, true, secs, secs, 0)
}

// SetKeepAlive enables/disables the TCP keepalive feature on the socket.
func SetKeepAlive(fd int, enabled bool, idle, intvl, cnt int) error {
	if enabled && idle <= 0 {
		return errors.New("invalid time duration")
	}

	var on int
	if enabled {
		on = 1
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, on); err != nil {
		return os.NewSyscallError("setsockopt", err)
	}
	if !enabled {
		return nil
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, idle); err != nil {
		return os.NewSyscallError("setsockopt", err)
	}
	if intvl > 0 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, intvl); err != nil {
			return os.NewSyscallError("setsockopt", err)
		}
	}
	_ = cnt
	return nil
}

// SetBindToDevice is not implemented on these BSDs.
func SetBindToDevice(_ int, _ string) error {
	return errorx.ErrUnsupportedOp
}

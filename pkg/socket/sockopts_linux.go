// Copyright (c) 2020 The Gnet Authors. All rights reserved.
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

package socket

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// SetKeepAlivePeriod sets the TCP keepalive idle/interval to the given seconds,
// mirroring what the stdlib net package does on Linux.
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
	if cnt > 0 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPCNT, cnt); err != nil {
			return os.NewSyscallError("setsockopt", err)
		}
	}
	return nil
}

// SetBindToDevice binds the socket to a particular network device by name.
func SetBindToDevice(fd int, device string) error {
	return os.NewSyscallError("setsockopt", unix.BindToDevice(fd, device))
}

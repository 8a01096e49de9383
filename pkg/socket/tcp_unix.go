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

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd

package socket

import (
	"net"
	"os"

	"golang.org/x/sys/unix"
)

func tcpSocket(proto, addr string, passive bool, sockOptInts []Option[int], sockOptStrs []Option[string]) (int, net.Addr, error) {
	var (
		family   int
		ipv4only bool
	)
	switch proto {
	case "tcp", "tcp4":
		family, ipv4only = unix.AF_INET, proto == "tcp4"
	case "tcp6":
		family, ipv4only = unix.AF_INET6, true
	default:
		family, ipv4only = unix.AF_INET, false
	}

	var tcpAddr *net.TCPAddr
	if len(addr) > 0 {
		var err error
		tcpAddr, err = net.ResolveTCPAddr(proto, addr)
		if err != nil {
			return 0, nil, err
		}
	}
	_ = ipv4only

	fd, err := sysSocket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return 0, nil, os.NewSyscallError("socket", err)
	}

	if err = execSockOpts(fd, sockOptInts); err != nil {
		_ = unix.Close(fd)
		return 0, nil, err
	}
	if err = execSockOpts(fd, sockOptStrs); err != nil {
		_ = unix.Close(fd)
		return 0, nil, err
	}

	var sa unix.Sockaddr
	if tcpAddr != nil {
		sa = TCPAddrToSockaddr(tcpAddr)
	}

	if passive {
		if sa != nil {
			if err = unix.Bind(fd, sa); err != nil {
				_ = unix.Close(fd)
				return 0, nil, os.NewSyscallError("bind", err)
			}
		}
		if err = unix.Listen(fd, unix.SOMAXCONN); err != nil {
			_ = unix.Close(fd)
			return 0, nil, os.NewSyscallError("listen", err)
		}
	} else if sa != nil {
		if err = unix.Connect(fd, sa); err != nil && err != unix.EINPROGRESS {
			_ = unix.Close(fd)
			return 0, nil, os.NewSyscallError("connect", err)
		}
	}

	lsa, lerr := unix.Getsockname(fd)
	var localAddr net.Addr
	if lerr == nil {
		localAddr = SockaddrToTCPOrUnixAddr(lsa)
	}
	return fd, localAddr, nil
}

func udpSocket(proto, addr string, connect bool, sockOptInts []Option[int], sockOptStrs []Option[string]) (int, net.Addr, error) {
	family := unix.AF_INET
	switch proto {
	case "udp6":
		family = unix.AF_INET6
	}

	var udpAddr *net.UDPAddr
	if len(addr) > 0 {
		var err error
		udpAddr, err = net.ResolveUDPAddr(proto, addr)
		if err != nil {
			return 0, nil, err
		}
	}

	fd, err := sysSocket(family, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return 0, nil, os.NewSyscallError("socket", err)
	}

	if err = execSockOpts(fd, sockOptInts); err != nil {
		_ = unix.Close(fd)
		return 0, nil, err
	}
	if err = execSockOpts(fd, sockOptStrs); err != nil {
		_ = unix.Close(fd)
		return 0, nil, err
	}

	var sa unix.Sockaddr
	if udpAddr != nil {
		sa = UDPAddrToSockaddr(udpAddr)
	}

	if sa != nil {
		if connect {
			if err = unix.Connect(fd, sa); err != nil {
				_ = unix.Close(fd)
				return 0, nil, os.NewSyscallError("connect", err)
			}
		} else if err = unix.Bind(fd, sa); err != nil {
			_ = unix.Close(fd)
			return 0, nil, os.NewSyscallError("bind", err)
		}
	}

	lsa, lerr := unix.Getsockname(fd)
	var localAddr net.Addr
	if lerr == nil {
		localAddr = SockaddrToUDPAddr(lsa)
	}
	return fd, localAddr, nil
}

func udsSocket(proto, addr string, passive bool, sockOptInts []Option[int], sockOptStrs []Option[string]) (int, net.Addr, error) {
	fd, err := sysSocket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return 0, nil, os.NewSyscallError("socket", err)
	}

	if err = execSockOpts(fd, sockOptInts); err != nil {
		_ = unix.Close(fd)
		return 0, nil, err
	}
	if err = execSockOpts(fd, sockOptStrs); err != nil {
		_ = unix.Close(fd)
		return 0, nil, err
	}

	unixAddr, err := net.ResolveUnixAddr(proto, addr)
	if err != nil {
		_ = unix.Close(fd)
		return 0, nil, err
	}
	sa, _ := UnixAddrToSockaddr(unixAddr)

	if passive {
		_ = unix.Unlink(addr)
		if err = unix.Bind(fd, sa); err != nil {
			_ = unix.Close(fd)
			return 0, nil, os.NewSyscallError("bind", err)
		}
		if err = unix.Listen(fd, unix.SOMAXCONN); err != nil {
			_ = unix.Close(fd)
			return 0, nil, os.NewSyscallError("listen", err)
		}
	} else if err = unix.Connect(fd, sa); err != nil {
		_ = unix.Close(fd)
		return 0, nil, os.NewSyscallError("connect", err)
	}

	return fd, unixAddr, nil
}

// GetSocketError reads and clears SO_ERROR, reporting whether a non-blocking
// connect on fd has failed. A nil return means fd is connected (or the
// connect is still in progress and nothing has failed yet).
func GetSocketError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return os.NewSyscallError("getsockopt", err)
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return nil
}

// SetReuseAddr sets SO_REUSEADDR, letting a listener rebind a port still in
// TIME_WAIT.
func SetReuseAddr(fd int, enabled int) error {
	return os.NewSyscallError("setsockopt", unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, enabled))
}

// SetReuseport sets SO_REUSEPORT, letting several listeners load-balance
// accepts for the same address across processes or threads.
func SetReuseport(fd int, enabled int) error {
	return os.NewSyscallError("setsockopt", unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, enabled))
}

func sysSocket(family, sotype, proto int) (int, error) {
	fd, err := unix.Socket(family, sotype, proto)
	if err != nil {
		return 0, err
	}
	if err = unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return 0, err
	}
	unix.CloseOnExec(fd)
	return fd, nil
}

func sysAccept(fd int) (int, unix.Sockaddr, error) {
	nfd, sa, err := unix.Accept(fd)
	if err != nil {
		return 0, nil, err
	}
	if err = unix.SetNonblock(nfd, true); err != nil {
		_ = unix.Close(nfd)
		return 0, nil, err
	}
	unix.CloseOnExec(nfd)
	return nfd, sa, nil
}

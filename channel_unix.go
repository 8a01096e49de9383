//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd

package reactor

import "golang.org/x/sys/unix"

func rawRead(fd int, p []byte) (int, error) {
	return unix.Read(fd, p)
}

func rawWrite(fd int, p []byte) (int, error) {
	return unix.Write(fd, p)
}

func rawClose(fd int) error {
	return unix.Close(fd)
}

func shutdownWrite(fd int) error {
	return unix.Shutdown(fd, unix.SHUT_WR)
}

func isWouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR
}

func setBlocking(fd int, blocking bool) error {
	return unix.SetNonblock(fd, !blocking)
}

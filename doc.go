/*
Package reactor is a multi-reactor TCP service framework. A fixed pool of
loop workers, each its own goroutine with a private epoll/kqueue readiness
set, accepts and originates concurrent connections and multiplexes their I/O.
Every live connection is addressed by an opaque 64-bit session ID that any
goroutine can hand to Send, Shutdown, Disconnect or SetPingCheck without
knowing, or caring, which loop owns it.

A minimal echo service looks like this:

	package main

	import (
		"log"

		"github.com/flowmesh/reactor"
	)

	func main() {
		svc := reactor.NewService(reactor.WithReusePort(true))
		svc.SetDataCallback(func(id reactor.SessionID, buf []byte) int {
			svc.Send(id, buf, nil)
			return len(buf)
		})

		if err := svc.StartWorkers(4, nil); err != nil {
			log.Fatal(err)
		}
		if err := svc.StartListen("0.0.0.0", 9000, false, 1<<20, "", ""); err != nil {
			log.Fatal(err)
		}
		select {}
	}

Sessions are admitted through AddChannel: the listen thread (StartListen)
calls it for every accepted fd, and an application can call it itself, for
example with the fd that AsyncConnect reports to its callback. AddChannel
allocates the session's ID and arms it on one of the running loop workers.
From that point on, EnterCallback and DisconnectCallback fire exactly once
each and DataCallback fires whenever new bytes arrive, all on the session's
owning loop's goroutine; the one exception is a session still open when
StopWorkers runs, whose DisconnectCallback runs on the goroutine that called
StopWorkers, after the loops have exited.

Sending from outside the owning loop is always safe: Send posts the write
onto the right loop. CacheSend/FlushCachePackets let a caller collect many
sends across one logical unit of work (e.g. one broadcast) and release them
together; FlushCachePackets hands each packet to Send, so it still posts one
task per packet.
*/
package reactor

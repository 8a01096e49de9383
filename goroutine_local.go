package reactor

import (
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// goroutineID extracts the numeric ID that the runtime prints in a goroutine
// dump. It is the only portable way to answer "which goroutine is this" from
// inside the standard library. It supports pin_current_thread: each loop
// registers its own goroutine ID when it starts running, so add_channel can
// tell whether its caller already is a loop thread. It also keys the
// per-goroutine batch used by CacheSend (see localSendCache).
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := strings.Fields(string(buf[:n]))
	if len(fields) < 2 {
		return 0
	}
	id, _ := strconv.ParseUint(fields[1], 10, 64)
	return id
}

var loopByGoroutine sync.Map // goroutine ID (uint64) -> *eventLoop

func registerLoopGoroutine(l *eventLoop) {
	loopByGoroutine.Store(goroutineID(), l)
}

func unregisterLoopGoroutine() {
	loopByGoroutine.Delete(goroutineID())
}

func currentLoop() (*eventLoop, bool) {
	v, ok := loopByGoroutine.Load(goroutineID())
	if !ok {
		return nil, false
	}
	return v.(*eventLoop), true
}

package reactor

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S4: a session with no traffic for its configured ping-check interval is
// force-disconnected close to that interval, not immediately and not much
// later.
func TestPingCheckDisconnectsIdleSession(t *testing.T) {
	svc := NewService()

	var sessionID SessionID
	gotID := make(chan struct{})
	svc.SetEnterCallback(func(id SessionID, _ string) {
		sessionID = id
		svc.SetPingCheck(id, 300*time.Millisecond)
		close(gotID)
	})

	var disconnectedAt int64
	start := time.Now()
	svc.SetDisconnectCallback(func(SessionID) {
		atomic.StoreInt64(&disconnectedAt, time.Since(start).Nanoseconds())
	})

	require.NoError(t, svc.StartWorkers(1, nil))
	defer svc.CloseService()

	port := freeTCPPort(t)
	require.NoError(t, svc.StartListen("127.0.0.1", port, false, 1<<16, "", ""))
	defer svc.CloseListen()

	conn, err := net.DialTimeout("tcp", "127.0.0.1"+portSuffix(port), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-gotID:
	case <-time.After(time.Second):
		t.Fatal("enter callback never fired")
	}
	_ = sessionID

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&disconnectedAt) != 0
	}, 2*time.Second, 20*time.Millisecond)

	// The ping-check sweep runs on a 200ms ticker, so allow some slack past
	// the configured 300ms interval.
	elapsed := time.Duration(atomic.LoadInt64(&disconnectedAt))
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

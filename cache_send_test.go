package reactor

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// S3: CacheSend followed by FlushCachePackets preserves submission order and
// coalesces onto the wire with no interleaving from another thread.
func TestCacheSendOrdering(t *testing.T) {
	svc := NewService()
	var sessionID SessionID
	gotID := make(chan struct{})
	svc.SetEnterCallback(func(id SessionID, _ string) {
		sessionID = id
		close(gotID)
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

	svc.CacheSend(sessionID, []byte("AB"), nil)
	svc.CacheSend(sessionID, []byte("CD"), nil)
	svc.FlushCachePackets()

	buf := make([]byte, 4)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, err = readFull(conn, buf)
	require.NoError(t, err)
	require.Equal(t, "ABCD", string(buf))
}

func TestLocalSendCacheIsolatedPerGoroutine(t *testing.T) {
	done := make(chan *sendCache, 2)
	for i := 0; i < 2; i++ {
		go func() {
			sc := localSendCache()
			sc.mu.Lock()
			sc.items = append(sc.items, cachedPacket{})
			sc.mu.Unlock()
			done <- sc
		}()
	}
	a := <-done
	b := <-done
	if a == b {
		t.Fatal("two distinct goroutines must not share a send cache")
	}
}

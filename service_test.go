package reactor

import (
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// freeTCPPort grabs an ephemeral port from the OS and immediately releases
// it, for tests that need a concrete port number up front (StartListen
// rejects port 0, unlike net.Listen).
func freeTCPPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// S1: an echoed byte stream round-trips through a single admitted session.
func TestServiceEcho(t *testing.T) {
	svc := NewService()
	svc.SetDataCallback(func(id SessionID, buf []byte) int {
		svc.Send(id, append([]byte(nil), buf...), nil)
		return len(buf)
	})

	var disconnected int32
	svc.SetDisconnectCallback(func(SessionID) {
		atomic.AddInt32(&disconnected, 1)
	})

	require.NoError(t, svc.StartWorkers(2, nil))
	defer svc.CloseService()

	port := freeTCPPort(t)
	require.NoError(t, svc.StartListen("127.0.0.1", port, false, 1<<20, "", ""))
	defer svc.CloseListen()

	conn, err := net.DialTimeout("tcp", "127.0.0.1"+portSuffix(port), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)

	buf := make([]byte, 4)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, err = readFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))

	conn.Close()
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&disconnected) == 1
	}, time.Second, 10*time.Millisecond)
}

// S2: admissions distribute across every running loop.
func TestServiceFanOut(t *testing.T) {
	const workers = 4
	const conns = 40

	svc := NewService()
	loopHits := make([]int32, workers)
	var enters sync.WaitGroup
	enters.Add(conns)
	svc.SetEnterCallback(func(id SessionID, _ string) {
		atomic.AddInt32(&loopHits[svc.LoopBySession(id)], 1)
		enters.Done()
	})

	require.NoError(t, svc.StartWorkers(workers, nil))
	defer svc.CloseService()

	port := freeTCPPort(t)
	require.NoError(t, svc.StartListen("127.0.0.1", port, false, 1<<16, "", ""))
	defer svc.CloseListen()

	var clients []net.Conn
	for i := 0; i < conns; i++ {
		c, err := net.DialTimeout("tcp", "127.0.0.1"+portSuffix(port), time.Second)
		require.NoError(t, err)
		clients = append(clients, c)
	}
	defer func() {
		for _, c := range clients {
			c.Close()
		}
	}()

	waitWithTimeout(t, &enters, 2*time.Second)

	for i, n := range loopHits {
		assert.Greater(t, n, int32(0), "loop %d received no sessions", i)
	}
}

// S6: sending on the ID of a session that has closed writes nothing and
// still completes the packet's sent-callback.
func TestServiceStaleSessionIsNoop(t *testing.T) {
	svc := NewService()
	require.NoError(t, svc.StartWorkers(1, nil))
	defer svc.CloseService()

	port := freeTCPPort(t)
	require.NoError(t, svc.StartListen("127.0.0.1", port, false, 1<<16, "", ""))
	defer svc.CloseListen()

	var ids []SessionID
	var mu sync.Mutex
	svc.SetEnterCallback(func(id SessionID, _ string) {
		mu.Lock()
		ids = append(ids, id)
		mu.Unlock()
	})

	c1, err := net.DialTimeout("tcp", "127.0.0.1"+portSuffix(port), time.Second)
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ids) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	firstID := ids[0]
	mu.Unlock()

	c1.Close()
	assert.Eventually(t, func() bool {
		_, ok := svc.Lookup(firstID)
		return !ok
	}, time.Second, 10*time.Millisecond)

	// Sending on the now-stale ID must not panic, and its sent-callback
	// still fires.
	done := make(chan struct{})
	svc.Send(firstID, []byte("ghost"), func(err error) { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sent-callback for stale session never fired")
	}
}

func portSuffix(port int) string {
	return ":" + strconv.Itoa(port)
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func waitWithTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting for enter callbacks")
	}
}

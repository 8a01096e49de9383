package reactor

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S5: connecting to a closed port reports failure with the caller's original
// user id within one connector quantum of the timeout.
func TestAsyncConnectFailureReportsUserID(t *testing.T) {
	// A listener opened then immediately closed leaves its port refusing
	// connections deterministically, unlike a made-up unused port.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	svc := NewService()
	require.NoError(t, svc.StartWorkers(1, nil))
	defer svc.CloseService()

	const wantUserID = uint64(4242)
	result := make(chan struct {
		fd     int
		userID uint64
	}, 1)

	svc.AsyncConnect("127.0.0.1", port, 500*time.Millisecond, wantUserID, func(fd int, userID uint64) {
		result <- struct {
			fd     int
			userID uint64
		}{fd, userID}
	})

	select {
	case r := <-result:
		assert.Equal(t, -1, r.fd)
		assert.Equal(t, wantUserID, r.userID)
	case <-time.After(2 * time.Second):
		t.Fatal("connect callback never fired")
	}
}

func TestAsyncConnectRejectsBadTarget(t *testing.T) {
	svc := NewService()
	require.NoError(t, svc.StartWorkers(1, nil))
	defer svc.CloseService()

	done := make(chan int, 1)
	svc.AsyncConnect("", 80, time.Second, 1, func(fd int, _ uint64) { done <- fd })
	select {
	case fd := <-done:
		assert.Equal(t, -1, fd)
	case <-time.After(time.Second):
		t.Fatal("callback never fired for an empty host")
	}

	svc.AsyncConnect("127.0.0.1", 0, time.Second, 1, func(fd int, _ uint64) { done <- fd })
	select {
	case fd := <-done:
		assert.Equal(t, -1, fd)
	case <-time.After(time.Second):
		t.Fatal("callback never fired for an invalid port")
	}
}

func TestConnectorCloseFailsInFlight(t *testing.T) {
	svc := &Service{pool: newGoroutinePool(8)}
	c := newConnector(svc)

	var mu sync.Mutex
	failed := false
	c.submit(connectRequest{ip: "10.255.255.1", port: 9, timeout: time.Hour, userID: 1, cb: func(fd int, _ uint64) {
		mu.Lock()
		failed = fd == -1
		mu.Unlock()
	}})

	// Give the connector a moment to admit the request into its in-flight
	// set before forcing shutdown.
	time.Sleep(50 * time.Millisecond)
	c.close()

	// Failures are reported through the goroutine pool, so the callback may
	// still be running when close returns.
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return failed
	}, time.Second, 10*time.Millisecond, "close must fail every in-flight and queued connect")
}

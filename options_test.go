package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	assert.Equal(t, 1<<14, o.goroutinePoolSize)
	assert.False(t, o.reusePort)
	assert.Zero(t, o.tcpKeepAlive)
}

func TestOptionsApply(t *testing.T) {
	o := defaultOptions()
	for _, fn := range []Option{
		WithGoroutinePoolSize(64),
		WithReusePort(true),
		WithTCPKeepAlive(30 * time.Second),
	} {
		fn(o)
	}
	assert.Equal(t, 64, o.goroutinePoolSize)
	assert.True(t, o.reusePort)
	assert.Equal(t, 30*time.Second, o.tcpKeepAlive)
}

func TestAddChannelFailsBeforeWorkersStart(t *testing.T) {
	svc := NewService()
	_, err := svc.AddChannel(0, nil, nil, nil, 4096, false)
	assert.ErrorIs(t, err, ErrServiceNotStarted)
}

func TestStartListenRejectsBadPort(t *testing.T) {
	svc := NewService()
	assert.ErrorIs(t, svc.StartListen("127.0.0.1", 0, false, 4096, "", ""), ErrInvalidAddress)
	assert.ErrorIs(t, svc.StartListen("127.0.0.1", 70000, false, 4096, "", ""), ErrInvalidAddress)
}

package reactor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGoroutineIDDiffersAcrossGoroutines(t *testing.T) {
	var wg sync.WaitGroup
	ids := make(chan uint64, 2)
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			ids <- goroutineID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool)
	for id := range ids {
		assert.NotZero(t, id)
		seen[id] = true
	}
	assert.Len(t, seen, 2, "concurrently running goroutines must report distinct ids")
}

func TestCurrentLoopUnregistersCleanly(t *testing.T) {
	l := &eventLoop{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		registerLoopGoroutine(l)
		got, ok := currentLoop()
		assert.True(t, ok)
		assert.Same(t, l, got)
		unregisterLoopGoroutine()
		_, ok = currentLoop()
		assert.False(t, ok)
	}()
	<-done
}

package reactor

import (
	gopool "github.com/flowmesh/reactor/pkg/pool/goroutine"
	"github.com/panjf2000/ants/v2"
)

// goroutinePool trampolines connect-result callbacks off the connector
// thread that produced them, so one slow application callback cannot stall
// the connector's cooperative loop. Sent callbacks do not go through it;
// they run on the owning loop.
type goroutinePool struct {
	pool *ants.Pool
}

func newGoroutinePool(size int) *goroutinePool {
	if size <= 0 {
		return &goroutinePool{pool: gopool.Default()}
	}
	p, err := ants.NewPool(size, ants.WithNonblocking(false))
	if err != nil {
		return &goroutinePool{pool: gopool.Default()}
	}
	return &goroutinePool{pool: p}
}

func (g *goroutinePool) submit(fn func()) {
	if err := g.pool.Submit(fn); err != nil {
		// Pool exhausted or closed: run inline rather than drop the work.
		fn()
	}
}

func (g *goroutinePool) release() {
	g.pool.Release()
}

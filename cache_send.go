package reactor

import "sync"

// cachedPacket is one deferred send queued by CacheSend.
type cachedPacket struct {
	id     SessionID
	packet []byte
	cb     func(err error)
}

// sendCache is a single goroutine's pending batch. Goroutine-local so
// concurrent callers never contend on the same slice.
type sendCache struct {
	mu    sync.Mutex
	items []cachedPacket
}

var sendCaches sync.Map // goroutine id -> *sendCache

func localSendCache() *sendCache {
	gid := goroutineID()
	if v, ok := sendCaches.Load(gid); ok {
		return v.(*sendCache)
	}
	actual, _ := sendCaches.LoadOrStore(gid, &sendCache{})
	return actual.(*sendCache)
}

// CacheSend appends packet to the calling goroutine's pending batch instead
// of posting it immediately. Nothing reaches the wire until FlushCachePackets
// is called from the same goroutine.
func (s *Service) CacheSend(id SessionID, packet []byte, cb func(err error)) {
	sc := localSendCache()
	sc.mu.Lock()
	sc.items = append(sc.items, cachedPacket{id: id, packet: packet, cb: cb})
	sc.mu.Unlock()
}

// FlushCachePackets posts every packet batched by CacheSend on the calling
// goroutine, in one sweep, then clears the batch.
func (s *Service) FlushCachePackets() {
	sc := localSendCache()
	sc.mu.Lock()
	items := sc.items
	sc.items = nil
	sc.mu.Unlock()

	for _, it := range items {
		s.Send(it.id, it.packet, it.cb)
	}
}

package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotTableAllocateLookupRelease(t *testing.T) {
	tbl := newSlotTable(0)
	ch := &Channel{}

	id, ok := tbl.allocate(ch)
	require.True(t, ok)

	got, ok := tbl.lookup(id)
	require.True(t, ok)
	assert.Same(t, ch, got)

	tbl.release(id)
	_, ok = tbl.lookup(id)
	assert.False(t, ok, "id must be stale immediately after release")
}

func TestSlotTableReuseBumpsGeneration(t *testing.T) {
	tbl := newSlotTable(0)
	ch1 := &Channel{}

	id1, ok := tbl.allocate(ch1)
	require.True(t, ok)
	tbl.release(id1)

	ch2 := &Channel{}
	id2, ok := tbl.allocate(ch2)
	require.True(t, ok)

	assert.Equal(t, id1.slotIndex(), id2.slotIndex(), "free slot should be reused")
	assert.NotEqual(t, id1.generation(), id2.generation())

	// The stale ID from the first occupant must never resolve to the slot's
	// new occupant.
	_, ok = tbl.lookup(id1)
	assert.False(t, ok)

	got, ok := tbl.lookup(id2)
	require.True(t, ok)
	assert.Same(t, ch2, got)
}

func TestSlotTableReleaseUnknownIsNoop(t *testing.T) {
	tbl := newSlotTable(0)
	assert.NotPanics(t, func() {
		tbl.release(makeSessionID(0, 5, 1))
	})
}

func TestSlotTableForEach(t *testing.T) {
	tbl := newSlotTable(0)
	var ids []SessionID
	for i := 0; i < 5; i++ {
		id, ok := tbl.allocate(&Channel{})
		require.True(t, ok)
		ids = append(ids, id)
	}
	tbl.release(ids[2])

	seen := 0
	tbl.forEach(func(*Channel) { seen++ })
	assert.Equal(t, 4, seen)
}

func TestSlotTableExhaustion(t *testing.T) {
	tbl := newSlotTable(0)
	for i := 0; i < MaxSlotsPerLoop; i++ {
		_, ok := tbl.allocate(&Channel{})
		require.True(t, ok)
	}
	_, ok := tbl.allocate(&Channel{})
	assert.False(t, ok, "allocation must fail once the loop's slot space is exhausted")
}

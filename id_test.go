package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionIDRoundTrip(t *testing.T) {
	id := makeSessionID(3, 42, 7)
	assert.EqualValues(t, 3, id.loopIndex())
	assert.EqualValues(t, 42, id.slotIndex())
	assert.EqualValues(t, 7, id.generation())
}

func TestSessionIDFieldIsolation(t *testing.T) {
	// Changing one field must never perturb the others once packed.
	base := makeSessionID(1, 1, 1)
	loopBumped := makeSessionID(2, 1, 1)
	slotBumped := makeSessionID(1, 2, 1)
	genBumped := makeSessionID(1, 1, 2)

	assert.NotEqual(t, base, loopBumped)
	assert.NotEqual(t, base, slotBumped)
	assert.NotEqual(t, base, genBumped)

	assert.EqualValues(t, 1, slotBumped.loopIndex())
	assert.EqualValues(t, 2, slotBumped.slotIndex())
	assert.EqualValues(t, 1, slotBumped.generation())
}

func TestSessionIDMaxFields(t *testing.T) {
	id := makeSessionID(MaxLoops-1, MaxSlotsPerLoop-1, 0xFFFFFFFF)
	assert.EqualValues(t, MaxLoops-1, id.loopIndex())
	assert.EqualValues(t, MaxSlotsPerLoop-1, id.slotIndex())
	assert.EqualValues(t, 0xFFFFFFFF, id.generation())
}

func TestSessionIDInvalid(t *testing.T) {
	var zero SessionID
	assert.True(t, zero.Invalid())
	assert.False(t, makeSessionID(0, 0, 1).Invalid())
}

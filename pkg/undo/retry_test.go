package undo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Scenario 5: retry backoff, first failure then a subsequent one.
func TestRescheduleAppliesFirstThenSubsequentDelay(t *testing.T) {
	h := newUndoTestHarness(8, 6)

	req := h.mgr.Register(fxid(1), Oid(1))
	start := h.clock.Now()

	h.mgr.Reschedule(req)
	slot := &h.mgr.reqs[req.id]
	assert.Equal(t, stateListed, slot.state)
	assert.Equal(t, start.Add(firstRetryDelay), slot.retryTime)

	recovered := h.mgr.Next(InvalidOid, false)
	assert.Nil(t, recovered, "retry time has not elapsed yet, nothing should be eligible")

	h.clock.Advance(firstRetryDelay + 1)
	recovered = h.mgr.Next(InvalidOid, false)
	assert.NotNil(t, recovered)

	h.mgr.Reschedule(recovered)
	slot = &h.mgr.reqs[recovered.id]
	assert.Equal(t, h.clock.Now().Add(subsequentRetryDelay), slot.retryTime, "a request that has already failed once should get the longer subsequent delay")
}

func TestReschedulePanicsWhenNotUnlisted(t *testing.T) {
	h := newUndoTestHarness(8, 6)
	req := h.registerFinalizeList(1, Oid(1), 10)
	assert.Panics(t, func() {
		h.mgr.Reschedule(req)
	})
}

func TestHasFailedReflectsRetryTimeSentinel(t *testing.T) {
	h := newUndoTestHarness(8, 6)
	req := h.mgr.Register(fxid(1), Oid(1))
	assert.False(t, h.mgr.reqs[req.id].hasFailed())

	h.mgr.Reschedule(req)
	assert.True(t, h.mgr.reqs[req.id].hasFailed())
}

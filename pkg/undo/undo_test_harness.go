package undo

import (
	"sync"
	"time"

	"github.com/icecanedb/undorequest/pkg/clock"
)

// undoTestHarness bundles a Manager with the manual clock driving it, so
// tests can control retry-time gating and backoff deterministically.
type undoTestHarness struct {
	mgr   *Manager
	clock *clock.ManualClock
}

func newUndoTestHarness(capacity, softLimit uint32) *undoTestHarness {
	c := clock.NewManualClock(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	mgr := Initialize(&sync.Mutex{}, c, capacity, softLimit)
	return &undoTestHarness{mgr: mgr, clock: c}
}

func fxid(base uint32) FullTransactionId {
	return FullTransactionId{Epoch: 0, Base: base}
}

// registerFinalizeList is a convenience used by scheduler tests: register a
// request, finalize it with the given size and a single valid logged range,
// then promote it to background processing.
func (h *undoTestHarness) registerFinalizeList(base uint32, dbid Oid, size uint64) *Request {
	req := h.mgr.Register(fxid(base), dbid)
	if req == nil {
		return nil
	}
	h.mgr.Finalize(req, size, 1, InvalidUndoPtr, 2, InvalidUndoPtr)
	h.mgr.PerformInBackground(req, false)
	return req
}

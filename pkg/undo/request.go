package undo

import "time"

// lifecycleState is the request's position in the {FREE, UNLISTED, LISTED}
// state machine. It is tracked explicitly rather than being re-derived from
// index membership on every check.
type lifecycleState int32

const (
	stateFree lifecycleState = iota
	stateUnlisted
	stateListed
)

// neverRetried is the sentinel retryTime meaning "has not failed since it
// was either finalized or restored". The zero time.Time value works as the
// sentinel because no real retry time will ever be zero.
var neverRetried = time.Time{}

// requestSlot is one element of the request arena. Only data, retryTime and
// state are meaningful while the slot is UNLISTED or LISTED; freeNext is
// only meaningful while the slot is FREE.
type requestSlot struct {
	state     lifecycleState
	data      RequestData
	retryTime time.Time
	freeNext  requestID
}

func (s *requestSlot) hasFailed() bool {
	return !s.retryTime.IsZero()
}

// Request is a handle to one live entry in a Manager's arena. It is valid
// for as long as the request it names remains UNLISTED or LISTED; once the
// request is unregistered, the handle must not be used again.
type Request struct {
	mgr *Manager
	id  requestID
}

// Data returns the request's persistent subset as of the last Finalize call.
func (r *Request) Data() RequestData {
	return r.mgr.reqs[r.id].data
}

// Fxid returns the transaction id this request was registered for.
func (r *Request) Fxid() FullTransactionId {
	return r.mgr.reqs[r.id].data.Fxid
}

// Dbid returns the database this request belongs to.
func (r *Request) Dbid() Oid {
	return r.mgr.reqs[r.id].data.Dbid
}

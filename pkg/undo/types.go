package undo

// FullTransactionId is a full, epoch-extended 64-bit transaction identifier.
// It is unique within a single Manager while the request it names is
// non-FREE, and is totally ordered by Precedes.
type FullTransactionId struct {
	Epoch uint32
	Base  uint32
}

// InvalidFullTransactionId is the sentinel used to mark a FREE request slot.
var InvalidFullTransactionId = FullTransactionId{}

// IsValid reports whether fxid actually identifies a transaction.
func (fxid FullTransactionId) IsValid() bool {
	return fxid.Base != 0
}

// Equals reports whether fxid and other name the same transaction.
func (fxid FullTransactionId) Equals(other FullTransactionId) bool {
	return fxid.Epoch == other.Epoch && fxid.Base == other.Base
}

// Precedes reports whether fxid is strictly ordered before other.
func (fxid FullTransactionId) Precedes(other FullTransactionId) bool {
	if fxid.Epoch != other.Epoch {
		return fxid.Epoch < other.Epoch
	}
	return fxid.Base < other.Base
}

// compareFxid returns -1, 0 or 1 according to whether a sorts before, equal
// to, or after b. There should never be two distinct requests with equal
// fxid, so the 0 case only ever occurs when a and b name the same request.
func compareFxid(a, b FullTransactionId) int {
	if a.Equals(b) {
		return 0
	}
	if a.Precedes(b) {
		return -1
	}
	return 1
}

// Oid identifies the database a request belongs to, mirroring Postgres's Oid.
type Oid uint32

// InvalidOid means "no database filter" when passed to Next.
const InvalidOid Oid = 0

// UndoPtr is an opaque location within the undo log. The wire format and
// page layout of the log itself are outside this module's scope; the
// manager only ever compares pointers against the invalid sentinel.
type UndoPtr uint64

// InvalidUndoPtr means "this range was never written".
const InvalidUndoPtr UndoPtr = 0

// IsValid reports whether the pointer refers to an actual undo location.
func (p UndoPtr) IsValid() bool {
	return p != InvalidUndoPtr
}

// RequestData is the persistent subset of a request: everything that
// survives a restart, in the order it is written by Serialize.
type RequestData struct {
	Fxid FullTransactionId
	Dbid Oid
	Size uint64

	StartLogged UndoPtr
	EndLogged   UndoPtr

	StartUnlogged UndoPtr
	EndUnlogged   UndoPtr
}

// requestID is an index into the request arena. 0 means "no request".
type requestID uint32

// nodeID is an index into the shared index-node arena. 0 means "no node".
type nodeID uint32

package undo

import (
	"encoding/binary"

	log "github.com/sirupsen/logrus"
)

// RecordWidth is the fixed size, in bytes, of one serialized request: fxid
// (epoch, base), dbid, size, and the four undo pointers, each a uint64 or
// uint32 in little-endian order.
const RecordWidth = 4 + 4 + 4 + 8 + 8 + 8 + 8 + 8

func encodeRecord(out []byte, d RequestData) {
	binary.LittleEndian.PutUint32(out[0:4], d.Fxid.Epoch)
	binary.LittleEndian.PutUint32(out[4:8], d.Fxid.Base)
	binary.LittleEndian.PutUint32(out[8:12], uint32(d.Dbid))
	binary.LittleEndian.PutUint64(out[12:20], d.Size)
	binary.LittleEndian.PutUint64(out[20:28], uint64(d.StartLogged))
	binary.LittleEndian.PutUint64(out[28:36], uint64(d.EndLogged))
	binary.LittleEndian.PutUint64(out[36:44], uint64(d.StartUnlogged))
	binary.LittleEndian.PutUint64(out[44:52], uint64(d.EndUnlogged))
}

func decodeRecord(in []byte) RequestData {
	return RequestData{
		Fxid: FullTransactionId{
			Epoch: binary.LittleEndian.Uint32(in[0:4]),
			Base:  binary.LittleEndian.Uint32(in[4:8]),
		},
		Dbid:          Oid(binary.LittleEndian.Uint32(in[8:12])),
		Size:          binary.LittleEndian.Uint64(in[12:20]),
		StartLogged:   UndoPtr(binary.LittleEndian.Uint64(in[20:28])),
		EndLogged:     UndoPtr(binary.LittleEndian.Uint64(in[28:36])),
		StartUnlogged: UndoPtr(binary.LittleEndian.Uint64(in[36:44])),
		EndUnlogged:   UndoPtr(binary.LittleEndian.Uint64(in[44:52])),
	}
}

// Serialize emits the persistent subset of every LISTED request, across
// both byFxid and byRetryTime, as fixed-width records concatenated in
// iteration order. Retry time is intentionally dropped: see Restore.
func (m *Manager) Serialize() []byte {
	m.lock.Lock()
	defer m.lock.Unlock()

	n := m.byFxid.count + m.byRetryTime.count
	out := make([]byte, 0, n*RecordWidth)

	m.byFxid.ascend(func(req requestID) bool {
		var rec [RecordWidth]byte
		encodeRecord(rec[:], m.reqs[req].data)
		out = append(out, rec[:]...)
		return true
	})
	m.byRetryTime.ascend(func(req requestID) bool {
		var rec [RecordWidth]byte
		encodeRecord(rec[:], m.reqs[req].data)
		out = append(out, rec[:]...)
		return true
	})

	log.WithFields(log.Fields{"requests": n}).Info("undo: Serialize")
	return out
}

// Restore reinserts every record in blob as a LISTED request in {byFxid,
// bySize}, with retryTime reset to NEVER. The manager must be empty.
// Restore fails if blob's length isn't a whole multiple of RecordWidth, or
// if it claims more requests than capacity.
func (m *Manager) Restore(blob []byte) error {
	if len(blob)%RecordWidth != 0 {
		return NewRestoreError("undo request data size is corrupt")
	}
	n := len(blob) / RecordWidth

	m.lock.Lock()
	defer m.lock.Unlock()

	if uint32(n) > m.capacity {
		return NewRestoreError("too many outstanding undo requests for this manager's capacity")
	}

	for i := 0; i < n; i++ {
		d := decodeRecord(blob[i*RecordWidth : (i+1)*RecordWidth])

		id := m.freeHead
		if id == 0 {
			panicInvariant("undo: Restore ran out of free request slots despite the earlier capacity check")
		}
		m.freeHead = m.reqs[id].freeNext

		m.reqs[id] = requestSlot{
			state:     stateListed,
			data:      d,
			retryTime: neverRetried,
		}
		m.utilization++

		m.byFxid.insert(id)
		m.bySize.insert(id)
	}

	m.oldestFxidValid = false

	log.WithFields(log.Fields{"requests": n}).Info("undo: Restore")
	return nil
}

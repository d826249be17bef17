package undo

import log "github.com/sirupsen/logrus"

// indexFor returns the index named by source.
func (m *Manager) indexFor(source requestSource) *orderedIndex {
	switch source {
	case sourceFxid:
		return m.byFxid
	case sourceSize:
		return m.bySize
	case sourceRetryTime:
		return m.byRetryTime
	default:
		panicInvariant("undo: Next found corrupted source cursor %d", source)
		return nil
	}
}

// Next produces an UNLISTED request for a worker to process, or nil if none
// is eligible right now. If dbid is not InvalidOid, only requests from that
// database are returned, except that an exhaustive affinity scan is skipped
// when minimumRuntimeReached is true (the caller wants to exit promptly
// rather than look harder).
//
// Why round-robin: the three priorities — oldest transaction, largest
// transaction, retry-due — pull in different directions, and no static
// weighting avoids starvation for all three; strict rotation does.
func (m *Manager) Next(dbid Oid, minimumRuntimeReached bool) *Request {
	m.lock.Lock()
	defer m.lock.Unlock()

	var winner requestID
	sawDbMismatch := false

	for probe := 0; probe < 3; probe++ {
		source := m.source
		m.source = source.next()

		idx := m.indexFor(source)
		candidate := idx.leftmost()
		if candidate == 0 {
			continue
		}

		slot := &m.reqs[candidate]
		if source == sourceRetryTime && slot.retryTime.After(m.clock.Now()) {
			continue
		}
		if dbid != InvalidOid && slot.data.Dbid != dbid {
			sawDbMismatch = true
			continue
		}

		winner = candidate
		break
	}

	if winner == 0 && sawDbMismatch && !minimumRuntimeReached {
		winner = m.findRequestForDatabase(dbid)
	}

	if winner == 0 {
		return nil
	}

	slot := &m.reqs[winner]
	if slot.hasFailed() {
		m.byRetryTime.remove(winner)
	} else {
		m.byFxid.remove(winner)
		m.bySize.remove(winner)
	}
	slot.state = stateUnlisted

	log.WithFields(log.Fields{"fxid": slot.data.Fxid, "dbid": slot.data.Dbid}).Debug("undo: Next; handed out request")
	return &Request{mgr: m, id: winner}
}

// findRequestForDatabase performs a left-to-right search of all three
// indexes, stepping their cursors in round-robin order, looking for a
// request belonging to dbid. It surfaces the highest-priority match across
// the three orderings without fully materializing any of them. The scan is
// unbounded unless maxAffinityScanSteps is set to a positive value.
func (m *Manager) findRequestForDatabase(dbid Oid) requestID {
	cursors := [3]*cursor{m.byFxid.newCursor(), m.bySize.newCursor(), m.byRetryTime.newCursor()}
	exhausted := [3]bool{}

	steps := 0
	for i := 0; ; i = (i + 1) % 3 {
		if exhausted[0] && exhausted[1] && exhausted[2] {
			return 0
		}
		if m.maxAffinityScanSteps > 0 && steps >= m.maxAffinityScanSteps {
			return 0
		}

		if !exhausted[i] {
			req, ok := cursors[i].advance()
			if !ok {
				exhausted[i] = true
			} else {
				steps++
				if m.reqs[req].data.Dbid == dbid {
					return req
				}
			}
		}
	}
}

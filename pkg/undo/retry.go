package undo

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// firstRetryDelay is how long after the first undo failure a request waits
// before it is eligible for retry.
const firstRetryDelay = 10 * time.Second

// subsequentRetryDelay is how long after every later failure a request
// waits. The schedule is deliberately simple, not per-attempt exponential;
// there's no jitter.
const subsequentRetryDelay = 30 * time.Second

// Reschedule is called when undo processing fails, in the foreground or in
// the background. req must be UNLISTED; on return it is LISTED in
// byRetryTime. It must never fail on this path.
func (m *Manager) Reschedule(req *Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	slot := &m.reqs[req.id]
	if slot.state != stateUnlisted {
		panicInvariant("undo: Reschedule called on a request that isn't UNLISTED")
	}

	now := m.clock.Now()
	if slot.retryTime.IsZero() {
		slot.retryTime = now.Add(firstRetryDelay)
	} else {
		slot.retryTime = now.Add(subsequentRetryDelay)
	}

	m.byRetryTime.insert(req.id)
	slot.state = stateListed

	log.WithFields(log.Fields{"fxid": slot.data.Fxid, "retryTime": slot.retryTime}).Debug("undo: Reschedule")
}

package undo

import (
	"math/rand"

	log "github.com/sirupsen/logrus"
)

// maxIndexLevel bounds the height of any skip list node. The arena is
// preallocated, so levels can't grow on demand the way a heap-backed skip
// list grows its level count; a fixed ceiling high enough for any
// realistic capacity is used instead.
const maxIndexLevel = 20

const indexProbability = 0.5

// indexNode is one element of the shared node arena. A node belongs to
// exactly one orderedIndex at a time; forward holds, for each level below
// height, the node id of the next node in that index at that level (0 means
// "end of list"). freeNext is only meaningful while the node is on the
// arena's free list.
type indexNode struct {
	req      requestID
	height   int32
	forward  [maxIndexLevel]nodeID
	freeNext nodeID
}

// nodeArena is the fixed pool of indexNode slots shared by all three
// orderedIndex instances of a Manager, mirroring a single node arena that
// requests_by_fxid, requests_by_size and requests_by_retry_time all draw
// from. Index 0 is never allocated; it plays the role of "no node".
type nodeArena struct {
	nodes    []indexNode
	freeHead nodeID
}

func newNodeArena(size uint32) *nodeArena {
	a := &nodeArena{nodes: make([]indexNode, size+1)}
	for i := uint32(1); i <= size; i++ {
		if i == size {
			a.nodes[i].freeNext = 0
		} else {
			a.nodes[i].freeNext = nodeID(i + 1)
		}
	}
	if size > 0 {
		a.freeHead = 1
	}
	return a
}

// allocate pops a node off the free list. Because every LISTED request
// occupies at most two index nodes at a time and the arena is sized at
// 2*capacity, this should never run dry; if it does, it's a bug in this
// package, not a runtime condition callers can provoke.
func (a *nodeArena) allocate(req requestID) nodeID {
	id := a.freeHead
	if id == 0 {
		panicInvariant("undo: index node arena exhausted, want node for request %d", req)
	}
	a.freeHead = a.nodes[id].freeNext
	a.nodes[id] = indexNode{req: req}
	return id
}

func (a *nodeArena) free(id nodeID) {
	a.nodes[id] = indexNode{freeNext: a.freeHead}
	a.freeHead = id
}

// compareFn totally orders two requestIDs according to one index's key.
// Ties never occur in practice because every comparator tiebreaks on fxid,
// which is unique across non-FREE requests; a returned 0 means a and b
// name the same request.
type compareFn func(a, b requestID) int

// orderedIndex is an intrusive skip list over the shared node arena. It
// implements insert, remove, find-by-key (for byFxid only, via findBy),
// leftmost and ordered iteration. It assumes the caller already holds the
// Manager's lock; it does not lock internally, since every index shares
// one coarse lock rather than each having its own.
type orderedIndex struct {
	name    string
	arena   *nodeArena
	compare compareFn
	head    indexNode
	count   int
}

func newOrderedIndex(name string, arena *nodeArena, compare compareFn) *orderedIndex {
	return &orderedIndex{name: name, arena: arena, compare: compare}
}

func (idx *orderedIndex) randomHeight() int32 {
	h := int32(1)
	for h < maxIndexLevel && rand.Float64() < indexProbability {
		h++
	}
	return h
}

// descend walks the list from the head, collecting in updates[i] the last
// node at level i whose key compares strictly before probe's target. found
// is the node, if any, whose key compares equal to the target.
func (idx *orderedIndex) descend(probe func(n requestID) int) (updates [maxIndexLevel]nodeID, found nodeID) {
	cur := &idx.head
	curID := nodeID(0)
	for level := maxIndexLevel - 1; level >= 0; level-- {
		for cur.forward[level] != 0 {
			next := cur.forward[level]
			if probe(idx.arena.nodes[next].req) > 0 {
				curID = next
				cur = &idx.arena.nodes[next]
			} else {
				break
			}
		}
		updates[level] = curID
	}

	next := cur.forward[0]
	if next != 0 && probe(idx.arena.nodes[next].req) == 0 {
		found = next
	}
	return updates, found
}

// insert adds req to the index. req must not already be present.
func (idx *orderedIndex) insert(req requestID) {
	probe := func(n requestID) int { return idx.compare(req, n) }
	updates, found := idx.descend(probe)
	if found != 0 {
		panicInvariant("undo: %s index already contains request %d; combine is unreachable", idx.name, req)
	}

	height := idx.randomHeight()
	id := idx.arena.allocate(req)
	node := &idx.arena.nodes[id]
	node.height = height

	for level := int32(0); level < height; level++ {
		prev := &idx.head
		if updates[level] != 0 {
			prev = &idx.arena.nodes[updates[level]]
		}
		node.forward[level] = prev.forward[level]
		prev.forward[level] = id
	}

	idx.count++
	log.WithFields(log.Fields{"index": idx.name, "request": req}).Debug("undo: index insert")
}

// remove takes req out of the index. req must currently be present.
func (idx *orderedIndex) remove(req requestID) {
	probe := func(n requestID) int { return idx.compare(req, n) }
	updates, found := idx.descend(probe)
	if found == 0 {
		panicInvariant("undo: %s index does not contain request %d", idx.name, req)
	}

	node := &idx.arena.nodes[found]
	for level := int32(0); level < node.height; level++ {
		prev := &idx.head
		if updates[level] != 0 {
			prev = &idx.arena.nodes[updates[level]]
		}
		if prev.forward[level] == found {
			prev.forward[level] = node.forward[level]
		}
	}

	idx.arena.free(found)
	idx.count--
	log.WithFields(log.Fields{"index": idx.name, "request": req}).Debug("undo: index remove")
}

// leftmost returns the highest-priority request in the index, or 0 if the
// index is empty.
func (idx *orderedIndex) leftmost() requestID {
	first := idx.head.forward[0]
	if first == 0 {
		return 0
	}
	return idx.arena.nodes[first].req
}

// ascend calls visit for every request in the index, in ascending key
// order, stopping early if visit returns false.
func (idx *orderedIndex) ascend(visit func(req requestID) bool) {
	for n := idx.head.forward[0]; n != 0; n = idx.arena.nodes[n].forward[0] {
		if !visit(idx.arena.nodes[n].req) {
			return
		}
	}
}

// cursor walks an index from its leftmost element, one step per call to
// advance. It is used by the affinity scan to interleave steps across all
// three indexes without materializing any of them.
type cursor struct {
	idx     *orderedIndex
	node    nodeID
	started bool
	done    bool
}

func (idx *orderedIndex) newCursor() *cursor {
	return &cursor{idx: idx}
}

// advance moves the cursor to its next element and returns it, or returns
// (0, false) once the index is exhausted.
func (c *cursor) advance() (requestID, bool) {
	if c.done {
		return 0, false
	}
	if !c.started {
		c.started = true
		c.node = c.idx.head.forward[0]
	} else {
		c.node = c.idx.arena.nodes[c.node].forward[0]
	}
	if c.node == 0 {
		c.done = true
		return 0, false
	}
	return c.idx.arena.nodes[c.node].req, true
}

// findBy locates the request whose key compares equal to the target
// described by probe, without needing a live requestID to compare against.
// Used by byFxid to look up a request by caller-supplied fxid.
func (idx *orderedIndex) findBy(probe func(n requestID) int) requestID {
	_, found := idx.descend(probe)
	if found == 0 {
		return 0
	}
	return idx.arena.nodes[found].req
}

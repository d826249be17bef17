package undo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestIndex builds an orderedIndex over a small slice of requestSlots,
// ordered by fxid, without going through a full Manager.
func newTestIndex(slots []requestSlot) (*orderedIndex, *nodeArena) {
	arena := newNodeArena(uint32(len(slots)) * 2)
	idx := newOrderedIndex("test", arena, func(a, b requestID) int {
		return compareFxid(slots[a].data.Fxid, slots[b].data.Fxid)
	})
	return idx, arena
}

func TestOrderedIndexInsertAscendsInKeyOrder(t *testing.T) {
	slots := []requestSlot{
		{}, // index 0 unused, matches requestID 0 meaning "none"
		{data: RequestData{Fxid: fxid(30)}},
		{data: RequestData{Fxid: fxid(10)}},
		{data: RequestData{Fxid: fxid(20)}},
	}
	idx, _ := newTestIndex(slots)

	idx.insert(1)
	idx.insert(2)
	idx.insert(3)

	var order []uint32
	idx.ascend(func(req requestID) bool {
		order = append(order, slots[req].data.Fxid.Base)
		return true
	})
	assert.Equal(t, []uint32{10, 20, 30}, order)
	assert.Equal(t, requestID(2), idx.leftmost())
	assert.Equal(t, 3, idx.count)
}

func TestOrderedIndexRemove(t *testing.T) {
	slots := []requestSlot{
		{},
		{data: RequestData{Fxid: fxid(10)}},
		{data: RequestData{Fxid: fxid(20)}},
	}
	idx, _ := newTestIndex(slots)
	idx.insert(1)
	idx.insert(2)

	idx.remove(1)
	assert.Equal(t, requestID(2), idx.leftmost())
	assert.Equal(t, 1, idx.count)

	idx.remove(2)
	assert.Equal(t, requestID(0), idx.leftmost())
	assert.Equal(t, 0, idx.count)
}

func TestOrderedIndexInsertDuplicatePanics(t *testing.T) {
	slots := []requestSlot{
		{},
		{data: RequestData{Fxid: fxid(10)}},
	}
	idx, _ := newTestIndex(slots)
	idx.insert(1)
	assert.Panics(t, func() {
		idx.insert(1)
	})
}

func TestOrderedIndexRemoveMissingPanics(t *testing.T) {
	slots := []requestSlot{
		{},
		{data: RequestData{Fxid: fxid(10)}},
	}
	idx, _ := newTestIndex(slots)
	assert.Panics(t, func() {
		idx.remove(1)
	})
}

func TestOrderedIndexFindBy(t *testing.T) {
	slots := []requestSlot{
		{},
		{data: RequestData{Fxid: fxid(10)}},
		{data: RequestData{Fxid: fxid(20)}},
	}
	idx, _ := newTestIndex(slots)
	idx.insert(1)
	idx.insert(2)

	found := idx.findBy(func(n requestID) int {
		return compareFxid(fxid(20), slots[n].data.Fxid)
	})
	assert.Equal(t, requestID(2), found)

	missing := idx.findBy(func(n requestID) int {
		return compareFxid(fxid(99), slots[n].data.Fxid)
	})
	assert.Equal(t, requestID(0), missing)
}

func TestOrderedIndexCursorWalksInOrder(t *testing.T) {
	slots := []requestSlot{
		{},
		{data: RequestData{Fxid: fxid(30)}},
		{data: RequestData{Fxid: fxid(10)}},
		{data: RequestData{Fxid: fxid(20)}},
	}
	idx, _ := newTestIndex(slots)
	idx.insert(1)
	idx.insert(2)
	idx.insert(3)

	c := idx.newCursor()
	var seen []uint32
	for {
		req, ok := c.advance()
		if !ok {
			break
		}
		seen = append(seen, slots[req].data.Fxid.Base)
	}
	assert.Equal(t, []uint32{10, 20, 30}, seen)

	// a cursor stays exhausted once it runs out.
	_, ok := c.advance()
	assert.False(t, ok)
}

func TestNodeArenaReuseAfterFree(t *testing.T) {
	a := newNodeArena(2)
	n1 := a.allocate(requestID(1))
	n2 := a.allocate(requestID(2))
	require.NotEqual(t, n1, n2)

	a.free(n1)
	n3 := a.allocate(requestID(3))
	assert.Equal(t, n1, n3, "freeing a node should make it available for reuse")
}

func TestNodeArenaExhaustionPanics(t *testing.T) {
	a := newNodeArena(1)
	a.allocate(requestID(1))
	assert.Panics(t, func() {
		a.allocate(requestID(2))
	})
}

func TestCompareSizeOrdersDescendingWithFxidTiebreak(t *testing.T) {
	assert.Equal(t, -1, compareSize(100, fxid(1), 50, fxid(2)))
	assert.Equal(t, 1, compareSize(50, fxid(1), 100, fxid(2)))
	assert.Equal(t, -1, compareSize(100, fxid(1), 100, fxid(2)))
	assert.Equal(t, 0, compareSize(100, fxid(1), 100, fxid(1)))
}

func TestCompareRetryTimeKeysOrdersAscendingWithFxidTiebreak(t *testing.T) {
	assert.Equal(t, -1, compareRetryTimeKeys(10, fxid(1), 20, fxid(2)))
	assert.Equal(t, 1, compareRetryTimeKeys(20, fxid(1), 10, fxid(2)))
	assert.Equal(t, -1, compareRetryTimeKeys(10, fxid(1), 10, fxid(2)))
}

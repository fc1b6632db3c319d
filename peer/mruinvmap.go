// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"container/list"

	"github.com/nyx-project/nyxd/wire"
)

// mruInventoryMap provides a map that is limited to a maximum number of
// items with eviction for the oldest entry when the limit is exceeded. It
// tracks a peer's known-inventory set so relay never re-announces the same
// item twice (spec.md §4.2 "deduped by each peer's known-inventory
// filter").
type mruInventoryMap struct {
	invMap  map[wire.InvVect]*list.Element
	invList *list.List
	limit   uint
}

// String returns the map as a human-readable string.
func (m *mruInventoryMap) String() string {
	return "mruInventoryMap"
}

// Exists returns whether the element exists in the map.
func (m *mruInventoryMap) Exists(iv *wire.InvVect) bool {
	if _, exists := m.invMap[*iv]; exists {
		return true
	}
	return false
}

// Add adds the passed inventory vector to the map, evicting the oldest
// entry if adding it would exceed the configured limit.
func (m *mruInventoryMap) Add(iv *wire.InvVect) {
	if m.limit <= 0 {
		return
	}

	if le, exists := m.invMap[*iv]; exists {
		m.invList.MoveToFront(le)
		return
	}

	if uint(len(m.invMap))+1 > m.limit {
		le := m.invList.Back()
		if le != nil {
			m.invList.Remove(le)
			delete(m.invMap, le.Value.(wire.InvVect))
		}
	}

	le := m.invList.PushFront(*iv)
	m.invMap[*iv] = le
}

// newMruInventoryMap returns a new mru inventory map bounded to limit
// entries.
func newMruInventoryMap(limit uint) *mruInventoryMap {
	return &mruInventoryMap{
		invMap:  make(map[wire.InvVect]*list.Element),
		invList: list.New(),
		limit:   limit,
	}
}

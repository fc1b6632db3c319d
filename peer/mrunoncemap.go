// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import "container/list"

// mruNonceMap tracks the self-connect nonces this node has sent in its own
// outgoing version messages, bounded to a maximum size with eviction of the
// oldest entry. A peer that echoes back one of our own nonces is us,
// connected to ourself through a loopback route, and should be dropped.
type mruNonceMap struct {
	nonceMap  map[uint64]*list.Element
	nonceList *list.List
	limit     uint
}

// Exists returns whether the nonce exists in the map.
func (m *mruNonceMap) Exists(nonce uint64) bool {
	_, exists := m.nonceMap[nonce]
	return exists
}

// Add adds the passed nonce to the map, evicting the oldest entry if adding
// it would exceed the configured limit.
func (m *mruNonceMap) Add(nonce uint64) {
	if m.limit <= 0 {
		return
	}

	if le, exists := m.nonceMap[nonce]; exists {
		m.nonceList.MoveToFront(le)
		return
	}

	if uint(len(m.nonceMap))+1 > m.limit {
		le := m.nonceList.Back()
		if le != nil {
			m.nonceList.Remove(le)
			delete(m.nonceMap, le.Value.(uint64))
		}
	}

	le := m.nonceList.PushFront(nonce)
	m.nonceMap[nonce] = le
}

// newMruNonceMap returns a new mru nonce map bounded to limit entries.
func newMruNonceMap(limit uint) *mruNonceMap {
	return &mruNonceMap{
		nonceMap:  make(map[uint64]*list.Element),
		nonceList: list.New(),
		limit:     limit,
	}
}

// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"container/list"
	"sync"
	"time"

	"github.com/nyx-project/nyxd/blockchain"
	"github.com/nyx-project/nyxd/chainhash"
	"github.com/nyx-project/nyxd/mempool"
	"github.com/nyx-project/nyxd/wire"
	"golang.org/x/crypto/blake2b"
)

// relayMapExpiry is how long a relay-map entry is kept so a GETDATA(tx) can
// be answered without re-consulting the mempool (spec.md §3 "Relay map").
const relayMapExpiry = 15 * time.Minute

// maxInvSize bounds an inbound INV's entry count (spec.md §5 "MAX_INV_SZ").
const maxInvSize = 50000

type relayMapEntry struct {
	hash    chainhash.Hash
	data    []byte
	expires time.Time
}

// RelayMap answers GETDATA(tx) for recently-relayed transactions without
// re-consulting the mempool, grounded on the teacher's peer.go
// mruInventoryMap/list.List trickle-queue pattern (spec.md §3 "Relay map",
// §4.2).
type RelayMap struct {
	mtx     sync.Mutex
	entries map[chainhash.Hash]*list.Element
	order   *list.List // oldest-first, of *relayMapEntry
}

// NewRelayMap returns an empty relay map.
func NewRelayMap() *RelayMap {
	return &RelayMap{
		entries: make(map[chainhash.Hash]*list.Element),
		order:   list.New(),
	}
}

// Add inserts hash/data, to be served until it expires.
func (m *RelayMap) Add(hash chainhash.Hash, data []byte) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if _, exists := m.entries[hash]; exists {
		return
	}
	entry := &relayMapEntry{hash: hash, data: data, expires: time.Now().Add(relayMapExpiry)}
	elem := m.order.PushBack(entry)
	m.entries[hash] = elem
}

// Get returns the serialized data for hash, if still present.
func (m *RelayMap) Get(hash chainhash.Hash) ([]byte, bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	elem, ok := m.entries[hash]
	if !ok {
		return nil, false
	}
	return elem.Value.(*relayMapEntry).data, true
}

// ExpireOld removes every entry whose expiry has passed.
func (m *RelayMap) ExpireOld() {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	now := time.Now()
	for e := m.order.Front(); e != nil; {
		entry := e.Value.(*relayMapEntry)
		if entry.expires.After(now) {
			break
		}
		next := e.Next()
		m.order.Remove(e)
		delete(m.entries, entry.hash)
		e = next
	}
}

// InventoryFilter bundles the three probabilistic/bookkeeping structures
// described in spec.md §3: the recent-rejects filter, the relay map, and
// the orphan pool it consults for already_have. It is the concrete type
// backing SPEC_FULL.md §4.2's "Inventory & Relay Filter" component.
type InventoryFilter struct {
	mtx sync.Mutex

	rejects  *RejectFilter
	relay    *RelayMap
	observedTip chainhash.Hash

	txPool  mempool.TxPool
	stxPool mempool.StxPool
	coins   mempool.CoinView
	chain   blockchain.Chain
	orphans *OrphanPool
}

// NewInventoryFilter wires the filter against its collaborators.
func NewInventoryFilter(txPool mempool.TxPool, stxPool mempool.StxPool, coins mempool.CoinView, chain blockchain.Chain, orphans *OrphanPool) *InventoryFilter {
	return &InventoryFilter{
		rejects: NewRejectFilter(defaultRejectsElements, defaultRejectsFPRate),
		relay:   NewRelayMap(),
		txPool:  txPool,
		stxPool: stxPool,
		coins:   coins,
		chain:   chain,
		orphans: orphans,
	}
}

// maybeResetOnTipChange resets the rejects filter if the observed chain tip
// has moved since the last call (spec.md §4.2 "already_have", §8 invariant
// 7).
func (f *InventoryFilter) maybeResetOnTipChange() {
	tip := f.chain.Tip()
	if tip == nil {
		return
	}
	if tip.Hash != f.observedTip {
		f.observedTip = tip.Hash
		f.rejects.Reset()
	}
}

// bestEffortTxKnown is the §9-retained "possibly-buggy" shortcut: checking
// only the coin view's first two output positions rather than every
// output the candidate transaction would spend, ported verbatim from the
// original's best-effort behavior rather than silently "fixed".
func (f *InventoryFilter) bestEffortTxKnown(hash chainhash.Hash) bool {
	if f.coins == nil {
		return false
	}
	for i := uint32(0); i < 2; i++ {
		if f.coins.HaveUnspentOutput(wire.OutPoint{Hash: hash, Index: i}) {
			return true
		}
	}
	return false
}

// AlreadyHave reports whether inv is already known, consulting the
// appropriate collaborator by inventory type (spec.md §4.2
// "already_have").
func (f *InventoryFilter) AlreadyHave(inv *wire.InvVect) bool {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	switch inv.Type {
	case wire.InvTypeTx:
		f.maybeResetOnTipChange()
		if f.rejects.Contains(&inv.Hash) {
			return true
		}
		if f.txPool != nil && f.txPool.HaveTransaction(&inv.Hash) {
			return true
		}
		if f.orphans != nil && f.orphans.Have(inv.Hash) {
			return true
		}
		return f.bestEffortTxKnown(inv.Hash)
	case wire.InvTypeBlock, wire.InvTypeFilteredBlock:
		return f.chain.BlockIndexByHash(&inv.Hash) != nil
	case wire.InvTypeStx:
		if f.stxPool != nil {
			return f.stxPool.HaveStx(&inv.Hash)
		}
		return false
	default:
		return false
	}
}

// RejectTx caches hash in the recent-rejects filter, unless the rejection
// reason is witness-malleable (spec.md §4.5 TX "cache in recent-rejects
// (unless malleable)").
func (f *InventoryFilter) RejectTx(hash chainhash.Hash, malleable bool) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if malleable {
		return
	}
	f.maybeResetOnTipChange()
	f.rejects.Add(&hash)
}

// RelayTransaction broadcasts a single tx inventory announcement to every
// registered peer, deduped by each peer's known-inventory filter, and
// stashes the tx in the relay map so GETDATA can be served without
// re-consulting the mempool (spec.md §4.2 "relay_transaction").
func (f *InventoryFilter) RelayTransaction(registry *PeerRegistry, hash chainhash.Hash, raw []byte) {
	f.relay.Add(hash, raw)
	iv := wire.NewInvVect(wire.InvTypeTx, &hash)
	registry.forEach(func(st *peerSyncState) {
		if st.peer == nil || st.peer.KnowsInventory(iv) {
			return
		}
		st.peer.QueueInventory(iv)
	})
}

// RelayServiceTransaction is RelayTransaction's InvTypeStx counterpart
// (spec.md §4.2 "relay_service_transaction").
func (f *InventoryFilter) RelayServiceTransaction(registry *PeerRegistry, hash chainhash.Hash, raw []byte) {
	f.relay.Add(hash, raw)
	iv := wire.NewInvVect(wire.InvTypeStx, &hash)
	registry.forEach(func(st *peerSyncState) {
		if st.peer == nil || st.peer.KnowsInventory(iv) {
			return
		}
		st.peer.QueueInventory(iv)
	})
}

// RelayAddress selects at most 1 (unreachable) or 2 (reachable) peers,
// deterministically keyed by (addr, day) so the same peers relay the same
// address for a 24-hour epoch, and pushes the address to those peers'
// address-send queues (spec.md §4.2 "relay_address").
//
// The deterministic selection uses a blake2b-keyed hash of the address and
// the current day-epoch as its PRF, per SPEC_FULL.md §4.2's "(added
// dependency)" wiring of golang.org/x/crypto/blake2b standing in for the
// spec's siphash-like requirement.
func (f *InventoryFilter) RelayAddress(registry *PeerRegistry, addr *wire.NetAddress, reachable bool) {
	limit := 1
	if reachable {
		limit = 2
	}

	type candidate struct {
		st    *peerSyncState
		score [8]byte
	}
	day := time.Now().Unix() / 86400
	var dayBuf [8]byte
	for i := 0; i < 8; i++ {
		dayBuf[i] = byte(day >> (8 * i))
	}

	var candidates []candidate
	registry.forEach(func(st *peerSyncState) {
		if st.peer == nil || st.peer.Inbound() {
			return
		}
		mac, _ := blake2b.New(8, dayBuf[:])
		_, _ = mac.Write(addr.IP)
		_, _ = mac.Write([]byte(st.id.String()))
		var sum [8]byte
		copy(sum[:], mac.Sum(nil))
		candidates = append(candidates, candidate{st: st, score: sum})
	})

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if string(candidates[j].score[:]) < string(candidates[i].score[:]) {
				candidates[i], candidates[j] = candidates[j], candidates[i]
			}
		}
	}

	for i := 0; i < limit && i < len(candidates); i++ {
		st := candidates[i].st
		key := addr.IP.String()
		if _, known := st.addrKnown[key]; known {
			continue
		}
		st.addrKnown[key] = struct{}{}
		st.addrSendQueue = append(st.addrSendQueue, addr)
	}
}

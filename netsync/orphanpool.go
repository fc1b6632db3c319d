// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"sync"

	"github.com/nyx-project/nyxd/chainhash"
	"github.com/nyx-project/nyxd/util/random"
	"github.com/nyx-project/nyxd/wire"
)

// defaultMaxOrphanTransactions bounds the pool's size (spec.md §3 "Orphan
// pool", §5 resource caps "DEFAULT_MAX_ORPHAN_TRANSACTIONS").
const defaultMaxOrphanTransactions = 100

// maxOrphanTxSize bounds an individual orphan's serialized size (spec.md §3
// "Individual orphan serialized size bounded (e.g. 5000 bytes)").
const maxOrphanTxSize = 5000

// orphanTx is a transaction this node has accepted into the orphan pool
// because one or more of its inputs reference a transaction not yet known
// (spec.md §4.3).
type orphanTx struct {
	tx       *wire.MsgTx
	fromPeer PeerId
}

// OrphanPool maps tx-hash to (transaction, source-peer), with a reverse
// index from each input's referenced prev-hash to the set of orphan hashes
// spending it (spec.md §3 "Orphan pool", §4.3). Grounded directly on
// original_source's mapOrphanTransactions/mapOrphanTransactionsByPrev,
// since the teacher's DAG model never has an orphan pool of its own
// (orphans are implicit in blockdag there), expressed with the teacher's
// container/list-and-map idiom (peer.go's mru maps).
type OrphanPool struct {
	mtx sync.Mutex

	orphans    map[chainhash.Hash]*orphanTx
	byPrevOut  map[wire.OutPoint]map[chainhash.Hash]struct{}
	maxOrphans int
}

// NewOrphanPool returns an empty pool bounded at defaultMaxOrphanTransactions.
func NewOrphanPool() *OrphanPool {
	return &OrphanPool{
		orphans:    make(map[chainhash.Hash]*orphanTx),
		byPrevOut:  make(map[wire.OutPoint]map[chainhash.Hash]struct{}),
		maxOrphans: defaultMaxOrphanTransactions,
	}
}

// serializedSize approximates a tx's wire size; byte-accurate
// serialization lives with the transport collaborator this core does not
// implement (spec.md §1 Non-goals "byte-level framing").
func serializedSize(tx *wire.MsgTx) int {
	size := 8
	for _, in := range tx.TxIn {
		size += 40 + len(in.SignatureScript)
	}
	for _, out := range tx.TxOut {
		size += 8 + len(out.ScriptPubKey)
	}
	return size
}

// Add inserts tx into the pool sourced from fromPeer, rejecting it if its
// hash is already present or its serialized size exceeds the per-orphan
// cap (spec.md §4.3 "add"). It reports whether the orphan was inserted.
func (p *OrphanPool) Add(tx *wire.MsgTx, fromPeer PeerId) bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	hash := tx.TxHash()
	if _, exists := p.orphans[hash]; exists {
		return false
	}
	if serializedSize(tx) > maxOrphanTxSize {
		return false
	}

	p.orphans[hash] = &orphanTx{tx: tx, fromPeer: fromPeer}
	for _, in := range tx.TxIn {
		set, ok := p.byPrevOut[in.PreviousOutPoint]
		if !ok {
			set = make(map[chainhash.Hash]struct{})
			p.byPrevOut[in.PreviousOutPoint] = set
		}
		set[hash] = struct{}{}
	}
	return true
}

// eraseLocked removes hash and cleans up its reverse-index entries. p.mtx
// must be held by the caller.
func (p *OrphanPool) eraseLocked(hash chainhash.Hash) {
	orphan, ok := p.orphans[hash]
	if !ok {
		return
	}
	for _, in := range orphan.tx.TxIn {
		set, ok := p.byPrevOut[in.PreviousOutPoint]
		if !ok {
			continue
		}
		delete(set, hash)
		if len(set) == 0 {
			delete(p.byPrevOut, in.PreviousOutPoint)
		}
	}
	delete(p.orphans, hash)
}

// Erase removes hash from the pool (spec.md §4.3 "erase").
func (p *OrphanPool) Erase(hash chainhash.Hash) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.eraseLocked(hash)
}

// EraseForPeer removes every orphan sourced from fromPeer (spec.md §4.3
// "erase_for_peer"), used by PeerRegistry.finalize on disconnect.
func (p *OrphanPool) EraseForPeer(fromPeer PeerId) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	var toErase []chainhash.Hash
	for hash, orphan := range p.orphans {
		if orphan.fromPeer == fromPeer {
			toErase = append(toErase, hash)
		}
	}
	for _, hash := range toErase {
		p.eraseLocked(hash)
	}
}

// EvictTo removes uniform-random elements until the pool's size is at most
// cap (spec.md §4.3 "evict_to"). Sampling is done by drawing a random
// index into a snapshot of the current key set, the "pick a random hash
// and take the next entry" shortcut the spec names as sufficient.
func (p *OrphanPool) EvictTo(cap int) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	for len(p.orphans) > cap {
		keys := make([]chainhash.Hash, 0, len(p.orphans))
		for hash := range p.orphans {
			keys = append(keys, hash)
		}
		n, err := random.Uint64()
		if err != nil {
			break
		}
		p.eraseLocked(keys[n%uint64(len(keys))])
	}
}

// ChildrenOf iterates orphan hashes whose inputs reference prevHash (spec.md
// §4.3 "children_of"), used by the TX handler to resolve orphans once
// their missing parent arrives.
func (p *OrphanPool) ChildrenOf(prevHash chainhash.Hash, numOutputs uint32) []chainhash.Hash {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	seen := make(map[chainhash.Hash]struct{})
	var children []chainhash.Hash
	for index := uint32(0); index < numOutputs; index++ {
		set, ok := p.byPrevOut[wire.OutPoint{Hash: prevHash, Index: index}]
		if !ok {
			continue
		}
		for hash := range set {
			if _, dup := seen[hash]; dup {
				continue
			}
			seen[hash] = struct{}{}
			children = append(children, hash)
		}
	}
	return children
}

// Get returns the orphan transaction for hash, if present.
func (p *OrphanPool) Get(hash chainhash.Hash) (*wire.MsgTx, bool) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	orphan, ok := p.orphans[hash]
	if !ok {
		return nil, false
	}
	return orphan.tx, true
}

// Have reports whether hash is already present in the orphan pool, used by
// already_have (spec.md §4.2).
func (p *OrphanPool) Have(hash chainhash.Hash) bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	_, ok := p.orphans[hash]
	return ok
}

// Count returns the number of orphans currently tracked.
func (p *OrphanPool) Count() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return len(p.orphans)
}

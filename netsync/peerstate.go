// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nyx-project/nyxd/blockchain"
	"github.com/nyx-project/nyxd/chainhash"
	"github.com/nyx-project/nyxd/peer"
	"github.com/nyx-project/nyxd/wire"
)

// PeerId identifies a connected peer across the registry, the in-flight
// table, and the orphan pool's source index (spec.md §9 Glossary
// "PeerId"). The teacher keys its peer bookkeeping off peer.Peer's atomic
// int32 counter; this core uses a uuid.UUID instead so identifiers never
// wrap around on a long-lived node, following google/uuid the way the
// teacher's app layer tags long-running request/response state.
type PeerId uuid.UUID

// String satisfies fmt.Stringer for log lines.
func (id PeerId) String() string {
	return uuid.UUID(id).String()
}

// NewPeerId allocates a new, random PeerId.
func NewPeerId() PeerId {
	return PeerId(uuid.New())
}

// inFlightBlock describes a block this node has asked a specific peer to
// deliver (spec.md §3 "Download"/§4.4 in-flight table).
type inFlightBlock struct {
	hash            chainhash.Hash
	index           *blockchain.BlockIndex
	validatedHeader bool
	requestedAt     time.Time
}

// askForEntry is a pending non-block inventory request, keyed by the
// earliest time it may be asked for (spec.md §3 "ask-for map").
type askForEntry struct {
	inv     wire.InvVect
	askTime time.Time
}

// peerSyncState is the sync-scoped overlay the netsync core keeps for each
// registered peer, distinct from peer.Peer's connection-level state
// (spec.md §3 Data Model "Peer state", §9 Glossary "Sync state").
type peerSyncState struct {
	id      PeerId
	peer    *peer.Peer
	addr    string
	inbound bool

	// Handshake / identity.
	syncCandidate      bool
	whitelisted        bool
	feeler             bool
	oneShot            bool
	successfullyConnected bool

	// Sync view (spec.md §3 "Sync view").
	bestKnownBlock     *blockchain.BlockIndex
	lastCommonBlock    *blockchain.BlockIndex
	lastUnknownBlock   *chainhash.Hash
	bestHeaderSent     *blockchain.BlockIndex
	preferHeaders      bool
	preferredDownload  bool
	syncStarted        bool

	// Download bookkeeping (spec.md §3 "Download").
	inFlight            *list.List // of *inFlightBlock, ordered oldest-first
	inFlightIndex       map[chainhash.Hash]*list.Element
	inFlightValidated   int
	downloadingSince    time.Time
	stallingSince       time.Time

	// DoS.
	banScore  uint32
	shouldBan bool

	// Ask-for bookkeeping for non-block invs (spec.md §4.5 INV "ask-for").
	askFor map[chainhash.Hash]*askForEntry

	// Addr gossip.
	addrKnown     map[string]struct{}
	addrSendQueue []*wire.NetAddress
	getAddrSent   bool
	lastAddrSend  time.Time

	// Pending GETDATA queue drained by the serving routine (spec.md
	// §4.5.1).
	getDataQueue []*wire.InvVect
	hashContinue chainhash.Hash

	// blocksToAnnounce is queued by the chain-connected callback for the
	// outbound tick's block announcement step (spec.md §4.6 step 7).
	blocksToAnnounce []chainhash.Hash

	// filterLoaded tracks whether FILTERLOAD has installed a bloom filter
	// for this peer (spec.md §4.5 FILTERADD "without filterload").
	filterLoaded bool

	connTime time.Time
}

func newPeerSyncState(id PeerId, p *peer.Peer, addr string, inbound bool) *peerSyncState {
	return &peerSyncState{
		id:            id,
		peer:          p,
		addr:          addr,
		inbound:       inbound,
		inFlight:      list.New(),
		inFlightIndex: make(map[chainhash.Hash]*list.Element),
		askFor:        make(map[chainhash.Hash]*askForEntry),
		addrKnown:     make(map[string]struct{}),
		connTime:      time.Now(),
	}
}

// PeerRegistry is a PeerId -> *peerSyncState registry guarded by the chain
// mutex, mirroring CConnman::vNodes/mapNodeState in original_source and
// grounded on the teacher's peer-id bookkeeping in peer/peer.go
// (nodeCount, sentNonces) for connection accounting (spec.md §4.1).
//
// It maintains the three global counters §3's invariants require:
// peersWithValidatedDownloads, preferredDownloadCount, and the size of
// the in-flight index (implicitly, via each state's inFlightIndex).
type PeerRegistry struct {
	mtx sync.Mutex

	states map[PeerId]*peerSyncState
	byHash map[chainhash.Hash]PeerId // in-flight block hash -> owning peer

	peersWithValidatedDownloads int
	preferredDownloadCount      int
}

// NewPeerRegistry returns an empty registry.
func NewPeerRegistry() *PeerRegistry {
	return &PeerRegistry{
		states: make(map[PeerId]*peerSyncState),
		byHash: make(map[chainhash.Hash]PeerId),
	}
}

// initialize allocates state for a newly connected peer and inserts it into
// the registry (spec.md §4.1 "initialize").
func (r *PeerRegistry) initialize(id PeerId, p *peer.Peer, addr string, inbound bool) *peerSyncState {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	st := newPeerSyncState(id, p, addr, inbound)
	r.states[id] = st
	return st
}

// get returns the sync state for id, or nil if the peer is not registered.
func (r *PeerRegistry) get(id PeerId) *peerSyncState {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.states[id]
}

// finalize removes a disconnected peer's state from the registry,
// releasing every in-flight entry and counter it owned (spec.md §4.1
// "finalize"). It returns true when the connection completed cleanly:
// the peer never misbehaved and finished the handshake.
func (r *PeerRegistry) finalize(id PeerId) (cleanlyCompleted bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	st, ok := r.states[id]
	if !ok {
		return false
	}

	for e := st.inFlight.Front(); e != nil; e = e.Next() {
		blk := e.Value.(*inFlightBlock)
		delete(r.byHash, blk.hash)
	}
	if st.inFlightValidated > 0 {
		r.peersWithValidatedDownloads--
	}
	if st.preferredDownload {
		r.preferredDownloadCount--
	}

	delete(r.states, id)

	cleanlyCompleted = !st.shouldBan && st.successfullyConnected
	return cleanlyCompleted
}

// misbehave adds score to the peer's cumulative misbehavior and sets
// shouldBan once the cumulative score crosses threshold (spec.md §4.1
// "misbehave"). Returns the peer's new cumulative score.
func (r *PeerRegistry) misbehave(id PeerId, score uint32, threshold uint32, reason string) uint32 {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	st, ok := r.states[id]
	if !ok {
		return 0
	}
	st.banScore += score
	if st.banScore >= threshold {
		st.shouldBan = true
	}
	log.Debugf("misbehavior by peer %s: +%d (%s), cumulative=%d", id, score, reason, st.banScore)
	return st.banScore
}

// setPreferredDownload updates the preferred-download counter invariant
// when a peer's preferred-download flag changes (spec.md §3 invariants).
func (r *PeerRegistry) setPreferredDownload(id PeerId, preferred bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	st, ok := r.states[id]
	if !ok || st.preferredDownload == preferred {
		return
	}
	st.preferredDownload = preferred
	if preferred {
		r.preferredDownloadCount++
	} else {
		r.preferredDownloadCount--
	}
}

// count returns the number of registered peers.
func (r *PeerRegistry) count() int {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return len(r.states)
}

// forEach calls fn for every registered peer's sync state. fn must not
// re-enter the registry.
func (r *PeerRegistry) forEach(fn func(*peerSyncState)) {
	r.mtx.Lock()
	states := make([]*peerSyncState, 0, len(r.states))
	for _, st := range r.states {
		states = append(states, st)
	}
	r.mtx.Unlock()

	for _, st := range states {
		fn(st)
	}
}

// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"time"

	"github.com/nyx-project/nyxd/blockchain"
	"github.com/nyx-project/nyxd/chainhash"
)

// maxBlocksInTransitPerPeer caps how many blocks a single peer may have
// outstanding at once (spec.md §4.4 "Per-peer per-block limit").
const maxBlocksInTransitPerPeer = 16

// blockDownloadWindow is the width of the sliding window of contiguous
// blocks a peer may be asked for ahead of our last-common-block (spec.md
// §4.4 "Window semantics").
const blockDownloadWindow = 1024

// blockDownloadBatchSize is how many candidates are walked forward per
// find-next-to-download pass (spec.md §4.4 step 4, "~128 per batch").
const blockDownloadBatchSize = 128

// blockStallingTimeout is how long a stalled download window may persist
// before the peer is disconnected (spec.md §4.4 "Stall detection").
const blockStallingTimeout = 2 * time.Minute

// markInFlight records that hash has been requested from the peer
// identified by id, releasing it from any other peer that held it (spec.md
// §4.4 "mark_in_flight"). index may be nil if the header hasn't been
// validated yet.
func (r *PeerRegistry) markInFlight(id PeerId, hash chainhash.Hash, index *blockchain.BlockIndex) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if owner, exists := r.byHash[hash]; exists {
		r.removeInFlightLocked(owner, hash)
	}

	st, ok := r.states[id]
	if !ok {
		return
	}

	blk := &inFlightBlock{hash: hash, index: index, validatedHeader: index != nil, requestedAt: time.Now()}
	if st.inFlight.Len() == 0 {
		st.downloadingSince = blk.requestedAt
	}
	elem := st.inFlight.PushBack(blk)
	st.inFlightIndex[hash] = elem
	r.byHash[hash] = id

	if blk.validatedHeader {
		if st.inFlightValidated == 0 {
			r.peersWithValidatedDownloads++
		}
		st.inFlightValidated++
	}
}

// removeInFlightLocked removes hash from id's in-flight list. r.mtx must be
// held by the caller.
func (r *PeerRegistry) removeInFlightLocked(id PeerId, hash chainhash.Hash) *inFlightBlock {
	st, ok := r.states[id]
	if !ok {
		delete(r.byHash, hash)
		return nil
	}
	elem, ok := st.inFlightIndex[hash]
	if !ok {
		delete(r.byHash, hash)
		return nil
	}

	blk := elem.Value.(*inFlightBlock)
	wasFront := st.inFlight.Front() == elem
	st.inFlight.Remove(elem)
	delete(st.inFlightIndex, hash)
	delete(r.byHash, hash)

	if blk.validatedHeader {
		st.inFlightValidated--
		if st.inFlightValidated == 0 {
			r.peersWithValidatedDownloads--
		}
	}
	if wasFront && st.inFlight.Len() > 0 {
		st.downloadingSince = time.Now()
	}
	return blk
}

// markReceived removes hash from whichever peer's in-flight list held it
// (spec.md §4.4 "mark_received"). It reports whether the hash was actually
// tracked.
func (r *PeerRegistry) markReceived(hash chainhash.Hash) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	owner, exists := r.byHash[hash]
	if !exists {
		return false
	}
	r.removeInFlightLocked(owner, hash)
	return true
}

// processBlockAvailability lifts a peer's hashLastUnknownBlock to
// bestKnownBlock once that hash resolves in the chain index (spec.md §4.4
// "Peer knowledge model").
func processBlockAvailability(st *peerSyncState, chain blockchain.Chain) {
	if st.lastUnknownBlock == nil {
		return
	}
	if idx := chain.BlockIndexByHash(st.lastUnknownBlock); idx != nil {
		if st.bestKnownBlock == nil || idx.ChainWork.Cmp(st.bestKnownBlock.ChainWork) > 0 {
			st.bestKnownBlock = idx
		}
		st.lastUnknownBlock = nil
	}
}

// updateBlockAvailability records that a peer has announced (via INV or
// HEADERS) awareness of hash, resolving it immediately if known or parking
// it in lastUnknownBlock otherwise.
func updateBlockAvailability(st *peerSyncState, chain blockchain.Chain, hash chainhash.Hash) {
	if idx := chain.BlockIndexByHash(&hash); idx != nil {
		if st.bestKnownBlock == nil || idx.ChainWork.Cmp(st.bestKnownBlock.ChainWork) > 0 {
			st.bestKnownBlock = idx
		}
		return
	}
	h := hash
	st.lastUnknownBlock = &h
}

// findNextBlocksToDownload implements spec.md §4.4's "Find-next-to-download
// algorithm", choosing up to count candidate blocks to request from the
// peer identified by id. It returns the chosen blocks, and, if nothing was
// fetchable, the PeerId of a "staller" holding a block this peer is
// blocked behind (the zero PeerId if none applies).
func (r *PeerRegistry) findNextBlocksToDownload(id PeerId, count int, chain blockchain.Chain) (blocks []*blockchain.BlockIndex, staller PeerId) {
	r.mtx.Lock()
	st, ok := r.states[id]
	r.mtx.Unlock()
	if !ok || count <= 0 {
		return nil, PeerId{}
	}

	processBlockAvailability(st, chain)

	if st.bestKnownBlock == nil {
		return nil, PeerId{}
	}
	tip := chain.Tip()
	if tip != nil && st.bestKnownBlock.ChainWork.Cmp(tip.ChainWork) < 0 {
		return nil, PeerId{}
	}

	if st.lastCommonBlock == nil {
		height := st.bestKnownBlock.Height
		if tip != nil && tip.Height < height {
			height = tip.Height
		}
		st.lastCommonBlock = st.bestKnownBlock.Ancestor(height)
	}

	st.lastCommonBlock = blockchain.LastCommonAncestor(st.lastCommonBlock, st.bestKnownBlock)
	if st.lastCommonBlock == st.bestKnownBlock {
		return nil, PeerId{}
	}

	windowEnd := st.lastCommonBlock.Height + blockDownloadWindow
	maxHeight := minInt32(st.bestKnownBlock.Height, windowEnd+1)

	var toFetch []*blockchain.BlockIndex
	var waitingFor PeerId
	walk := st.lastCommonBlock
	stallerFound := false
	for height := walk.Height + 1; height <= maxHeight && len(toFetch) < count; height += blockDownloadBatchSize {
		batchEnd := height + blockDownloadBatchSize - 1
		if batchEnd > maxHeight {
			batchEnd = maxHeight
		}
		for h := height; h <= batchEnd; h++ {
			candidate := st.bestKnownBlock.Ancestor(h)
			if candidate == nil {
				break
			}
			if candidate.Status.KnownInvalid() {
				return nil, PeerId{}
			}
			if candidate.Status&blockchain.StatusDataStored != 0 {
				if candidate.Height == st.lastCommonBlock.Height+1 {
					st.lastCommonBlock = candidate
				}
				continue
			}

			r.mtx.Lock()
			owner, inFlight := r.byHash[candidate.Hash]
			r.mtx.Unlock()

			if !inFlight {
				if h > windowEnd {
					if len(toFetch) == 0 && waitingFor != id {
						staller = waitingFor
					}
					stallerFound = true
					break
				}
				toFetch = append(toFetch, candidate)
				if len(toFetch) >= count {
					break
				}
			} else if waitingFor == (PeerId{}) {
				waitingFor = owner
			}
		}
		if stallerFound {
			break
		}
	}

	return toFetch, staller
}

func minInt32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

// checkStalls runs the stall and per-block timeout checks spec.md §4.4
// describes, returning the ids of peers that should be disconnected for
// stalling. targetSpacing is the consensus inter-block time used to derive
// the per-block timeout.
func (r *PeerRegistry) checkStalls(targetSpacing time.Duration) []PeerId {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	now := time.Now()
	var toDisconnect []PeerId
	for id, st := range r.states {
		if !st.stallingSince.IsZero() && now.Sub(st.stallingSince) > blockStallingTimeout {
			toDisconnect = append(toDisconnect, id)
			continue
		}
		if front := st.inFlight.Front(); front != nil {
			timeout := targetSpacing * time.Duration(2+r.peersWithValidatedDownloads)
			if now.Sub(st.downloadingSince) > timeout {
				toDisconnect = append(toDisconnect, id)
			}
		}
	}
	return toDisconnect
}

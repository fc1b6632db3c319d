// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"github.com/nyx-project/nyxd/chainhash"
	"github.com/nyx-project/nyxd/peer"
	"github.com/nyx-project/nyxd/wire"
)

// handleHeaders implements spec.md §4.5's HEADERS contract: sequential
// acceptance with chain-continuity scoring, pipelined GETHEADERS while the
// batch is full, and a direct-fetch tail once the peer's chain catches up
// to (or passes) our tip.
func (sm *SyncManager) handleHeaders(id PeerId, st *peerSyncState, msg *wire.MsgHeaders) {
	if !sm.enforceHandshake(id, st) {
		return
	}
	if len(msg.Headers) > maxHeadersResults {
		sm.misbehaveAndReject(id, st, peer.BanScoreSentTooManyInv, "oversize headers")
		return
	}
	if len(msg.Headers) == 0 {
		return
	}

	prevHash := msg.Headers[0].PrevBlock
	if idx := sm.cfg.Chain.BlockIndexByHash(&prevHash); idx == nil && prevHash != chainHashZero {
		// The first header doesn't chain onto anything we know; treat it
		// as an unknown announcement rather than a hard failure so a
		// later GETHEADERS can still resolve it.
		hash := msg.Headers[0].BlockHash()
		updateBlockAvailability(st, sm.cfg.Chain, hash)
		return
	}

	var lastHash chainhash.Hash
	for i, hdr := range msg.Headers {
		hash := hdr.BlockHash()
		if i > 0 {
			prev := msg.Headers[i-1].BlockHash()
			if hdr.PrevBlock != prev {
				sm.misbehaveAndReject(id, st, peer.BanScoreDisconnectedHeader, "disconnected header")
				return
			}
		}
		lastHash = hash
		updateBlockAvailability(st, sm.cfg.Chain, hash)
	}

	if len(msg.Headers) == maxHeadersResults {
		// Pipeline the next GETHEADERS from the last accepted header
		// (spec.md §4.5 HEADERS "If count equals the cap, pipeline the
		// next GETHEADERS from the last accepted header").
		next := wire.NewMsgGetHeaders()
		_ = next.AddBlockLocatorHash(&lastHash)
		st.peer.QueueMessage(next, nil)
		return
	}

	sm.maybeDirectFetch(id, st)
}

// maybeDirectFetch requests up to the per-peer cap of newest-first blocks
// once the peer's announced chain reaches or exceeds our tip's work
// (spec.md §4.5 HEADERS "compute the shortest path to it and direct-fetch
// up to the per-peer cap").
func (sm *SyncManager) maybeDirectFetch(id PeerId, st *peerSyncState) {
	blocks, _ := sm.registry.findNextBlocksToDownload(id, sm.effectiveMaxBlocksPerPeer(), sm.cfg.Chain)
	if len(blocks) == 0 {
		return
	}
	getData := wire.NewMsgGetData()
	for _, idx := range blocks {
		sm.registry.markInFlight(id, idx.Hash, idx)
		_ = getData.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &idx.Hash))
	}
	st.peer.QueueMessage(getData, nil)
}

// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"time"

	"github.com/nyx-project/nyxd/chainhash"
	"github.com/nyx-project/nyxd/peer"
	"github.com/nyx-project/nyxd/wire"
)

// askForCooldown is the per-inv cool-down before a non-block inventory
// item is actually requested (spec.md §4.5 INV "schedule an ask-for with a
// per-inv cool-down").
const askForCooldown = 2 * time.Minute

// handleInv implements spec.md §4.5's INV contract.
func (sm *SyncManager) handleInv(id PeerId, st *peerSyncState, msg *wire.MsgInv) {
	if !sm.enforceHandshake(id, st) {
		return
	}
	if len(msg.InvList) > maxInvSize {
		sm.misbehaveAndReject(id, st, peer.BanScoreSentTooManyInv, "oversize inv")
		return
	}

	for _, iv := range msg.InvList {
		switch iv.Type {
		case wire.InvTypeBlock, wire.InvTypeFilteredBlock:
			updateBlockAvailability(st, sm.cfg.Chain, iv.Hash)
			if sm.filter.AlreadyHave(iv) {
				continue
			}
			// Anchor a GETHEADERS request at this newly announced hash
			// (spec.md §4.5 INV block "send GETHEADERS from our
			// best-known header anchored at this hash").
			locator := wire.NewMsgGetHeaders()
			if tip := sm.cfg.Chain.Tip(); tip != nil {
				_ = locator.AddBlockLocatorHash(&tip.Hash)
			}
			locator.HashStop = iv.Hash
			st.peer.QueueMessage(locator, nil)

			if st.inFlight.Len() < sm.effectiveMaxBlocksPerPeer() {
				sm.tryDirectFetch(id, st, iv.Hash)
			}
		case wire.InvTypeTx, wire.InvTypeStx:
			if sm.cfg.BlocksOnly && !st.whitelisted {
				log.Debugf("ignoring tx inv from blocks-only peer %s", id)
				continue
			}
			if sm.filter.AlreadyHave(iv) {
				continue
			}
			if _, exists := st.askFor[iv.Hash]; exists {
				continue
			}
			st.askFor[iv.Hash] = &askForEntry{inv: *iv, askTime: time.Now().Add(askForCooldown)}
		}
	}
}

func (sm *SyncManager) effectiveMaxBlocksPerPeer() int {
	if sm.cfg.MaxBlocksPerPeer > 0 {
		return sm.cfg.MaxBlocksPerPeer
	}
	return maxBlocksInTransitPerPeer
}

// tryDirectFetch marks a single announced block hash in flight and queues
// its GETDATA, used when the peer has spare in-flight slots (spec.md §4.5
// INV block "if we can direct-fetch and peer has spare slots").
func (sm *SyncManager) tryDirectFetch(id PeerId, st *peerSyncState, hash chainhash.Hash) {
	idx := sm.cfg.Chain.BlockIndexByHash(&hash)
	sm.registry.markInFlight(id, hash, idx)
	getData := wire.NewMsgGetData()
	_ = getData.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &hash))
	st.peer.QueueMessage(getData, nil)
}

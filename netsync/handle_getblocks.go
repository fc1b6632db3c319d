// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"github.com/nyx-project/nyxd/blockchain"
	"github.com/nyx-project/nyxd/chainhash"
	"github.com/nyx-project/nyxd/wire"
)

// maxGetBlocksResults bounds a single GETBLOCKS response (spec.md §4.5
// GETBLOCKS "up to 500 entries").
const maxGetBlocksResults = 500

// locateForkPoint finds the first locator hash on the active chain, or
// returns the chain tip when none is, grounded on the classic Bitcoin locator-walk semantics (spec.md §4.5
// GETBLOCKS "Find the fork-point via the locator").
func locateForkPoint(chain blockchain.Chain, locator []*chainhash.Hash) *blockchain.BlockIndex {
	for _, hash := range locator {
		if idx := chain.BlockIndexByHash(hash); idx != nil && chain.Contains(idx) {
			return idx
		}
	}
	return chain.Tip()
}

// handleGetBlocks implements spec.md §4.5's GETBLOCKS contract.
func (sm *SyncManager) handleGetBlocks(id PeerId, st *peerSyncState, msg *wire.MsgGetBlocks) {
	if !sm.enforceHandshake(id, st) {
		return
	}

	fork := locateForkPoint(sm.cfg.Chain, msg.BlockLocatorHashes)
	if fork == nil {
		return
	}
	tip := sm.cfg.Chain.Tip()
	if tip == nil {
		return
	}

	inv := wire.NewMsgInvSizeHint(maxGetBlocksResults)
	height := fork.Height + 1
	for height <= tip.Height && len(inv.InvList) < maxGetBlocksResults {
		idx := tip.Ancestor(height)
		if idx == nil {
			break
		}
		if idx.Hash == msg.HashStop {
			st.peer.QueueMessage(inv, nil)
			return
		}
		_ = inv.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &idx.Hash))
		height++
	}

	if len(inv.InvList) == maxGetBlocksResults {
		// Remember the last hash so a fresh INV can continue pagination
		// once the peer requests it via GETDATA (spec.md §4.5 GETBLOCKS
		// "At the limit, remember the last hash as hashContinue").
		st.hashContinue = inv.InvList[len(inv.InvList)-1].Hash
	}
	if len(inv.InvList) > 0 {
		st.peer.QueueMessage(inv, nil)
	}
}

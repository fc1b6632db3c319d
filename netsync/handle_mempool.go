// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import "github.com/nyx-project/nyxd/wire"

// mempoolInvBatch bounds a single INV reply to a MEMPOOL request, following
// the teacher's convention of batching trickled inventory rather than
// pushing every hash in one message.
const mempoolInvBatch = 1000

// handleMemPool implements spec.md §4.5's MEMPOOL contract: stream the
// pool's transaction hashes back as one or more batched INV messages.
func (sm *SyncManager) handleMemPool(id PeerId, st *peerSyncState, msg *wire.MsgMemPool) {
	if !sm.enforceHandshake(id, st) {
		return
	}
	if sm.cfg.BlocksOnly {
		return
	}

	hashes := sm.cfg.TxPool.TxHashes()
	for len(hashes) > 0 {
		n := mempoolInvBatch
		if n > len(hashes) {
			n = len(hashes)
		}
		inv := wire.NewMsgInvSizeHint(uint(n))
		for _, h := range hashes[:n] {
			hash := h
			_ = inv.AddInvVect(wire.NewInvVect(wire.InvTypeTx, &hash))
		}
		st.peer.QueueMessage(inv, nil)
		hashes = hashes[n:]
	}
}

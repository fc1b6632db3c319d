// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"github.com/nyx-project/nyxd/chainhash"
	"github.com/nyx-project/nyxd/peer"
	"github.com/nyx-project/nyxd/wire"
)

// handleTx implements spec.md §4.5's TX contract: blocks-only rejection,
// dedup, mempool submission, the orphan re-check cascade, and
// recent-rejects caching on failure.
func (sm *SyncManager) handleTx(id PeerId, st *peerSyncState, msg *wire.MsgTx) {
	if !sm.enforceHandshake(id, st) {
		return
	}
	if sm.cfg.BlocksOnly {
		sm.misbehaveAndReject(id, st, peer.BanScoreTrivial, "unsolicited tx, blocksonly")
		return
	}

	hash := msg.TxHash()
	iv := wire.NewInvVect(wire.InvTypeTx, &hash)
	st.peer.AddKnownInventory(iv)

	if sm.filter.AlreadyHave(iv) {
		return
	}

	sm.acceptTxCascade(id, st, msg, hash)
}

// acceptTxCascade submits tx to the mempool and, on success, walks the
// orphan pool for any children that were waiting on this hash before
// re-submitting them in turn (spec.md §4.3 "children_of" feeds §4.5 TX's
// acceptance cascade).
func (sm *SyncManager) acceptTxCascade(id PeerId, st *peerSyncState, tx *wire.MsgTx, hash chainhash.Hash) {
	accepted, err := sm.cfg.TxPool.MaybeAcceptTransaction(tx)
	if err != nil {
		sm.rejectTx(id, st, tx, hash, err)
		return
	}

	sm.filter.RelayTransaction(sm.registry, hash, nil)
	sm.orphans.Erase(hash)
	sm.retryPendingStx(id, st, hash)
	_ = accepted

	queue := sm.orphans.ChildrenOf(hash, uint32(len(tx.TxOut)))
	for _, childHash := range queue {
		childTx, ok := sm.orphans.Get(childHash)
		if !ok {
			continue
		}
		sm.orphans.Erase(childHash)
		sm.acceptTxCascade(id, st, childTx, childHash)
	}
}

// rejectTx classifies err, stashing tx in the orphan pool on missing
// parents or applying a ban score and recent-rejects caching otherwise
// (spec.md §4.5 TX "On missing inputs" / "On other rule failure").
func (sm *SyncManager) rejectTx(id PeerId, st *peerSyncState, tx *wire.MsgTx, hash chainhash.Hash, err error) {
	ruleErr, ok := sm.asRuleError(err)
	if !ok {
		log.Warnf("unexpected error accepting tx %x from %s: %s", hash, id, err)
		return
	}

	if len(ruleErr.MissingParents) > 0 {
		sm.orphans.Add(tx, id)
		return
	}

	sm.filter.RejectTx(hash, ruleErr.Malleable)
	sendReject(st, wire.CmdTx, ruleErr.RejectCode, ruleErr.Reason, &hash)
	if ruleErr.DoSScore > 0 {
		sm.misbehaveAndReject(id, st, uint32(ruleErr.DoSScore), ruleErr.Reason)
	}
}

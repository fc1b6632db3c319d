// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"github.com/nyx-project/nyxd/chainhash"
	"github.com/nyx-project/nyxd/wire"
)

// handleStx implements spec.md §4.5's STX contract: service-transaction
// pool submission, stashing in a pending-retry map keyed by hash when the
// referenced payment transaction isn't known yet.
func (sm *SyncManager) handleStx(id PeerId, st *peerSyncState, msg *wire.MsgStx) {
	if !sm.enforceHandshake(id, st) {
		return
	}

	hash := msg.StxHash()
	iv := wire.NewInvVect(wire.InvTypeStx, &hash)
	st.peer.AddKnownInventory(iv)

	if sm.filter.AlreadyHave(iv) {
		return
	}

	sm.acceptStx(id, st, msg, hash)
}

// acceptStx submits msg to the service-transaction pool and, when its
// referenced payment isn't known yet, stashes it for a later retry
// (spec.md §4.5 STX "stash in a pending-retry map keyed by hash").
func (sm *SyncManager) acceptStx(id PeerId, st *peerSyncState, msg *wire.MsgStx, hash chainhash.Hash) {
	ok, err := sm.cfg.StxPool.MaybeAcceptStx(msg, msg.PaymentTxHash)
	if err != nil {
		ruleErr, isRule := sm.asRuleError(err)
		if !isRule {
			log.Warnf("unexpected error accepting stx %x from %s: %s", hash, id, err)
			return
		}
		sendReject(st, wire.CmdStx, ruleErr.RejectCode, ruleErr.Reason, &hash)
		if ruleErr.DoSScore > 0 {
			sm.misbehaveAndReject(id, st, uint32(ruleErr.DoSScore), ruleErr.Reason)
		}
		return
	}

	if !ok {
		sm.pendingMtx.Lock()
		sm.pending[hash] = &pendingStx{stx: msg, paymentTxHash: msg.PaymentTxHash}
		sm.pendingMtx.Unlock()
		return
	}

	sm.filter.RelayServiceTransaction(sm.registry, hash, nil)
}

// retryPendingStx re-attempts every stashed service transaction waiting on
// paymentHash, called once that payment transaction is accepted (spec.md
// §4.5 STX's pending-retry map is drained by the TX handler's acceptance
// cascade in the original design; this core drains it eagerly from
// acceptTxCascade's relay point instead, since the pending map is keyed
// the same way).
func (sm *SyncManager) retryPendingStx(id PeerId, st *peerSyncState, paymentHash chainhash.Hash) {
	sm.pendingMtx.Lock()
	var ready []*pendingStx
	for hash, p := range sm.pending {
		if p.paymentTxHash == paymentHash {
			ready = append(ready, p)
			delete(sm.pending, hash)
		}
	}
	sm.pendingMtx.Unlock()

	for _, p := range ready {
		sm.acceptStx(id, st, p.stx, p.stx.StxHash())
	}
}

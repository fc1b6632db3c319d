// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"github.com/nyx-project/nyxd/wire"
)

// handleBlock implements spec.md §4.5's BLOCK contract: record the
// block-source with punish = true unless whitelisted, submit to
// validation, and on failure with a non-internal reject code emit a
// REJECT and apply DoS.
func (sm *SyncManager) handleBlock(id PeerId, st *peerSyncState, msg *wire.MsgBlock) {
	if !sm.enforceHandshake(id, st) {
		return
	}

	hash := msg.BlockHash()
	sm.registry.markReceived(hash)

	punish := !st.whitelisted
	err := sm.cfg.Validator.MaybeAcceptBlock(msg, punish)
	if err == nil {
		return
	}

	ruleErr, ok := sm.asRuleError(err)
	if !ok {
		log.Warnf("unexpected error accepting block %s from %s: %s", hash, id, err)
		return
	}

	sendReject(st, wire.CmdBlock, ruleErr.RejectCode, ruleErr.Reason, &hash)
	if punish && ruleErr.DoSScore > 0 {
		sm.misbehaveAndReject(id, st, uint32(ruleErr.DoSScore), ruleErr.Reason)
	}
}

// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"github.com/nyx-project/nyxd/peer"
	"github.com/nyx-project/nyxd/wire"
)

// requireNodeBloom enforces spec.md §4.5's NODE_BLOOM gating common to
// FILTERLOAD/FILTERADD/FILTERCLEAR: a peer that never advertised
// SFNodeBloom sending any of these three is disconnected outright.
func (sm *SyncManager) requireNodeBloom(id PeerId, st *peerSyncState) bool {
	if st.peer.Services()&wire.SFNodeBloom == 0 {
		sm.misbehaveAndReject(id, st, peer.BanScoreNodeBloomFlagViolation, "bloom filter command without NODE_BLOOM")
		return false
	}
	return true
}

// handleFilterLoad implements spec.md §4.5's FILTERLOAD contract: install a
// bloom filter describing what the peer wants relayed, subject to the
// size/hash-function caps wire.MsgFilterLoad.Validate already enforces.
func (sm *SyncManager) handleFilterLoad(id PeerId, st *peerSyncState, msg *wire.MsgFilterLoad) {
	if !sm.enforceHandshake(id, st) || !sm.requireNodeBloom(id, st) {
		return
	}
	if err := msg.Validate(); err != nil {
		sm.misbehaveAndReject(id, st, peer.BanScoreSevere, err.Error())
		return
	}
	st.filterLoaded = true
}

// handleFilterAdd implements spec.md §4.5's FILTERADD contract: add a
// single data element to the peer's already-installed filter.
func (sm *SyncManager) handleFilterAdd(id PeerId, st *peerSyncState, msg *wire.MsgFilterAdd) {
	if !sm.enforceHandshake(id, st) || !sm.requireNodeBloom(id, st) {
		return
	}
	if err := msg.Validate(); err != nil {
		sm.misbehaveAndReject(id, st, peer.BanScoreSevere, err.Error())
		return
	}
	if !st.filterLoaded {
		sm.misbehaveAndReject(id, st, peer.BanScoreModerate, "filteradd without filterload")
	}
}

// handleFilterClear implements spec.md §4.5's FILTERCLEAR contract:
// disable bloom filtering for the peer entirely.
func (sm *SyncManager) handleFilterClear(id PeerId, st *peerSyncState, msg *wire.MsgFilterClear) {
	if !sm.enforceHandshake(id, st) || !sm.requireNodeBloom(id, st) {
		return
	}
	st.filterLoaded = false
}

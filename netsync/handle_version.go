// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"github.com/nyx-project/nyxd/peer"
	"github.com/nyx-project/nyxd/wire"
)

// wire.MinAcceptableProtocolVersion is enforced by peer.Peer's own handshake
// negotiation (spec.md §4.5 VERSION "Enforce version >= MIN_PROTO_VERSION
// (else disconnect)"); handleVersion only covers the sync-manager side:
// duplicate-VERSION rejection and post-handshake bookkeeping.

// handleVersion implements spec.md §4.5's VERSION contract: reject a
// second VERSION, otherwise mark the peer's sync state successfully past
// the handshake and, for outbound peers, kick off address exchange.
func (sm *SyncManager) handleVersion(id PeerId, st *peerSyncState, msg *wire.MsgVersion) {
	if st.successfullyConnected {
		sendReject(st, wire.CmdVersion, wire.RejectDuplicate, "duplicate version message", nil)
		sm.misbehaveAndReject(id, st, peer.BanScoreDuplicateVersion, "duplicate version")
		return
	}

	st.successfullyConnected = true
	st.syncCandidate = st.peer.Services()&wire.SFNodeNetwork != 0

	if !st.inbound {
		// Outbound peers are asked for more peers with GETADDR when our
		// address book is thin. Our own address is not advertised here.
		if sm.cfg.AddrManager != nil && sm.cfg.AddrManager.NeedMoreAddresses() {
			st.peer.QueueMessage(wire.NewMsgGetAddr(), nil)
		}
	}
}

// handleVerAck implements spec.md §4.5's VERACK contract: peer.Peer has
// already recorded the verack, and for a modern-enough peer this requests
// headers-first announcement.
func (sm *SyncManager) handleVerAck(id PeerId, st *peerSyncState, msg *wire.MsgVerAck) {
	if st.peer.ProtocolVersion() >= wire.SendHeadersVersion {
		st.peer.QueueMessage(wire.NewMsgSendHeaders(), nil)
	}
}

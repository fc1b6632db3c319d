// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"github.com/nyx-project/nyxd/chainhash"
	"github.com/nyx-project/nyxd/peer"
	"github.com/nyx-project/nyxd/wire"
)

// chainHashZero is the zero chainhash.Hash, used to clear
// peerSyncState.hashContinue once its pagination continuation has fired.
var chainHashZero chainhash.Hash

// listenersFor builds the peer.MessageListeners set for a newly allocated
// PeerId, one closure per inbound message kind, following SPEC_FULL.md
// §4.5's "one handler per message kind" dispatcher contract. Each closure
// resolves the sync state for id and hands off to the matching
// netsync/handle_*.go function.
func (sm *SyncManager) listenersFor(id PeerId) *peer.MessageListeners {
	call := func(fn func(st *peerSyncState)) {
		st := sm.registry.get(id)
		if st == nil {
			return
		}
		sm.mtx.Lock()
		defer sm.mtx.Unlock()
		fn(st)
	}

	return &peer.MessageListeners{
		OnVersion: func(p *peer.Peer, msg *wire.MsgVersion) {
			call(func(st *peerSyncState) { sm.handleVersion(id, st, msg) })
		},
		OnVerAck: func(p *peer.Peer, msg *wire.MsgVerAck) {
			call(func(st *peerSyncState) { sm.handleVerAck(id, st, msg) })
		},
		OnGetAddr: func(p *peer.Peer, msg *wire.MsgGetAddr) {
			call(func(st *peerSyncState) { sm.handleGetAddr(id, st, msg) })
		},
		OnAddr: func(p *peer.Peer, msg *wire.MsgAddr) {
			call(func(st *peerSyncState) { sm.handleAddr(id, st, msg) })
		},
		OnSendHeaders: func(p *peer.Peer, msg *wire.MsgSendHeaders) {
			call(func(st *peerSyncState) { sm.handleSendHeaders(id, st, msg) })
		},
		OnInv: func(p *peer.Peer, msg *wire.MsgInv) {
			call(func(st *peerSyncState) { sm.handleInv(id, st, msg) })
		},
		OnGetData: func(p *peer.Peer, msg *wire.MsgGetData) {
			call(func(st *peerSyncState) { sm.handleGetData(id, st, msg) })
		},
		OnNotFound: func(p *peer.Peer, msg *wire.MsgNotFound) {
			call(func(st *peerSyncState) { sm.handleNotFound(id, st, msg) })
		},
		OnGetBlocks: func(p *peer.Peer, msg *wire.MsgGetBlocks) {
			call(func(st *peerSyncState) { sm.handleGetBlocks(id, st, msg) })
		},
		OnGetHeaders: func(p *peer.Peer, msg *wire.MsgGetHeaders) {
			call(func(st *peerSyncState) { sm.handleGetHeaders(id, st, msg) })
		},
		OnHeaders: func(p *peer.Peer, msg *wire.MsgHeaders) {
			call(func(st *peerSyncState) { sm.handleHeaders(id, st, msg) })
		},
		OnTx: func(p *peer.Peer, msg *wire.MsgTx) {
			call(func(st *peerSyncState) { sm.handleTx(id, st, msg) })
		},
		OnStx: func(p *peer.Peer, msg *wire.MsgStx) {
			call(func(st *peerSyncState) { sm.handleStx(id, st, msg) })
		},
		OnBlock: func(p *peer.Peer, msg *wire.MsgBlock) {
			call(func(st *peerSyncState) { sm.handleBlock(id, st, msg) })
		},
		OnMemPool: func(p *peer.Peer, msg *wire.MsgMemPool) {
			call(func(st *peerSyncState) { sm.handleMemPool(id, st, msg) })
		},
		OnFilterLoad: func(p *peer.Peer, msg *wire.MsgFilterLoad) {
			call(func(st *peerSyncState) { sm.handleFilterLoad(id, st, msg) })
		},
		OnFilterAdd: func(p *peer.Peer, msg *wire.MsgFilterAdd) {
			call(func(st *peerSyncState) { sm.handleFilterAdd(id, st, msg) })
		},
		OnFilterClear: func(p *peer.Peer, msg *wire.MsgFilterClear) {
			call(func(st *peerSyncState) { sm.handleFilterClear(id, st, msg) })
		},
		OnReject: func(p *peer.Peer, msg *wire.MsgReject) {
			call(func(st *peerSyncState) { sm.handleReject(id, st, msg) })
		},
	}
}

// misbehaveAndReject applies a misbehavior score, disconnecting st's peer
// immediately if the ban threshold is crossed (spec.md §4.1 "misbehave",
// §7 "Banning").
func (sm *SyncManager) misbehaveAndReject(id PeerId, st *peerSyncState, score uint32, reason string) {
	if sm.misbehave(id, score, reason) {
		st.shouldBan = true
		log.Warnf("peer %s crossed ban threshold (%s), disconnecting", id, reason)
		st.peer.Disconnect()
	}
}

// sendReject constructs and queues a REJECT for the given command/code/
// reason, optionally against a specific hash (spec.md §6 REJECT). Internal
// reject codes are never placed on the wire (spec.md §7 "unless the reject
// code is internal").
func sendReject(st *peerSyncState, command string, code wire.RejectCode, reason string, hash *chainhash.Hash) {
	if !code.IsWireSendable() {
		return
	}
	var h chainhash.Hash
	if hash != nil {
		h = *hash
	}
	st.peer.PushRejectMsg(command, code, reason, &h, false)
}

// enforceHandshake returns false and applies +1 misbehavior if a
// non-VERSION message arrives before the handshake has produced a
// protocol version (spec.md §4.5 "Any non-VERSION message arriving with
// peer.version == 0 triggers +1 misbehavior").
func (sm *SyncManager) enforceHandshake(id PeerId, st *peerSyncState) bool {
	if st.peer.ProtocolVersion() == 0 {
		sm.misbehaveAndReject(id, st, peer.BanScoreNonVersionFirstMessage, "message before version")
		return false
	}
	return true
}

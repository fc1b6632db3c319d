// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"time"

	"github.com/nyx-project/nyxd/peer"
	"github.com/nyx-project/nyxd/wire"
)

// maxAddrPerAddrMsg mirrors spec.md §4.5 ADDR "Reject payloads over 1000
// entries (+20)".
const maxAddrPerAddrMsg = 1000

// handleAddr implements spec.md §4.5's ADDR contract.
func (sm *SyncManager) handleAddr(id PeerId, st *peerSyncState, msg *wire.MsgAddr) {
	if !sm.enforceHandshake(id, st) {
		return
	}
	if len(msg.AddrList) > maxAddrPerAddrMsg {
		sm.misbehaveAndReject(id, st, peer.BanScoreSentTooManyAddresses, "too many addresses")
		return
	}

	now := time.Now()
	for _, na := range msg.AddrList {
		// Clamp nonsensical timestamps (spec.md §4.5 ADDR "Clamp
		// nonsensical timestamps").
		if na.Timestamp.After(now.Add(10*time.Minute)) || na.Timestamp.IsZero() {
			na.Timestamp = now.Add(-5 * 24 * time.Hour)
		}
		if sm.cfg.AddrManager != nil {
			sm.cfg.AddrManager.AddAddress(na, st.peer.NA())
		}
		sm.filter.RelayAddress(sm.registry, na, true)
	}

	// Stop asking for more addresses once the first response is received
	// (spec.md §4.5 ADDR "Stop asking for more addresses once the first
	// response is received").
	st.getAddrSent = true
}

// handleGetAddr implements spec.md §4.5's GETADDR contract: inbound only,
// answered once per connection with a sampled list from the address
// manager.
func (sm *SyncManager) handleGetAddr(id PeerId, st *peerSyncState, msg *wire.MsgGetAddr) {
	if !sm.enforceHandshake(id, st) {
		return
	}
	if !st.inbound || st.getAddrSent {
		return
	}
	st.getAddrSent = true

	if sm.cfg.AddrManager == nil {
		return
	}
	addrs := sm.cfg.AddrManager.AddressCache(false)
	out := wire.NewMsgAddr()
	for _, na := range addrs {
		if err := out.AddAddress(na); err != nil {
			break
		}
	}
	st.peer.QueueMessage(out, nil)
}

// handleSendHeaders implements spec.md §4.5's SENDHEADERS contract.
func (sm *SyncManager) handleSendHeaders(id PeerId, st *peerSyncState, msg *wire.MsgSendHeaders) {
	st.preferHeaders = true
	st.peer.SetPrefersHeaders()
}

// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"time"

	"github.com/nyx-project/nyxd/chainhash"
	"github.com/nyx-project/nyxd/wire"
)

// addrBroadcastInterval approximates spec.md §4.6 step 4's Poisson-timed
// address refresh; a fixed interval stands in for the exponential-delay
// distribution the original implementation draws from, since this core
// has no dedicated random-timer collaborator (spec.md §1 Non-goals).
const addrBroadcastInterval = 30 * time.Second

// maxAddrSendPerMsg caps a single outbound ADDR drain, matching the
// inbound limit (spec.md §5 "Address payload: 1000 per message").
const maxAddrSendPerMsg = 1000

// outboundTick runs spec.md §4.6's per-peer periodic work. Ping (step 1)
// is already driven by peer.Peer's own pingHandler goroutine, and tx/stx
// trickle (the second half of step 8) is already driven by peer.Peer's
// own queueHandler; outboundTick covers everything else this core owns.
func (sm *SyncManager) outboundTick(st *peerSyncState) {
	if !sm.mtx.TryLock() {
		// Contended: skip this tick rather than block (spec.md §4.6 step 2).
		return
	}
	defer sm.mtx.Unlock()

	if !st.peer.Connected() {
		return
	}

	if sm.flushBanState(st) {
		return
	}

	sm.broadcastAddrQueue(st)
	sm.maybeStartSync(st)
	sm.announceBlocks(st)

	for _, stalled := range sm.registry.checkStalls(sm.targetBlockSpacing()) {
		if s := sm.registry.get(stalled); s != nil {
			s.peer.Disconnect()
		}
	}

	sm.dispatchBlockGetData(st)
	sm.drainAskFor(st)
}

// flushBanState disconnects st's peer if a prior misbehavior call crossed
// the ban threshold (spec.md §4.6 step 3 "if should_ban, disconnect").
// REJECTs are pushed synchronously at the point of misbehavior in this
// core rather than queued, so there is nothing else to flush here.
func (sm *SyncManager) flushBanState(st *peerSyncState) bool {
	if !st.shouldBan {
		return false
	}
	st.peer.Disconnect()
	return true
}

// broadcastAddrQueue implements spec.md §4.6 step 4: drain addrSendQueue
// in ≤1000-entry ADDR messages no more often than addrBroadcastInterval.
func (sm *SyncManager) broadcastAddrQueue(st *peerSyncState) {
	if len(st.addrSendQueue) == 0 {
		return
	}
	if !st.lastAddrSend.IsZero() && time.Since(st.lastAddrSend) < addrBroadcastInterval {
		return
	}
	st.lastAddrSend = time.Now()

	for len(st.addrSendQueue) > 0 {
		n := maxAddrSendPerMsg
		if n > len(st.addrSendQueue) {
			n = len(st.addrSendQueue)
		}
		msg := wire.NewMsgAddr()
		for _, addr := range st.addrSendQueue[:n] {
			if err := msg.AddAddress(addr); err != nil {
				break
			}
		}
		st.peer.QueueMessage(msg, nil)
		st.addrSendQueue = st.addrSendQueue[n:]
	}
}

// maybeStartSync implements spec.md §4.6 step 5: start header-sync on a
// qualifying peer (preferred download, or whitelisted) if no peer is
// currently syncing.
func (sm *SyncManager) maybeStartSync(st *peerSyncState) {
	if sm.hasSync || st.syncStarted || !st.successfullyConnected {
		return
	}
	if !st.preferredDownload && !st.whitelisted {
		return
	}
	if !st.syncCandidate {
		return
	}

	tip := sm.cfg.Chain.Tip()
	locator := wire.NewMsgGetHeaders()
	if tip != nil {
		_ = locator.AddBlockLocatorHash(&tip.Hash)
	}
	st.peer.QueueMessage(locator, nil)

	st.syncStarted = true
	sm.syncPeer = st.id
	sm.hasSync = true
}

// announceBlocks implements spec.md §4.6 step 7: emit HEADERS for the
// queued blocks to peers that prefer headers, falling back to an INV of the
// tip when a queued hash is unknown or the queued hashes don't chain onto
// one another. The number of headers sent is not capped, and whether the
// first header connects to what the peer already knows is not checked.
func (sm *SyncManager) announceBlocks(st *peerSyncState) {
	if len(st.blocksToAnnounce) == 0 {
		return
	}
	defer func() { st.blocksToAnnounce = nil }()

	if !st.preferHeaders {
		tip := sm.cfg.Chain.Tip()
		if tip == nil {
			return
		}
		inv := wire.NewMsgInv()
		_ = inv.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &tip.Hash))
		st.peer.QueueMessage(inv, nil)
		return
	}

	headers := wire.NewMsgHeaders()
	ok := true
	var prevHash *chainhash.Hash
	for _, hash := range st.blocksToAnnounce {
		idx := sm.cfg.Chain.BlockIndexByHash(&hash)
		if idx == nil {
			ok = false
			break
		}
		if prevHash != nil && idx.Header.PrevBlock != *prevHash {
			ok = false
			break
		}
		hdr := idx.Header
		if err := headers.AddBlockHeader(&hdr); err != nil {
			ok = false
			break
		}
		h := hash
		prevHash = &h
	}
	if !ok || len(headers.Headers) == 0 {
		tip := sm.cfg.Chain.Tip()
		if tip == nil {
			return
		}
		inv := wire.NewMsgInv()
		_ = inv.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &tip.Hash))
		st.peer.QueueMessage(inv, nil)
		return
	}

	st.peer.QueueMessage(headers, nil)
	if last := headers.Headers[len(headers.Headers)-1]; last != nil {
		hash := last.BlockHash()
		if idx := sm.cfg.Chain.BlockIndexByHash(&hash); idx != nil {
			st.bestHeaderSent = idx
		}
	}
}

// targetBlockSpacing is the expected inter-block interval used to size
// the stall-timeout check (spec.md §4.4 "BLOCK_STALLING_TIMEOUT"). This
// core's chain collaborator doesn't expose network parameters beyond
// chaincfg.Params, so a conservative default stands in when unset.
func (sm *SyncManager) targetBlockSpacing() time.Duration {
	if sm.cfg.ChainParams != nil && sm.cfg.ChainParams.TargetTimePerBlock > 0 {
		return sm.cfg.ChainParams.TargetTimePerBlock
	}
	return blockStallingTimeout
}

// dispatchBlockGetData implements spec.md §4.6 step 10: issue block
// GETDATAs up to the peer's cap by calling the download scheduler.
func (sm *SyncManager) dispatchBlockGetData(st *peerSyncState) {
	if !st.syncStarted && !st.preferredDownload {
		return
	}
	blocks, staller := sm.registry.findNextBlocksToDownload(st.id, sm.effectiveMaxBlocksPerPeer(), sm.cfg.Chain)
	if len(blocks) == 0 {
		return
	}

	getData := wire.NewMsgGetData()
	for _, idx := range blocks {
		sm.registry.markInFlight(st.id, idx.Hash, idx)
		_ = getData.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &idx.Hash))
	}
	st.peer.QueueMessage(getData, nil)

	if staller != (PeerId{}) && staller != st.id {
		if s := sm.registry.get(staller); s != nil && s.stallingSince.IsZero() {
			s.stallingSince = time.Now()
		}
	}
}

// drainAskFor implements spec.md §4.6 step 11: request every non-block inv
// whose cool-down has elapsed.
func (sm *SyncManager) drainAskFor(st *peerSyncState) {
	if len(st.askFor) == 0 {
		return
	}
	now := time.Now()
	getData := wire.NewMsgGetData()
	for hash, entry := range st.askFor {
		if entry.askTime.After(now) {
			continue
		}
		iv := entry.inv
		_ = getData.AddInvVect(&iv)
		delete(st.askFor, hash)
	}
	if len(getData.InvList) > 0 {
		st.peer.QueueMessage(getData, nil)
	}
}

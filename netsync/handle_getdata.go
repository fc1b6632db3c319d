// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import "github.com/nyx-project/nyxd/wire"

// maxGetDataPerPass bounds a single serving pass, standing in for "stopping
// when the outbound send buffer is saturated" (spec.md §4.5.1) since this
// core doesn't own the transport's actual buffer occupancy.
const maxGetDataPerPass = 128

// handleGetData implements spec.md §4.5's GETDATA contract: append to the
// peer's pending queue, then drain it via the serving routine.
func (sm *SyncManager) handleGetData(id PeerId, st *peerSyncState, msg *wire.MsgGetData) {
	if !sm.enforceHandshake(id, st) {
		return
	}
	st.getDataQueue = append(st.getDataQueue, msg.InvList...)
	sm.serveGetData(st)
}

// handleNotFound releases the in-flight entry of every block the peer
// reports as not found, so the download scheduler can request it again.
// Other inventory types in a NOTFOUND are ignored.
func (sm *SyncManager) handleNotFound(id PeerId, st *peerSyncState, msg *wire.MsgNotFound) {
	for _, iv := range msg.InvList {
		if iv.Type == wire.InvTypeBlock {
			sm.registry.markReceived(iv.Hash)
		}
	}
}

// serveGetData implements spec.md §4.5.1: a single pass over the pending
// queue, resolving each inv from the appropriate collaborator and
// collecting misses into a NOTFOUND.
func (sm *SyncManager) serveGetData(st *peerSyncState) {
	if len(st.getDataQueue) == 0 {
		return
	}

	notFound := wire.NewMsgNotFound()
	servedBlock := false
	n := 0
	for n < len(st.getDataQueue) {
		iv := st.getDataQueue[n]
		n++
		if n > maxGetDataPerPass {
			// Leave this inv queued for the next pass.
			n--
			break
		}

		switch iv.Type {
		case wire.InvTypeBlock, wire.InvTypeFilteredBlock:
			if servedBlock {
				// Stop after one block per pass (spec.md §4.5.1
				// "Stop after one block per pass (ordering
				// guarantee)").
				n--
				goto drained
			}
			idx := sm.cfg.Chain.BlockIndexByHash(&iv.Hash)
			if idx == nil || !sm.cfg.Chain.Contains(idx) {
				_ = notFound.AddInvVect(iv)
				continue
			}
			servedBlock = true
			if st.hashContinue == iv.Hash {
				tip := sm.cfg.Chain.Tip()
				if tip != nil {
					inv := wire.NewMsgInv()
					_ = inv.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &tip.Hash))
					st.peer.QueueMessage(inv, nil)
				}
				st.hashContinue = chainHashZero
			}
		case wire.InvTypeTx:
			data, ok := sm.filter.relay.Get(iv.Hash)
			if !ok {
				_ = notFound.AddInvVect(iv)
				continue
			}
			_ = data // a real transport would deserialize+send; this core
			// only tracks reachability of the relay map (spec.md §1
			// Non-goals "byte-level framing").
		case wire.InvTypeStx:
			_ = notFound.AddInvVect(iv)
		}
	}

drained:
	st.getDataQueue = st.getDataQueue[n:]
	if len(notFound.InvList) > 0 {
		st.peer.QueueMessage(notFound, nil)
	}
}

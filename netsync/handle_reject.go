// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import "github.com/nyx-project/nyxd/wire"

// handleReject implements spec.md §4.5's REJECT contract: debug-log only,
// never replied to, so a reject of a reject can't loop.
func (sm *SyncManager) handleReject(id PeerId, st *peerSyncState, msg *wire.MsgReject) {
	log.Debugf("peer %s rejected %s: %s (%s)", id, msg.Cmd, msg.Reason, msg.Code)
}

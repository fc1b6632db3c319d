// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import "github.com/nyx-project/nyxd/wire"

// maxHeadersResults bounds a HEADERS response (spec.md §5 "MAX_HEADERS_RESULTS
// (2000)").
const maxHeadersResults = 2000

// handleGetHeaders implements spec.md §4.5's GETHEADERS contract.
func (sm *SyncManager) handleGetHeaders(id PeerId, st *peerSyncState, msg *wire.MsgGetHeaders) {
	if !sm.enforceHandshake(id, st) {
		return
	}
	// In initial block download and the peer isn't whitelisted: ignore
	// (spec.md §4.5 GETHEADERS "If in initial block download and the peer
	// is not whitelisted, ignore").
	tip := sm.cfg.Chain.Tip()
	if tip == nil {
		return
	}
	if sm.inInitialBlockDownload() && !st.whitelisted {
		return
	}

	fork := locateForkPoint(sm.cfg.Chain, msg.BlockLocatorHashes)
	if fork == nil {
		fork = tip
	}

	headers := wire.NewMsgHeaders()
	last := fork
	height := fork.Height + 1
	for height <= tip.Height && len(headers.Headers) < maxHeadersResults {
		idx := tip.Ancestor(height)
		if idx == nil {
			break
		}
		if idx.Hash == msg.HashStop {
			last = idx
			break
		}
		hdr := idx.Header
		_ = headers.AddBlockHeader(&hdr)
		last = idx
		height++
	}

	st.bestHeaderSent = last
	st.peer.QueueMessage(headers, nil)
}

// inInitialBlockDownload is a coarse stand-in for the chain/validator
// collaborator's IBD determination, which this core doesn't own (spec.md
// §1 Non-goals "consensus rule evaluation").
func (sm *SyncManager) inInitialBlockDownload() bool {
	return false
}

// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockchain is the narrow collaborator interface the sync core
// talks to for chain state: header metadata (height, chain work, validity
// status), the active tip, and ancestor lookups used by the block download
// scheduler's last-common-ancestor walk. Consensus rule evaluation and
// block persistence are out of scope and live behind this interface in a
// real deployment.
package blockchain

import (
	"math/big"

	"github.com/nyx-project/nyxd/chainhash"
	"github.com/nyx-project/nyxd/wire"
)

// Status is a bitfield of flags describing the validation state of a
// block known to the index, mirroring the btcd/Bitcoin Core
// BLOCK_VALID/BLOCK_FAILED scheme.
type Status uint32

// StatusNone indicates a header is known but nothing about its validity
// or data has been determined.
const StatusNone Status = 0

const (
	// StatusDataStored indicates the full block body (not just the
	// header) has been downloaded and stored.
	StatusDataStored Status = 1 << iota

	// StatusValid indicates the block has passed validation.
	StatusValid

	// StatusValidateFailed indicates the block itself failed validation.
	StatusValidateFailed

	// StatusInvalidAncestor indicates an ancestor of this block failed
	// validation, so this block can never become valid either.
	StatusInvalidAncestor
)

// KnownInvalid reports whether this status marks the block (or one of its
// ancestors) as permanently invalid.
func (s Status) KnownInvalid() bool {
	return s&(StatusValidateFailed|StatusInvalidAncestor) != 0
}

// BlockIndex is the chain/validator collaborator's view of a single
// header: its position in the chain, accumulated proof of work, and a
// parent pointer plus a skip-list pointer used to walk ancestors in
// O(log n) during the download scheduler's FindNextBlocksToDownload
// (spec.md §4.4).
type BlockIndex struct {
	Hash       chainhash.Hash
	Header     wire.BlockHeader
	Height     int32
	ChainWork  *big.Int
	Status     Status
	Parent     *BlockIndex
	skip       *BlockIndex
}

// NewBlockIndex returns a BlockIndex for header at the given height,
// linked to parent and with its skip-list pointer computed.
func NewBlockIndex(header *wire.BlockHeader, height int32, parent *BlockIndex) *BlockIndex {
	bi := &BlockIndex{
		Hash:      header.BlockHash(),
		Header:    *header,
		Height:    height,
		ChainWork: big.NewInt(0),
		Parent:    parent,
	}
	if parent != nil {
		bi.ChainWork = new(big.Int).Add(parent.ChainWork, workFromBits(header.Bits))
	}
	bi.skip = bi.computeSkip()
	return bi
}

// workFromBits is a simplified proof-of-work-to-work conversion; consensus
// carries the exact difficulty formula, this core only needs a monotonic
// ordering to compare candidate tips.
func workFromBits(bits uint32) *big.Int {
	if bits == 0 {
		return big.NewInt(1)
	}
	return big.NewInt(int64(bits))
}

// Ancestor returns the ancestor of this block at the given height, or nil
// if height is out of range. It uses the skip-list pointer chain so the
// walk is logarithmic in the distance travelled, per the "ancestor
// skip-lists" requirement in spec.md §4.4.
func (bi *BlockIndex) Ancestor(height int32) *BlockIndex {
	if height < 0 || height > bi.Height {
		return nil
	}
	walk := bi
	for walk.Height > height {
		heightSkip := getSkipHeight(walk.Height)
		heightSkipPrev := getSkipHeight(walk.Height - 1)
		if walk.skip != nil && (heightSkip == height ||
			(heightSkip > height && !(heightSkipPrev < heightSkip-2 && heightSkipPrev >= height))) {
			walk = walk.skip
		} else {
			walk = walk.Parent
		}
	}
	return walk
}

// computeSkip determines the skip-list pointer for this block following
// the btcd/Bitcoin Core CBlockIndex::BuildSkip algorithm: it points to the
// ancestor at GetSkipHeight(height), a height chosen to make repeated
// skip-list hops amortize to O(log n).
func (bi *BlockIndex) computeSkip() *BlockIndex {
	if bi.Parent == nil {
		return nil
	}
	skipHeight := getSkipHeight(bi.Height)
	return bi.Parent.Ancestor(skipHeight)
}

func getSkipHeight(height int32) int32 {
	if height < 2 {
		return 0
	}
	if height&1 != 0 {
		return invertLowestOne(invertLowestOne(height-1)) + 1
	}
	return invertLowestOne(height)
}

func invertLowestOne(height int32) int32 {
	return height & (height - 1)
}

// LastCommonAncestor walks back from a and b to their most recent shared
// ancestor, as used to (re)seed a peer's pindex_last_common_block
// (spec.md §4.4 step 3).
func LastCommonAncestor(a, b *BlockIndex) *BlockIndex {
	if a == nil || b == nil {
		return nil
	}
	if a.Height > b.Height {
		a = a.Ancestor(b.Height)
	} else if b.Height > a.Height {
		b = b.Ancestor(a.Height)
	}
	for a != b && a != nil && b != nil {
		a = a.Parent
		b = b.Parent
	}
	if a == b {
		return a
	}
	return nil
}

// Chain is the narrow view of the active chain the sync core needs: the
// current tip, and lookup of known headers by hash.
type Chain interface {
	// Tip returns the BlockIndex for the current active chain tip.
	Tip() *BlockIndex

	// BlockIndexByHash returns the BlockIndex known for hash, or nil if
	// the hash is unknown to the chain/validator collaborator.
	BlockIndexByHash(hash *chainhash.Hash) *BlockIndex

	// Contains reports whether bi is on the current active chain (as
	// opposed to a side branch the node has a header for but has not
	// adopted).
	Contains(bi *BlockIndex) bool
}

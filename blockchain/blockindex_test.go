// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"

	"github.com/nyx-project/nyxd/wire"
)

func chainOfLength(n int32) *BlockIndex {
	var tip *BlockIndex
	for h := int32(0); h < n; h++ {
		hdr := &wire.BlockHeader{Version: 1, Bits: 1}
		if tip != nil {
			hdr.PrevBlock = tip.Hash
		}
		tip = NewBlockIndex(hdr, h, tip)
	}
	return tip
}

func TestAncestorWalksBack(t *testing.T) {
	tip := chainOfLength(200)
	for _, h := range []int32{0, 1, 50, 127, 128, 199} {
		anc := tip.Ancestor(h)
		if anc == nil {
			t.Fatalf("Ancestor(%d) returned nil", h)
		}
		if anc.Height != h {
			t.Fatalf("Ancestor(%d).Height = %d", h, anc.Height)
		}
	}
}

func TestAncestorOutOfRange(t *testing.T) {
	tip := chainOfLength(10)
	if tip.Ancestor(-1) != nil {
		t.Fatal("expected nil for negative height")
	}
	if tip.Ancestor(11) != nil {
		t.Fatal("expected nil for height beyond tip")
	}
}

func TestLastCommonAncestor(t *testing.T) {
	shared := chainOfLength(50)

	hdrA := &wire.BlockHeader{Version: 1, Bits: 1, PrevBlock: shared.Hash}
	a := NewBlockIndex(hdrA, shared.Height+1, shared)

	hdrB := &wire.BlockHeader{Version: 1, Bits: 2, PrevBlock: shared.Hash}
	b := NewBlockIndex(hdrB, shared.Height+1, shared)

	lca := LastCommonAncestor(a, b)
	if lca == nil || lca.Hash != shared.Hash {
		t.Fatalf("LastCommonAncestor mismatch: got %+v, want %+v", lca, shared)
	}
}

func TestChainWorkAccumulates(t *testing.T) {
	tip := chainOfLength(5)
	if tip.ChainWork.Sign() <= 0 {
		t.Fatalf("expected positive accumulated work, got %v", tip.ChainWork)
	}
}

// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import "testing"

// TestGenesisHashesDistinct makes sure the hard-coded genesis blocks for
// each network hash to distinct values.
func TestGenesisHashesDistinct(t *testing.T) {
	hashes := map[string]bool{
		genesisHash.String():        true,
		testNetGenesisHash.String(): true,
		regtestGenesisHash.String(): true,
		simNetGenesisHash.String():  true,
	}
	if len(hashes) != 4 {
		t.Fatalf("expected 4 distinct genesis hashes, got %d", len(hashes))
	}
}

// TestRegisterDuplicate checks that registering an already-registered
// network returns ErrDuplicateNet.
func TestRegisterDuplicate(t *testing.T) {
	if err := Register(&MainNetParams); err != ErrDuplicateNet {
		t.Fatalf("expected ErrDuplicateNet, got %v", err)
	}
}

// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"

	"github.com/nyx-project/nyxd/chainhash"
)

// InvType represents the allowed types of inventory vectors, per spec.md §6.
type InvType uint32

// These constants define the various supported inventory vector types.
const (
	InvTypeError InvType = 0
	InvTypeTx    InvType = 1
	InvTypeBlock InvType = 2
	// InvTypeFilteredBlock requests a merkleblock instead of a full block.
	InvTypeFilteredBlock InvType = 3
	// InvTypeStx is the service-transaction inventory extension (spec.md §6).
	InvTypeStx InvType = 0x40000001
)

// invTypeStrings is a map of inventory types back to their constant names for
// pretty printing.
var invTypeStrings = map[InvType]string{
	InvTypeError:         "ERROR",
	InvTypeTx:            "MSG_TX",
	InvTypeBlock:         "MSG_BLOCK",
	InvTypeFilteredBlock: "MSG_FILTERED_BLOCK",
	InvTypeStx:           "MSG_STX",
}

// String implements the Stringer interface.
func (invtype InvType) String() string {
	if s, ok := invTypeStrings[invtype]; ok {
		return s
	}
	return fmt.Sprintf("Unknown InvType (%d)", uint32(invtype))
}

// InvVect defines a bitcoin inventory vector which is used to describe data,
// as specified by the InvType, that a peer wants, has, or does not have to
// another peer.
type InvVect struct {
	Type InvType
	Hash chainhash.Hash
}

// NewInvVect returns a new InvVect using the provided type and hash.
func NewInvVect(typ InvType, hash *chainhash.Hash) *InvVect {
	return &InvVect{
		Type: typ,
		Hash: *hash,
	}
}

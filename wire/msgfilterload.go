// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "github.com/pkg/errors"

// BloomUpdateType specifies how the filter is updated as matched items are
// discovered, mirroring the BIP37 nFlags byte.
type BloomUpdateType uint8

const (
	// BloomUpdateNone never updates the filter with outpoints.
	BloomUpdateNone BloomUpdateType = 0

	// BloomUpdateAll always updates the filter with outpoints.
	BloomUpdateAll BloomUpdateType = 1

	// BloomUpdateP2PubkeyOnly only updates the filter with outpoints that
	// are pay-to-pubkey or pay-to-multisig.
	BloomUpdateP2PubkeyOnly BloomUpdateType = 2
)

// MsgFilterLoad implements the Message interface and represents a
// filterload message, used to request the receiving peer install a bloom
// filter describing what transactions and blocks to relay to the sender
// (spec.md §4.5 FILTERLOAD, NODE_BLOOM-gated).
type MsgFilterLoad struct {
	Filter    []byte
	HashFuncs uint32
	Tweak     uint32
	Flags     BloomUpdateType
}

// Command returns the protocol command string for the message.
func (msg *MsgFilterLoad) Command() string {
	return CmdFilterLoad
}

// Validate checks the message against the size and hash function limits
// imposed on bloom filters (spec.md §5 resource caps).
func (msg *MsgFilterLoad) Validate() error {
	if len(msg.Filter) > MaxFilterLoadFilterSize {
		return errors.Errorf("filterload filter size %d exceeds max %d", len(msg.Filter), MaxFilterLoadFilterSize)
	}
	if msg.HashFuncs > MaxFilterLoadHashFuncs {
		return errors.Errorf("filterload hash func count %d exceeds max %d", msg.HashFuncs, MaxFilterLoadHashFuncs)
	}
	return nil
}

// NewMsgFilterLoad returns a new filterload message that conforms to the
// Message interface.
func NewMsgFilterLoad(filter []byte, hashFuncs uint32, tweak uint32, flags BloomUpdateType) *MsgFilterLoad {
	return &MsgFilterLoad{
		Filter:    filter,
		HashFuncs: hashFuncs,
		Tweak:     tweak,
		Flags:     flags,
	}
}

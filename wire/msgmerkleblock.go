// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "github.com/nyx-project/nyxd/chainhash"

// MsgMerkleBlock implements the Message interface and represents a
// merkleblock message, sent in place of a full block to a peer that has
// installed a bloom filter, along with a merkle proof of the matched
// transactions (spec.md §4.5 BLOCK, filter-matched delivery path).
type MsgMerkleBlock struct {
	Header       BlockHeader
	Transactions uint32
	Hashes       []*chainhash.Hash
	Flags        []byte
}

// AddTxHash adds a new transaction hash to the merkle block.
func (msg *MsgMerkleBlock) AddTxHash(hash *chainhash.Hash) error {
	msg.Hashes = append(msg.Hashes, hash)
	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgMerkleBlock) Command() string {
	return CmdMerkleBlock
}

// NewMsgMerkleBlock returns a new merkleblock message that conforms to the
// Message interface.
func NewMsgMerkleBlock(bh *BlockHeader) *MsgMerkleBlock {
	return &MsgMerkleBlock{
		Header:       *bh,
		Transactions: 0,
		Hashes:       make([]*chainhash.Hash, 0),
		Flags:        make([]byte, 0),
	}
}

// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "github.com/nyx-project/nyxd/chainhash"

// MsgBlock implements the Message interface and represents a block message,
// used to deliver block data in response to a getdata request or as part of
// unsolicited announcement (spec.md §4.5 BLOCK).
type MsgBlock struct {
	Header       BlockHeader
	Transactions []*MsgTx
}

// AddTransaction adds a transaction to the message.
func (msg *MsgBlock) AddTransaction(tx *MsgTx) error {
	msg.Transactions = append(msg.Transactions, tx)
	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgBlock) Command() string {
	return CmdBlock
}

// BlockHash returns the block identifier hash for this block.
func (msg *MsgBlock) BlockHash() chainhash.Hash {
	return msg.Header.BlockHash()
}

// NewMsgBlock returns a new block message that conforms to the Message
// interface using the provided header with defaults for the remaining
// fields.
func NewMsgBlock(header *BlockHeader) *MsgBlock {
	return &MsgBlock{
		Header:       *header,
		Transactions: make([]*MsgTx, 0, defaultTransactionAlloc),
	}
}

const defaultTransactionAlloc = 2048

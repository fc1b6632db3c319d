// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"github.com/nyx-project/nyxd/chainhash"
	"github.com/pkg/errors"
)

// MsgGetBlocks implements the Message interface and represents a getblocks
// message. It is used to request a list of blocks starting after the last
// known hash in the slice of block locator hashes. The list is returned via
// an inv message and is limited to MaxGetBlocksInvPerMsg entries or the
// specific hash to stop at (spec.md §4.5 GETBLOCKS).
//
// The algorithm for building the block locator hashes should be to add the
// hashes in reverse order until the genesis block is reached: first add the
// most recent 10 block hashes, then double the step each iteration to
// exponentially decrease the number of hashes as the genesis block nears.
type MsgGetBlocks struct {
	BlockLocatorHashes []*chainhash.Hash
	HashStop           chainhash.Hash
}

// AddBlockLocatorHash adds a new block locator hash to the message.
func (msg *MsgGetBlocks) AddBlockLocatorHash(hash *chainhash.Hash) error {
	if len(msg.BlockLocatorHashes)+1 > maxBlockLocatorsPerMsg {
		return errMaxBlockLocators
	}
	msg.BlockLocatorHashes = append(msg.BlockLocatorHashes, hash)
	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgGetBlocks) Command() string {
	return CmdGetBlocks
}

// NewMsgGetBlocks returns a new getblocks message that conforms to the
// Message interface using the passed parameters and defaults for the
// remaining fields.
func NewMsgGetBlocks(hashStop *chainhash.Hash) *MsgGetBlocks {
	return &MsgGetBlocks{
		BlockLocatorHashes: make([]*chainhash.Hash, 0, maxBlockLocatorsPerMsg),
		HashStop:           *hashStop,
	}
}

// MsgGetHeaders implements the Message interface and represents a
// getheaders message. Like getblocks, it is used to request a list of
// blocks starting after the last known hash, but the response is a headers
// message rather than inv (spec.md §4.5 GETHEADERS).
type MsgGetHeaders struct {
	BlockLocatorHashes []*chainhash.Hash
	HashStop           chainhash.Hash
}

// AddBlockLocatorHash adds a new block locator hash to the message.
func (msg *MsgGetHeaders) AddBlockLocatorHash(hash *chainhash.Hash) error {
	if len(msg.BlockLocatorHashes)+1 > maxBlockLocatorsPerMsg {
		return errMaxBlockLocators
	}
	msg.BlockLocatorHashes = append(msg.BlockLocatorHashes, hash)
	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgGetHeaders) Command() string {
	return CmdGetHeaders
}

// NewMsgGetHeaders returns a new getheaders message that conforms to the
// Message interface.
func NewMsgGetHeaders() *MsgGetHeaders {
	return &MsgGetHeaders{
		BlockLocatorHashes: make([]*chainhash.Hash, 0, maxBlockLocatorsPerMsg),
	}
}

const maxBlockLocatorsPerMsg = 500

var errMaxBlockLocators = errors.New("too many block locator hashes for message")

// MsgHeaders implements the Message interface and represents a headers
// message. It is used to deliver block headers in response to a getheaders
// message (spec.md §4.5 HEADERS), capped at MaxHeadersPerMsg.
type MsgHeaders struct {
	Headers []*BlockHeader
}

// AddBlockHeader adds a new block header to the message.
func (msg *MsgHeaders) AddBlockHeader(bh *BlockHeader) error {
	if len(msg.Headers)+1 > MaxHeadersPerMsg {
		return errMaxHeaders
	}
	msg.Headers = append(msg.Headers, bh)
	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgHeaders) Command() string {
	return CmdHeaders
}

// NewMsgHeaders returns a new headers message that conforms to the Message
// interface.
func NewMsgHeaders() *MsgHeaders {
	return &MsgHeaders{
		Headers: make([]*BlockHeader, 0, MaxHeadersPerMsg),
	}
}

var errMaxHeaders = errors.New("too many headers for message")

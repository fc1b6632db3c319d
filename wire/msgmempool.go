// Copyright (c) 2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

// MsgMemPool implements the Message interface and represents a mempool
// message. It is used to request a list of transactions still in the
// active mempool of a relaying peer (spec.md §4.5 MEMPOOL).
//
// This message has no payload.
type MsgMemPool struct{}

// Command returns the protocol command string for the message.
func (msg *MsgMemPool) Command() string {
	return CmdMemPool
}

// NewMsgMemPool returns a new mempool message.
func NewMsgMemPool() *MsgMemPool {
	return &MsgMemPool{}
}

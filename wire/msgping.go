// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

// MsgPing implements the Message interface and represents a ping message.
type MsgPing struct {
	Nonce uint64
}

// Command returns the protocol command string for the message.
func (msg *MsgPing) Command() string {
	return CmdPing
}

// NewMsgPing returns a new ping message that conforms to the Message
// interface using the passed nonce.
func NewMsgPing(nonce uint64) *MsgPing {
	return &MsgPing{Nonce: nonce}
}

// MsgPong implements the Message interface and represents a pong message,
// sent in reply to a ping carrying the same nonce.
type MsgPong struct {
	Nonce uint64
}

// Command returns the protocol command string for the message.
func (msg *MsgPong) Command() string {
	return CmdPong
}

// NewMsgPong returns a new pong message that conforms to the Message
// interface using the passed nonce.
func NewMsgPong(nonce uint64) *MsgPong {
	return &MsgPong{Nonce: nonce}
}

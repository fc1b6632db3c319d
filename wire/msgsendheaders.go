// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

// MsgSendHeaders implements the Message interface and represents a
// sendheaders message. It is used to request the peer send block headers
// rather than inventory vectors (spec.md §4.5 SENDHEADERS).
//
// This message has no payload.
type MsgSendHeaders struct{}

// Command returns the protocol command string for the message.
func (msg *MsgSendHeaders) Command() string {
	return CmdSendHeaders
}

// NewMsgSendHeaders returns a new sendheaders message that conforms to the
// Message interface. See MsgSendHeaders for details.
func NewMsgSendHeaders() *MsgSendHeaders {
	return &MsgSendHeaders{}
}

// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

// MsgFilterClear implements the Message interface and represents a
// filterclear message, used to request the receiving peer remove a
// previously-loaded bloom filter (spec.md §4.5 FILTERCLEAR).
//
// This message has no payload.
type MsgFilterClear struct{}

// Command returns the protocol command string for the message.
func (msg *MsgFilterClear) Command() string {
	return CmdFilterClear
}

// NewMsgFilterClear returns a new filterclear message.
func NewMsgFilterClear() *MsgFilterClear {
	return &MsgFilterClear{}
}

// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "github.com/pkg/errors"

// MsgInv implements the Message interface and represents an inv message,
// used to advertise a peer's knowledge of blocks, transactions, and service
// transactions (spec.md §4.5 INV). Bounded by MaxInvPerMsg.
type MsgInv struct {
	InvList []*InvVect
}

// AddInvVect adds an inventory vector to the message.
func (msg *MsgInv) AddInvVect(iv *InvVect) error {
	if len(msg.InvList)+1 > MaxInvPerMsg {
		return errors.Errorf("MsgInv.AddInvVect: too many invvect in message [max %v]", MaxInvPerMsg)
	}
	msg.InvList = append(msg.InvList, iv)
	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgInv) Command() string {
	return CmdInv
}

// NewMsgInv returns a new inv message that conforms to the Message
// interface.
func NewMsgInv() *MsgInv {
	return &MsgInv{
		InvList: make([]*InvVect, 0, defaultInvListAlloc),
	}
}

// NewMsgInvSizeHint returns a new inv message that conforms to the Message
// interface, pre-allocating the backing slice for sizeHint entries.
func NewMsgInvSizeHint(sizeHint uint) *MsgInv {
	if sizeHint > MaxInvPerMsg {
		sizeHint = MaxInvPerMsg
	}
	return &MsgInv{
		InvList: make([]*InvVect, 0, sizeHint),
	}
}

const defaultInvListAlloc = 1000

// MsgGetData implements the Message interface and represents a getdata
// message, used to request one or more data objects (spec.md §4.5 GETDATA).
type MsgGetData struct {
	InvList []*InvVect
}

// AddInvVect adds an inventory vector to the message.
func (msg *MsgGetData) AddInvVect(iv *InvVect) error {
	if len(msg.InvList)+1 > MaxInvPerMsg {
		return errors.Errorf("MsgGetData.AddInvVect: too many invvect in message [max %v]", MaxInvPerMsg)
	}
	msg.InvList = append(msg.InvList, iv)
	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgGetData) Command() string {
	return CmdGetData
}

// NewMsgGetData returns a new getdata message that conforms to the Message
// interface.
func NewMsgGetData() *MsgGetData {
	return &MsgGetData{
		InvList: make([]*InvVect, 0, defaultInvListAlloc),
	}
}

// MsgNotFound implements the Message interface and represents a notfound
// message, sent in reply to a getdata request for data the sender does not
// have (spec.md §4.5.1 "Emit a NOTFOUND").
type MsgNotFound struct {
	InvList []*InvVect
}

// AddInvVect adds an inventory vector to the message.
func (msg *MsgNotFound) AddInvVect(iv *InvVect) error {
	if len(msg.InvList)+1 > MaxInvPerMsg {
		return errors.Errorf("MsgNotFound.AddInvVect: too many invvect in message [max %v]", MaxInvPerMsg)
	}
	msg.InvList = append(msg.InvList, iv)
	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgNotFound) Command() string {
	return CmdNotFound
}

// NewMsgNotFound returns a new notfound message that conforms to the Message
// interface.
func NewMsgNotFound() *MsgNotFound {
	return &MsgNotFound{
		InvList: make([]*InvVect, 0, defaultInvListAlloc),
	}
}

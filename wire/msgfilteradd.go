// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "github.com/pkg/errors"

// MsgFilterAdd implements the Message interface and represents a filteradd
// message, used to add a single data element to an already-installed bloom
// filter (spec.md §4.5 FILTERADD).
type MsgFilterAdd struct {
	Data []byte
}

// Command returns the protocol command string for the message.
func (msg *MsgFilterAdd) Command() string {
	return CmdFilterAdd
}

// Validate checks the message against the element size limit imposed on
// bloom filter data (spec.md §5 resource caps).
func (msg *MsgFilterAdd) Validate() error {
	if len(msg.Data) > MaxFilterAddDataSize {
		return errors.Errorf("filteradd data size %d exceeds max %d", len(msg.Data), MaxFilterAddDataSize)
	}
	return nil
}

// NewMsgFilterAdd returns a new filteradd message that conforms to the
// Message interface.
func NewMsgFilterAdd(data []byte) *MsgFilterAdd {
	return &MsgFilterAdd{Data: data}
}

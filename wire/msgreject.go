// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "github.com/nyx-project/nyxd/chainhash"

// RejectCode represents a numeric value by which a remote peer indicates
// why a message was rejected (spec.md §6 REJECT).
type RejectCode uint32

// These constants define the various supported reject codes. Codes below
// 0x40000000 may be sent over the wire; codes at or above that value are
// internal to this process and must never be placed on a MsgReject that is
// transmitted to a peer.
const (
	RejectMalformed       RejectCode = 0x01
	RejectInvalid         RejectCode = 0x10
	RejectObsolete        RejectCode = 0x11
	RejectDuplicate       RejectCode = 0x12
	RejectNonstandard     RejectCode = 0x40
	RejectDust            RejectCode = 0x41
	RejectInsufficientFee RejectCode = 0x42
	RejectCheckpoint      RejectCode = 0x43

	// RejectInternalSpam marks a reason never placed on the wire: the
	// orphan pool or reject filter refused the object locally.
	RejectInternalSpam RejectCode = 0x40000000
)

// rejectCodeStrings maps reject codes, both wire and internal-only, to human
// readable strings for logging.
var rejectCodeStrings = map[RejectCode]string{
	RejectMalformed:       "REJECT_MALFORMED",
	RejectInvalid:         "REJECT_INVALID",
	RejectObsolete:        "REJECT_OBSOLETE",
	RejectDuplicate:       "REJECT_DUPLICATE",
	RejectNonstandard:     "REJECT_NONSTANDARD",
	RejectDust:            "REJECT_DUST",
	RejectInsufficientFee: "REJECT_INSUFFICIENTFEE",
	RejectCheckpoint:      "REJECT_CHECKPOINT",
	RejectInternalSpam:    "REJECT_INTERNAL_SPAM",
}

// String returns the RejectCode in human-readable form.
func (code RejectCode) String() string {
	if s, ok := rejectCodeStrings[code]; ok {
		return s
	}
	return "Unknown RejectCode"
}

// IsWireSendable reports whether the reject code is permitted to appear on
// a MsgReject placed on the wire. Internal codes (>= 0x40000000) are used
// only for local bookkeeping, e.g. banscore accounting.
func (code RejectCode) IsWireSendable() bool {
	return code < 0x40000000
}

// MsgReject implements the Message interface and represents a reject
// message sent to inform a peer that a message it sent was rejected, and
// optionally why (spec.md §4.5 REJECT).
type MsgReject struct {
	// Cmd is the command of the message that triggered the rejection, or
	// the constant "block"/"tx" when the rejection refers to an
	// inventory object rather than a protocol message.
	Cmd string

	// Code is the reason the message or object was rejected.
	Code RejectCode

	// Reason is a human-readable string with specific details.
	Reason string

	// Hash identifies a specific block or transaction that was rejected,
	// and only applies when Cmd is CmdBlock, CmdTx, or CmdStx.
	Hash chainhash.Hash
}

// Command returns the protocol command string for the message.
func (msg *MsgReject) Command() string {
	return CmdReject
}

// NewMsgReject returns a new reject message that conforms to the Message
// interface.
func NewMsgReject(command string, code RejectCode, reason string) *MsgReject {
	return &MsgReject{
		Cmd:    command,
		Code:   code,
		Reason: reason,
	}
}

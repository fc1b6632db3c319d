// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"strings"
	"time"
)

// DefaultUserAgent is the user agent string advertised when none is
// configured.
const DefaultUserAgent = "/nyxd:0.1.0/"

// MsgVersion implements the Message interface and represents the version
// message used for the initial handshake (spec.md §4.5 VERSION).
type MsgVersion struct {
	// ProtocolVersion advertised by the sender.
	ProtocolVersion int32

	// Services advertised as supported by the sender.
	Services ServiceFlag

	// Timestamp at which the message was generated.
	Timestamp time.Time

	// AddrYou is the address of the receiving peer as seen by the sender.
	AddrYou NetAddress

	// AddrMe is the address of the sending peer.
	AddrMe NetAddress

	// Nonce used to detect self connections.
	Nonce uint64

	// UserAgent is a free-form string identifying the sender's client.
	UserAgent string

	// LastBlock is the height of the sender's best chain.
	LastBlock int32

	// DisableRelayTx indicates the receiver should not relay transaction
	// invs to the sender until it sends a filterload/filterclear.
	DisableRelayTx bool
}

// AddUserAgent appends a user agent entry following the pattern specified in
// BIP 14. The length of the resulting user agent is not checked.
func (msg *MsgVersion) AddUserAgent(name, version string, comments ...string) {
	newUserAgent := fmt.Sprintf("%s:%s", name, version)
	if len(comments) != 0 {
		newUserAgent = fmt.Sprintf("%s(%s)", newUserAgent, strings.Join(comments, "; "))
	}
	newUserAgent = fmt.Sprintf("%s%s/", msg.UserAgent, newUserAgent)
	msg.UserAgent = newUserAgent
}

// Command returns the protocol command string for the message.
func (msg *MsgVersion) Command() string {
	return CmdVersion
}

// NewMsgVersion returns a new version message that conforms to the Message
// interface using the passed parameters and defaults for the remaining
// fields.
func NewMsgVersion(me, you *NetAddress, nonce uint64, lastBlock int32) *MsgVersion {
	return &MsgVersion{
		ProtocolVersion: int32(ProtocolVersion),
		Services:        0,
		Timestamp:       time.Now(),
		AddrYou:         *you,
		AddrMe:          *me,
		Nonce:           nonce,
		UserAgent:       DefaultUserAgent,
		LastBlock:       lastBlock,
		DisableRelayTx:  false,
	}
}

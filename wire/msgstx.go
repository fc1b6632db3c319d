// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "github.com/nyx-project/nyxd/chainhash"

// MsgStx implements the Message interface and represents a service
// transaction message (spec.md §4.5 STX, §9 Glossary "Service transaction").
// It carries an off-chain command that references an on-chain payment
// transaction by hash; the referenced payment is looked up by the
// mempool/chain collaborator before the service transaction is accepted.
type MsgStx struct {
	PaymentTxHash chainhash.Hash
	Payload       []byte
}

// Command returns the protocol command string for the message.
func (msg *MsgStx) Command() string {
	return CmdStx
}

// StxHash computes the identifying hash of the service transaction, used
// as its inventory key and pending-map key.
func (msg *MsgStx) StxHash() chainhash.Hash {
	w := chainhash.NewHashWriter()
	_, _ = w.Write(msg.PaymentTxHash[:])
	_, _ = w.Write(msg.Payload)
	return w.Finalize()
}

// NewMsgStx returns a new stx message that conforms to the Message
// interface.
func NewMsgStx(paymentTxHash chainhash.Hash, payload []byte) *MsgStx {
	return &MsgStx{
		PaymentTxHash: paymentTxHash,
		Payload:       payload,
	}
}

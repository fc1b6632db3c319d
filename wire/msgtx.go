// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "github.com/nyx-project/nyxd/chainhash"

// OutPoint defines a bitcoin data type that is used to track previous
// transaction outputs.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// TxIn defines a bitcoin transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint64
}

// TxOut defines a bitcoin transaction output.
type TxOut struct {
	Value        uint64
	ScriptPubKey []byte
}

// MsgTx implements the Message interface and represents a transaction
// message, used to deliver a transaction in response to a getdata request
// or unsolicited as part of relay (spec.md §4.5 TX).
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint64
}

// Command returns the protocol command string for the message.
func (msg *MsgTx) Command() string {
	return CmdTx
}

// TxHash computes the hash of the serializable fields of the transaction and
// is used to identify the transaction, conceptually standing in for the
// byte-accurate double-SHA256 a real transport would compute.
func (msg *MsgTx) TxHash() chainhash.Hash {
	w := chainhash.NewHashWriter()
	var buf [8]byte
	putUint32(buf[:4], uint32(msg.Version))
	_, _ = w.Write(buf[:4])
	for _, in := range msg.TxIn {
		_, _ = w.Write(in.PreviousOutPoint.Hash[:])
		putUint32(buf[:4], in.PreviousOutPoint.Index)
		_, _ = w.Write(buf[:4])
		_, _ = w.Write(in.SignatureScript)
	}
	for _, out := range msg.TxOut {
		putUint64(buf[:], out.Value)
		_, _ = w.Write(buf[:])
		_, _ = w.Write(out.ScriptPubKey)
	}
	putUint64(buf[:], msg.LockTime)
	_, _ = w.Write(buf[:])
	return w.Finalize()
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}

// SerializeSize is a best-effort estimate of the serialized size of the
// transaction. The orphan pool's per-orphan byte cap uses its own size
// function (netsync's serializedSize), not this method.
func (msg *MsgTx) SerializeSize() int {
	n := 12 // version + input count + output count placeholders
	for _, in := range msg.TxIn {
		n += len(chainhash.Hash{}) + 4 + len(in.SignatureScript) + 8
	}
	for _, out := range msg.TxOut {
		n += 8 + len(out.ScriptPubKey)
	}
	return n
}

// NewMsgTx returns a new tx message that conforms to the Message interface.
func NewMsgTx(version int32) *MsgTx {
	return &MsgTx{
		Version: version,
		TxIn:    make([]*TxIn, 0, 1),
		TxOut:   make([]*TxOut, 0, 1),
	}
}

// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mempool is the narrow collaborator interface the sync core talks
// to for transaction and service-transaction acceptance: "do we have this?"
// and "accept this". Mempool eviction policy, fee estimation, and the coin
// view itself are out of scope and live behind this interface in a real
// deployment (spec.md §1 "The mempool and coin view: answer 'do we have
// this?' and accept transactions.").
package mempool

import (
	"github.com/nyx-project/nyxd/chainhash"
	"github.com/nyx-project/nyxd/wire"
)

// RuleError describes why the mempool or coin view refused a transaction.
// RejectCode carries the wire reject code to report back to the submitting
// peer; DoSScore carries the penalty to apply, if any.
type RuleError struct {
	RejectCode RejectCode
	Reason     string
	DoSScore   int
	// Malleable marks an invalidity that a different-but-equivalent
	// encoding of the same logical transaction could avoid, in which case
	// the rejects filter should not cache this exact hash.
	Malleable bool
	// MissingParents lists outpoints this transaction spends that the
	// coin view has no entry for, triggering the orphan pool path
	// (spec.md §4.5 TX "On missing inputs").
	MissingParents []wire.OutPoint
}

func (e *RuleError) Error() string {
	return e.Reason
}

// RejectCode mirrors wire.RejectCode without importing wire's full message
// set into the mempool's minimal surface.
type RejectCode = wire.RejectCode

// TxPool is the transaction-pool collaborator. Submissions that fail
// validation return a *RuleError; other errors are unexpected/internal.
type TxPool interface {
	// HaveTransaction reports whether hash is already known to the pool.
	HaveTransaction(hash *chainhash.Hash) bool

	// MaybeAcceptTransaction attempts to validate and accept tx into the
	// pool. On success it returns the set of hashes of pool transactions
	// that are now known to conflict and were removed, if any.
	MaybeAcceptTransaction(tx *wire.MsgTx) ([]chainhash.Hash, error)

	// FetchTransaction returns a previously-accepted transaction by hash,
	// used to answer GETDATA(tx) and MEMPOOL streaming.
	FetchTransaction(hash *chainhash.Hash) (*wire.MsgTx, bool)

	// TxHashes returns the hashes of every transaction currently in the
	// pool, used to answer a MEMPOOL request (spec.md §4.5 MEMPOOL).
	TxHashes() []chainhash.Hash
}

// StxPool is the service-transaction pool collaborator.
type StxPool interface {
	// HaveStx reports whether hash is already known to the pool.
	HaveStx(hash *chainhash.Hash) bool

	// MaybeAcceptStx attempts to validate and accept a service
	// transaction whose referenced payment is paymentTxHash. If the
	// payment transaction is not yet known, ok is false and the caller
	// should stash the service transaction in a pending-retry map keyed
	// by hash (spec.md §4.5 STX).
	MaybeAcceptStx(stx *wire.MsgStx, paymentTxHash chainhash.Hash) (ok bool, err error)
}

// CoinView answers whether a given output is known to be unspent, used by
// the best-effort already_have(tx) shortcut described in spec.md §9 (only
// output positions 0 and 1 are consulted, a retained quirk from the
// original implementation).
type CoinView interface {
	// HaveUnspentOutput reports whether the referenced output exists and
	// is unspent according to the current chain state.
	HaveUnspentOutput(op wire.OutPoint) bool
}

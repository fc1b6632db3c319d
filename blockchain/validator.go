// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/nyx-project/nyxd/wire"
)

// Validator is the narrow collaborator interface the sync core talks to
// for block acceptance: "submit this for validation" (spec.md §4.5 BLOCK
// "Submit to validation."). Header/full-block validation, reorg handling,
// and chain-state persistence are out of scope and live behind this
// interface in a real deployment (spec.md §1 "consensus rule evaluation").
type Validator interface {
	// MaybeAcceptBlock attempts to validate and, on success, connect block
	// to the chain. punish reports whether a failure should be treated as
	// the submitting peer's fault, false when the block was whitelisted
	// or otherwise forced (spec.md §4.5 BLOCK "record the block-source
	// with punish = true unless the block was whitelisted/forced").
	// Validation failures are returned as *mempool.RuleError; any other
	// error is unexpected/internal.
	MaybeAcceptBlock(block *wire.MsgBlock, punish bool) error
}

// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

// Ban scores for misbehaving peers, applied against the peer's cumulative
// DoS score (spec.md §4.1, §8 "Misbehavior exactly at the threshold
// triggers ban; below, it does not."). The three severities named in
// spec.md §7 are 1 (trivial), 20 (moderate), and 100 (the default ban
// threshold itself, i.e. an instant ban).
const (
	BanScoreTrivial  = 1
	BanScoreModerate = 20
	BanScoreSevere   = 100

	BanScoreNonVersionFirstMessage = BanScoreTrivial
	BanScoreDuplicateVersion       = BanScoreTrivial
	BanScoreDuplicateVerack        = BanScoreTrivial
	BanScoreStallTimeout           = BanScoreTrivial

	BanScoreSentTooManyAddresses  = BanScoreModerate
	BanScoreSentTooManyInv        = BanScoreModerate
	BanScoreUnrequestedSelectedTip = BanScoreModerate
	BanScoreDisconnectedHeader    = BanScoreModerate

	BanScoreUnrequestedBlock       = BanScoreSevere
	BanScoreInvalidBlock           = BanScoreSevere
	BanScoreInvalidTx              = BanScoreSevere
	BanScoreNodeBloomFlagViolation = BanScoreSevere
	BanScoreUnrequestedMessage     = BanScoreSevere
)

// DefaultBanThreshold is the cumulative DoS score at which a peer is
// disconnected and (optionally) banned (spec.md §6 "banscore (default
// 100)").
const DefaultBanThreshold = 100

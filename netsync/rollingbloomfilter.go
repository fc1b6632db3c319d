// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"math"

	"github.com/nyx-project/nyxd/chainhash"
	"golang.org/x/crypto/blake2b"
)

// defaultRejectsElements and defaultRejectsFPRate size the recent-rejects
// filter for ~120,000 entries at a 1-in-10^6 false positive rate (spec.md
// §3 "Recent-rejects filter", §5 resource caps).
const (
	defaultRejectsElements = 120000
	defaultRejectsFPRate   = 0.000001
)

// RejectFilter is a rolling Bloom-style approximate set over recently
// rejected tx hashes. It is "rolling" in the CRollingBloomFilter sense:
// rather than a hard reset, insertions are tracked in two interleaved
// generations so the filter's effective false-positive rate stays bounded
// as old entries age out, without ever needing a stop-the-world clear
// except on a chain-tip change (spec.md §3, §8 invariant 7). Grounded on
// original_source's CRollingBloomFilter comments, since neither the
// teacher's addrmgr nor util packages carry a rolling bloom filter.
type RejectFilter struct {
	entries    uint32
	generation uint32

	data       []uint64
	numHashes  uint32
	bitsPerGen uint32

	insertedThisGen uint32
	maxPerGen       uint32
}

// NewRejectFilter returns a filter sized for the given number of elements
// at the given false-positive rate, following the classic Bloom sizing
// formulas (m = -n*ln(p)/ln(2)^2, k = m/n*ln(2)).
func NewRejectFilter(elements uint32, fpRate float64) *RejectFilter {
	if elements == 0 {
		elements = defaultRejectsElements
	}
	if fpRate <= 0 {
		fpRate = defaultRejectsFPRate
	}

	logFPRate := math.Log(fpRate)
	numHashes := uint32(math.Max(1, math.Round(logFPRate/math.Log(0.5))))
	if numHashes > 50 {
		numHashes = 50
	}
	bits := uint32(math.Ceil(-1.0 * float64(elements) * logFPRate / (math.Ln2 * math.Ln2)))
	words := (bits + 63) / 64
	if words == 0 {
		words = 1
	}

	return &RejectFilter{
		data:       make([]uint64, words*2),
		numHashes:  numHashes,
		bitsPerGen: words * 64,
		maxPerGen:  elements / 2,
	}
}

// hashesFor derives numHashes independent bit positions for hash using
// blake2b-keyed hashing, standing in for the siphash-family PRF the
// original filter uses, following SPEC_FULL.md §4.2's blake2b wiring.
func (f *RejectFilter) hashesFor(hash *chainhash.Hash, n uint32) uint32 {
	var key [8]byte
	key[0] = byte(n)
	key[1] = byte(n >> 8)
	key[2] = byte(n >> 16)
	key[3] = byte(n >> 24)
	mac, _ := blake2b.New(8, key[:])
	_, _ = mac.Write(hash[:])
	sum := mac.Sum(nil)
	v := uint64(0)
	for _, b := range sum {
		v = v<<8 | uint64(b)
	}
	return uint32(v % uint64(f.bitsPerGen))
}

func (f *RejectFilter) setBit(gen, bit uint32) {
	idx := gen*(f.bitsPerGen/64) + bit/64
	f.data[idx] |= 1 << (bit % 64)
}

func (f *RejectFilter) getBit(gen, bit uint32) bool {
	idx := gen*(f.bitsPerGen/64) + bit/64
	return f.data[idx]&(1<<(bit%64)) != 0
}

// Add inserts hash into the filter, rolling to a fresh generation when the
// current one has absorbed its share of the target element count.
func (f *RejectFilter) Add(hash *chainhash.Hash) {
	if f.insertedThisGen >= f.maxPerGen && f.maxPerGen > 0 {
		f.generation++
		// The new current generation already holds the previous
		// generation's entries; clear the old one so it starts afresh.
		gen := (f.generation + 1) % 2
		for i := uint32(0); i < f.bitsPerGen/64; i++ {
			f.data[gen*(f.bitsPerGen/64)+i] = 0
		}
		f.insertedThisGen = 0
	}
	for n := uint32(0); n < f.numHashes; n++ {
		bit := f.hashesFor(hash, n)
		f.setBit(f.generation%2, bit)
		f.setBit((f.generation+1)%2, bit)
	}
	f.insertedThisGen++
	f.entries++
}

// Contains reports whether hash is (probably) present.
func (f *RejectFilter) Contains(hash *chainhash.Hash) bool {
	gen := f.generation % 2
	for n := uint32(0); n < f.numHashes; n++ {
		bit := f.hashesFor(hash, n)
		if !f.getBit(gen, bit) {
			return false
		}
	}
	return true
}

// Reset clears the filter entirely, used whenever the observed chain tip
// changes (spec.md §3 "reset whenever the active chain tip changes", §8
// invariant 7).
func (f *RejectFilter) Reset() {
	for i := range f.data {
		f.data[i] = 0
	}
	f.entries = 0
	f.insertedThisGen = 0
	f.generation = 0
}

// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"time"

	"github.com/nyx-project/nyxd/chainhash"
)

// BlockHeader defines information about a block and is used in the block and
// headers messages. Unlike the teacher's blockDAG-era header (which carries a
// set of parents), this follows a single active chain: one PrevBlock.
type BlockHeader struct {
	// Version of the block.
	Version int32

	// Hash of the previous block header in the chain.
	PrevBlock chainhash.Hash

	// Merkle tree reference to hash of all transactions for the block.
	MerkleRoot chainhash.Hash

	// Time the block was created.
	Timestamp time.Time

	// Difficulty target for the block.
	Bits uint32

	// Nonce used to generate the block.
	Nonce uint32
}

// BlockHash computes the block identifier hash for the given block header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	w := chainhash.NewHashWriter()
	var buf [4]byte
	putUint32(buf[:], uint32(h.Version))
	_, _ = w.Write(buf[:])
	_, _ = w.Write(h.PrevBlock[:])
	_, _ = w.Write(h.MerkleRoot[:])
	putUint32(buf[:], uint32(h.Timestamp.Unix()))
	_, _ = w.Write(buf[:])
	putUint32(buf[:], h.Bits)
	_, _ = w.Write(buf[:])
	putUint32(buf[:], h.Nonce)
	_, _ = w.Write(buf[:])
	return w.Finalize()
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// NewBlockHeader returns a new BlockHeader using the provided version,
// previous block hash, merkle root hash, difficulty bits, and nonce, with
// defaults for the remaining fields.
func NewBlockHeader(version int32, prevBlock, merkleRootHash *chainhash.Hash, bits, nonce uint32) *BlockHeader {
	return &BlockHeader{
		Version:    version,
		PrevBlock:  *prevBlock,
		MerkleRoot: *merkleRootHash,
		Timestamp:  time.Unix(time.Now().Unix(), 0),
		Bits:       bits,
		Nonce:      nonce,
	}
}

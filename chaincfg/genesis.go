// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/nyx-project/nyxd/chainhash"
	"github.com/nyx-project/nyxd/wire"
)

// genesisCoinbaseTx is the coinbase transaction for every network's genesis
// block. It carries no spendable value and exists only so the genesis
// block hashes to a fixed, known value.
var genesisCoinbaseTx = wire.MsgTx{
	Version: 1,
	TxIn: []*wire.TxIn{{
		PreviousOutPoint: wire.OutPoint{Index: 0xffffffff},
		SignatureScript:  []byte("the first block"),
		Sequence:         0xffffffff,
	}},
	TxOut: []*wire.TxOut{{
		Value: 0,
	}},
	LockTime: 0,
}

func genesisMerkleRoot() chainhash.Hash {
	return genesisCoinbaseTx.TxHash()
}

// genesisBlock is the genesis block for the main network.
var genesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot(),
		Timestamp:  time.Unix(1231006505, 0),
		Bits:       0x1d00ffff,
		Nonce:      2083236893,
	},
	Transactions: []*wire.MsgTx{&genesisCoinbaseTx},
}

var genesisHash = genesisBlock.BlockHash()

// testNetGenesisBlock is the genesis block for the public test network.
var testNetGenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot(),
		Timestamp:  time.Unix(1296688602, 0),
		Bits:       0x1d00ffff,
		Nonce:      414098458,
	},
	Transactions: []*wire.MsgTx{&genesisCoinbaseTx},
}

var testNetGenesisHash = testNetGenesisBlock.BlockHash()

// regtestGenesisBlock is the genesis block for the local regression test
// network. Its timestamp equals testnet's to the second, which is all the
// header hash covers; its hash differs from the other networks' genesis
// hashes through its Bits and Nonce, even though the coinbase is shared.
var regtestGenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot(),
		Timestamp:  time.Unix(1296688602, 1),
		Bits:       0x207fffff,
		Nonce:      2,
	},
	Transactions: []*wire.MsgTx{&genesisCoinbaseTx},
}

var regtestGenesisHash = regtestGenesisBlock.BlockHash()

// simNetGenesisBlock is the genesis block for the simulation test network.
var simNetGenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot(),
		Timestamp:  time.Unix(1401292357, 0),
		Bits:       0x207fffff,
		Nonce:      2,
	},
	Transactions: []*wire.MsgTx{&genesisCoinbaseTx},
}

var simNetGenesisHash = simNetGenesisBlock.BlockHash()

// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the network parameters a node selects between at
// startup: magic bytes, default ports, seed peers, genesis block, and the
// consensus timing constants the sync layer needs to reason about liveness
// (target block spacing drives the scheduler's per-block and per-peer stall
// timeouts, spec.md §4.4).
package chaincfg

import (
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/nyx-project/nyxd/chainhash"
	"github.com/nyx-project/nyxd/wire"
)

var (
	bigOne = big.NewInt(1)

	// mainPowMax is the highest proof of work value a block can have on
	// the main network. It is the value 2^224 - 1.
	mainPowMax = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

	// testnetPowMax mirrors mainPowMax but for the test network.
	testnetPowMax = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

	// regtestPowMax is the highest proof of work value a regression-test
	// network block can have. It is the value 2^255 - 1, i.e. trivial
	// difficulty for fast local mining.
	regtestPowMax = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)

	// simnetPowMax mirrors regtestPowMax but for the simulation network.
	simnetPowMax = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)
)

// Params defines a network by the parameters that distinguish it from other
// networks: its magic bytes, default peer-to-peer port, seed peers, genesis
// block, proof-of-work ceiling, and the timing constants the sync layer
// uses to size its download window and stall timeouts.
type Params struct {
	// Name is a human-readable identifier for the network.
	Name string

	// Net is the magic value used to identify packets for this network.
	Net wire.BitcoinNet

	// DefaultPort is the default peer-to-peer port for the network.
	DefaultPort string

	// RPCPort is the default RPC port for the network. The RPC server
	// itself lives outside this core (spec.md §1 Non-goals, "any
	// user-facing surface"); this only lets config validate and default
	// the --rpclisten flag's port per network.
	RPCPort string

	// DNSSeeds is a list of DNS seeds used to bootstrap peer discovery.
	DNSSeeds []string

	// GenesisBlock is the first block of the chain.
	GenesisBlock *wire.MsgBlock

	// GenesisHash is the genesis block's identifying hash, cached to
	// avoid recomputing it from GenesisBlock on every comparison.
	GenesisHash *chainhash.Hash

	// PowMax is the highest allowed proof of work value for a block on
	// this network.
	PowMax *big.Int

	// TargetTimePerBlock is the network's intended average inter-block
	// time. The scheduler derives its per-block and per-peer stall
	// timeouts from a multiple of this value (spec.md §4.4).
	TargetTimePerBlock time.Duration

	// DifficultyAdjustmentWindowSize is the number of blocks inspected
	// when retargeting difficulty.
	DifficultyAdjustmentWindowSize uint64

	// CoinbaseMaturity is the number of blocks that must pass before a
	// coinbase output may be spent.
	CoinbaseMaturity uint64

	// RelayNonStdTxs controls whether non-standard transactions are
	// relayed and accepted into the mempool on this network.
	RelayNonStdTxs bool

	// AcceptUnroutable specifies whether this network accepts unroutable
	// addresses such as RFC1918 ranges during address relay.
	AcceptUnroutable bool
}

const (
	targetTimePerBlock             = 10 * time.Minute
	difficultyAdjustmentWindowSize = 2016
)

// MainNetParams defines the network parameters for the main network.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         wire.MainNet,
	DefaultPort: "8333",
	RPCPort:     "8334",
	DNSSeeds:    []string{"seed.nyxd.io"},

	GenesisBlock:                   &genesisBlock,
	GenesisHash:                    &genesisHash,
	PowMax:                         mainPowMax,
	TargetTimePerBlock:             targetTimePerBlock,
	DifficultyAdjustmentWindowSize: difficultyAdjustmentWindowSize,
	CoinbaseMaturity:               100,

	RelayNonStdTxs:   false,
	AcceptUnroutable: false,
}

// TestNetParams defines the network parameters for the public test network.
var TestNetParams = Params{
	Name:        "testnet",
	Net:         wire.TestNet,
	DefaultPort: "18333",
	RPCPort:     "18334",
	DNSSeeds:    []string{"testnet-seed.nyxd.io"},

	GenesisBlock:                   &testNetGenesisBlock,
	GenesisHash:                    &testNetGenesisHash,
	PowMax:                         testnetPowMax,
	TargetTimePerBlock:             targetTimePerBlock,
	DifficultyAdjustmentWindowSize: difficultyAdjustmentWindowSize,
	CoinbaseMaturity:               100,

	RelayNonStdTxs:   true,
	AcceptUnroutable: false,
}

// RegressionNetParams defines the network parameters for the regression
// test network used by local integration tests.
var RegressionNetParams = Params{
	Name:        "regtest",
	Net:         wire.TestNet, // reuses the test magic; regtest never talks to mainnet/testnet peers
	DefaultPort: "18444",
	RPCPort:     "18445",
	DNSSeeds:    []string{},

	GenesisBlock:                   &regtestGenesisBlock,
	GenesisHash:                    &regtestGenesisHash,
	PowMax:                         regtestPowMax,
	TargetTimePerBlock:             targetTimePerBlock,
	DifficultyAdjustmentWindowSize: difficultyAdjustmentWindowSize,
	CoinbaseMaturity:               100,

	RelayNonStdTxs:   true,
	AcceptUnroutable: true,
}

// SimNetParams defines the network parameters for the simulation test
// network, used for private multi-node simulations with no DNS seeding.
var SimNetParams = Params{
	Name:        "simnet",
	Net:         wire.SimNet,
	DefaultPort: "18555",
	RPCPort:     "18556",
	DNSSeeds:    []string{},

	GenesisBlock:                   &simNetGenesisBlock,
	GenesisHash:                    &simNetGenesisHash,
	PowMax:                         simnetPowMax,
	TargetTimePerBlock:             targetTimePerBlock,
	DifficultyAdjustmentWindowSize: difficultyAdjustmentWindowSize,
	CoinbaseMaturity:               100,

	RelayNonStdTxs:   true,
	AcceptUnroutable: true,
}

// ErrDuplicateNet describes an error where the parameters for a network
// could not be registered due to the network already being a standard
// network or previously registered.
var ErrDuplicateNet = errors.New("duplicate network")

var registeredNets = make(map[wire.BitcoinNet]struct{})

// Register records that the network parameters for params.Net have been
// registered. Only the network identifier is kept; there is no lookup of
// parameters by wire.BitcoinNet. It is safe to call at most once per
// network; a second call for the same network returns ErrDuplicateNet.
func Register(params *Params) error {
	if _, ok := registeredNets[params.Net]; ok {
		return ErrDuplicateNet
	}
	registeredNets[params.Net] = struct{}{}
	return nil
}

func mustRegister(params *Params) {
	if err := Register(params); err != nil {
		panic("chaincfg: failed to register network: " + err.Error())
	}
}

func init() {
	mustRegister(&MainNetParams)
	mustRegister(&TestNetParams)
	mustRegister(&SimNetParams)
}

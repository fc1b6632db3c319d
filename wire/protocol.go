// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

// ProtocolVersion is the latest protocol version this package supports.
const ProtocolVersion uint32 = 70016

// MinAcceptableProtocolVersion is the lowest protocol version that a
// connected peer may support.
const MinAcceptableProtocolVersion uint32 = 70001

// SendHeadersVersion is the protocol version which added a new
// sendheaders message.
const SendHeadersVersion uint32 = 70012

// NoBloomVersion is the protocol version which removed bloom filtering
// support from peers that don't advertise the NODE_BLOOM service flag.
const NoBloomVersion uint32 = 70011

// FeeFilterVersion is the protocol version which added a new feefilter
// message.
const FeeFilterVersion uint32 = 70013

// ServiceFlag identifies services supported by a peer.
type ServiceFlag uint64

const (
	// SFNodeNetwork means the peer can serve the complete chain.
	SFNodeNetwork ServiceFlag = 1 << iota

	// SFNodeGetUTXO means the peer can respond to UTXO-set queries.
	SFNodeGetUTXO

	// SFNodeBloom means the peer supports bloom filtering.
	SFNodeBloom

	// SFNodeWitness means the peer supports segregated-witness blocks.
	SFNodeWitness

	// SFNodeNetworkLimited means the peer serves only a limited window of
	// recent blocks.
	SFNodeNetworkLimited
)

// serviceFlagStrings is a map of service flags back to their constant
// names for pretty printing.
var serviceFlagStrings = map[ServiceFlag]string{
	SFNodeNetwork:        "SFNodeNetwork",
	SFNodeGetUTXO:        "SFNodeGetUTXO",
	SFNodeBloom:          "SFNodeBloom",
	SFNodeWitness:        "SFNodeWitness",
	SFNodeNetworkLimited: "SFNodeNetworkLimited",
}

// String returns the ServiceFlag in human-readable form.
func (f ServiceFlag) String() string {
	if name, ok := serviceFlagStrings[f]; ok {
		return name
	}
	s := "Unknown"
	for flag, name := range serviceFlagStrings {
		if f&flag == flag {
			s += "|" + name
		}
	}
	return s
}

// KaspaNet -- kept as BitcoinNet: magic numbers identifying the network a
// message belongs to. Byte-level framing (including this magic) is the
// transport's concern; the core only needs the type for config/lookup.
type BitcoinNet uint32

const (
	// MainNet represents the main network.
	MainNet BitcoinNet = 0xd9b4bef9

	// TestNet represents the test network.
	TestNet BitcoinNet = 0x0709110b

	// SimNet represents the simulation test network.
	SimNet BitcoinNet = 0x12141c16
)

// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

// Commands used in the bitcoin peer-to-peer protocol, as described in
// spec.md §6. Byte-level framing of these strings into the 12-byte
// command field of a message envelope is the transport's job; this
// package only needs them as the tag of the Message interface.
const (
	CmdVersion     = "version"
	CmdVerAck      = "verack"
	CmdAddr        = "addr"
	CmdInv         = "inv"
	CmdGetData     = "getdata"
	CmdNotFound    = "notfound"
	CmdGetBlocks   = "getblocks"
	CmdGetHeaders  = "getheaders"
	CmdHeaders     = "headers"
	CmdTx          = "tx"
	CmdBlock       = "block"
	CmdMemPool     = "mempool"
	CmdPing        = "ping"
	CmdPong        = "pong"
	CmdReject      = "reject"
	CmdSendHeaders = "sendheaders"
	CmdFilterLoad  = "filterload"
	CmdFilterAdd   = "filteradd"
	CmdFilterClear = "filterclear"
	CmdMerkleBlock = "merkleblock"
	CmdGetAddr     = "getaddr"
	CmdStx         = "stx"
)

// Message is the interface that all peer-to-peer messages implement. The
// core deals exclusively in typed payloads: the transport layer is
// responsible for framing the command string, checksum, and length onto
// the wire and is therefore the only component that needs a full
// (de)serialization path (out of scope per spec.md §1 Non-goals).
type Message interface {
	Command() string
}

// MaxInvPerMsg is the maximum number of inventory vectors that can be in a
// single inv, getdata, or notfound message.
const MaxInvPerMsg = 50000

// MaxHeadersPerMsg is the maximum number of block headers that can be in a
// single headers message.
const MaxHeadersPerMsg = 2000

// MaxAddrPerMsg is the maximum number of addresses that can be in a single
// addr message.
const MaxAddrPerMsg = 1000

// MaxGetBlocksInvPerMsg is the maximum number of block inventory vectors a
// getblocks reply may contain before pagination via hashContinue kicks in.
const MaxGetBlocksInvPerMsg = 500

// MaxFilterAddDataSize is the maximum size in bytes of a data element
// accepted in a filteradd message.
const MaxFilterAddDataSize = 520

// MaxFilterLoadFilterSize is the maximum size in bytes of the bloom filter
// itself in a filterload message.
const MaxFilterLoadFilterSize = 36000

// MaxFilterLoadHashFuncs is the maximum number of hash functions a bloom
// filter in a filterload message may specify.
const MaxFilterLoadHashFuncs = 50

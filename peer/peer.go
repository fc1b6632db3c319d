// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peer implements connection-scoped protocol state for a single
// remote node: handshake negotiation, outbound queuing and trickling,
// stall/liveness detection, and dispatch of inbound messages to
// caller-registered callbacks. It deliberately knows nothing about sync
// state (best-known header, in-flight blocks, DoS score) — that overlay
// lives in the netsync package's peerSyncState, layered on top of a Peer
// by PeerId (spec.md §3 Data Model, §9 Glossary "Sync state").
package peer

import (
	"container/list"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/go-socks/socks"
	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"

	"github.com/nyx-project/nyxd/chaincfg"
	"github.com/nyx-project/nyxd/chainhash"
	"github.com/nyx-project/nyxd/logger"
	"github.com/nyx-project/nyxd/util/random"
	"github.com/nyx-project/nyxd/wire"
)

var log, _ = logger.Get(logger.SubsystemTags.PEER)

const (
	// MaxProtocolVersion is the max protocol version this package supports.
	MaxProtocolVersion = wire.ProtocolVersion

	// outputBufferSize is the number of elements the output channels use.
	outputBufferSize = 50

	// maxInvTrickleSize is the maximum amount of inventory to send in a
	// single message when trickling inventory to remote peers.
	maxInvTrickleSize = 1000

	// maxKnownInventory is the maximum number of items to keep in the known
	// inventory cache.
	maxKnownInventory = 1000

	// pingInterval is the interval of time to wait in between sending ping
	// messages.
	pingInterval = 2 * time.Minute

	// negotiateTimeout is the duration of inactivity before we time out a
	// peer that hasn't completed the initial version negotiation.
	negotiateTimeout = 30 * time.Second

	// idleTimeout is the duration of inactivity before we time out a peer.
	idleTimeout = 5 * time.Minute

	// stallTickInterval is the interval of time between each check for
	// stalled peers.
	stallTickInterval = 15 * time.Second

	// trickleTimeout is the duration of the ticker which trickles down
	// inventory to a peer.
	trickleTimeout = 100 * time.Millisecond
)

var (
	// nodeCount is the total number of peer connections made since startup
	// and is used to assign each peer its ID once its version is known.
	nodeCount int32

	// sentNonces houses the unique nonces generated when pushing version
	// messages, used to detect self connections.
	sentNonces = newMruNonceMap(50)

	// allowSelfConns lets tests bypass self-connection detection.
	allowSelfConns bool
)

// Transport is the narrow interface a connection implementation provides
// to a Peer: delivery of already-typed inbound messages and transmission
// of outbound ones. Byte-level framing, checksums, and the network magic
// are the transport's concern (spec.md §1 Non-goals "byte-level framing");
// this package only ever sees wire.Message values.
type Transport interface {
	// ReadMessage blocks until the next inbound message is available.
	ReadMessage() (wire.Message, error)

	// WriteMessage sends msg to the remote peer.
	WriteMessage(msg wire.Message) error

	// Close tears down the underlying connection.
	Close() error

	// RemoteAddr returns the address of the remote end.
	RemoteAddr() net.Addr
}

// MessageListeners defines callback function pointers to invoke for each
// kind of inbound message. A listener left nil is simply not invoked.
// Execution of listeners is serialized per peer so a slow callback stalls
// only that peer's input handling.
type MessageListeners struct {
	OnGetAddr      func(p *Peer, msg *wire.MsgGetAddr)
	OnAddr         func(p *Peer, msg *wire.MsgAddr)
	OnPing         func(p *Peer, msg *wire.MsgPing)
	OnPong         func(p *Peer, msg *wire.MsgPong)
	OnTx           func(p *Peer, msg *wire.MsgTx)
	OnStx          func(p *Peer, msg *wire.MsgStx)
	OnBlock        func(p *Peer, msg *wire.MsgBlock)
	OnInv          func(p *Peer, msg *wire.MsgInv)
	OnNotFound     func(p *Peer, msg *wire.MsgNotFound)
	OnGetData      func(p *Peer, msg *wire.MsgGetData)
	OnGetBlocks    func(p *Peer, msg *wire.MsgGetBlocks)
	OnGetHeaders   func(p *Peer, msg *wire.MsgGetHeaders)
	OnHeaders      func(p *Peer, msg *wire.MsgHeaders)
	OnSendHeaders  func(p *Peer, msg *wire.MsgSendHeaders)
	OnFilterAdd    func(p *Peer, msg *wire.MsgFilterAdd)
	OnFilterClear  func(p *Peer, msg *wire.MsgFilterClear)
	OnFilterLoad   func(p *Peer, msg *wire.MsgFilterLoad)
	OnMerkleBlock  func(p *Peer, msg *wire.MsgMerkleBlock)
	OnMemPool      func(p *Peer, msg *wire.MsgMemPool)
	OnVersion      func(p *Peer, msg *wire.MsgVersion)
	OnVerAck       func(p *Peer, msg *wire.MsgVerAck)
	OnReject       func(p *Peer, msg *wire.MsgReject)
	OnRead         func(p *Peer, msg wire.Message, err error)
	OnWrite        func(p *Peer, msg wire.Message, err error)
}

// Config is the struct to hold configuration options useful to Peer.
type Config struct {
	// NewestBlock returns the hash and height of the best known block of
	// the local chain.
	NewestBlock func() (hash *chainhash.Hash, height int32, err error)

	// HostToNetAddress converts a host and port into a wire.NetAddress.
	HostToNetAddress HostToNetAddrFunc

	// Proxy indicates a proxy is being used for connections, affecting
	// which user agent comment is added.
	Proxy string

	// UserAgentName/Version/Comments are used to build the user agent
	// string advertised in the version message (BIP14).
	UserAgentName     string
	UserAgentVersion  string
	UserAgentComments []string

	// ChainParams identifies the network this peer is operating on.
	ChainParams *chaincfg.Params

	// Services is the advertised set of supported services.
	Services wire.ServiceFlag

	// ProtocolVersion is the maximum protocol version this peer supports.
	ProtocolVersion uint32

	// DisableRelayTx signals the peer should not relay unconfirmed
	// transactions until a bloom filter is loaded.
	DisableRelayTx bool

	// Listeners holds callbacks to invoke for inbound messages.
	Listeners MessageListeners

	// TrickleInterval overrides the default inventory trickle interval,
	// used by tests that want deterministic timing.
	TrickleInterval time.Duration
}

// minUint32 returns the minimum of two uint32s.
func minUint32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// newNetAddress extracts the IP address and port from a net.Addr and
// builds a wire.NetAddress, handling the direct and SOCKS-proxied cases.
func newNetAddress(addr net.Addr, services wire.ServiceFlag) (*wire.NetAddress, error) {
	if tcpAddr, ok := addr.(*net.TCPAddr); ok {
		return wire.NewNetAddressIPPort(tcpAddr.IP, uint16(tcpAddr.Port), services), nil
	}

	if proxiedAddr, ok := addr.(*socks.ProxiedAddr); ok {
		ip := net.ParseIP(proxiedAddr.Host)
		if ip == nil {
			ip = net.ParseIP("0.0.0.0")
		}
		return wire.NewNetAddressIPPort(ip, uint16(proxiedAddr.Port), services), nil
	}

	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return nil, err
	}
	ip := net.ParseIP(host)
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, err
	}
	return wire.NewNetAddressIPPort(ip, uint16(port), services), nil
}

// outMsg houses a message to be sent along with a channel to signal when
// the message has been sent (or won't be, due to shutdown).
type outMsg struct {
	msg      wire.Message
	doneChan chan<- struct{}
}

type stallControlCmd uint8

const (
	sccSendMessage stallControlCmd = iota
	sccReceiveMessage
	sccHandlerStart
	sccHandlerDone
)

type stallControlMsg struct {
	command stallControlCmd
	message wire.Message
}

// StatsSnap is a snapshot of peer stats at a point in time.
type StatsSnap struct {
	ID             int32
	Addr           string
	Services       wire.ServiceFlag
	LastSend       time.Time
	LastRecv       time.Time
	BytesSent      uint64
	BytesRecv      uint64
	ConnTime       time.Time
	TimeOffset     int64
	Version        uint32
	UserAgent      string
	Inbound        bool
	LastPingNonce  uint64
	LastPingTime   time.Time
	LastPingMicros int64
}

// HostToNetAddrFunc takes a host, port, and services and returns a
// wire.NetAddress.
type HostToNetAddrFunc func(host string, port uint16, services wire.ServiceFlag) (*wire.NetAddress, error)

// Peer provides concurrency-safe connection-scoped protocol state for a
// single remote node. Outbound messages are queued via QueueMessage or
// QueueInventory; inbound messages arrive through HandleMessage, called by
// whatever owns the Transport's read loop, and are dispatched to the
// registered MessageListeners.
type Peer struct {
	bytesReceived uint64
	bytesSent     uint64
	lastRecv      int64
	lastSend      int64
	connected     int32
	disconnect    int32

	conn Transport

	addr    string
	cfg     Config
	inbound bool

	knownInventory *mruInventoryMap

	flagsMtx           sync.Mutex
	na                 *wire.NetAddress
	id                 int32
	userAgent          string
	services           wire.ServiceFlag
	versionKnown       bool
	advertisedProtoVer uint32
	protocolVersion    uint32
	verAckReceived     bool
	disableRelayTx     bool
	sendHeadersPreferred bool

	statsMtx       sync.RWMutex
	timeConnected  time.Time
	timeOffset     int64
	lastBlock      int32
	lastPingNonce  uint64
	lastPingTime   time.Time
	lastPingMicros int64

	banScore uint32

	outputQueue   chan outMsg
	sendQueue     chan outMsg
	sendDoneChan  chan struct{}
	outputInvChan chan *wire.InvVect
	stallControl  chan stallControlMsg

	inQuit     chan struct{}
	queueQuit  chan struct{}
	outQuit    chan struct{}
	quit       chan struct{}
}

// String returns a human-readable description of the peer.
func (p *Peer) String() string {
	return fmt.Sprintf("%s (%s)", p.addr, directionString(p.inbound))
}

func directionString(inbound bool) string {
	if inbound {
		return "inbound"
	}
	return "outbound"
}

// AddKnownInventory adds the passed inventory to the cache of known
// inventory for the peer, so it is never re-announced to it.
func (p *Peer) AddKnownInventory(invVect *wire.InvVect) {
	p.knownInventory.Add(invVect)
}

// KnowsInventory reports whether the peer is already known to have invVect.
func (p *Peer) KnowsInventory(invVect *wire.InvVect) bool {
	return p.knownInventory.Exists(invVect)
}

// StatsSnapshot returns a snapshot of the current peer flags and stats.
func (p *Peer) StatsSnapshot() *StatsSnap {
	p.statsMtx.RLock()
	defer p.statsMtx.RUnlock()

	p.flagsMtx.Lock()
	id := p.id
	userAgent := p.userAgent
	services := p.services
	protocolVersion := p.protocolVersion
	p.flagsMtx.Unlock()

	return &StatsSnap{
		ID:             id,
		Addr:           p.addr,
		Services:       services,
		LastSend:       time.Unix(atomic.LoadInt64(&p.lastSend), 0),
		LastRecv:       time.Unix(atomic.LoadInt64(&p.lastRecv), 0),
		BytesSent:      atomic.LoadUint64(&p.bytesSent),
		BytesRecv:      atomic.LoadUint64(&p.bytesReceived),
		ConnTime:       p.timeConnected,
		TimeOffset:     p.timeOffset,
		Version:        protocolVersion,
		UserAgent:      userAgent,
		Inbound:        p.inbound,
		LastPingNonce:  p.lastPingNonce,
		LastPingTime:   p.lastPingTime,
		LastPingMicros: p.lastPingMicros,
	}
}

// ID returns the peer id.
func (p *Peer) ID() int32 {
	p.flagsMtx.Lock()
	defer p.flagsMtx.Unlock()
	return p.id
}

// NA returns the peer's network address.
func (p *Peer) NA() *wire.NetAddress {
	p.flagsMtx.Lock()
	defer p.flagsMtx.Unlock()
	return p.na
}

// Addr returns the peer address.
func (p *Peer) Addr() string {
	return p.addr
}

// Inbound returns whether the peer is an inbound connection.
func (p *Peer) Inbound() bool {
	return p.inbound
}

// Services returns the services flag of the remote peer.
func (p *Peer) Services() wire.ServiceFlag {
	p.flagsMtx.Lock()
	defer p.flagsMtx.Unlock()
	return p.services
}

// UserAgent returns the user agent of the remote peer.
func (p *Peer) UserAgent() string {
	p.flagsMtx.Lock()
	defer p.flagsMtx.Unlock()
	return p.userAgent
}

// LastPingNonce returns the last unanswered ping nonce, or zero if none is
// outstanding.
func (p *Peer) LastPingNonce() uint64 {
	p.statsMtx.RLock()
	defer p.statsMtx.RUnlock()
	return p.lastPingNonce
}

// VersionKnown returns whether the version negotiation has completed.
func (p *Peer) VersionKnown() bool {
	p.flagsMtx.Lock()
	defer p.flagsMtx.Unlock()
	return p.versionKnown
}

// VerAckReceived returns whether a verack has been received from the peer.
func (p *Peer) VerAckReceived() bool {
	p.flagsMtx.Lock()
	defer p.flagsMtx.Unlock()
	return p.verAckReceived
}

// ProtocolVersion returns the negotiated protocol version.
func (p *Peer) ProtocolVersion() uint32 {
	p.flagsMtx.Lock()
	defer p.flagsMtx.Unlock()
	return p.protocolVersion
}

// PrefersHeaders returns whether the peer has sent sendheaders and should
// be announced new blocks via HEADERS rather than INV.
func (p *Peer) PrefersHeaders() bool {
	p.flagsMtx.Lock()
	defer p.flagsMtx.Unlock()
	return p.sendHeadersPreferred
}

// SetPrefersHeaders records that this peer sent sendheaders.
func (p *Peer) SetPrefersHeaders() {
	p.flagsMtx.Lock()
	defer p.flagsMtx.Unlock()
	p.sendHeadersPreferred = true
}

// RelayTxDisabled returns whether the peer has opted out of unsolicited tx
// relay via the DisableRelayTx flag of its version message.
func (p *Peer) RelayTxDisabled() bool {
	p.flagsMtx.Lock()
	defer p.flagsMtx.Unlock()
	return p.disableRelayTx
}

// AddBanScore increases the peer's DoS score by score and logs reason. The
// caller is responsible for checking the result against the ban threshold
// and disconnecting (spec.md §4.1 "misbehave").
func (p *Peer) AddBanScore(score uint32, reason string) uint32 {
	newScore := atomic.AddUint32(&p.banScore, score)
	log.Debugf("Misbehaving peer %s: %s -- ban score increased to %d", p, reason, newScore)
	return newScore
}

// BanScore returns the peer's current accumulated DoS score.
func (p *Peer) BanScore() uint32 {
	return atomic.LoadUint32(&p.banScore)
}

// LastSend returns the last time a message was sent to the peer.
func (p *Peer) LastSend() time.Time {
	return time.Unix(atomic.LoadInt64(&p.lastSend), 0)
}

// LastRecv returns the last time a message was received from the peer.
func (p *Peer) LastRecv() time.Time {
	return time.Unix(atomic.LoadInt64(&p.lastRecv), 0)
}

// TimeConnected returns the time the peer connection was established.
func (p *Peer) TimeConnected() time.Time {
	p.statsMtx.RLock()
	defer p.statsMtx.RUnlock()
	return p.timeConnected
}

// localVersionMsg builds the version message this node sends to the peer.
func (p *Peer) localVersionMsg() (*wire.MsgVersion, error) {
	var blockHash *chainhash.Hash
	var blockHeight int32
	if p.cfg.NewestBlock != nil {
		var err error
		blockHash, blockHeight, err = p.cfg.NewestBlock()
		if err != nil {
			return nil, err
		}
	}
	if blockHash == nil {
		blockHash = p.cfg.ChainParams.GenesisHash
	}

	theirNA := p.na

	ourNA := &wire.NetAddress{
		Services: p.cfg.Services,
	}

	nonce, err := random.Uint64()
	if err != nil {
		return nil, err
	}
	sentNonces.Add(nonce)

	msg := wire.NewMsgVersion(ourNA, theirNA, nonce, blockHeight)
	msg.Services = p.cfg.Services
	msg.ProtocolVersion = int32(p.cfg.ProtocolVersion)
	msg.DisableRelayTx = p.cfg.DisableRelayTx

	msg.AddUserAgent(p.cfg.UserAgentName, p.cfg.UserAgentVersion, p.cfg.UserAgentComments...)

	return msg, nil
}

// PushRejectMsg sends a REJECT message for the given command and code,
// blocking until it has been queued for send if wait is true (spec.md §4.5
// REJECT).
func (p *Peer) PushRejectMsg(command string, code wire.RejectCode, reason string, hash *chainhash.Hash, wait bool) {
	if !code.IsWireSendable() {
		log.Warnf("dropping internal reject code %s from wire send to %s", code, p)
		return
	}

	msg := wire.NewMsgReject(command, code, reason)
	if hash != nil {
		msg.Hash = *hash
	}

	if !wait {
		p.QueueMessage(msg, nil)
		return
	}

	doneChan := make(chan struct{}, 1)
	p.QueueMessage(msg, doneChan)
	<-doneChan
}

// handleRemoteVersionMsg validates an inbound version message and returns
// an error if the remote peer is incompatible.
func (p *Peer) handleRemoteVersionMsg(msg *wire.MsgVersion) error {
	if !allowSelfConns && sentNonces.Exists(msg.Nonce) {
		return errors.New("disconnecting peer connected to self")
	}

	if uint32(msg.ProtocolVersion) < wire.MinAcceptableProtocolVersion {
		return errors.Errorf("protocol version must be %d or greater", wire.MinAcceptableProtocolVersion)
	}

	p.updateStatsFromVersionMsg(msg)
	p.updateFlagsFromVersionMsg(msg)
	return nil
}

func (p *Peer) updateStatsFromVersionMsg(msg *wire.MsgVersion) {
	p.statsMtx.Lock()
	defer p.statsMtx.Unlock()
	p.lastBlock = msg.LastBlock
	p.timeOffset = msg.Timestamp.Unix() - time.Now().Unix()
}

func (p *Peer) updateFlagsFromVersionMsg(msg *wire.MsgVersion) {
	p.flagsMtx.Lock()
	defer p.flagsMtx.Unlock()

	p.advertisedProtoVer = uint32(msg.ProtocolVersion)
	p.protocolVersion = minUint32(p.protocolVersion, p.advertisedProtoVer)
	p.versionKnown = true
	p.id = atomic.AddInt32(&nodeCount, 1)
	p.services = msg.Services
	p.userAgent = msg.UserAgent
	p.disableRelayTx = msg.DisableRelayTx
}

// handlePingMsg replies to a ping with a pong carrying the same nonce.
func (p *Peer) handlePingMsg(msg *wire.MsgPing) {
	p.QueueMessage(wire.NewMsgPong(msg.Nonce), nil)
}

// handlePongMsg matches an inbound pong against the last outstanding ping
// and records the round-trip time; unsolicited or zero-nonce pongs are
// ignored (spec.md §4.5 "PONG -> match against outstanding nonce").
func (p *Peer) handlePongMsg(msg *wire.MsgPong) {
	p.statsMtx.Lock()
	defer p.statsMtx.Unlock()
	if msg.Nonce != 0 && p.lastPingNonce != 0 && msg.Nonce == p.lastPingNonce {
		p.lastPingMicros = time.Since(p.lastPingTime).Microseconds()
		p.lastPingNonce = 0
	}
}

func (p *Peer) maybeAddDeadline(pendingResponses map[string]time.Time, msgCmd string) {
	deadline := time.Now().Add(stallResponseTimeout(p))

	switch msgCmd {
	case wire.CmdVersion:
		pendingResponses[wire.CmdVerAck] = deadline
	case wire.CmdMemPool:
		pendingResponses[wire.CmdInv] = deadline
	case wire.CmdGetBlocks:
		pendingResponses[wire.CmdInv] = deadline
	case wire.CmdGetHeaders:
		pendingResponses[wire.CmdHeaders] = deadline
	case wire.CmdGetData:
		pendingResponses[wire.CmdBlock] = deadline
		pendingResponses[wire.CmdMerkleBlock] = deadline
		pendingResponses[wire.CmdTx] = deadline
		pendingResponses[wire.CmdNotFound] = deadline
	}
}

// stallResponseTimeout returns how long to wait for a response to an
// outbound request: one third of the network's target block spacing, and
// never less than 30 seconds.
func stallResponseTimeout(p *Peer) time.Duration {
	const base = 3
	if p.cfg.ChainParams == nil {
		return 30 * time.Second
	}
	timeout := p.cfg.ChainParams.TargetTimePerBlock / base
	if timeout < 30*time.Second {
		return 30 * time.Second
	}
	return timeout
}

// stallHandler tracks expected responses to outbound requests and
// disconnects the peer if one fails to arrive in time, adjusting deadlines
// forward by the time spent running callbacks. It must be run as a
// goroutine.
func (p *Peer) stallHandler() {
	var handlerActive bool
	var handlersStartTime time.Time
	var deadlineOffset time.Duration

	pendingResponses := make(map[string]time.Time)

	stallTicker := time.NewTicker(stallTickInterval)
	defer stallTicker.Stop()

	var ioStopped bool
out:
	for {
		select {
		case msg := <-p.stallControl:
			switch msg.command {
			case sccSendMessage:
				p.maybeAddDeadline(pendingResponses, msg.message.Command())

			case sccReceiveMessage:
				switch msgCmd := msg.message.Command(); msgCmd {
				case wire.CmdBlock, wire.CmdMerkleBlock, wire.CmdTx, wire.CmdNotFound:
					delete(pendingResponses, wire.CmdBlock)
					delete(pendingResponses, wire.CmdMerkleBlock)
					delete(pendingResponses, wire.CmdTx)
					delete(pendingResponses, wire.CmdNotFound)
				default:
					delete(pendingResponses, msgCmd)
				}

			case sccHandlerStart:
				if handlerActive {
					log.Warnf("stall handler: handler start while one is already active for %s", p)
					continue
				}
				handlerActive = true
				handlersStartTime = time.Now()

			case sccHandlerDone:
				if !handlerActive {
					log.Warnf("stall handler: handler done with none active for %s", p)
					continue
				}
				deadlineOffset += time.Since(handlersStartTime)
				handlerActive = false
			}

		case <-stallTicker.C:
			now := time.Now()
			offset := deadlineOffset
			if handlerActive {
				offset += now.Sub(handlersStartTime)
			}

			for command, deadline := range pendingResponses {
				if now.Before(deadline.Add(offset)) {
					continue
				}
				p.AddBanScore(peerBanScoreStallTimeout, fmt.Sprintf("timeout waiting for %s", command))
				p.Disconnect()
				break
			}

			deadlineOffset = 0

		case <-p.inQuit:
			if ioStopped {
				break out
			}
			ioStopped = true

		case <-p.outQuit:
			if ioStopped {
				break out
			}
			ioStopped = true
		}
	}

cleanup:
	for {
		select {
		case <-p.stallControl:
		default:
			break cleanup
		}
	}
	log.Tracef("stall handler done for %s", p)
}

const peerBanScoreStallTimeout = 1

// HandleMessage dispatches an inbound message to its registered listener.
// It is called by whatever owns the Transport's read loop (directly, or
// via a netsync dispatcher) once per message, serialized per peer.
func (p *Peer) HandleMessage(msg wire.Message) {
	atomic.StoreInt64(&p.lastRecv, time.Now().Unix())
	p.stallControl <- stallControlMsg{sccReceiveMessage, msg}

	if p.cfg.Listeners.OnRead != nil {
		p.cfg.Listeners.OnRead(p, msg, nil)
	}

	p.stallControl <- stallControlMsg{sccHandlerStart, msg}
	p.invokeListener(msg)
	p.stallControl <- stallControlMsg{sccHandlerDone, msg}
}

func (p *Peer) invokeListener(msg wire.Message) {
	l := p.cfg.Listeners
	switch m := msg.(type) {
	case *wire.MsgVersion:
		if err := p.handleRemoteVersionMsg(m); err != nil {
			log.Errorf("version negotiation failed for %s: %s", p, err)
			p.Disconnect()
			return
		}
		if l.OnVersion != nil {
			l.OnVersion(p, m)
		}
	case *wire.MsgVerAck:
		p.flagsMtx.Lock()
		p.verAckReceived = true
		p.flagsMtx.Unlock()
		if l.OnVerAck != nil {
			l.OnVerAck(p, m)
		}
	case *wire.MsgGetAddr:
		if l.OnGetAddr != nil {
			l.OnGetAddr(p, m)
		}
	case *wire.MsgAddr:
		if l.OnAddr != nil {
			l.OnAddr(p, m)
		}
	case *wire.MsgPing:
		p.handlePingMsg(m)
		if l.OnPing != nil {
			l.OnPing(p, m)
		}
	case *wire.MsgPong:
		p.handlePongMsg(m)
		if l.OnPong != nil {
			l.OnPong(p, m)
		}
	case *wire.MsgTx:
		if l.OnTx != nil {
			l.OnTx(p, m)
		}
	case *wire.MsgStx:
		if l.OnStx != nil {
			l.OnStx(p, m)
		}
	case *wire.MsgBlock:
		if l.OnBlock != nil {
			l.OnBlock(p, m)
		}
	case *wire.MsgInv:
		if l.OnInv != nil {
			l.OnInv(p, m)
		}
	case *wire.MsgNotFound:
		if l.OnNotFound != nil {
			l.OnNotFound(p, m)
		}
	case *wire.MsgGetData:
		if l.OnGetData != nil {
			l.OnGetData(p, m)
		}
	case *wire.MsgGetBlocks:
		if l.OnGetBlocks != nil {
			l.OnGetBlocks(p, m)
		}
	case *wire.MsgGetHeaders:
		if l.OnGetHeaders != nil {
			l.OnGetHeaders(p, m)
		}
	case *wire.MsgHeaders:
		if l.OnHeaders != nil {
			l.OnHeaders(p, m)
		}
	case *wire.MsgSendHeaders:
		p.SetPrefersHeaders()
		if l.OnSendHeaders != nil {
			l.OnSendHeaders(p, m)
		}
	case *wire.MsgFilterAdd:
		if l.OnFilterAdd != nil {
			l.OnFilterAdd(p, m)
		}
	case *wire.MsgFilterClear:
		if l.OnFilterClear != nil {
			l.OnFilterClear(p, m)
		}
	case *wire.MsgFilterLoad:
		if l.OnFilterLoad != nil {
			l.OnFilterLoad(p, m)
		}
	case *wire.MsgMerkleBlock:
		if l.OnMerkleBlock != nil {
			l.OnMerkleBlock(p, m)
		}
	case *wire.MsgMemPool:
		if l.OnMemPool != nil {
			l.OnMemPool(p, m)
		}
	case *wire.MsgReject:
		// Parsed only for debug logging; never replied to, to avoid a
		// reject-of-a-reject feedback loop (spec.md §4.5 REJECT).
		log.Debugf("received reject from %s: %s", p, spew.Sdump(m))
		if l.OnReject != nil {
			l.OnReject(p, m)
		}
	default:
		log.Debugf("received unhandled command %s from %s", msg.Command(), p)
	}
}

// queueHandler muxes various sources of outbound data so callers never
// block sending a message, and trickles inventory announcements in
// batches. It must be run as a goroutine.
func (p *Peer) queueHandler() {
	pendingMsgs := list.New()
	invSendQueue := list.New()

	trickleInterval := trickleTimeout
	if p.cfg.TrickleInterval > 0 {
		trickleInterval = p.cfg.TrickleInterval
	}
	trickleTicker := time.NewTicker(trickleInterval)
	defer trickleTicker.Stop()

	waiting := false

	queuePacket := func(msg outMsg, l *list.List, waiting bool) bool {
		if !waiting {
			p.sendQueue <- msg
		} else {
			l.PushBack(msg)
		}
		return true
	}

out:
	for {
		select {
		case msg := <-p.outputQueue:
			waiting = queuePacket(msg, pendingMsgs, waiting)

		case <-p.sendDoneChan:
			next := pendingMsgs.Front()
			if next == nil {
				waiting = false
				continue
			}
			val := pendingMsgs.Remove(next)
			p.sendQueue <- val.(outMsg)

		case iv := <-p.outputInvChan:
			if !p.VersionKnown() {
				continue
			}
			if iv.Type == wire.InvTypeBlock {
				invMsg := wire.NewMsgInvSizeHint(1)
				_ = invMsg.AddInvVect(iv)
				waiting = queuePacket(outMsg{msg: invMsg}, pendingMsgs, waiting)
			} else {
				invSendQueue.PushBack(iv)
			}

		case <-trickleTicker.C:
			if atomic.LoadInt32(&p.disconnect) != 0 || invSendQueue.Len() == 0 {
				continue
			}

			invMsg := wire.NewMsgInvSizeHint(uint(invSendQueue.Len()))
			for e := invSendQueue.Front(); e != nil; e = invSendQueue.Front() {
				iv := invSendQueue.Remove(e).(*wire.InvVect)
				if p.knownInventory.Exists(iv) {
					continue
				}
				_ = invMsg.AddInvVect(iv)
				if len(invMsg.InvList) >= maxInvTrickleSize {
					waiting = queuePacket(outMsg{msg: invMsg}, pendingMsgs, waiting)
					invMsg = wire.NewMsgInvSizeHint(uint(invSendQueue.Len()))
				}
				p.AddKnownInventory(iv)
			}
			if len(invMsg.InvList) > 0 {
				waiting = queuePacket(outMsg{msg: invMsg}, pendingMsgs, waiting)
			}

		case <-p.quit:
			break out
		}
	}

	for e := pendingMsgs.Front(); e != nil; e = pendingMsgs.Front() {
		val := pendingMsgs.Remove(e).(outMsg)
		if val.doneChan != nil {
			val.doneChan <- struct{}{}
		}
	}
cleanup:
	for {
		select {
		case msg := <-p.outputQueue:
			if msg.doneChan != nil {
				msg.doneChan <- struct{}{}
			}
		case <-p.outputInvChan:
		default:
			break cleanup
		}
	}
	close(p.queueQuit)
	log.Tracef("queue handler done for %s", p)
}

// outHandler serializes writes to the transport. It must be run as a
// goroutine.
func (p *Peer) outHandler() {
out:
	for {
		select {
		case msg := <-p.sendQueue:
			if pingMsg, ok := msg.msg.(*wire.MsgPing); ok {
				p.statsMtx.Lock()
				p.lastPingNonce = pingMsg.Nonce
				p.lastPingTime = time.Now()
				p.statsMtx.Unlock()
			}

			p.stallControl <- stallControlMsg{sccSendMessage, msg.msg}

			err := p.conn.WriteMessage(msg.msg)
			if p.cfg.Listeners.OnWrite != nil {
				p.cfg.Listeners.OnWrite(p, msg.msg, err)
			}
			if err != nil {
				p.Disconnect()
				log.Errorf("failed to send message to %s: %s", p, err)
				if msg.doneChan != nil {
					msg.doneChan <- struct{}{}
				}
				continue
			}

			atomic.StoreInt64(&p.lastSend, time.Now().Unix())
			atomic.AddUint64(&p.bytesSent, 1)
			if msg.doneChan != nil {
				msg.doneChan <- struct{}{}
			}
			p.sendDoneChan <- struct{}{}

		case <-p.quit:
			break out
		}
	}

	<-p.queueQuit

cleanup:
	for {
		select {
		case msg := <-p.sendQueue:
			if msg.doneChan != nil {
				msg.doneChan <- struct{}{}
			}
		default:
			break cleanup
		}
	}
	close(p.outQuit)
	log.Tracef("output handler done for %s", p)
}

// inHandler drains the transport's inbound messages and dispatches each to
// HandleMessage. It must be run as a goroutine.
func (p *Peer) inHandler() {
	idleTimer := time.AfterFunc(idleTimeout, func() {
		log.Warnf("peer %s no answer for %s -- disconnecting", p, idleTimeout)
		p.Disconnect()
	})

out:
	for atomic.LoadInt32(&p.disconnect) == 0 {
		msg, err := p.conn.ReadMessage()
		idleTimer.Stop()
		if err != nil {
			if p.cfg.Listeners.OnRead != nil {
				p.cfg.Listeners.OnRead(p, nil, err)
			}
			break out
		}
		atomic.AddUint64(&p.bytesReceived, 1)
		p.HandleMessage(msg)
		idleTimer.Reset(idleTimeout)
	}

	close(p.inQuit)
	log.Tracef("input handler done for %s", p)
}

// pingHandler periodically pings the peer. It must be run as a goroutine.
func (p *Peer) pingHandler() {
	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

out:
	for {
		select {
		case <-pingTicker.C:
			nonce, err := random.Uint64()
			if err != nil {
				log.Errorf("not sending ping to %s: %s", p, err)
				continue
			}
			p.QueueMessage(wire.NewMsgPing(nonce), nil)

		case <-p.quit:
			break out
		}
	}
}

// QueueMessage adds msg to the peer's outbound queue. Safe for concurrent
// use.
func (p *Peer) QueueMessage(msg wire.Message, doneChan chan<- struct{}) {
	if !p.Connected() {
		if doneChan != nil {
			go func() { doneChan <- struct{}{} }()
		}
		return
	}
	p.outputQueue <- outMsg{msg: msg, doneChan: doneChan}
}

// QueueInventory adds invVect to the inventory trickle queue, deduped
// against the peer's known-inventory cache (spec.md §4.2). Safe for
// concurrent use.
func (p *Peer) QueueInventory(invVect *wire.InvVect) {
	if p.knownInventory.Exists(invVect) {
		return
	}
	if !p.Connected() {
		return
	}
	p.outputInvChan <- invVect
}

// Connected reports whether the peer is currently connected.
func (p *Peer) Connected() bool {
	return atomic.LoadInt32(&p.connected) != 0 && atomic.LoadInt32(&p.disconnect) == 0
}

// Disconnect closes the peer's transport and shuts down its goroutines.
// Safe to call multiple times and from any goroutine.
func (p *Peer) Disconnect() {
	if atomic.AddInt32(&p.disconnect, 1) != 1 {
		return
	}
	log.Tracef("disconnecting %s", p)
	if p.conn != nil {
		_ = p.conn.Close()
	}
	close(p.quit)
}

// WaitForDisconnect blocks until the peer has disconnected.
func (p *Peer) WaitForDisconnect() {
	<-p.quit
}

// AssociateConnection associates conn with the peer and starts the
// handshake and I/O goroutines. It is a no-op if already connected.
func (p *Peer) AssociateConnection(conn Transport) {
	if !atomic.CompareAndSwapInt32(&p.connected, 0, 1) {
		return
	}

	p.conn = conn
	if p.na == nil {
		na, err := newNetAddress(conn.RemoteAddr(), p.cfg.Services)
		if err != nil {
			log.Errorf("could not build net address for %s: %s", p, err)
		} else {
			p.na = na
		}
	}

	go func() {
		if err := p.negotiateProtocol(); err != nil {
			log.Errorf("version negotiation failed for %s: %s", p, err)
			p.Disconnect()
			return
		}
		p.timeConnected = time.Now()

		go p.stallHandler()
		go p.inHandler()
		go p.queueHandler()
		go p.outHandler()
		go p.pingHandler()
	}()
}

// negotiateProtocol performs the version/verack handshake, sending first
// when outbound and waiting on the peer's version first when inbound
// (spec.md §8 scenario 1 "Handshake").
func (p *Peer) negotiateProtocol() error {
	if p.inbound {
		return p.negotiateInboundProtocol()
	}
	return p.negotiateOutboundProtocol()
}

func (p *Peer) negotiateInboundProtocol() error {
	return p.waitForVersion(negotiateTimeout)
}

func (p *Peer) negotiateOutboundProtocol() error {
	localMsg, err := p.localVersionMsg()
	if err != nil {
		return err
	}
	if err := p.conn.WriteMessage(localMsg); err != nil {
		return err
	}
	return p.waitForVersion(negotiateTimeout)
}

func (p *Peer) waitForVersion(timeout time.Duration) error {
	type result struct {
		msg wire.Message
		err error
	}
	ch := make(chan result, 1)
	go func() {
		msg, err := p.conn.ReadMessage()
		ch <- result{msg, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return r.err
		}
		versionMsg, ok := r.msg.(*wire.MsgVersion)
		if !ok {
			return errors.New("did not receive version message as first message")
		}
		if err := p.handleRemoteVersionMsg(versionMsg); err != nil {
			return err
		}
		if p.cfg.Listeners.OnVersion != nil {
			p.cfg.Listeners.OnVersion(p, versionMsg)
		}
		if p.inbound {
			localMsg, err := p.localVersionMsg()
			if err != nil {
				return err
			}
			if err := p.conn.WriteMessage(localMsg); err != nil {
				return err
			}
		}
		return p.conn.WriteMessage(wire.NewMsgVerAck())
	case <-time.After(timeout):
		return errors.New("timeout waiting for version message")
	}
}

func newPeerBase(cfg *Config, inbound bool) *Peer {
	if cfg == nil {
		cfg = &Config{}
	}
	p := &Peer{
		inbound:         inbound,
		knownInventory:  newMruInventoryMap(maxKnownInventory),
		outputQueue:     make(chan outMsg, outputBufferSize),
		sendQueue:       make(chan outMsg, 1),
		sendDoneChan:    make(chan struct{}, 1),
		outputInvChan:   make(chan *wire.InvVect, outputBufferSize),
		stallControl:    make(chan stallControlMsg, 1),
		inQuit:          make(chan struct{}),
		queueQuit:       make(chan struct{}),
		outQuit:         make(chan struct{}),
		quit:            make(chan struct{}),
		cfg:             *cfg,
		services:        cfg.Services,
		protocolVersion: minUint32(cfg.ProtocolVersion, MaxProtocolVersion),
		disableRelayTx:  cfg.DisableRelayTx,
	}
	return p
}

// NewInboundPeer returns a new Peer for an already-accepted inbound
// connection.
func NewInboundPeer(cfg *Config) *Peer {
	return newPeerBase(cfg, true)
}

// NewOutboundPeer returns a new Peer for addr, which has not yet been
// connected.
func NewOutboundPeer(cfg *Config, addr string) (*Peer, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, err
	}

	p := newPeerBase(cfg, false)
	p.addr = addr

	if cfg.HostToNetAddress != nil {
		na, err := cfg.HostToNetAddress(host, uint16(port), cfg.Services)
		if err != nil {
			return nil, err
		}
		p.na = na
	} else {
		p.na = wire.NewNetAddressIPPort(net.ParseIP(host), uint16(port), 0)
	}

	return p, nil
}

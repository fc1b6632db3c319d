// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nyx-project/nyxd/addrmgr"
	"github.com/nyx-project/nyxd/blockchain"
	"github.com/nyx-project/nyxd/chaincfg"
	"github.com/nyx-project/nyxd/chainhash"
	"github.com/nyx-project/nyxd/mempool"
	"github.com/nyx-project/nyxd/peer"
	"github.com/nyx-project/nyxd/wire"
	"github.com/pkg/errors"
)

// Config configures a SyncManager's collaborators (spec.md §1 "Out of
// scope: external collaborators").
type Config struct {
	Chain       blockchain.Chain
	Validator   blockchain.Validator
	TxPool      mempool.TxPool
	StxPool     mempool.StxPool
	CoinView    mempool.CoinView
	AddrManager *addrmgr.AddrManager
	ChainParams *chaincfg.Params

	// BanThreshold is the cumulative misbehavior score at which a peer is
	// disconnected (spec.md §6 "banscore", default 100).
	BanThreshold uint32

	// MaxOrphanTx bounds the orphan pool (spec.md §6 "maxorphantx").
	MaxOrphanTx int

	// BlocksOnly disables tx relay acceptance from non-whitelisted peers
	// (spec.md §4.5 INV "In 'blocks-only' mode").
	BlocksOnly bool

	// WhitelistRelay allows whitelisted peers' rejected transactions to
	// still be relayed (spec.md §6 "whitelistrelay").
	WhitelistRelay bool

	MaxBlocksPerPeer int
}

// pendingStx is a service transaction stashed because its referenced
// payment transaction was not yet known (spec.md §4.5 STX "stash in a
// pending map keyed by hash").
type pendingStx struct {
	stx           *wire.MsgStx
	paymentTxHash chainhash.Hash
}

// asRuleError unwraps err looking for a *mempool.RuleError, the boundary
// between "this transaction/block was rejected for a protocol reason we
// must score and report" and "something unexpected went wrong" (spec.md
// §4.5 TX/BLOCK "On other rule failure").
func (sm *SyncManager) asRuleError(err error) (*mempool.RuleError, bool) {
	var ruleErr *mempool.RuleError
	if errors.As(err, &ruleErr) {
		return ruleErr, true
	}
	return nil, false
}

// SyncManager coordinates the six components of SPEC_FULL.md §2 against a
// single global chain mutex, following the teacher's convention (seen in
// connmgr.ConnManager and peer.Peer) of an exported struct embedding a
// mutex plus a started/shutdown int32 pair (spec.md §5 "a single global
// chain mutex... serializes all mutations").
// chainLock is the chain mutex (cs_main equivalent, spec.md §5): a
// channel-backed mutex since the outbound tick must be able to skip a
// contended tick rather than block on it (spec.md §4.6 step 2 "Try to
// acquire the global chain lock; if contended, skip this tick"), a
// capability sync.Mutex alone doesn't expose on this module's Go version.
type chainLock chan struct{}

func newChainLock() chainLock {
	l := make(chainLock, 1)
	l <- struct{}{}
	return l
}

func (l chainLock) Lock() { <-l }

func (l chainLock) Unlock() { l <- struct{}{} }

// TryLock attempts to acquire the lock without blocking, returning false
// if it is currently held.
func (l chainLock) TryLock() bool {
	select {
	case <-l:
		return true
	default:
		return false
	}
}

type SyncManager struct {
	mtx chainLock // the chain mutex (cs_main equivalent, spec.md §5)

	cfg Config

	registry *PeerRegistry
	filter   *InventoryFilter
	orphans  *OrphanPool

	pendingMtx sync.Mutex
	pending    map[chainhash.Hash]*pendingStx

	syncPeer PeerId
	hasSync  bool

	started, shutdown int32
	wg                sync.WaitGroup
	quit              chan struct{}
}

// New returns a SyncManager wired against cfg's collaborators.
func New(cfg Config) *SyncManager {
	if cfg.BanThreshold == 0 {
		cfg.BanThreshold = peer.DefaultBanThreshold
	}
	if cfg.MaxOrphanTx == 0 {
		cfg.MaxOrphanTx = defaultMaxOrphanTransactions
	}

	orphans := NewOrphanPool()
	orphans.maxOrphans = cfg.MaxOrphanTx

	sm := &SyncManager{
		mtx:      newChainLock(),
		cfg:      cfg,
		registry: NewPeerRegistry(),
		orphans:  orphans,
		pending:  make(map[chainhash.Hash]*pendingStx),
		quit:     make(chan struct{}),
	}
	sm.filter = NewInventoryFilter(cfg.TxPool, cfg.StxPool, cfg.CoinView, cfg.Chain, orphans)
	return sm
}

// NewInboundPeer allocates a PeerId, wires that id's message listeners into
// cfg, and constructs+registers the resulting inbound peer (spec.md §4.1
// "initialize").
func (sm *SyncManager) NewInboundPeer(cfg peer.Config) (*peer.Peer, PeerId) {
	id := NewPeerId()
	cfg.Listeners = *sm.listenersFor(id)
	p := peer.NewInboundPeer(&cfg)
	sm.registry.initialize(id, p, "", true)
	return p, id
}

// NewOutboundPeer is NewInboundPeer's outbound counterpart. For outbound
// peers the handshake initiation message (VERSION) is emitted by
// peer.Peer's own negotiation goroutine once AssociateConnection is called
// (spec.md §4.1 "for outbound peers, emit the handshake initiation
// message").
func (sm *SyncManager) NewOutboundPeer(cfg peer.Config, addr string) (*peer.Peer, PeerId, error) {
	id := NewPeerId()
	cfg.Listeners = *sm.listenersFor(id)
	p, err := peer.NewOutboundPeer(&cfg, addr)
	if err != nil {
		return nil, PeerId{}, err
	}
	sm.registry.initialize(id, p, addr, false)
	return p, id, nil
}

// RemovePeer finalizes id's registry state and releases its orphans and
// in-flight entries (spec.md §4.1 "finalize").
func (sm *SyncManager) RemovePeer(id PeerId) (cleanlyCompleted bool) {
	sm.mtx.Lock()
	defer sm.mtx.Unlock()

	sm.orphans.EraseForPeer(id)
	if sm.hasSync && sm.syncPeer == id {
		sm.hasSync = false
	}
	return sm.registry.finalize(id)
}

// misbehave applies score to id's cumulative DoS score and returns whether
// that score is now at or above the ban threshold (spec.md §4.1
// "misbehave").
func (sm *SyncManager) misbehave(id PeerId, score uint32, reason string) bool {
	total := sm.registry.misbehave(id, score, sm.cfg.BanThreshold, reason)
	return total >= sm.cfg.BanThreshold
}

// Start launches the periodic outbound tick loop (spec.md §4.6).
func (sm *SyncManager) Start() {
	if !atomic.CompareAndSwapInt32(&sm.started, 0, 1) {
		return
	}
	sm.wg.Add(1)
	go sm.tickLoop()
}

// Stop halts the outbound tick loop.
func (sm *SyncManager) Stop() {
	if !atomic.CompareAndSwapInt32(&sm.shutdown, 0, 1) {
		return
	}
	close(sm.quit)
	sm.wg.Wait()
}

// outboundTickInterval is how often SPEC_FULL.md §4.6's outbound tick
// runs per peer, grounded on the teacher's peer.go pingInterval/
// stallTickInterval cadence.
const outboundTickInterval = 2 * time.Second

func (sm *SyncManager) tickLoop() {
	defer sm.wg.Done()

	ticker := time.NewTicker(outboundTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sm.registry.forEach(func(st *peerSyncState) {
				sm.outboundTick(st)
			})
			sm.filter.relay.ExpireOld()
		case <-sm.quit:
			return
		}
	}
}

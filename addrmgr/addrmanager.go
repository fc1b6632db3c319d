// Copyright (c) 2013-2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addrmgr implements concurrency-safe peer address management,
// tracking which network addresses are known, which have been tried, and
// how likely each is to be worth a connection attempt. It backs the
// GETADDR/ADDR exchange and the outbound connector's candidate selection
// (spec.md §4.5 "GETADDR" and §9 Glossary).
package addrmgr

import (
	"container/list"
	"crypto/sha256"
	"encoding/binary"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/nyx-project/nyxd/logger"
	"github.com/nyx-project/nyxd/util/mstime"
	"github.com/nyx-project/nyxd/util/random"
	"github.com/nyx-project/nyxd/wire"
)

var log, _ = logger.Get(logger.SubsystemTags.ADXR)

const (
	// numNewBuckets is the number of buckets for fresh, unverified addresses.
	numNewBuckets = 1024

	// numTriedBuckets is the number of buckets for addresses known to have
	// accepted a connection at some point.
	numTriedBuckets = 64

	newBucketSize   = 64
	triedBucketSize = 64

	// numMissingDays is used by isBad to decide an address hasn't been seen
	// recently enough to trust.
	numMissingDays = 30

	// numRetries is the number of failed attempts before an address with no
	// recorded success is considered bad.
	numRetries = 3

	// maxFailures and minBadDays together gate addresses that have failed
	// repeatedly without a recent success.
	maxFailures = 10
	minBadDays  = 7

	// needAddressThreshold is the number of addresses under which
	// NeedMoreAddresses reports true.
	needAddressThreshold = 1000

	// getAddrMax caps the number of selection attempts GetAddress makes.
	getAddrMax = 2500
)

// AddressPriority describes the priority of a local address, determining
// which of several known local addresses GetBestLocalAddress prefers.
type AddressPriority int

const (
	// InterfacePrio signifies an address discovered from a local network
	// interface.
	InterfacePrio AddressPriority = iota

	// BoundPrio signifies an address explicitly bound to.
	BoundPrio

	// ManualPrio signifies an address configured manually by the user,
	// taking precedence over any automatically discovered address.
	ManualPrio
)

// AddrManager provides concurrency-safe address management for use with a
// peer-to-peer protocol. Fresh addresses live in the "new" table, bucketed
// by the address that introduced them; addresses a connection has
// succeeded against move to the "tried" table, bucketed by the address
// itself.
type AddrManager struct {
	mtx            sync.Mutex
	lookupFunc     func(string) ([]net.IP, error)
	rand           *addrRand
	key            [32]byte
	addrIndex      map[string]*KnownAddress
	addrNew        [numNewBuckets]map[string]*KnownAddress
	addrTried      [numTriedBuckets]*list.List
	started        int32
	shutdown       int32
	wg             sync.WaitGroup
	quit           chan struct{}
	nTried         int
	nNew           int
	localAddresses map[string]*localAddress
}

type localAddress struct {
	na       *wire.NetAddress
	priority AddressPriority
}

// addrRand is a minimal crypto/rand-backed source of the randomness the
// bucket-assignment and address-selection algorithms need, avoiding
// math/rand's predictability (spec.md §9 "relay_address ... deterministic
// keyed PRF" applies the same reasoning here: an adversary must not be
// able to predict which bucket an address lands in).
type addrRand struct{}

func (addrRand) Uint64() uint64 {
	v, err := random.Uint64()
	if err != nil {
		// crypto/rand failures are not expected in practice; fall back to
		// a fixed value rather than panicking the address manager.
		return 0
	}
	return v
}

// New returns a new address manager, using lookupFunc to resolve DNS seed
// hostnames.
func New(lookupFunc func(string) ([]net.IP, error)) *AddrManager {
	am := &AddrManager{
		lookupFunc:     lookupFunc,
		rand:           &addrRand{},
		addrIndex:      make(map[string]*KnownAddress),
		localAddresses: make(map[string]*localAddress),
		quit:           make(chan struct{}),
	}
	for i := range am.addrNew {
		am.addrNew[i] = make(map[string]*KnownAddress)
	}
	for i := range am.addrTried {
		am.addrTried[i] = list.New()
	}
	if _, err := random.Uint64(); err == nil {
		var seed [32]byte
		for i := 0; i < 4; i++ {
			v := am.rand.Uint64()
			binary.LittleEndian.PutUint64(seed[i*8:], v)
		}
		am.key = sha256.Sum256(seed[:])
	}
	return am
}

// Start marks the address manager as running. It is safe to call multiple
// times.
func (a *AddrManager) Start() error {
	if !atomic.CompareAndSwapInt32(&a.started, 0, 1) {
		return nil
	}
	log.Tracef("Starting address manager")
	return nil
}

// Stop gracefully shuts down the address manager.
func (a *AddrManager) Stop() error {
	if !atomic.CompareAndSwapInt32(&a.shutdown, 0, 1) {
		log.Warnf("Address manager is already in the process of shutting down")
		return nil
	}
	log.Tracef("Stopping address manager")
	close(a.quit)
	a.wg.Wait()
	return nil
}

// NetAddressKey returns a string key for use as a map lookup key for na,
// consisting of its host:port form.
func NetAddressKey(na *wire.NetAddress) string {
	port := strconv.FormatUint(uint64(na.Port), 10)
	return net.JoinHostPort(na.IP.String(), port)
}

// find returns the known address for na, or nil if it isn't known.
func (a *AddrManager) find(addr *wire.NetAddress) *KnownAddress {
	return a.addrIndex[NetAddressKey(addr)]
}

func (a *AddrManager) getNewBucket(na, srcAddr *wire.NetAddress) int {
	h := sha256.New()
	_, _ = h.Write(a.key[:])
	_, _ = h.Write([]byte(NetAddressKey(na)))
	_, _ = h.Write([]byte(groupKey(srcAddr.IP)))
	sum := h.Sum(nil)
	return int(binary.LittleEndian.Uint64(sum[:8]) % numNewBuckets)
}

func (a *AddrManager) getTriedBucket(na *wire.NetAddress) int {
	h := sha256.New()
	_, _ = h.Write(a.key[:])
	_, _ = h.Write([]byte(NetAddressKey(na)))
	sum := h.Sum(nil)
	return int(binary.LittleEndian.Uint64(sum[:8]) % numTriedBuckets)
}

// groupKey returns a string representing the /16 (IPv4) or /32 (IPv6) group
// an IP belongs to, used to keep a single network from dominating a bucket.
func groupKey(ip net.IP) string {
	if v4 := ip.To4(); v4 != nil {
		return net.IPv4(v4[0], v4[1], 0, 0).String()
	}
	if len(ip) == net.IPv6len {
		return net.IP(ip[:4]).String()
	}
	return ip.String()
}

// GroupKey returns a string representing the network group of na, used by
// callers outside this package (such as connmgr) to keep outbound
// connections spread across distinct network segments.
func GroupKey(na *wire.NetAddress) string {
	return groupKey(na.IP)
}

// AddAddress records addr as having been learned about via srcAddr. An
// address that is already known is merely refreshed.
func (a *AddrManager) AddAddress(addr, srcAddr *wire.NetAddress) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.addAddress(addr, srcAddr)
}

func (a *AddrManager) addAddress(addr, srcAddr *wire.NetAddress) {
	if !isRoutable(addr.IP) {
		return
	}

	addrKey := NetAddressKey(addr)
	ka := a.find(addr)
	if ka != nil {
		if ka.na.Timestamp.Before(addr.Timestamp) && !ka.na.Timestamp.IsZero() {
			ka.na.Timestamp = addr.Timestamp
		}
		if ka.tried {
			return
		}
		if ka.refs >= newBucketSize {
			return
		}
		factor := int32(2 * (ka.refs + 1))
		if factor != 0 && a.rand.Uint64()%uint64(factor) != 0 {
			return
		}
	} else {
		ka = &KnownAddress{na: addr, srcAddr: srcAddr}
		a.addrIndex[addrKey] = ka
		a.nNew++
	}

	bucket := a.getNewBucket(addr, srcAddr)
	if _, ok := a.addrNew[bucket][addrKey]; ok {
		return
	}
	if len(a.addrNew[bucket]) >= newBucketSize {
		a.expireOldest(bucket)
	}
	ka.refs++
	a.addrNew[bucket][addrKey] = ka
}

func (a *AddrManager) expireOldest(bucket int) {
	var oldestKey string
	var oldest *KnownAddress
	for k, v := range a.addrNew[bucket] {
		if oldest == nil || v.na.Timestamp.Before(oldest.na.Timestamp) {
			oldest = v
			oldestKey = k
		}
	}
	if oldest == nil {
		return
	}
	delete(a.addrNew[bucket], oldestKey)
	oldest.refs--
	if oldest.refs == 0 {
		delete(a.addrIndex, oldestKey)
		a.nNew--
	}
}

// AddAddresses is the bulk form of AddAddress, as delivered by an inbound
// ADDR message (spec.md §4.5 ADDR).
func (a *AddrManager) AddAddresses(addrs []*wire.NetAddress, srcAddr *wire.NetAddress) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	for _, addr := range addrs {
		a.addAddress(addr, srcAddr)
	}
}

// AddAddressByIP parses an ip:port string and adds it as coming from
// itself (used for manually configured peers).
func (a *AddrManager) AddAddressByIP(addrIP string) error {
	host, portStr, err := net.SplitHostPort(addrIP)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return errors.Errorf("invalid ip address %s", host)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return errors.Errorf("invalid port %s: %s", portStr, err)
	}
	na := wire.NewNetAddressIPPort(ip, uint16(port), 0)
	a.AddAddress(na, na)
	return nil
}

// DeserializeNetAddress resolves addr (an ip:port string, or a hostname
// resolved via the configured lookup function) into a wire.NetAddress.
func (a *AddrManager) DeserializeNetAddress(addr string) (*wire.NetAddress, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, err
	}

	ip := net.ParseIP(host)
	if ip == nil {
		if a.lookupFunc == nil {
			return nil, errors.Errorf("can not resolve host %s: no lookup function configured", host)
		}
		ips, err := a.lookupFunc(host)
		if err != nil {
			return nil, err
		}
		if len(ips) == 0 {
			return nil, errors.Errorf("no addresses found for %s", host)
		}
		ip = ips[0]
	}

	return wire.NewNetAddressIPPort(ip, uint16(port), 0), nil
}

// Attempt marks addr as having just had a connection attempted against it.
func (a *AddrManager) Attempt(addr *wire.NetAddress) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	ka := a.find(addr)
	if ka == nil {
		return
	}
	ka.attempts++
	ka.lastattempt = mstime.Now()
}

// Connected refreshes addr's timestamp to now, called whenever a message
// is received from the peer (spec.md §9 "addresses refresh on any inbound
// traffic"). The refresh is skipped while the stored timestamp is less than
// an hour old, so a live connection's timestamp lags by at most an hour.
func (a *AddrManager) Connected(addr *wire.NetAddress) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	ka := a.find(addr)
	if ka == nil {
		return
	}
	now := mstime.Now()
	if now.Sub(ka.na.Timestamp) < time.Hour {
		return
	}
	na := *ka.na
	na.Timestamp = now
	ka.na = &na
}

// Good marks addr as having just been used successfully, promoting it from
// the new table to the tried table.
func (a *AddrManager) Good(addr *wire.NetAddress) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	ka := a.find(addr)
	if ka == nil {
		return
	}

	now := mstime.Now()
	ka.lastsuccess = now
	ka.lastattempt = now
	ka.attempts = 0

	if ka.tried {
		return
	}

	addrKey := NetAddressKey(addr)
	for i := range a.addrNew {
		if _, ok := a.addrNew[i][addrKey]; ok {
			delete(a.addrNew[i], addrKey)
			ka.refs--
		}
	}
	a.nNew--

	bucket := a.getTriedBucket(addr)
	if a.addrTried[bucket].Len() >= triedBucketSize {
		a.evictOldestTried(bucket)
	}
	ka.tried = true
	ka.refs = 0
	a.addrTried[bucket].PushBack(ka)
	a.nTried++
}

func (a *AddrManager) evictOldestTried(bucket int) {
	var oldestElem *list.Element
	for e := a.addrTried[bucket].Front(); e != nil; e = e.Next() {
		ka := e.Value.(*KnownAddress)
		if oldestElem == nil || ka.na.Timestamp.Before(oldestElem.Value.(*KnownAddress).na.Timestamp) {
			oldestElem = e
		}
	}
	if oldestElem == nil {
		return
	}
	ka := oldestElem.Value.(*KnownAddress)
	a.addrTried[bucket].Remove(oldestElem)
	ka.tried = false
	a.nTried--
	delete(a.addrIndex, NetAddressKey(ka.na))
}

// GetAddress returns a random address worth attempting a connection
// against, weighted by chance() and skipping addresses deemed bad.
func (a *AddrManager) GetAddress() *KnownAddress {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	if a.nTried == 0 && a.nNew == 0 {
		return nil
	}

	for attempt := 0; attempt < getAddrMax; attempt++ {
		var candidate *KnownAddress
		if a.nTried > 0 && (a.nNew == 0 || a.rand.Uint64()%2 == 0) {
			candidate = a.pickFromTried()
		} else {
			candidate = a.pickFromNew()
		}
		if candidate == nil {
			continue
		}
		if candidate.isBad() {
			continue
		}
		if float64(a.rand.Uint64()%1000)/1000.0 < candidate.chance() {
			return candidate
		}
	}
	return nil
}

func (a *AddrManager) pickFromTried() *KnownAddress {
	nonEmpty := make([]int, 0, numTriedBuckets)
	for i, l := range a.addrTried {
		if l.Len() > 0 {
			nonEmpty = append(nonEmpty, i)
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}
	bucket := a.addrTried[nonEmpty[a.rand.Uint64()%uint64(len(nonEmpty))]]
	idx := int(a.rand.Uint64() % uint64(bucket.Len()))
	e := bucket.Front()
	for i := 0; i < idx; i++ {
		e = e.Next()
	}
	return e.Value.(*KnownAddress)
}

func (a *AddrManager) pickFromNew() *KnownAddress {
	nonEmpty := make([]int, 0, numNewBuckets)
	for i, m := range a.addrNew {
		if len(m) > 0 {
			nonEmpty = append(nonEmpty, i)
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}
	bucket := a.addrNew[nonEmpty[a.rand.Uint64()%uint64(len(nonEmpty))]]
	idx := int(a.rand.Uint64() % uint64(len(bucket)))
	i := 0
	for _, ka := range bucket {
		if i == idx {
			return ka
		}
		i++
	}
	return nil
}

// NeedMoreAddresses reports whether the address manager holds fewer
// addresses than its target pool size, signaling that a GETADDR should be
// sent to peers (spec.md §4.6 Outbound Tick).
func (a *AddrManager) NeedMoreAddresses() bool {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.nTried+a.nNew < needAddressThreshold
}

// TotalNumAddresses returns the total number of addresses known, tried and
// new combined.
func (a *AddrManager) TotalNumAddresses() int {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.nTried + a.nNew
}

// AddressCache returns a snapshot of known addresses suitable for sending
// in response to a GETADDR, optionally restricted to the tried set.
func (a *AddrManager) AddressCache(onlyTried bool) []*wire.NetAddress {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	addrs := make([]*wire.NetAddress, 0, len(a.addrIndex))
	if onlyTried {
		for _, l := range a.addrTried {
			for e := l.Front(); e != nil; e = e.Next() {
				addrs = append(addrs, e.Value.(*KnownAddress).na)
			}
		}
		return addrs
	}
	for _, ka := range a.addrIndex {
		addrs = append(addrs, ka.na)
	}
	return addrs
}

// AddLocalAddress records a locally reachable address with the given
// priority, used by GetBestLocalAddress when answering a peer's VERSION
// handshake about our own address.
func (a *AddrManager) AddLocalAddress(na *wire.NetAddress, priority AddressPriority) error {
	if !isRoutable(na.IP) {
		return errors.Errorf("address %s is not routable", na.IP)
	}

	a.mtx.Lock()
	defer a.mtx.Unlock()

	key := NetAddressKey(na)
	if existing, ok := a.localAddresses[key]; ok {
		if priority > existing.priority {
			existing.priority = priority
		}
		return nil
	}
	a.localAddresses[key] = &localAddress{na: na, priority: priority}
	return nil
}

// GetBestLocalAddress returns the highest-priority known local address
// reachable from remoteAddr's network, or the IPv4/IPv6 zero address if
// none is known to be reachable.
func (a *AddrManager) GetBestLocalAddress(remoteAddr *wire.NetAddress) *wire.NetAddress {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	remoteIsIPv4 := remoteAddr.IP.To4() != nil

	var best *localAddress
	for _, local := range a.localAddresses {
		localIsIPv4 := local.na.IP.To4() != nil
		if localIsIPv4 != remoteIsIPv4 {
			continue
		}
		if !isRoutable(local.na.IP) {
			continue
		}
		if best == nil || local.priority > best.priority {
			best = local
		}
	}

	if best != nil {
		return best.na
	}
	if remoteIsIPv4 {
		return wire.NewNetAddressIPPort(net.IPv4zero, 0, 0)
	}
	return wire.NewNetAddressIPPort(net.IPv6zero, 0, 0)
}

// isRoutable reports whether ip is usable as a public network address.
func isRoutable(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if ip.IsUnspecified() || ip.IsLoopback() || ip.IsMulticast() {
		return false
	}
	if v4 := ip.To4(); v4 != nil {
		if v4[0] == 10 {
			return false
		}
		if v4[0] == 172 && v4[1]&0xf0 == 16 {
			return false
		}
		if v4[0] == 192 && v4[1] == 168 {
			return false
		}
		if v4[0] == 169 && v4[1] == 254 {
			return false
		}
		return true
	}
	if ip.IsLinkLocalUnicast() {
		return false
	}
	return true
}

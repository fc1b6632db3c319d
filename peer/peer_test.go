// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"net"
	"testing"
	"time"

	"github.com/nyx-project/nyxd/chaincfg"
	"github.com/nyx-project/nyxd/chainhash"
	"github.com/nyx-project/nyxd/wire"
)

func TestMruInventoryMapEviction(t *testing.T) {
	m := newMruInventoryMap(2)
	iv1 := &wire.InvVect{Type: wire.InvTypeTx, Hash: hashFromByte(1)}
	iv2 := &wire.InvVect{Type: wire.InvTypeTx, Hash: hashFromByte(2)}
	iv3 := &wire.InvVect{Type: wire.InvTypeTx, Hash: hashFromByte(3)}

	m.Add(iv1)
	m.Add(iv2)
	if !m.Exists(iv1) || !m.Exists(iv2) {
		t.Fatal("expected both entries to exist")
	}

	m.Add(iv3)
	if m.Exists(iv1) {
		t.Fatal("expected oldest entry to be evicted")
	}
	if !m.Exists(iv2) || !m.Exists(iv3) {
		t.Fatal("expected the two most recent entries to exist")
	}
}

func TestMruNonceMapEviction(t *testing.T) {
	m := newMruNonceMap(2)
	m.Add(1)
	m.Add(2)
	m.Add(3)

	if m.Exists(1) {
		t.Fatal("expected oldest nonce to be evicted")
	}
	if !m.Exists(2) || !m.Exists(3) {
		t.Fatal("expected the two most recent nonces to exist")
	}
}

func TestAddBanScoreAccumulates(t *testing.T) {
	cfg := &Config{ChainParams: &chaincfg.MainNetParams}
	p := newPeerBase(cfg, true)

	p.AddBanScore(BanScoreTrivial, "test trivial")
	p.AddBanScore(BanScoreModerate, "test moderate")
	if got, want := p.BanScore(), uint32(BanScoreTrivial+BanScoreModerate); got != want {
		t.Fatalf("BanScore() = %d, want %d", got, want)
	}

	p.AddBanScore(BanScoreSevere, "test severe")
	if p.BanScore() < DefaultBanThreshold {
		t.Fatalf("expected ban score %d to reach the default threshold %d", p.BanScore(), DefaultBanThreshold)
	}
}

func TestNewNetAddressFromTCPAddr(t *testing.T) {
	addr := &net.TCPAddr{IP: net.ParseIP("12.13.14.15"), Port: 16111}
	na, err := newNetAddress(addr, wire.SFNodeNetwork)
	if err != nil {
		t.Fatalf("newNetAddress: unexpected error: %s", err)
	}
	if na.Port != 16111 {
		t.Fatalf("na.Port = %d, want 16111", na.Port)
	}
	if !na.HasService(wire.SFNodeNetwork) {
		t.Fatal("expected SFNodeNetwork to be set")
	}
}

func TestHandleRemoteVersionMsgRejectsSelfConnect(t *testing.T) {
	cfg := &Config{ChainParams: &chaincfg.MainNetParams, ProtocolVersion: wire.ProtocolVersion}
	p := newPeerBase(cfg, true)

	nonce := uint64(424242)
	sentNonces.Add(nonce)
	defer func() {
		sentNonces = newMruNonceMap(50)
	}()

	msg := wire.NewMsgVersion(&wire.NetAddress{}, &wire.NetAddress{}, nonce, 0)
	msg.ProtocolVersion = int32(wire.ProtocolVersion)

	if err := p.handleRemoteVersionMsg(msg); err == nil {
		t.Fatal("expected self-connection to be rejected")
	}
}

func TestHandleRemoteVersionMsgRejectsOldProtocol(t *testing.T) {
	cfg := &Config{ChainParams: &chaincfg.MainNetParams, ProtocolVersion: wire.ProtocolVersion}
	p := newPeerBase(cfg, true)

	msg := wire.NewMsgVersion(&wire.NetAddress{}, &wire.NetAddress{}, 1, 0)
	msg.ProtocolVersion = int32(wire.MinAcceptableProtocolVersion) - 1

	if err := p.handleRemoteVersionMsg(msg); err == nil {
		t.Fatal("expected old protocol version to be rejected")
	}
}

func TestHandlePongMatchesNonce(t *testing.T) {
	cfg := &Config{ChainParams: &chaincfg.MainNetParams}
	p := newPeerBase(cfg, true)

	p.statsMtx.Lock()
	p.lastPingNonce = 7
	p.lastPingTime = time.Now().Add(-time.Millisecond)
	p.statsMtx.Unlock()

	p.handlePongMsg(wire.NewMsgPong(7))

	p.statsMtx.RLock()
	defer p.statsMtx.RUnlock()
	if p.lastPingNonce != 0 {
		t.Fatal("expected lastPingNonce to be cleared on matching pong")
	}
	if p.lastPingMicros <= 0 {
		t.Fatalf("expected a positive round-trip measurement, got %d", p.lastPingMicros)
	}
}

func hashFromByte(b byte) (h chainhash.Hash) {
	h[0] = b
	return h
}

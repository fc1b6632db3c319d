// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"net"
	"os"

	"github.com/nyx-project/nyxd/addrmgr"
	"github.com/nyx-project/nyxd/config"
	"github.com/nyx-project/nyxd/connmgr"
	"github.com/nyx-project/nyxd/logger"
	"github.com/nyx-project/nyxd/netsync"
	"github.com/nyx-project/nyxd/peer"
	"github.com/nyx-project/nyxd/signal"
	"github.com/nyx-project/nyxd/util/panics"
	"github.com/nyx-project/nyxd/util/profiling"
	"github.com/nyx-project/nyxd/version"
	"github.com/nyx-project/nyxd/wire"
)

var log, _ = logger.Get(logger.SubsystemTags.NYXD)

const (
	userAgentName           = "nyxd"
	wireProtocolVersion     = wire.ProtocolVersion
	defaultMaxBlocksPerPeer = 16
)

func main() {
	if err := config.LoadAndSetActiveConfig(); err != nil {
		os.Exit(1)
	}
	if err := nyxdMain(); err != nil {
		os.Exit(1)
	}
}

// nyxdMain wires the peer message-processing core against its network
// transport: an address manager for peer discovery, a connection manager
// for dialing and accepting, and the SyncManager that speaks the wire
// protocol over each resulting connection. Block storage, the mempool, and
// chain validation are supplied by an embedding application through
// netsync.Config's collaborator interfaces; this binary leaves them nil,
// since they sit outside this core's scope.
func nyxdMain() error {
	cfg := config.ActiveConfig()
	log.Infof("Version %s", version.Version())

	interrupt := signal.InterruptListener()

	if cfg.Profile != "" {
		profiling.Start(cfg.Profile, log)
	}

	amgr := addrmgr.New(cfg.Lookup)

	syncManager := netsync.New(netsync.Config{
		ChainParams:      cfg.NetParams(),
		BanThreshold:     cfg.BanThreshold,
		MaxOrphanTx:      cfg.MaxOrphanTxs,
		BlocksOnly:       cfg.BlocksOnly,
		WhitelistRelay:   false,
		MaxBlocksPerPeer: defaultMaxBlocksPerPeer,
		AddrManager:      amgr,
	})

	peerCfg := peer.Config{
		ChainParams:       cfg.NetParams(),
		UserAgentName:     userAgentName,
		UserAgentVersion:  version.Version(),
		UserAgentComments: cfg.UserAgentComments,
		Services:          0,
		ProtocolVersion:   wireProtocolVersion,
		DisableRelayTx:    cfg.BlocksOnly,
	}

	connCfg := &connmgr.Config{
		Dial: func(addr net.Addr) (net.Conn, error) {
			return cfg.Dial(addr.Network(), addr.String(), config.DefaultConnectTimeout)
		},
		AddrManager:    amgr,
		TargetOutbound: uint32(cfg.TargetOutboundPeers),
		RetryDuration:  config.DefaultConnectTimeout,
		OnConnection: func(c *connmgr.ConnReq, conn net.Conn) {
			p, _, err := syncManager.NewOutboundPeer(peerCfg, c.Addr.String())
			if err != nil {
				log.Errorf("cannot set up outbound peer %s: %s", c.Addr, err)
				return
			}
			p.AssociateConnection(conn)
		},
	}

	if !cfg.DisableListen {
		listeners, err := newListeners(cfg.Listeners)
		if err != nil {
			return err
		}
		connCfg.Listeners = listeners
		connCfg.OnAccept = func(conn net.Conn) {
			p, _ := syncManager.NewInboundPeer(peerCfg)
			p.AssociateConnection(conn)
		}
	}

	connManager, err := connmgr.New(connCfg)
	if err != nil {
		return err
	}

	spawn := panics.GoroutineWrapperFunc(log)
	spawn(func() {
		if err := amgr.Start(); err != nil {
			log.Errorf("address manager failed to start: %s", err)
		}
	})

	syncManager.Start()
	connManager.Start()

	<-interrupt

	connManager.Stop()
	syncManager.Stop()
	if err := amgr.Stop(); err != nil {
		log.Errorf("address manager failed to stop cleanly: %s", err)
	}
	return nil
}

func newListeners(addrs []string) ([]net.Listener, error) {
	listeners := make([]net.Listener, 0, len(addrs))
	for _, addr := range addrs {
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, err
		}
		listeners = append(listeners, listener)
	}
	return listeners, nil
}

// Copyright (c) 2013-2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/nyx-project/nyxd/wire"
)

// naTest is used to describe a test to be performed against the
// NetAddressKey function.
type naTest struct {
	in   wire.NetAddress
	want string
}

var naTests = make([]naTest, 0)

// Put some IP in here for convenience. Points to google.
var someIP = "173.194.115.66"

func addNaTests() {
	addNaTest("127.0.0.1", 16111, "127.0.0.1:16111")
	addNaTest("1.0.0.1", 16111, "1.0.0.1:16111")
	addNaTest("10.0.0.1", 16111, "10.0.0.1:16111")
	addNaTest("172.16.0.1", 16111, "172.16.0.1:16111")
	addNaTest("192.168.0.1", 16111, "192.168.0.1:16111")
	addNaTest("::1", 16111, "[::1]:16111")
	addNaTest("fe80::1:1", 16111, "[fe80::1:1]:16111")
}

func addNaTest(ip string, port uint16, want string) {
	nip := net.ParseIP(ip)
	na := *wire.NewNetAddressIPPort(nip, port, wire.SFNodeNetwork)
	naTests = append(naTests, naTest{na, want})
}

func lookupFuncForTest(host string) ([]net.IP, error) {
	return nil, errors.New("not implemented")
}

func newAddrManagerForTest() *AddrManager {
	return New(lookupFuncForTest)
}

func TestStartStop(t *testing.T) {
	amgr := newAddrManagerForTest()
	if err := amgr.Start(); err != nil {
		t.Fatalf("Address Manager failed to start: %v", err)
	}
	if err := amgr.Stop(); err != nil {
		t.Fatalf("Address Manager failed to stop: %v", err)
	}
}

func TestAddAddressByIP(t *testing.T) {
	fmtErr := errors.New("")
	var tests = []struct {
		addrIP  string
		wantErr bool
	}{
		{someIP + ":16111", false},
		{someIP, true},
		{someIP[:12] + ":8333", true},
		{someIP + ":abcd", true},
	}

	amgr := newAddrManagerForTest()
	for i, test := range tests {
		err := amgr.AddAddressByIP(test.addrIP)
		if test.wantErr && err == nil {
			t.Errorf("test %d: expected an error and got none", i)
		}
		if !test.wantErr && err != nil {
			t.Errorf("test %d: expected no error and got %v (compare: %v)", i, err, fmtErr)
		}
	}
}

func TestAddLocalAddress(t *testing.T) {
	var tests = []struct {
		address  wire.NetAddress
		priority AddressPriority
		valid    bool
	}{
		{wire.NetAddress{IP: net.ParseIP("192.168.0.100")}, InterfacePrio, false},
		{wire.NetAddress{IP: net.ParseIP("204.124.1.1")}, InterfacePrio, true},
		{wire.NetAddress{IP: net.ParseIP("204.124.1.1")}, BoundPrio, true},
		{wire.NetAddress{IP: net.ParseIP("::1")}, InterfacePrio, false},
		{wire.NetAddress{IP: net.ParseIP("fe80::1")}, InterfacePrio, false},
		{wire.NetAddress{IP: net.ParseIP("2620:100::1")}, InterfacePrio, true},
	}
	amgr := newAddrManagerForTest()
	for x, test := range tests {
		err := amgr.AddLocalAddress(&test.address, test.priority)
		if err == nil && !test.valid {
			t.Errorf("test #%d: %s should have been rejected", x, test.address.IP)
		}
		if err != nil && test.valid {
			t.Errorf("test #%d: %s should have been accepted", x, test.address.IP)
		}
	}
}

func TestAttempt(t *testing.T) {
	amgr := newAddrManagerForTest()

	if err := amgr.AddAddressByIP(someIP + ":8333"); err != nil {
		t.Fatalf("Adding address failed: %v", err)
	}
	ka := amgr.GetAddress()
	if ka == nil {
		t.Fatal("expected an address")
	}

	if !ka.LastAttempt().IsZero() {
		t.Error("Address should not have attempts, but does")
	}

	amgr.Attempt(ka.NetAddress())

	if ka.LastAttempt().IsZero() {
		t.Error("Address should have an attempt, but does not")
	}
}

func TestConnected(t *testing.T) {
	amgr := newAddrManagerForTest()

	if err := amgr.AddAddressByIP(someIP + ":8333"); err != nil {
		t.Fatalf("Adding address failed: %v", err)
	}
	ka := amgr.GetAddress()
	na := ka.NetAddress()
	na.Timestamp = time.Now().Add(time.Hour * -1)

	amgr.Connected(na)

	if !ka.NetAddress().Timestamp.After(na.Timestamp) {
		t.Error("Address should have a new timestamp, but does not")
	}
}

func TestNeedMoreAddresses(t *testing.T) {
	amgr := newAddrManagerForTest()
	addrsToAdd := 1500
	if !amgr.NeedMoreAddresses() {
		t.Error("Expected that we need more addresses")
	}

	addrs := make([]*wire.NetAddress, addrsToAdd)
	var err error
	for i := 0; i < addrsToAdd; i++ {
		s := fmt.Sprintf("%d.%d.173.147:8333", i/128+60, i%128+60)
		addrs[i], err = amgr.DeserializeNetAddress(s)
		if err != nil {
			t.Errorf("Failed to turn %s into an address: %v", s, err)
		}
	}

	srcAddr := wire.NewNetAddressIPPort(net.IPv4(173, 144, 173, 111), 8333, 0)
	amgr.AddAddresses(addrs, srcAddr)

	numAddrs := amgr.TotalNumAddresses()
	if numAddrs > addrsToAdd {
		t.Errorf("Number of addresses is too many %d vs %d", numAddrs, addrsToAdd)
	}
	if amgr.NeedMoreAddresses() {
		t.Error("Expected that we don't need more addresses")
	}
}

func TestGood(t *testing.T) {
	amgr := newAddrManagerForTest()
	addrsToAdd := 64 * 4
	addrs := make([]*wire.NetAddress, addrsToAdd)

	var err error
	for i := 0; i < addrsToAdd; i++ {
		s := fmt.Sprintf("%d.173.147.%d:8333", i/64+60, i%64+60)
		addrs[i], err = amgr.DeserializeNetAddress(s)
		if err != nil {
			t.Errorf("Failed to turn %s into an address: %v", s, err)
		}
	}

	srcAddr := wire.NewNetAddressIPPort(net.IPv4(173, 144, 173, 111), 8333, 0)
	amgr.AddAddresses(addrs, srcAddr)
	for _, addr := range addrs {
		amgr.Good(addr)
	}

	numAddrs := amgr.TotalNumAddresses()
	if numAddrs != addrsToAdd {
		t.Errorf("Number of addresses changed across Good(): got %d, want %d", numAddrs, addrsToAdd)
	}

	numCache := len(amgr.AddressCache(true))
	if numCache == 0 || numCache > numAddrs {
		t.Errorf("Number of tried addresses in cache: got %d, want in (0, %d]", numCache, numAddrs)
	}
}

func TestGetAddress(t *testing.T) {
	amgr := newAddrManagerForTest()

	if rv := amgr.GetAddress(); rv != nil {
		t.Errorf("GetAddress on empty manager: got %v, want nil", rv)
	}

	if err := amgr.AddAddressByIP(someIP + ":8333"); err != nil {
		t.Fatalf("Adding address failed: %v", err)
	}
	ka := amgr.GetAddress()
	if ka == nil {
		t.Fatal("Did not get an address where there is one in the pool")
	}
	if ka.NetAddress().IP.String() != someIP {
		t.Errorf("Wrong IP: got %v, want %v", ka.NetAddress().IP.String(), someIP)
	}
	amgr.Attempt(ka.NetAddress())
	amgr.Good(ka.NetAddress())

	ka = amgr.GetAddress()
	if ka == nil {
		t.Fatal("Did not get an address where there is one in the pool")
	}

	numAddrs := amgr.TotalNumAddresses()
	if numAddrs != 1 {
		t.Errorf("Wrong number of addresses: got %d, want %d", numAddrs, 1)
	}
}

func TestGetBestLocalAddress(t *testing.T) {
	localAddrs := []wire.NetAddress{
		{IP: net.ParseIP("192.168.0.100")},
		{IP: net.ParseIP("::1")},
		{IP: net.ParseIP("fe80::1")},
		{IP: net.ParseIP("2001:470::1")},
	}

	var tests = []struct {
		remoteAddr wire.NetAddress
		want0      wire.NetAddress
		want1      wire.NetAddress
	}{
		{
			wire.NetAddress{IP: net.ParseIP("204.124.8.1")},
			wire.NetAddress{IP: net.IPv4zero},
			wire.NetAddress{IP: net.IPv4zero},
		},
		{
			wire.NetAddress{IP: net.ParseIP("2602:100:abcd::102")},
			wire.NetAddress{IP: net.IPv6zero},
			wire.NetAddress{IP: net.ParseIP("2001:470::1")},
		},
	}

	amgr := newAddrManagerForTest()

	for x, test := range tests {
		got := amgr.GetBestLocalAddress(&test.remoteAddr)
		if !test.want0.IP.Equal(got.IP) {
			t.Errorf("test1 #%d failed for remote address %s: want %s got %s",
				x, test.remoteAddr.IP, test.want0.IP, got.IP)
		}
	}

	for _, localAddr := range localAddrs {
		_ = amgr.AddLocalAddress(&localAddr, InterfacePrio)
	}

	for x, test := range tests {
		got := amgr.GetBestLocalAddress(&test.remoteAddr)
		if !test.want1.IP.Equal(got.IP) {
			t.Errorf("test2 #%d failed for remote address %s: want %s got %s",
				x, test.remoteAddr.IP, test.want1.IP, got.IP)
		}
	}
}

func TestNetAddressKey(t *testing.T) {
	addNaTests()

	for i, test := range naTests {
		key := NetAddressKey(&test.in)
		if key != test.want {
			t.Errorf("NetAddressKey #%d got: %s want: %s", i, key, test.want)
		}
	}
}

package chainhash

import (
	"bytes"
	"testing"
)

func TestHashFromStrRoundTrip(t *testing.T) {
	buf := []byte{
		0x79, 0xa6, 0x1a, 0xdb, 0xc6, 0xe5, 0xa2, 0xe1,
		0x39, 0xd2, 0x71, 0x3a, 0x54, 0x6e, 0xc7, 0xc8,
		0x75, 0x63, 0x2e, 0x75, 0xf1, 0xdf, 0x9c, 0x3f,
		0xa6, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}

	hash, err := NewHash(buf)
	if err != nil {
		t.Fatalf("NewHash: unexpected error %v", err)
	}
	if !bytes.Equal(hash[:], buf) {
		t.Fatalf("NewHash: contents mismatch - got %v, want %v", hash[:], buf)
	}

	parsed, err := NewHashFromStr(hash.String())
	if err != nil {
		t.Fatalf("NewHashFromStr: unexpected error %v", err)
	}
	if !parsed.IsEqual(hash) {
		t.Fatalf("round trip through String()/NewHashFromStr() changed the hash")
	}
}

func TestHashIsEqual(t *testing.T) {
	a := HashH([]byte("a"))
	b := HashH([]byte("b"))

	if !a.IsEqual(&a) {
		t.Error("a should equal itself")
	}
	if a.IsEqual(&b) {
		t.Error("a should not equal b")
	}
	var nilHash *Hash
	if !nilHash.IsEqual(nil) {
		t.Error("two nil hashes should be equal")
	}
	if a.IsEqual(nil) {
		t.Error("a non-nil hash should not equal nil")
	}
}

func TestDoubleHash(t *testing.T) {
	data := []byte("the quick brown fox")
	single := HashH(data)
	double := DoubleHashH(data)
	expected := HashH(single[:])
	if double != expected {
		t.Fatalf("DoubleHashH did not hash twice: got %v want %v", double, expected)
	}
}

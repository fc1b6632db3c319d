// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package random provides a cryptographically secure replacement for
// math/rand's convenience functions, used wherever the sync core needs an
// unpredictable value (version-message self-connect nonces, ping nonces,
// orphan-pool eviction).
package random

import (
	"crypto/rand"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Uint64 returns a cryptographically random uint64.
func Uint64() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		return 0, errors.WithStack(err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

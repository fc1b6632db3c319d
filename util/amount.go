// Copyright (c) 2013, 2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"errors"
	"math"
	"strconv"
)

// AmountUnit describes a method of converting an Amount to a floating
// point representation of a decimal coin unit.
type AmountUnit int

// Coin unit constants. AmountSatoshi is the base unit; the scaled units
// are all its decimal prefixes, mirroring the SI-prefix scale SatoshiPerBitcent
// and SatoshiPerBitcoin already use in const.go.
const (
	AmountMegaBTC  AmountUnit = 6
	AmountKiloBTC  AmountUnit = 3
	AmountBTC      AmountUnit = 0
	AmountMilliBTC AmountUnit = -3
	AmountMicroBTC AmountUnit = -6
	AmountSatoshi  AmountUnit = -8
)

// String returns the unit as a string, used when formatting an Amount.
func (u AmountUnit) String() string {
	switch u {
	case AmountMegaBTC:
		return "MBTC"
	case AmountKiloBTC:
		return "kBTC"
	case AmountBTC:
		return "BTC"
	case AmountMilliBTC:
		return "mBTC"
	case AmountMicroBTC:
		return "μBTC"
	case AmountSatoshi:
		return "Satoshi"
	default:
		return "1e" + strconv.FormatInt(int64(u), 10) + " BTC"
	}
}

// Amount represents the base coin monetary unit (colloquially referred to
// as a "Satoshi"). A single Amount is equal to 1e-8 of a coin.
type Amount int64

// round converts a floating point number, which may or may not be
// representing a coin monetary value, to an integer.
func round(f float64) Amount {
	if f < 0 {
		return Amount(f - 0.5)
	}
	return Amount(f + 0.5)
}

// NewAmount creates an Amount from a floating point value representing
// coin units. It errors if f is NaN or +-Infinity, or if it cannot be
// represented by an int64 after being converted to satoshis.
func NewAmount(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("invalid bitcoin amount")
	}
	satoshis := f * SatoshiPerBitcoin
	if satoshis >= math.MaxInt64 || satoshis <= math.MinInt64 {
		return 0, errors.New("bitcoin amount out of range")
	}
	return round(satoshis), nil
}

// ToUnit converts the monetary amount to a floating point value representing
// the amount in the given AmountUnit.
func (a Amount) ToUnit(u AmountUnit) float64 {
	return float64(a) / math.Pow10(int(u+8))
}

// ToBTC is a convenience function equivalent to ToUnit(AmountBTC).
func (a Amount) ToBTC() float64 {
	return a.ToUnit(AmountBTC)
}

// Format formats a monetary amount counted in coin base units as a
// string for a given unit, including the unit suffix.
func (a Amount) Format(u AmountUnit) string {
	units := " " + u.String()
	formatted := strconv.FormatFloat(a.ToUnit(u), 'f', -int(u+8), 64)
	if u == AmountSatoshi {
		formatted = strconv.FormatFloat(a.ToUnit(u), 'f', 0, 64)
	}
	return formatted + units
}

// String is the equivalent of calling Format with AmountBTC.
func (a Amount) String() string {
	return a.Format(AmountBTC)
}

// MulF64 multiplies an Amount by a floating point value, rounding to the
// nearest Amount.
func (a Amount) MulF64(f float64) Amount {
	return round(float64(a) * f)
}

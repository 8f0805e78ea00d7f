// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mixing

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
)

// Denominations is the ordered, immutable table of mixing denomination
// amounts, smallest first.  Each entry equals 10^k + 10^(k-3) coins for
// k = -2..1, so that every denomination is distinguishable on-chain from an
// exact multiple of the next and is convertible down by exact factors of
// ten.
var Denominations = [4]btcutil.Amount{
	1001000,    // 0.01 + 0.00001
	10010000,   // 0.1  + 0.0001
	100100000,  // 1    + 0.001
	1001000000, // 10   + 0.01
}

// SmallestDenomination is the smallest amount that can be a denominated
// output.
var SmallestDenomination = Denominations[0]

// MaxDenomMask is the first mask value that is invalid because it addresses
// a denomination beyond the table.
const MaxDenomMask = uint32(1) << len(Denominations)

// DenomIndex returns the index into Denominations for amount, and whether an
// exact match was found.
func DenomIndex(amount btcutil.Amount) (int, bool) {
	for i, d := range Denominations {
		if d == amount {
			return i, true
		}
	}
	return 0, false
}

// MaskFromOutputs computes the denomination mask of a list of output
// amounts.  If every amount matches a single denomination, the mask has a
// bit set for each denomination present.  If any amount matches no
// denomination, the whole result is "non-denom" (mask 0), since mixing
// requires uniform denominated outputs.
func MaskFromOutputs(amounts []btcutil.Amount) uint32 {
	if len(amounts) == 0 {
		return 0
	}
	var mask uint32
	for _, amt := range amounts {
		idx, ok := DenomIndex(amt)
		if !ok {
			return 0
		}
		mask |= 1 << idx
	}
	return mask
}

// SingleRandomDenom collapses a mask down to one uniformly-random bit that
// was set in it.  It is used to derive a single session denomination from a
// wallet's mixture of denominated amounts.  A zero mask is returned
// unchanged.
func SingleRandomDenom(mask uint32, rng *rand.Rand) uint32 {
	var bits []int
	for i := range Denominations {
		if mask&(1<<i) != 0 {
			bits = append(bits, i)
		}
	}
	if len(bits) == 0 {
		return 0
	}
	chosen := bits[rng.Intn(len(bits))]
	return 1 << chosen
}

// DenomBits enumerates the set bit indices of mask in ascending order.  It
// rejects masks addressing denominations outside of the table.
func DenomBits(mask uint32) ([]int, error) {
	if mask >= MaxDenomMask {
		return nil, fmt.Errorf("mixing: denomination mask %#x exceeds known denominations", mask)
	}
	var bits []int
	for i := range Denominations {
		if mask&(1<<i) != 0 {
			bits = append(bits, i)
		}
	}
	return bits, nil
}

// MaskFromBits is the inverse of DenomBits: it ORs together the bits for
// each listed index.  Combined with DenomBits, MaskFromBits(DenomBits(m))
// round-trips to m for every valid mask.
func MaskFromBits(bits []int) uint32 {
	var mask uint32
	for _, b := range bits {
		mask |= 1 << b
	}
	return mask
}

// DenomString formats a single denomination amount the way mixing
// participants print it: integer and fractional coin parts joined without
// trailing zero trimming surprises, e.g. "10.01000000".
func DenomString(amount btcutil.Amount) string {
	return fmt.Sprintf("%.8f", amount.ToBTC())
}

// MaskString pretty-prints a denomination mask as its present
// denominations joined with "+", largest first, or "non-denom" for a mask
// of zero.
func MaskString(mask uint32) string {
	if mask == 0 {
		return "non-denom"
	}
	bits, err := DenomBits(mask)
	if err != nil {
		return "invalid"
	}
	parts := make([]string, 0, len(bits))
	for i := len(bits) - 1; i >= 0; i-- {
		parts = append(parts, DenomString(Denominations[bits[i]]))
	}
	return strings.Join(parts, "+")
}

// ParseDenomMaskString is the inverse helper of MaskString used mainly by
// tests and diagnostics; it is not required by the wire protocol, which
// always carries the mask as an integer.
func ParseDenomMaskString(s string) (uint32, error) {
	if s == "non-denom" {
		return 0, nil
	}
	var mask uint32
	for _, part := range strings.Split(s, "+") {
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, err
		}
		amt, err := btcutil.NewAmount(f)
		if err != nil {
			return 0, err
		}
		idx, ok := DenomIndex(amt)
		if !ok {
			return 0, fmt.Errorf("mixing: %q is not a known denomination", part)
		}
		mask |= 1 << idx
	}
	return mask, nil
}

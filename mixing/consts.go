// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mixing

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
)

// Protocol constants.  Values are tunable per chain deployment through
// internal/config, but these are the defaults a standalone core uses when
// unconfigured.
const (
	// DefaultCollateral is the smallest allowable collateral fee posted
	// as an anti-griefing bond (PRIVATESEND_COLLATERAL).
	DefaultCollateral = btcutil.Amount(10000)

	// DefaultPoolMax is the maximum aggregate input value accepted in a
	// single Entry (PRIVATESEND_POOL_MAX).
	DefaultPoolMax = btcutil.Amount(100000 * btcutil.SatoshiPerBitcoin)

	// QueueTimeout is the time after which a gossiped queue advertisement
	// expires (PRIVATESEND_QUEUE_TIMEOUT).
	QueueTimeout = 30 * time.Second

	// SigningTimeout is the time a session may spend in SIGNING before
	// being reset with ERROR (PRIVATESEND_SIGNING_TIMEOUT).
	SigningTimeout = 15 * time.Second

	// KeysThresholdWarning is the keypool size at which a wallet should
	// warn the user that mixing will soon be disabled for lack of fresh
	// keys.
	KeysThresholdWarning = 100

	// KeysThresholdStop is the keypool size at which mixing is disabled
	// until the keypool is replenished.
	KeysThresholdStop = 50

	// DenomsCountMax is the number of same-denomination UTXOs a wallet may
	// hold before CreateDenominated skips creating more of that
	// denomination on its first pass.
	DenomsCountMax = 100

	// MaxPoolTransactions is the per-session participant cap.
	MaxPoolTransactions = 3

	// MinPeerProtoVersion is the minimum protocol version a mixer must
	// advertise to participate in queue relay and rate limiting.
	MinPeerProtoVersion = 70213

	// ResetDwell is how long a session lingers in SUCCESS or ERROR before
	// being reset to IDLE.
	ResetDwell = 10 * time.Second

	// ClientTimeoutLag is added to a client's timeout deadline so mixers
	// get a head start on detecting their own timeouts first.
	ClientTimeoutLag = 10 * time.Second

	// AutoTimeoutMin and AutoTimeoutMax bound the jittered interval at
	// which the automatic-denomination driver is invoked by the periodic
	// timer.
	AutoTimeoutMin = 5 * time.Second
	AutoTimeoutMax = 15 * time.Second

	// LiquidityProviderCollateralMultiple is the multiple of the
	// collateral amount used to size a fresh collateral-only output
	// (4*PRIVATESEND_COLLATERAL).
	LiquidityProviderCollateralMultiple = 4
)

// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mixclient implements the client-side automatic-denomination
// driver and the periodic timer loop that drives it, the entry point a
// wallet process uses to participate in mixing sessions as described by
// package session.
package mixclient

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/coinmix/coinmixd/mixing"
	"github.com/coinmix/coinmixd/mixing/session"
)

// Config carries the client-side tunables of the automatic-denomination
// driver beyond the protocol constants already owned by session.Config.
type Config struct {
	// Enabled gates whether the driver runs at all.
	Enabled bool

	// LiquidityProvider always tries gossiped queues first instead of
	// with probability 2/3, and makes CreateDenominated add a
	// collateral-sized output. It does not change how many sessions run
	// at once.
	LiquidityProvider bool

	// MultiSession permits starting a new session before
	// MinBlockSpacing has elapsed since the last success, and skips the
	// single-session unconfirmed-balance wait.
	MultiSession bool

	// MinBlockSpacing is the minimum number of blocks since the last
	// successful mix before the driver will try again.
	MinBlockSpacing int32

	// TargetAmount is the wallet's target denominated balance
	// (need_anon); the driver keeps creating denominated outputs until
	// reaching it.
	TargetAmount btcutil.Amount

	// MinRounds and MaxRounds bound PrepareDenominate's round-range
	// search (nPrivateSendRounds in the original tuning).
	MinRounds, MaxRounds int

	Session session.Config
}

// Client runs the automatic-denomination driver for one wallet against one
// session.Pool. It owns the driver-only bookkeeping (used mixers,
// collateral rotation, last-success height) that sits outside of the
// session lock.
type Client struct {
	pool      *session.Pool
	wallet    mixing.Wallet
	ledger    mixing.Ledger
	mixerList mixing.MixerList
	cfg       Config

	mu                sync.Mutex
	usedMixers        []usedMixer
	collateralTx      *wire.MsgTx
	lastSuccessHeight int32
	lastResult        string

	rng *rand.Rand

	runningMu sync.Mutex
	running   bool
}

type usedMixer struct {
	id       mixing.MixerID
	usedAtMs int64
}

// New constructs a Client. pool must be configured for session.RoleClient.
func New(pool *session.Pool, wallet mixing.Wallet, ledger mixing.Ledger, mixerList mixing.MixerList, cfg Config) *Client {
	return &Client{
		pool:      pool,
		wallet:    wallet,
		ledger:    ledger,
		mixerList: mixerList,
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// LastResult returns the most recent user-visible status string the driver
// produced (strAutoDenomResult in the original tuning). Whether that
// invocation made progress is reported only by DoAutomaticDenominating's
// own return value.
func (c *Client) LastResult() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResult
}

func (c *Client) setResult(s string) {
	c.mu.Lock()
	c.lastResult = s
	c.mu.Unlock()
	log.Debugf("automatic denomination: %s", s)
}

// Run starts the periodic timer loop and blocks until ctx is canceled.
// Exactly one Run call may be active per Client.
func (c *Client) Run(ctx context.Context) error {
	c.runningMu.Lock()
	if c.running {
		c.runningMu.Unlock()
		return errAlreadyRunning
	}
	c.running = true
	c.runningMu.Unlock()
	defer func() {
		c.runningMu.Lock()
		c.running = false
		c.runningMu.Unlock()
	}()

	return c.runTimer(ctx)
}

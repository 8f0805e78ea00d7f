// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mixclient

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/coinmix/coinmixd/mixing"
	"github.com/coinmix/coinmixd/mixing/session"
)

// DoAutomaticDenominating runs one tick of the driver's decision ladder.
// It returns whether progress was made and a user-visible status string,
// mirroring strAutoDenomResult; it never returns an error the timer thread
// must abort on, since every failure mode here is a local, retryable
// condition rather than a fatal one.
func (c *Client) DoAutomaticDenominating() (bool, string) {
	if ok, reason := c.precondition(); !ok {
		c.setResult(reason)
		return false, reason
	}

	nonDenom := c.wallet.NonDenominatedBalance()
	denomConfirmed, denomUnconfirmed := c.wallet.DenominatedBalance()

	if nonDenom >= mixing.SmallestDenomination+mixing.DefaultCollateral && denomConfirmed+denomUnconfirmed < c.cfg.TargetAmount {
		ok, err := c.CreateDenominated()
		if err != nil {
			return c.fail(fmt.Sprintf("create denominated outputs: %v", err))
		}
		if ok {
			return c.succeed("created denominated outputs")
		}
	}

	if !c.wallet.HasCollateralInputs() {
		ok, err := c.MakeCollateralAmounts()
		if err != nil {
			return c.fail(fmt.Sprintf("create collateral inputs: %v", err))
		}
		if ok {
			return c.succeed("created collateral inputs")
		}
	}

	if !c.cfg.MultiSession && denomUnconfirmed > 0 {
		return c.succeed("waiting for denominated inputs to confirm")
	}

	if err := c.ensureOwnCollateral(); err != nil {
		return c.fail(fmt.Sprintf("prepare collateral transaction: %v", err))
	}

	ok, err := c.selectMixerAndAccept()
	if err != nil {
		return c.fail(fmt.Sprintf("join a mixing session: %v", err))
	}
	if !ok {
		return c.fail("no compatible mixer found")
	}

	c.trimUsedMixers()
	return c.succeed("joined a mixing session")
}

func (c *Client) succeed(msg string) (bool, string) {
	c.setResult(msg)
	return true, msg
}

func (c *Client) fail(msg string) (bool, string) {
	c.setResult(msg)
	return false, msg
}

// precondition gates whether the driver should attempt any further step.
func (c *Client) precondition() (bool, string) {
	if !c.cfg.Enabled {
		return false, "mixing is not enabled"
	}
	if c.pool.Role() != session.RoleClient {
		return false, "this process is not running as a mixing client"
	}
	if c.wallet.IsLocked() {
		return false, errWalletLocked.Error()
	}
	if err := c.wallet.AutoBackup(); err != nil {
		return false, errBackupStale.Error()
	}
	s := c.pool.Session()
	if s.State() != session.StateIdle {
		return false, "a mixing session is already active"
	}
	if !c.cfg.MultiSession {
		c.mu.Lock()
		height := c.ledger.BestHeight()
		spacing := height - c.lastSuccessHeight
		c.mu.Unlock()
		if c.lastSuccessHeight != 0 && spacing < c.cfg.MinBlockSpacing {
			return false, errNoSpacing.Error()
		}
	}
	return true, ""
}

// ensureOwnCollateral verifies the client's tracked collateral transaction
// is still unspent and valid, (re)creating it otherwise.
func (c *Client) ensureOwnCollateral() error {
	c.mu.Lock()
	tx := c.collateralTx
	c.mu.Unlock()

	if tx != nil {
		stillValid := true
		for _, in := range tx.TxIn {
			if _, found := c.ledger.FetchUTXO(in.PreviousOutPoint); !found {
				stillValid = false
				break
			}
		}
		if stillValid {
			if err := mixing.ValidateCollateral(c.ledger, tx, mixing.DefaultCollateral); err == nil {
				return nil
			}
		}
	}

	newTx, err := c.createCollateralTx()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.collateralTx = newTx
	c.mu.Unlock()
	return nil
}

// selectMixerAndAccept chooses a mixer, either from gossiped queues or by
// bounded random fallback, and sends DSACCEPT.
func (c *Client) selectMixerAndAccept() (bool, error) {
	tryQueueFirst := c.cfg.LiquidityProvider || c.rng.Intn(3) != 0

	if tryQueueFirst {
		if info, q, ok := c.pickFromQueue(); ok {
			return c.accept(info.ID, q.DenomMask)
		}
	}

	for attempt := 0; attempt < 10; attempt++ {
		excl := c.excludedMixers()
		info, ok := c.mixerList.FindRandomNotIn(excl, c.cfg.Session.MinPeerProtoVersion)
		if !ok {
			return false, errNoMixerAvailable
		}
		if info.LastDsq != 0 {
			// Mirror the rate limiter's own acceptance math so we
			// don't waste a round-trip on a mixer that would
			// reject us as "too recent".
			enabled := uint32(c.mixerList.CountEnabled(c.cfg.Session.MinPeerProtoVersion))
			if info.LastDsq+enabled/5 > c.pool.RateCount() {
				c.markUsed(info.ID)
				continue
			}
		}
		ok2, err := c.accept(info.ID, c.chosenDenomMask())
		if ok2 || err != nil {
			return ok2, err
		}
		c.markUsed(info.ID)
	}
	return false, errNoMixerAvailable
}

func (c *Client) pickFromQueue() (*mixing.MixerInfo, *mixing.Queue, bool) {
	for _, q := range c.pool.Queue() {
		if q.Ready {
			continue
		}
		if c.isUsed(q.MixerID) {
			continue
		}
		info, found := c.mixerList.Find(q.MixerID)
		if !found || !info.MixingAllowed {
			continue
		}
		return info, q, true
	}
	return nil, nil, false
}

// allDenominationsMask is the mask addressing every known denomination,
// used to ask the wallet for a representative coin of any denomination
// when picking which one to mix this round.
var allDenominationsMask = mixing.MaskFromBits(func() []int {
	bits := make([]int, len(mixing.Denominations))
	for i := range bits {
		bits[i] = i
	}
	return bits
}())

func (c *Client) chosenDenomMask() uint32 {
	coins, err := c.wallet.SelectCoinsByDenomination(allDenominationsMask, 1, c.cfg.MaxRounds)
	if err != nil || len(coins) == 0 {
		return 1
	}
	return mixing.MaskFromOutputs([]btcutil.Amount{coins[0].Amount})
}

// accept implements the local half of sending a DSACCEPT and moving to
// QUEUE: the wire transmission itself is generic peer-to-peer framing,
// explicitly out of this core's scope, so accept only opens the local
// client-side session and leaves delivering the message (and reacting to
// the mixer's DSSTATUSUPDATE response) to the host's transport.
func (c *Client) accept(mixerID mixing.MixerID, denomMask uint32) (bool, error) {
	c.mu.Lock()
	tx := c.collateralTx
	c.mu.Unlock()
	if tx == nil {
		return false, fmt.Errorf("no collateral transaction prepared")
	}

	var err error
	c.pool.WithLock(func(p *session.Pool) {
		_, err = p.CreateNewSession(denomMask, mixerID)
	})
	if err != nil {
		return false, err
	}
	c.markUsed(mixerID)
	return true, nil
}

func (c *Client) markUsed(id mixing.MixerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usedMixers = append(c.usedMixers, usedMixer{id: id, usedAtMs: 0})
}

func (c *Client) isUsed(id mixing.MixerID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range c.usedMixers {
		if u.id == id {
			return true
		}
	}
	return false
}

func (c *Client) excludedMixers() []mixing.MixerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	excl := make([]mixing.MixerID, len(c.usedMixers))
	for i, u := range c.usedMixers {
		excl[i] = u.id
	}
	return excl
}

// trimUsedMixers trims the used-mixers list once it exceeds 90% of the
// enabled mixer count, cutting it down to roughly 60% and dropping the
// oldest entries first.
func (c *Client) trimUsedMixers() {
	enabled := c.mixerList.CountEnabled(c.cfg.Session.MinPeerProtoVersion)
	c.mu.Lock()
	defer c.mu.Unlock()
	if enabled <= 0 || len(c.usedMixers) <= enabled*9/10 {
		return
	}
	target := enabled * 6 / 10
	if target < 0 {
		target = 0
	}
	if target >= len(c.usedMixers) {
		return
	}
	c.usedMixers = c.usedMixers[len(c.usedMixers)-target:]
}

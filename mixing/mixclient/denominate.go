// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mixclient

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/coinmix/coinmixd/mixing"
)

// payToAddrScript builds the standard P2PKH (or other standard address
// type) script for a wallet-reserved address, the output script every
// denominated and collateral output carries.
func payToAddrScript(addr btcutil.Address) ([]byte, error) {
	return txscript.PayToAddrScript(addr)
}

// CreateDenominated splits the wallet's non-denominated coins into
// protocol-denominated outputs: for each address-tally, it leaves
// PRIVATESEND_COLLATERAL for fees, optionally adds
// LiquidityProviderCollateralMultiple*PRIVATESEND_COLLATERAL collateral-sized
// outputs, then greedily adds denominated outputs from the largest
// denomination down, capping each denomination at 10 new outputs per pass.
// A denomination already overrepresented wallet-wide
// (> DENOMS_COUNT_MAX) is skipped on the first pass and only included on a
// second pass if nothing was created in the first.
func (c *Client) CreateDenominated() (bool, error) {
	grouped, err := c.wallet.SelectCoinsGroupedByAddress()
	if err != nil {
		return false, err
	}

	wideCounts, err := c.denominationCountsWalletWide()
	if err != nil {
		return false, err
	}

	var anyCreated bool
	for _, coins := range grouped {
		var total btcutil.Amount
		for _, coin := range coins {
			total += coin.Amount
		}
		if total <= mixing.DefaultCollateral {
			continue
		}
		remaining := total - mixing.DefaultCollateral

		var outputs []*wire.TxOut
		if c.cfg.LiquidityProvider && remaining >= mixing.LiquidityProviderCollateralMultiple*mixing.DefaultCollateral {
			addr, unreserve, err := c.wallet.ReserveKey()
			if err != nil {
				return anyCreated, err
			}
			script, err := payToAddrScript(addr)
			if err != nil {
				unreserve()
				return anyCreated, err
			}
			amt := mixing.LiquidityProviderCollateralMultiple * mixing.DefaultCollateral
			outputs = append(outputs, wire.NewTxOut(int64(amt), script))
			remaining -= amt
		}

		for pass := 0; pass < 2 && remaining >= mixing.SmallestDenomination; pass++ {
			for i := len(mixing.Denominations) - 1; i >= 0; i-- {
				denom := mixing.Denominations[i]
				if pass == 0 && wideCounts[i] > mixing.DenomsCountMax {
					continue
				}
				created := 0
				for created < 10 && remaining >= denom {
					addr, unreserve, err := c.wallet.ReserveKey()
					if err != nil {
						return anyCreated, err
					}
					script, err := payToAddrScript(addr)
					if err != nil {
						unreserve()
						return anyCreated, err
					}
					outputs = append(outputs, wire.NewTxOut(int64(denom), script))
					remaining -= denom
					created++
					wideCounts[i]++
				}
			}
			if len(outputs) > 0 {
				break
			}
		}

		if len(outputs) == 0 {
			continue
		}
		tx, err := c.wallet.CreateTransaction(outputs)
		if err != nil {
			return anyCreated, err
		}
		if err := c.wallet.CommitTransaction(tx); err != nil {
			return anyCreated, err
		}
		anyCreated = true
	}
	return anyCreated, nil
}

func (c *Client) denominationCountsWalletWide() ([]int, error) {
	grouped, err := c.wallet.SelectCoinsGroupedByAddress()
	if err != nil {
		return nil, err
	}
	counts := make([]int, len(mixing.Denominations))
	for _, coins := range grouped {
		for _, coin := range coins {
			if idx, ok := mixing.DenomIndex(coin.Amount); ok {
				counts[idx]++
			}
		}
	}
	return counts, nil
}

// MakeCollateralAmounts creates a
// LiquidityProviderCollateralMultiple*PRIVATESEND_COLLATERAL output from a
// single address's funds, so the wallet has a collateral-sized input to
// post as a bond.
func (c *Client) MakeCollateralAmounts() (bool, error) {
	grouped, err := c.wallet.SelectCoinsGroupedByAddress()
	if err != nil {
		return false, err
	}
	amt := mixing.LiquidityProviderCollateralMultiple * mixing.DefaultCollateral
	for _, coins := range grouped {
		var total btcutil.Amount
		for _, coin := range coins {
			total += coin.Amount
		}
		if total < amt+mixing.DefaultCollateral {
			continue
		}
		addr, unreserve, err := c.wallet.ReserveKey()
		if err != nil {
			return false, err
		}
		script, err := payToAddrScript(addr)
		if err != nil {
			unreserve()
			return false, err
		}
		tx, err := c.wallet.CreateTransaction([]*wire.TxOut{wire.NewTxOut(int64(amt), script)})
		if err != nil {
			return false, err
		}
		if err := c.wallet.CommitTransaction(tx); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// createCollateralTx builds a fresh PRIVATESEND_COLLATERAL-fee transaction
// to post as this client's anti-griefing bond, actually invoking the
// wallet rather than short-circuiting as the original tuning's
// TODO-flagged paths did.
func (c *Client) createCollateralTx() (*wire.MsgTx, error) {
	addr, unreserve, err := c.wallet.ReserveKey()
	if err != nil {
		return nil, err
	}
	script, err := payToAddrScript(addr)
	if err != nil {
		unreserve()
		return nil, err
	}
	tx, err := c.wallet.CreateTransaction([]*wire.TxOut{wire.NewTxOut(int64(mixing.DefaultCollateral), script)})
	if err != nil {
		unreserve()
		return nil, err
	}
	if err := c.wallet.CommitTransaction(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// PrepareDenominate selects denominated inputs matching the session's
// denomination, locks them, pairs each with a freshly reserved address
// producing an equal-value output, and unlocks whatever coins went unused.
// It starts by excluding coins mixed MinRounds times or more (MinRounds is
// treated as at least 1) and widens
// that exclusion threshold by one round per attempt up to MaxRounds,
// preferring less-mixed coins before falling back to whatever still
// qualifies at the session's round cap.
func (c *Client) PrepareDenominate(denomMask uint32, count int) (mixing.Entry, error) {
	lo := c.cfg.MinRounds
	if lo < 1 {
		lo = 1
	}
	for hi := lo; hi <= c.cfg.MaxRounds; hi++ {
		entry, ok, err := c.tryPrepareDenominate(denomMask, count, hi)
		if err != nil {
			return mixing.Entry{}, err
		}
		if ok {
			return entry, nil
		}
	}
	entry, ok, err := c.tryPrepareDenominate(denomMask, count, c.cfg.MaxRounds)
	if err != nil {
		return mixing.Entry{}, err
	}
	if !ok {
		return mixing.Entry{}, fmt.Errorf("no denominated coins available to submit")
	}
	return entry, nil
}

func (c *Client) tryPrepareDenominate(denomMask uint32, count, maxRounds int) (mixing.Entry, bool, error) {
	coins, err := c.wallet.SelectCoinsByDenomination(denomMask, count, maxRounds)
	if err != nil || len(coins) == 0 {
		return mixing.Entry{}, false, nil
	}

	for _, coin := range coins {
		c.wallet.LockCoin(coin.OutPoint)
	}

	var entry mixing.Entry
	unlockAll := func() {
		for _, coin := range coins {
			c.wallet.UnlockCoin(coin.OutPoint)
		}
	}

	for _, coin := range coins {
		addr, unreserve, err := c.wallet.ReserveKey()
		if err != nil {
			unlockAll()
			return mixing.Entry{}, false, err
		}
		script, err := payToAddrScript(addr)
		if err != nil {
			unreserve()
			unlockAll()
			return mixing.Entry{}, false, err
		}
		entry.Ins = append(entry.Ins, mixing.DSIn{
			OutPoint:   coin.OutPoint,
			PrevScript: coin.PkScript,
			Sequence:   wire.MaxTxInSequenceNum,
		})
		entry.Outs = append(entry.Outs, mixing.DSOut{Value: coin.Amount, Script: script})
	}

	if entry.DenomMask() != denomMask {
		unlockAll()
		return mixing.Entry{}, false, fmt.Errorf("selected coins do not encode the requested denomination mask")
	}
	return entry, true, nil
}

// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package session

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/txsort"
	"github.com/btcsuite/btcd/wire"
	"github.com/coinmix/coinmixd/mixing"
)

// AddEntry validates and appends a client's Entry to the active session's
// entry pool, mixer-side. It enforces:
//
//   - the session must be active and in ACCEPTING;
//   - the entry's denomination mask must match the session's;
//   - no input may be null, or already claimed by an earlier entry;
//   - the collateral must be one accepted into this session by
//     HandleDSAccept (which validated it there; it is not validated again
//     here) and not already used by an earlier entry;
//   - the fee (sum_in - sum_out) must not exceed the smallest denomination;
//   - the aggregate input value must not exceed PRIVATESEND_POOL_MAX;
//   - the pool must not already be full.
//
// On success it returns mixing.ENTRIES_ADDED and, if the pool is now full,
// transitions the session to SIGNING by assembling the final transaction.
func (p *Pool) AddEntry(prevOuts map[wire.OutPoint]btcutil.Amount, entry mixing.Entry) (mixing.RejectCode, error) {
	if p.role != RoleMixer {
		return mixing.MODE, mixing.NewRuleError(mixing.MODE, errWrongRole)
	}
	s := &p.session
	if s.state != StateAccepting {
		return mixing.SESSION, mixing.NewRuleError(mixing.SESSION, errWrongState)
	}
	if len(s.entries) >= p.cfg.MaxPoolTransactions {
		return mixing.ENTRIES_FULL, mixing.NewRuleError(mixing.ENTRIES_FULL, errPoolFull)
	}
	if entry.DenomMask() != s.denomMask {
		return mixing.DENOM, mixing.NewRuleError(mixing.DENOM, errDenomMismatch)
	}
	for _, in := range entry.Ins {
		if in.IsNull() {
			return mixing.INVALID_INPUT, mixing.NewRuleError(mixing.INVALID_INPUT, fmt.Errorf("entry carries a null input"))
		}
		for _, e := range s.entries {
			if e.HasOutPoint(in.OutPoint) {
				return mixing.ALREADY_HAVE, mixing.NewRuleError(mixing.ALREADY_HAVE, errDuplicateOutPoint)
			}
		}
	}
	if entry.Collateral == nil {
		return mixing.INVALID_COLLATERAL, mixing.NewRuleError(mixing.INVALID_COLLATERAL, fmt.Errorf("entry carries no collateral"))
	}
	collateralHash := entry.Collateral.Tx.TxHash()
	var matched bool
	for _, c := range s.collaterals {
		if c.Tx.TxHash() == collateralHash {
			matched = true
			break
		}
	}
	if !matched {
		return mixing.INVALID_COLLATERAL, mixing.NewRuleError(mixing.INVALID_COLLATERAL, fmt.Errorf("entry's collateral was not accepted into this session"))
	}
	for _, e := range s.entries {
		if e.Collateral != nil && e.Collateral.Tx.TxHash() == collateralHash {
			return mixing.EXISTING_TX, mixing.NewRuleError(mixing.EXISTING_TX, errCollateralReused)
		}
	}

	inputValue := entry.InputValue(prevOuts)
	outputValue := entry.OutputValue()
	if inputValue > p.cfg.PoolMax {
		return mixing.MAXIMUM, mixing.NewRuleError(mixing.MAXIMUM, fmt.Errorf("%w: %v exceeds %v", errPoolMaxExceeded, inputValue, p.cfg.PoolMax))
	}
	fee := inputValue - outputValue
	if fee > mixing.SmallestDenomination {
		return mixing.FEES, mixing.NewRuleError(mixing.FEES, fmt.Errorf("entry fee %v exceeds smallest denomination %v", fee, mixing.SmallestDenomination))
	}

	entry.AddedAtMs = p.nowMs()
	s.entries = append(s.entries, entry)
	p.touch()

	if len(s.entries) == p.cfg.MaxPoolTransactions {
		p.assembleFinalTx()
	}
	return mixing.ENTRIES_ADDED, nil
}

// assembleFinalTx concatenates every accepted entry's inputs and outputs,
// sorts both per BIP69, stores the result as the session's final_tx, and
// transitions to SIGNING. Callers must hold the session lock and must
// already have established len(entries) == MaxPoolTransactions.
func (p *Pool) assembleFinalTx() {
	s := &p.session
	tx := wire.NewMsgTx(wire.TxVersion)
	for _, entry := range s.entries {
		for _, in := range entry.Ins {
			txIn := wire.NewTxIn(&in.OutPoint, nil, nil)
			txIn.Sequence = in.Sequence
			tx.AddTxIn(txIn)
		}
		for _, out := range entry.Outs {
			tx.AddTxOut(wire.NewTxOut(int64(out.Value), out.Script))
		}
	}
	txsort.InPlaceSort(tx)
	s.finalTx = tx
	s.state = StateSigning
	p.touch()
}

// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mixing

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// ValidateCollateral checks that tx satisfies every rule a collateral
// transaction must hold before it can be attached to an Entry:
//
//   - it has at least one output;
//   - its lock time is zero;
//   - every output is a standard payment script;
//   - every input refers to a known, unspent previous output;
//   - the fee it pays (sum of inputs minus sum of outputs) is at least
//     minFee;
//   - it is acceptable to the mempool with no validation bypass.
//
// It has no side effects: it does not insert tx anywhere.
func ValidateCollateral(ledger Ledger, tx *wire.MsgTx, minFee btcutil.Amount) error {
	if len(tx.TxOut) == 0 {
		return ruleError(INVALID_COLLATERAL, fmt.Errorf("collateral has no outputs"))
	}
	if tx.LockTime != 0 {
		return ruleError(INVALID_COLLATERAL, fmt.Errorf("collateral has nonzero lock time"))
	}
	for i, out := range tx.TxOut {
		class := txscript.GetScriptClass(out.PkScript)
		if class == txscript.NonStandardTy {
			return ruleError(INVALID_SCRIPT, fmt.Errorf("collateral output %d is non-standard", i))
		}
	}

	var sumIn, sumOut btcutil.Amount
	for _, in := range tx.TxIn {
		prevOut, found := ledger.FetchUTXO(in.PreviousOutPoint)
		if !found {
			return ruleError(MISSING_TX, fmt.Errorf("collateral input %v has no known previous output", in.PreviousOutPoint))
		}
		sumIn += btcutil.Amount(prevOut.Value)
	}
	for _, out := range tx.TxOut {
		sumOut += btcutil.Amount(out.Value)
	}

	fee := sumIn - sumOut
	if fee < minFee {
		return ruleError(INVALID_COLLATERAL, fmt.Errorf("collateral fee %v below minimum %v", fee, minFee))
	}

	if err := ledger.TestAcceptTransaction(tx); err != nil {
		return ruleError(INVALID_COLLATERAL, fmt.Errorf("collateral is not mempool-acceptable: %w", err))
	}

	return nil
}

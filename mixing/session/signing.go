// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package session

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/coinmix/coinmixd/mixing"
)

// SignFinalTx implements the client side of the signing protocol on
// receipt of DSFINALTX: verifies sessionID, locates each of the client's own
// declared inputs within finalTx, checks that its declared outputs all
// appear with identical summed value, then signs each located input with
// ALL|ANYONECANPAY using wallet. It returns the signed DSIns to send back
// as DSSIGNFINALTX.
//
// If validation fails, no signature is produced: the caller is accepting
// the risk of being charged as an offender rather than sign a transaction
// it cannot verify.
func (p *Pool) SignFinalTx(sessionID int32, finalTx *wire.MsgTx, myEntry mixing.Entry) ([]mixing.DSIn, error) {
	if p.role != RoleClient {
		return nil, mixing.NewRuleError(mixing.MODE, errWrongRole)
	}
	s := &p.session
	if s.id != sessionID {
		return nil, mixing.NewRuleError(mixing.SESSION, errWrongSessionID)
	}
	if s.state != StateAccepting && s.state != StateSigning {
		return nil, mixing.NewRuleError(mixing.SESSION, errWrongState)
	}

	outputsByScript := make(map[string]btcutil.Amount)
	for _, out := range finalTx.TxOut {
		outputsByScript[string(out.PkScript)] += btcutil.Amount(out.Value)
	}
	wantByScript := make(map[string]btcutil.Amount)
	for _, want := range myEntry.Outs {
		wantByScript[string(want.Script)] += want.Value
	}
	for script, want := range wantByScript {
		if outputsByScript[script] != want {
			return nil, mixing.NewRuleError(mixing.INVALID_TX, fmt.Errorf("declared output missing or paid a different value in final transaction"))
		}
	}

	signed := make([]mixing.DSIn, 0, len(myEntry.Ins))
	for _, in := range myEntry.Ins {
		idx := -1
		for i, txIn := range finalTx.TxIn {
			if txIn.PreviousOutPoint == in.OutPoint {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, mixing.NewRuleError(mixing.INVALID_TX, fmt.Errorf("declared input %v missing from final transaction", in.OutPoint))
		}
		sig, err := p.wallet.SignInput(finalTx, idx, in.PrevScript, 0, txscript.SigHashAll|txscript.SigHashAnyOneCanPay)
		if err != nil {
			return nil, fmt.Errorf("sign input %v: %w", in.OutPoint, err)
		}
		in.ScriptSig = sig
		in.HasSig = true
		signed = append(signed, in)
	}

	s.state = StateSigning
	p.touch()
	return signed, nil
}

// ApplySignatures is the mixer side of the signing protocol: for each
// signed DSIn in the batch, locate the matching input in final_tx and in
// entries, attach its scriptSig, and mark it signed. Duplicate scriptSigs
// are rejected. When every DSIn is signed, it invokes CommitFinalTransaction
// and returns its outcome.
func (p *Pool) ApplySignatures(sessionID int32, signed []mixing.DSIn) (mixing.RejectCode, error) {
	if p.role != RoleMixer {
		return mixing.MODE, mixing.NewRuleError(mixing.MODE, errWrongRole)
	}
	s := &p.session
	if s.id != sessionID {
		return mixing.SESSION, mixing.NewRuleError(mixing.SESSION, errWrongSessionID)
	}
	if s.state != StateSigning {
		return mixing.SESSION, mixing.NewRuleError(mixing.SESSION, errWrongState)
	}

	for _, in := range signed {
		idx := -1
		for i, txIn := range s.finalTx.TxIn {
			if txIn.PreviousOutPoint == in.OutPoint {
				idx = i
				break
			}
		}
		if idx < 0 {
			return mixing.INVALID_INPUT, mixing.NewRuleError(mixing.INVALID_INPUT, errUnknownInput)
		}
		if len(s.finalTx.TxIn[idx].SignatureScript) != 0 {
			return mixing.EXISTING_TX, mixing.NewRuleError(mixing.EXISTING_TX, fmt.Errorf("input %v already has a signature", in.OutPoint))
		}
		entryIdx, dsInIdx := p.locateEntryInput(in.OutPoint)
		if entryIdx < 0 {
			return mixing.INVALID_INPUT, mixing.NewRuleError(mixing.INVALID_INPUT, errUnknownInput)
		}
		s.finalTx.TxIn[idx].SignatureScript = in.ScriptSig
		s.entries[entryIdx].Ins[dsInIdx].ScriptSig = in.ScriptSig
		s.entries[entryIdx].Ins[dsInIdx].HasSig = true
	}
	p.touch()

	if !p.allSigned() {
		return mixing.SUCCESS, nil
	}
	return p.CommitFinalTransaction()
}

func (p *Pool) locateEntryInput(outpoint wire.OutPoint) (entryIdx, dsInIdx int) {
	for i, e := range p.session.entries {
		for j, in := range e.Ins {
			if in.OutPoint == outpoint {
				return i, j
			}
		}
	}
	return -1, -1
}

func (p *Pool) allSigned() bool {
	for _, e := range p.session.entries {
		if !e.AllSigned() {
			return false
		}
	}
	return true
}

// CommitFinalTransaction mempool-accepts the session's final_tx. On
// success it registers a broadcast-tx record, relays it via inventory, runs
// ChargeRandomFees, and resets the session to IDLE, returning SUCCESS. On
// failure it resets the session and returns INVALID_TX: the caller reports
// this as DSCOMPLETE to every client.
func (p *Pool) CommitFinalTransaction() (mixing.RejectCode, error) {
	s := &p.session
	if !p.allSigned() {
		p.SetNull()
		return mixing.INVALID_TX, mixing.NewRuleError(mixing.INVALID_TX, errMissingSignatures)
	}
	tx := s.finalTx
	if err := p.ledger.AcceptTransaction(tx); err != nil {
		p.SetNull()
		return mixing.INVALID_TX, mixing.NewRuleError(mixing.INVALID_TX, fmt.Errorf("%w: %v", errTxRejected, err))
	}

	hash := tx.TxHash()
	sig, err := p.signer.Sign(hash.String())
	broadcast := &mixing.BroadcastTx{
		Tx:      tx,
		MixerID: p.selfID,
		SigTime: p.clock().Unix(),
	}
	if err == nil {
		broadcast.Signature = sig
	}
	p.recordBroadcastTx(broadcast)
	p.ledger.RelayTransaction(tx)
	p.ledger.RelayInventory(hash)

	p.chargeRandomFees()
	p.SetNull()
	return mixing.SUCCESS, nil
}

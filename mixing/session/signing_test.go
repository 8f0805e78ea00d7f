// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package session

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/coinmix/coinmixd/mixing"
)

func TestSignFinalTxRejectsWrongSessionID(t *testing.T) {
	pool := NewPool(RoleClient, testConfig(), newFakeLedger(), newFakeMixerList(), &fakeWallet{})
	pool.session = Session{id: 5, state: StateAccepting}
	_, err := pool.SignFinalTx(6, wire.NewMsgTx(wire.TxVersion), mixing.Entry{})
	if err == nil {
		t.Fatal("expected rejection for mismatched session id")
	}
}

func TestSignFinalTxSignsDeclaredInputs(t *testing.T) {
	wallet := &fakeWallet{}
	pool := NewPool(RoleClient, testConfig(), newFakeLedger(), newFakeMixerList(), wallet)
	pool.session = Session{id: 5, state: StateAccepting}

	prevOut := wire.OutPoint{Hash: chainhash.Hash{1}, Index: 0}
	finalTx := wire.NewMsgTx(wire.TxVersion)
	finalTx.AddTxIn(wire.NewTxIn(&prevOut, nil, nil))
	finalTx.AddTxOut(wire.NewTxOut(int64(testDenomAmount()), standardScript()))

	entry := mixing.Entry{
		Ins:  []mixing.DSIn{{OutPoint: prevOut, PrevScript: standardScript()}},
		Outs: []mixing.DSOut{{Value: testDenomAmount(), Script: standardScript()}},
	}

	signed, err := pool.SignFinalTx(5, finalTx, entry)
	if err != nil {
		t.Fatalf("SignFinalTx: %v", err)
	}
	if len(signed) != 1 || !signed[0].HasSig {
		t.Fatalf("signed = %+v, want exactly one signed input", signed)
	}
	if pool.session.state != StateSigning {
		t.Fatalf("state = %v, want SIGNING", pool.session.state)
	}
}

func TestSignFinalTxRejectsMissingDeclaredOutput(t *testing.T) {
	wallet := &fakeWallet{}
	pool := NewPool(RoleClient, testConfig(), newFakeLedger(), newFakeMixerList(), wallet)
	pool.session = Session{id: 5, state: StateAccepting}

	finalTx := wire.NewMsgTx(wire.TxVersion)
	finalTx.AddTxOut(wire.NewTxOut(int64(testDenomAmount()), standardScript()))

	entry := mixing.Entry{
		Outs: []mixing.DSOut{{Value: testDenomAmount() + 1, Script: standardScript()}},
	}
	_, err := pool.SignFinalTx(5, finalTx, entry)
	if err == nil {
		t.Fatal("expected rejection for an undervalued declared output")
	}
}

func newSignedMixerPool(t *testing.T) (*Pool, *fakeLedger) {
	t.Helper()
	ledger := newFakeLedger()
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	pool := NewPool(RoleMixer, testConfig(), ledger, newFakeMixerList(), nil)
	pool.SetSigner(mixing.MixerID{Index: 1}, mixing.NewSigner(priv))
	return pool, ledger
}

func TestApplySignaturesCommitsOnceEverySignatureArrives(t *testing.T) {
	pool, ledger := newSignedMixerPool(t)

	prevOut1 := wire.OutPoint{Hash: chainhash.Hash{1}, Index: 0}
	prevOut2 := wire.OutPoint{Hash: chainhash.Hash{2}, Index: 0}
	finalTx := wire.NewMsgTx(wire.TxVersion)
	finalTx.AddTxIn(wire.NewTxIn(&prevOut1, nil, nil))
	finalTx.AddTxIn(wire.NewTxIn(&prevOut2, nil, nil))
	finalTx.AddTxOut(wire.NewTxOut(int64(testDenomAmount()), standardScript()))
	finalTx.AddTxOut(wire.NewTxOut(int64(testDenomAmount()), standardScript()))

	collateral1 := newCollateral(ledger, 11, 0)
	collateral2 := newCollateral(ledger, 12, 0)
	pool.session = Session{
		id:      1,
		state:   StateSigning,
		finalTx: finalTx,
		entries: []mixing.Entry{
			{Ins: []mixing.DSIn{{OutPoint: prevOut1}}, Collateral: collateral1},
			{Ins: []mixing.DSIn{{OutPoint: prevOut2}}, Collateral: collateral2},
		},
	}

	code, err := pool.ApplySignatures(1, []mixing.DSIn{{OutPoint: prevOut1, ScriptSig: []byte{1}, HasSig: true}})
	if err != nil || code != mixing.SUCCESS {
		t.Fatalf("first batch: code=%v err=%v", code, err)
	}
	if pool.session.state != StateSigning {
		t.Fatalf("state = %v, want still SIGNING after a partial signature batch", pool.session.state)
	}

	code, err = pool.ApplySignatures(1, []mixing.DSIn{{OutPoint: prevOut2, ScriptSig: []byte{2}, HasSig: true}})
	if err != nil || code != mixing.SUCCESS {
		t.Fatalf("final batch: code=%v err=%v", code, err)
	}
	if pool.session.state != StateIdle {
		t.Fatalf("state = %v, want IDLE after commit", pool.session.state)
	}
	if len(ledger.accepted) != 1 {
		t.Fatalf("accepted %d transactions, want 1", len(ledger.accepted))
	}
}

func TestApplySignaturesRejectsDuplicateScriptSig(t *testing.T) {
	pool, ledger := newSignedMixerPool(t)
	prevOut := wire.OutPoint{Hash: chainhash.Hash{1}, Index: 0}
	finalTx := wire.NewMsgTx(wire.TxVersion)
	txIn := wire.NewTxIn(&prevOut, nil, nil)
	txIn.SignatureScript = []byte{9}
	finalTx.AddTxIn(txIn)
	finalTx.AddTxOut(wire.NewTxOut(int64(testDenomAmount()), standardScript()))

	collateral := newCollateral(ledger, 21, 0)
	pool.session = Session{
		id:      1,
		state:   StateSigning,
		finalTx: finalTx,
		entries: []mixing.Entry{{Ins: []mixing.DSIn{{OutPoint: prevOut}}, Collateral: collateral}},
	}

	code, err := pool.ApplySignatures(1, []mixing.DSIn{{OutPoint: prevOut, ScriptSig: []byte{1}, HasSig: true}})
	if err == nil || code != mixing.EXISTING_TX {
		t.Fatalf("code=%v err=%v, want EXISTING_TX", code, err)
	}
}

// TestCommitFinalTransactionRejectsUnsignedEntries verifies that
// CommitFinalTransaction refuses to accept a final transaction whose
// entries are not all signed yet, since it is exported and callable
// directly rather than only ever reached through ApplySignatures' guard.
func TestCommitFinalTransactionRejectsUnsignedEntries(t *testing.T) {
	pool, ledger := newSignedMixerPool(t)
	pool.session = Session{
		id:      1,
		state:   StateSigning,
		finalTx: wire.NewMsgTx(wire.TxVersion),
		entries: []mixing.Entry{{Ins: []mixing.DSIn{{OutPoint: wire.OutPoint{Index: 1}, HasSig: false}}}},
	}

	code, err := pool.CommitFinalTransaction()
	if err == nil || code != mixing.INVALID_TX {
		t.Fatalf("code=%v err=%v, want INVALID_TX", code, err)
	}
	if len(ledger.accepted) != 0 {
		t.Fatal("expected no transaction to reach the ledger")
	}
	if pool.session.state != StateIdle {
		t.Fatalf("state = %v, want IDLE after a rejected commit", pool.session.state)
	}
}

func TestCommitFinalTransactionResetsOnMempoolRejection(t *testing.T) {
	pool, ledger := newSignedMixerPool(t)
	ledger.acceptErr = errBoom
	pool.session = Session{id: 1, state: StateSigning, finalTx: wire.NewMsgTx(wire.TxVersion)}

	code, err := pool.CommitFinalTransaction()
	if err == nil || code != mixing.INVALID_TX {
		t.Fatalf("code=%v err=%v, want INVALID_TX", code, err)
	}
	if pool.session.state != StateIdle {
		t.Fatalf("state = %v, want IDLE after a rejected commit", pool.session.state)
	}
}

var errBoom = errors.New("boom")

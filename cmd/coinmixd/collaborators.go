// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/coinmix/coinmixd/mixing"
)

// errNotImplemented marks every method of the placeholder collaborators
// below: a real deployment replaces all of unimplementedCollaborators'
// return values with adapters onto its own ledger, wallet, and mixer-list
// implementations before this binary can actually mix anything.
var errNotImplemented = errors.New("coinmixd: this collaborator must be supplied by the host node")

type stubLedger struct{}

func (stubLedger) FetchUTXO(wire.OutPoint) (*wire.TxOut, bool)     { return nil, false }
func (stubLedger) TestAcceptTransaction(*wire.MsgTx) error         { return errNotImplemented }
func (stubLedger) AcceptTransaction(*wire.MsgTx) error             { return errNotImplemented }
func (stubLedger) RelayTransaction(*wire.MsgTx)                    {}
func (stubLedger) RelayInventory(chainhash.Hash)                   {}
func (stubLedger) BestHeight() int32                                { return 0 }

type stubWallet struct{}

func (stubWallet) LockCoin(wire.OutPoint)   {}
func (stubWallet) UnlockCoin(wire.OutPoint) {}
func (stubWallet) ReserveKey() (btcutil.Address, func(), error) {
	return nil, func() {}, errNotImplemented
}
func (stubWallet) CreateTransaction([]*wire.TxOut) (*wire.MsgTx, error) {
	return nil, errNotImplemented
}
func (stubWallet) CommitTransaction(*wire.MsgTx) error { return errNotImplemented }
func (stubWallet) SignInput(*wire.MsgTx, int, []byte, btcutil.Amount, txscript.SigHashType) ([]byte, error) {
	return nil, errNotImplemented
}
func (stubWallet) SelectCoinsByDenomination(uint32, int, int) ([]mixing.Coin, error) {
	return nil, errNotImplemented
}
func (stubWallet) SelectCoinsGroupedByAddress() (map[string][]mixing.Coin, error) {
	return nil, errNotImplemented
}
func (stubWallet) DenominatedBalance() (btcutil.Amount, btcutil.Amount) { return 0, 0 }
func (stubWallet) NonDenominatedBalance() btcutil.Amount                { return 0 }
func (stubWallet) HasCollateralInputs() bool                            { return false }
func (stubWallet) IsLocked() bool                                       { return true }
func (stubWallet) AutoBackup() error                                    { return errNotImplemented }

type stubMixerList struct{}

func (stubMixerList) Find(mixing.MixerID) (*mixing.MixerInfo, bool) { return nil, false }
func (stubMixerList) FindRandomNotIn([]mixing.MixerID, uint32) (*mixing.MixerInfo, bool) {
	return nil, false
}
func (stubMixerList) CountEnabled(uint32) int                   { return 0 }
func (stubMixerList) AskFor(mixing.MixerID)                     {}
func (stubMixerList) SetLastDsq(mixing.MixerID, uint32)         {}
func (stubMixerList) SetMixingAllowed(mixing.MixerID, bool)     {}

// unimplementedCollaborators constructs placeholder Ledger, Wallet,
// MixerList, and Signer values sufficient to let this binary build and
// start up without a host node attached. It also generates a throwaway
// signing key so a mixer-role process has something to sign queue
// advertisements with; a real mixer must use its actual masternode key
// instead.
func unimplementedCollaborators() (mixing.Ledger, mixing.Wallet, mixing.MixerList, mixing.Signer, mixing.MixerID) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		panic(err)
	}
	return stubLedger{}, stubWallet{}, stubMixerList{}, mixing.NewSigner(priv), mixing.MixerID{}
}

// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package session

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/coinmix/coinmixd/mixing"
)

type fakeLedger struct {
	utxos     map[wire.OutPoint]*wire.TxOut
	acceptErr error
	accepted  []*wire.MsgTx
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{utxos: make(map[wire.OutPoint]*wire.TxOut)}
}

func (f *fakeLedger) FetchUTXO(op wire.OutPoint) (*wire.TxOut, bool) {
	out, ok := f.utxos[op]
	return out, ok
}

func (f *fakeLedger) TestAcceptTransaction(*wire.MsgTx) error { return f.acceptErr }

func (f *fakeLedger) AcceptTransaction(tx *wire.MsgTx) error {
	if f.acceptErr != nil {
		return f.acceptErr
	}
	f.accepted = append(f.accepted, tx)
	return nil
}

func (f *fakeLedger) RelayTransaction(*wire.MsgTx)  {}
func (f *fakeLedger) RelayInventory(chainhash.Hash) {}
func (f *fakeLedger) BestHeight() int32             { return 0 }

type fakeMixerList struct {
	info map[mixing.MixerID]*mixing.MixerInfo
}

func newFakeMixerList() *fakeMixerList {
	return &fakeMixerList{info: make(map[mixing.MixerID]*mixing.MixerInfo)}
}

func (f *fakeMixerList) add(info *mixing.MixerInfo) { f.info[info.ID] = info }

func (f *fakeMixerList) Find(id mixing.MixerID) (*mixing.MixerInfo, bool) {
	info, ok := f.info[id]
	return info, ok
}

func (f *fakeMixerList) FindRandomNotIn(exclude []mixing.MixerID, minVer uint32) (*mixing.MixerInfo, bool) {
	excluded := make(map[mixing.MixerID]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}
	for _, info := range f.info {
		if !excluded[info.ID] && info.ProtoVersion >= minVer {
			return info, true
		}
	}
	return nil, false
}

func (f *fakeMixerList) CountEnabled(minVer uint32) int {
	n := 0
	for _, info := range f.info {
		if info.ProtoVersion >= minVer {
			n++
		}
	}
	return n
}

func (f *fakeMixerList) AskFor(mixing.MixerID) {}

func (f *fakeMixerList) SetLastDsq(id mixing.MixerID, v uint32) {
	if info, ok := f.info[id]; ok {
		info.LastDsq = v
	}
}

func (f *fakeMixerList) SetMixingAllowed(id mixing.MixerID, allowed bool) {
	if info, ok := f.info[id]; ok {
		info.MixingAllowed = allowed
	}
}

func standardScript() []byte {
	addr, err := btcutil.NewAddressPubKeyHash(make([]byte, 20), &chaincfg.MainNetParams)
	if err != nil {
		panic(err)
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		panic(err)
	}
	return script
}

// newCollateral builds a collateral transaction paying fee out of a
// freshly minted previous output registered with ledger.
func newCollateral(ledger *fakeLedger, seed byte, fee btcutil.Amount) *mixing.Collateral {
	tx := wire.NewMsgTx(wire.TxVersion)
	prevOut := wire.OutPoint{Hash: chainhash.Hash{seed}, Index: 0}
	ledger.utxos[prevOut] = wire.NewTxOut(int64(mixing.DefaultCollateral+fee), standardScript())
	tx.AddTxIn(wire.NewTxIn(&prevOut, nil, nil))
	tx.AddTxOut(wire.NewTxOut(int64(mixing.DefaultCollateral), standardScript()))
	return &mixing.Collateral{Tx: tx}
}

type fakeWallet struct {
	signErr error
	signed  []int
}

func (w *fakeWallet) LockCoin(wire.OutPoint)   {}
func (w *fakeWallet) UnlockCoin(wire.OutPoint) {}

func (w *fakeWallet) ReserveKey() (btcutil.Address, func(), error) {
	addr, err := btcutil.NewAddressPubKeyHash(make([]byte, 20), &chaincfg.MainNetParams)
	return addr, func() {}, err
}

func (w *fakeWallet) CreateTransaction([]*wire.TxOut) (*wire.MsgTx, error) {
	return wire.NewMsgTx(wire.TxVersion), nil
}

func (w *fakeWallet) CommitTransaction(*wire.MsgTx) error { return nil }

func (w *fakeWallet) SignInput(tx *wire.MsgTx, idx int, prevScript []byte, amount btcutil.Amount, hashType txscript.SigHashType) ([]byte, error) {
	if w.signErr != nil {
		return nil, w.signErr
	}
	w.signed = append(w.signed, idx)
	return []byte{0xde, 0xad, 0xbe, 0xef}, nil
}

func (w *fakeWallet) SelectCoinsByDenomination(mask uint32, count, maxRounds int) ([]mixing.Coin, error) {
	return nil, nil
}

func (w *fakeWallet) SelectCoinsGroupedByAddress() (map[string][]mixing.Coin, error) {
	return nil, nil
}

func (w *fakeWallet) DenominatedBalance() (btcutil.Amount, btcutil.Amount) { return 0, 0 }
func (w *fakeWallet) NonDenominatedBalance() btcutil.Amount               { return 0 }
func (w *fakeWallet) HasCollateralInputs() bool                          { return false }
func (w *fakeWallet) IsLocked() bool                                     { return false }
func (w *fakeWallet) AutoBackup() error                                  { return nil }

func testConfig() Config {
	return Config{
		MaxPoolTransactions: 3,
		Collateral:          mixing.DefaultCollateral,
		PoolMax:             mixing.DefaultPoolMax,
		MinPeerProtoVersion: mixing.MinPeerProtoVersion,
	}
}

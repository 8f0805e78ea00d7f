// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mixclient

import (
	"errors"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/coinmix/coinmixd/mixing"
)

var errFakeWallet = errors.New("fakeWallet: not configured to succeed")

type fakeWallet struct {
	mu sync.Mutex

	locked                bool
	backupErr             error
	nonDenom              btcutil.Amount
	denomConfirmed        btcutil.Amount
	denomUnconfirmed      btcutil.Amount
	hasCollateral         bool
	grouped               map[string][]mixing.Coin
	byDenom               []mixing.Coin
	createErr             error
	reserveErr            error
	nextAddrSeed          byte
	lockedCoins           map[wire.OutPoint]bool
	committed             []*wire.MsgTx
	signErr               error
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{
		grouped:     make(map[string][]mixing.Coin),
		lockedCoins: make(map[wire.OutPoint]bool),
	}
}

func (w *fakeWallet) LockCoin(op wire.OutPoint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lockedCoins[op] = true
}

func (w *fakeWallet) UnlockCoin(op wire.OutPoint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.lockedCoins, op)
}

func (w *fakeWallet) ReserveKey() (btcutil.Address, func(), error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.reserveErr != nil {
		return nil, func() {}, w.reserveErr
	}
	w.nextAddrSeed++
	h := make([]byte, 20)
	h[0] = w.nextAddrSeed
	addr, err := btcutil.NewAddressPubKeyHash(h, &chaincfg.MainNetParams)
	if err != nil {
		return nil, func() {}, err
	}
	return addr, func() {}, nil
}

func (w *fakeWallet) CreateTransaction(outputs []*wire.TxOut) (*wire.MsgTx, error) {
	if w.createErr != nil {
		return nil, w.createErr
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	prevOut := wire.OutPoint{Hash: chainhash.Hash{0xaa}, Index: 0}
	tx.AddTxIn(wire.NewTxIn(&prevOut, nil, nil))
	for _, out := range outputs {
		tx.AddTxOut(out)
	}
	return tx, nil
}

func (w *fakeWallet) CommitTransaction(tx *wire.MsgTx) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.committed = append(w.committed, tx)
	return nil
}

func (w *fakeWallet) SignInput(tx *wire.MsgTx, idx int, prevScript []byte, amount btcutil.Amount, hashType txscript.SigHashType) ([]byte, error) {
	if w.signErr != nil {
		return nil, w.signErr
	}
	return []byte{0x01}, nil
}

func (w *fakeWallet) SelectCoinsByDenomination(mask uint32, count, maxRounds int) ([]mixing.Coin, error) {
	var out []mixing.Coin
	for _, c := range w.byDenom {
		idx, ok := mixing.DenomIndex(c.Amount)
		if !ok || mask&(1<<idx) == 0 {
			continue
		}
		if c.Rounds >= maxRounds {
			continue
		}
		out = append(out, c)
		if len(out) == count {
			break
		}
	}
	return out, nil
}

func (w *fakeWallet) SelectCoinsGroupedByAddress() (map[string][]mixing.Coin, error) {
	return w.grouped, nil
}

func (w *fakeWallet) DenominatedBalance() (btcutil.Amount, btcutil.Amount) {
	return w.denomConfirmed, w.denomUnconfirmed
}

func (w *fakeWallet) NonDenominatedBalance() btcutil.Amount { return w.nonDenom }
func (w *fakeWallet) HasCollateralInputs() bool              { return w.hasCollateral }
func (w *fakeWallet) IsLocked() bool                         { return w.locked }
func (w *fakeWallet) AutoBackup() error                      { return w.backupErr }

type fakeLedger struct {
	mu       sync.Mutex
	utxos    map[wire.OutPoint]*wire.TxOut
	height   int32
	accepted []*wire.MsgTx
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{utxos: make(map[wire.OutPoint]*wire.TxOut)}
}

func (f *fakeLedger) FetchUTXO(op wire.OutPoint) (*wire.TxOut, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out, ok := f.utxos[op]
	return out, ok
}

func (f *fakeLedger) TestAcceptTransaction(*wire.MsgTx) error { return nil }

func (f *fakeLedger) AcceptTransaction(tx *wire.MsgTx) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accepted = append(f.accepted, tx)
	return nil
}

func (f *fakeLedger) RelayTransaction(*wire.MsgTx)  {}
func (f *fakeLedger) RelayInventory(chainhash.Hash) {}

func (f *fakeLedger) BestHeight() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.height
}

type fakeMixerList struct {
	mu   sync.Mutex
	info map[mixing.MixerID]*mixing.MixerInfo
}

func newFakeMixerList() *fakeMixerList {
	return &fakeMixerList{info: make(map[mixing.MixerID]*mixing.MixerInfo)}
}

func (f *fakeMixerList) add(info *mixing.MixerInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.info[info.ID] = info
}

func (f *fakeMixerList) Find(id mixing.MixerID) (*mixing.MixerInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.info[id]
	return info, ok
}

func (f *fakeMixerList) FindRandomNotIn(exclude []mixing.MixerID, minVer uint32) (*mixing.MixerInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
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
	f.mu.Lock()
	defer f.mu.Unlock()
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
	f.mu.Lock()
	defer f.mu.Unlock()
	if info, ok := f.info[id]; ok {
		info.LastDsq = v
	}
}

func (f *fakeMixerList) SetMixingAllowed(id mixing.MixerID, allowed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
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

func fakeCollateralTx(seed byte) *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	prevOut := wire.OutPoint{Hash: chainhash.Hash{seed}, Index: 0}
	tx.AddTxIn(wire.NewTxIn(&prevOut, nil, nil))
	tx.AddTxOut(wire.NewTxOut(int64(mixing.DefaultCollateral), standardScript()))
	return tx
}

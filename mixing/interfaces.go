// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mixing

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// MixerID identifies a mixer service node by the outpoint of its staking
// input.  No raw pointer to a mixer record is ever retained across a lock
// boundary; every lookup goes back through MixerList keyed by this value.
type MixerID = wire.OutPoint

// Ledger is the narrow view of the out-of-scope UTXO ledger and mempool that
// the core consumes.  A concrete implementation lives in the host node.
type Ledger interface {
	// FetchUTXO returns the previous output referenced by outpoint, and
	// whether it is known and currently unspent.
	FetchUTXO(outpoint wire.OutPoint) (out *wire.TxOut, found bool)

	// TestAcceptTransaction reports whether tx would be accepted to the
	// mempool, without actually inserting it and without any standalone
	// verification bypass.
	TestAcceptTransaction(tx *wire.MsgTx) error

	// AcceptTransaction inserts tx into the mempool.
	AcceptTransaction(tx *wire.MsgTx) error

	// RelayTransaction announces tx to the peer-to-peer network.
	RelayTransaction(tx *wire.MsgTx)

	// RelayInventory announces an already-known hash for inventory
	// gossip (used for DSTX broadcast-tx records).
	RelayInventory(hash chainhash.Hash)

	// BestHeight returns the current best chain height.
	BestHeight() int32
}

// Coin is a wallet-owned unspent output, as handed to the core by coin
// selection.
type Coin struct {
	OutPoint  wire.OutPoint
	PkScript  []byte
	Amount    btcutil.Amount
	Address   string
	Confirmed bool

	// Rounds is how many completed mixes this coin's output already went
	// through. A freshly split denominated output starts at 0.
	Rounds int
}

// Wallet is the narrow view of out-of-scope wallet primitives: coin
// selection, key reservation, transaction creation/commit, and signing.
type Wallet interface {
	LockCoin(outpoint wire.OutPoint)
	UnlockCoin(outpoint wire.OutPoint)

	// ReserveKey reserves a fresh keypool address and returns it along
	// with a function that returns it to the pool if it ends up unused.
	ReserveKey() (addr btcutil.Address, unreserve func(), err error)

	// CreateTransaction builds and signs a standalone transaction paying
	// the given outputs from the wallet's general funds, e.g. to create a
	// collateral or collateral-sized output.
	CreateTransaction(outputs []*wire.TxOut) (*wire.MsgTx, error)

	// CommitTransaction finalizes a transaction created by this wallet:
	// marks its inputs spent, stores it, and relays it.
	CommitTransaction(tx *wire.MsgTx) error

	// SignInput produces a signature script for input idx of tx, spending
	// prevScript worth amount, using the requested sighash flags.
	SignInput(tx *wire.MsgTx, idx int, prevScript []byte, amount btcutil.Amount, hashType txscript.SigHashType) ([]byte, error)

	// SelectCoinsByDenomination selects up to count confirmed coins
	// matching any denomination in mask, preferring coins with fewer
	// completed rounds and excluding any coin whose Rounds has already
	// reached maxRounds. A caller passing a low threshold on the first
	// attempt and widening it on retries up to its round cap implements
	// progressively-wider round selection without the wallet needing to
	// know the retry policy itself.
	SelectCoinsByDenomination(mask uint32, count, maxRounds int) ([]Coin, error)

	// SelectCoinsGroupedByAddress returns every wallet UTXO, grouped by
	// the address that controls it, for CreateDenominated's per-address
	// tally.
	SelectCoinsGroupedByAddress() (map[string][]Coin, error)

	// DenominatedBalance returns the wallet's confirmed and unconfirmed
	// balance held in denominated outputs.
	DenominatedBalance() (confirmed, unconfirmed btcutil.Amount)

	// NonDenominatedBalance returns the wallet's spendable balance held
	// in non-denominated outputs.
	NonDenominatedBalance() btcutil.Amount

	// HasCollateralInputs reports whether the wallet holds an unspent
	// output sized for use as collateral.
	HasCollateralInputs() bool

	// IsLocked reports whether the wallet is currently passphrase-locked.
	IsLocked() bool

	// AutoBackup triggers (or verifies the recency of) an automatic
	// wallet backup, required before mixing is allowed to run.
	AutoBackup() error
}

// MixerInfo is the subset of mixer-list bookkeeping the core reads and
// updates.
type MixerInfo struct {
	ID              MixerID
	ProtoVersion    uint32
	PubKey          []byte
	LastDsq         uint32
	MixingAllowed   bool
}

// MixerList is the narrow view of out-of-scope mixer-list maintenance.
type MixerList interface {
	Find(id MixerID) (*MixerInfo, bool)
	FindRandomNotIn(exclude []MixerID, minVer uint32) (*MixerInfo, bool)
	CountEnabled(minVer uint32) int
	AskFor(id MixerID)
	SetLastDsq(id MixerID, v uint32)
	SetMixingAllowed(id MixerID, allowed bool)
}

// Signer is the narrow view of the out-of-scope ECDSA primitives: a
// compact-signature sign/verify scheme over a fixed message-magic plus
// payload string, the same convention Bitcoin-derived wallets use for
// signmessage/verifymessage.
type Signer interface {
	Sign(payload string) ([]byte, error)
	Verify(pubKey, payload []byte, sig []byte) bool
}

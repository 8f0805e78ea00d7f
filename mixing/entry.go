// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mixing

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// DSIn is a single input contributed to a session by a client, carried in a
// DSVIN message and later completed with a signature during the signing
// protocol.
type DSIn struct {
	OutPoint   wire.OutPoint
	PrevScript []byte
	Sequence   uint32
	ScriptSig  []byte
	HasSig     bool
}

// IsNull reports whether in refers to no real previous output, which is
// never valid in a submitted entry.
func (in *DSIn) IsNull() bool {
	return in.OutPoint.Hash == (wire.OutPoint{}).Hash && in.OutPoint.Index == 0
}

// DSOut is a single standard P2PKH output at one denomination contributed to
// a session by a client.
type DSOut struct {
	Value  btcutil.Amount
	Script []byte
}

// Collateral is a transaction posted as an anti-griefing bond.  It is valid
// per the collateral validator in collateral.go before ever being attached
// to an Entry.
type Collateral struct {
	Tx *wire.MsgTx
}

// Fee returns the collateral's contribution (sum of inputs minus sum of
// outputs), given the previous output values it spends.
func (c *Collateral) Fee(prevOuts map[wire.OutPoint]btcutil.Amount) btcutil.Amount {
	var in, out btcutil.Amount
	for _, txin := range c.Tx.TxIn {
		in += prevOuts[txin.PreviousOutPoint]
	}
	for _, txout := range c.Tx.TxOut {
		out += btcutil.Amount(txout.Value)
	}
	return in - out
}

// Entry is one client's contribution to a session: its inputs, its fresh
// denominated outputs, and the collateral it posted to be allowed to
// participate.
type Entry struct {
	Ins        []DSIn
	Outs       []DSOut
	Collateral *Collateral

	// AddedAtMs is the session-local monotonic millisecond timestamp this
	// entry was accepted, used to advance last_step_ms.
	AddedAtMs int64
}

// InputValue sums the declared input values carried by the entry's DSIns,
// given the previous output values they spend.
func (e *Entry) InputValue(prevOuts map[wire.OutPoint]btcutil.Amount) btcutil.Amount {
	var total btcutil.Amount
	for _, in := range e.Ins {
		total += prevOuts[in.OutPoint]
	}
	return total
}

// OutputValue sums the entry's declared output values.
func (e *Entry) OutputValue() btcutil.Amount {
	var total btcutil.Amount
	for _, out := range e.Outs {
		total += out.Value
	}
	return total
}

// DenomMask computes the denomination mask encoded by the entry's outputs.
func (e *Entry) DenomMask() uint32 {
	amounts := make([]btcutil.Amount, len(e.Outs))
	for i, out := range e.Outs {
		amounts[i] = out.Value
	}
	return MaskFromOutputs(amounts)
}

// HasOutPoint reports whether any of the entry's inputs claims outpoint.
func (e *Entry) HasOutPoint(outpoint wire.OutPoint) bool {
	for _, in := range e.Ins {
		if in.OutPoint == outpoint {
			return true
		}
	}
	return false
}

// AllSigned reports whether every input in the entry carries a signature.
func (e *Entry) AllSigned() bool {
	for _, in := range e.Ins {
		if !in.HasSig {
			return false
		}
	}
	return true
}

// BroadcastTx is the record of a mixed transaction the core committed and
// relayed, kept so clients can authenticate it as coming from a specific
// mixer.
type BroadcastTx struct {
	Tx        *wire.MsgTx
	MixerID   MixerID
	SigTime   int64
	Signature []byte
}

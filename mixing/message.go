// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mixing

import "github.com/btcsuite/btcd/wire"

// Wire message kind identifiers.  Payload framing, ordering, and delivery
// over the host peer-to-peer transport are out of this package's scope; the
// structs below are only the typed payloads those messages carry.
const (
	CmdDSAccept       = "dsaccept"
	CmdDSQueue        = "dsq"
	CmdDSVin          = "dsvin"
	CmdDSStatusUpdate = "dsstatusupdate"
	CmdDSFinalTx      = "dsfinaltx"
	CmdDSSignFinalTx  = "dssignfinaltx"
	CmdDSComplete     = "dscomplete"
	CmdDSTx           = "dstx"
)

// MsgDSAccept is sent by a client to a mixer to join or create a session.
type MsgDSAccept struct {
	DenomMask  uint32
	Collateral *wire.MsgTx
}

// MsgDSQueue carries a gossiped Queue advertisement.
type MsgDSQueue struct {
	Queue Queue
}

// MsgDSVin is sent by a client to a mixer, submitting its Entry.
type MsgDSVin struct {
	SessionID int32
	Entry     Entry
}

// MsgDSStatusUpdate is sent by a mixer to a client reporting session
// progress or rejection.
type MsgDSStatusUpdate struct {
	SessionID    int32
	State        int32
	EntriesCount int32
	Status       RejectCode
	MessageID    RejectCode
}

// MsgDSFinalTx is sent by a mixer to its clients once the entry pool is
// full, carrying the assembled, BIP69-sorted transaction awaiting
// signatures.
type MsgDSFinalTx struct {
	SessionID int32
	FinalTx   *wire.MsgTx
}

// MsgDSSignFinalTx is sent by a client back to the mixer, carrying the
// signed inputs it located in the final transaction.
type MsgDSSignFinalTx struct {
	SessionID int32
	Ins       []DSIn
}

// MsgDSComplete is sent by a mixer to all of a session's clients reporting
// the outcome.
type MsgDSComplete struct {
	SessionID int32
	MessageID RejectCode
}

// MsgDSTx is the inventory-relayed broadcast-transaction record.
type MsgDSTx struct {
	Broadcast BroadcastTx
}

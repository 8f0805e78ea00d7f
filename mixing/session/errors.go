// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package session

import "errors"

// Sentinel errors wrapped into mixing.RuleError values by this package's
// handlers.  Callers should match on the RuleError's Code, not on these
// directly; they exist to give each rejection a distinct, greppable Go
// error string.
var (
	errSessionAlreadyActive = errors.New("a session is already active")
	errNoActiveSession      = errors.New("no session is active")
	errWrongSessionID       = errors.New("session id does not match the active session")
	errWrongState           = errors.New("message is not valid in the session's current state")
	errWrongRole            = errors.New("message is not valid for this process's role")
	errDenomMismatch        = errors.New("entry denomination mask does not match the session's mask")
	errPoolFull             = errors.New("session entry pool is already full")
	errDuplicateOutPoint    = errors.New("input outpoint is already claimed by another entry in this session")
	errCollateralReused     = errors.New("collateral transaction was already used in this session")
	errPoolMaxExceeded      = errors.New("entry input value exceeds the configured pool maximum")
	errTxRejected           = errors.New("assembled transaction was rejected by the ledger")
	errMissingSignatures    = errors.New("final transaction is missing one or more required signatures")
	errUnknownInput         = errors.New("signed input does not belong to any accepted entry")
	errUnknownMixer          = errors.New("queue references a mixer not present in the mixer list")
	errQueueSignatureInvalid = errors.New("queue signature does not validate against the mixer's known public key")
	errQueueExpired          = errors.New("queue advertisement has expired")
	errQueueTooRecent        = errors.New("mixer has issued a queue too recently to issue another")
)

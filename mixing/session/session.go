// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package session implements the session state machine (IDLE, QUEUE,
// ACCEPTING, SIGNING, SUCCESS, ERROR), the entry pool and final-transaction
// assembler, the signing protocol, and the anti-griefing fee charger: the
// dual-role (client/mixer) heart of the coordination protocol.
//
// A process runs exactly one session at a time in one role.  All of the
// session's mutable state -- its phase, entries, collaterals, and the
// gossiped queue vector -- is guarded by a single lock, matching the
// concurrency model's single cs-style critical section. Message handlers
// and the periodic timer try-lock it and silently drop their work on
// contention, since every message is redundant given gossip.
package session

import (
	"github.com/btcsuite/btcd/wire"
	"github.com/coinmix/coinmixd/mixing"
)

// Role distinguishes which side of the protocol a process is playing for its
// current session.  Handlers are defined only for the role they apply to;
// calling one from the wrong role returns a MODE rejection, except
// AdoptSessionID and CompleteSession, which ignore the call.
type Role int

const (
	RoleClient Role = iota
	RoleMixer
)

func (r Role) String() string {
	if r == RoleMixer {
		return "mixer"
	}
	return "client"
}

// State is a session's position in the state machine.
type State int

const (
	StateIdle State = iota
	StateQueue
	StateAccepting
	StateSigning
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateQueue:
		return "QUEUE"
	case StateAccepting:
		return "ACCEPTING"
	case StateSigning:
		return "SIGNING"
	case StateSuccess:
		return "SUCCESS"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Session is the shared state of one mix attempt.  It is plain data; every
// method that mutates it lives on Pool and is called while Pool.mu is held.
type Session struct {
	id          int32
	denomMask   uint32
	state       State
	entries     []mixing.Entry
	collaterals []*mixing.Collateral
	finalTx     *wire.MsgTx
	lastStepMs  int64
	message     string

	// mixerID identifies the mixer running this session.  On the mixer
	// side it is this process's own identity; on the client side it is
	// recorded from whichever mixer's queue was accepted.
	mixerID mixing.MixerID
}

// ID returns the session's identifier, or 0 if no session is active.
func (s *Session) ID() int32 { return s.id }

// DenomMask returns the session's agreed denomination mask.
func (s *Session) DenomMask() uint32 { return s.denomMask }

// State returns the session's current state.
func (s *Session) State() State { return s.state }

// Entries returns the session's accepted entries. The slice must not be
// mutated by callers.
func (s *Session) Entries() []mixing.Entry { return s.entries }

// Collaterals returns the session's accepted collaterals (mixer side). The
// slice must not be mutated by callers.
func (s *Session) Collaterals() []*mixing.Collateral { return s.collaterals }

// FinalTx returns the session's assembled transaction, or nil before
// SIGNING.
func (s *Session) FinalTx() *wire.MsgTx { return s.finalTx }

// Message returns the session's last user-visible status string.
func (s *Session) Message() string { return s.message }

// MixerID returns the identity of the mixer running this session.
func (s *Session) MixerID() mixing.MixerID { return s.mixerID }

// invariantsHold reports whether the session's data satisfies the
// structural invariants of the data model. It exists for tests: id != 0 iff
// state != IDLE; entries.len <= collaterals.len <= MaxPoolTransactions;
// finalTx empty iff state < SIGNING.
func (s *Session) invariantsHold(maxPoolTransactions int) bool {
	if (s.id != 0) != (s.state != StateIdle) {
		return false
	}
	if len(s.entries) > len(s.collaterals) || len(s.collaterals) > maxPoolTransactions {
		return false
	}
	wantFinalTx := s.state == StateSigning || s.state == StateSuccess
	if wantFinalTx != (s.finalTx != nil) {
		// SUCCESS->IDLE reset clears finalTx along with everything
		// else, so only SIGNING strictly requires one to be present.
		if s.state == StateSigning || s.finalTx != nil {
			return false
		}
	}
	return true
}


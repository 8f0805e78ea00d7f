// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package session

import (
	"math/rand"

	"github.com/coinmix/coinmixd/mixing"
)

// CheckTimeout prunes expired queue entries and, if the active session has
// made no observable progress for long enough, ends it: a mixer charges fees
// against whichever participants failed to follow through and resets
// straight to IDLE, while a client resets with ERROR. isClient controls the
// extra lag a client gives its mixer to detect the timeout first.
func (p *Pool) CheckTimeout(isClient bool) {
	p.PruneExpiredQueue()

	s := &p.session
	if s.state == StateIdle || s.state == StateSuccess || s.state == StateError {
		return
	}

	timeout := mixing.QueueTimeout
	if s.state == StateSigning {
		timeout = mixing.SigningTimeout
	}
	deadline := timeout.Milliseconds()
	if isClient {
		deadline += mixing.ClientTimeoutLag.Milliseconds()
	}
	if p.nowMs()-s.lastStepMs < deadline {
		return
	}

	if p.role == RoleMixer {
		// Mixers never enter SUCCESS/ERROR themselves; they charge
		// fees against the offending side and reset straight to
		// IDLE.
		p.ChargeFees(rand.New(rand.NewSource(p.nowMs())))
		p.SetNull()
		return
	}
	p.resetWithError("timed out")
}

// CheckForCompleteQueue resets any session that has dwelt in SUCCESS or
// ERROR for ResetDwell, returning it to IDLE for reuse.
func (p *Pool) CheckForCompleteQueue() {
	s := &p.session
	if s.state != StateSuccess && s.state != StateError {
		return
	}
	if p.nowMs()-s.lastStepMs >= mixing.ResetDwell.Milliseconds() {
		p.SetNull()
	}
}

// AdvanceTimers runs CheckTimeout followed by CheckForCompleteQueue as a
// single step under the caller's lock, reporting whether the session was
// sitting in SUCCESS before CheckForCompleteQueue could reset it back to
// IDLE. It exists so a caller already holding the session lock (via
// TryWithLock/WithLock) can observe that transient state without calling
// back into Session, which would try to reacquire the same lock.
func (p *Pool) AdvanceTimers(isClient bool) (wasSuccess bool) {
	p.CheckTimeout(isClient)
	wasSuccess = p.session.state == StateSuccess
	p.CheckForCompleteQueue()
	return wasSuccess
}

// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package session

import (
	"fmt"

	"github.com/coinmix/coinmixd/mixing"
)

// checkFirstClientRateLimit applies the mixer's own nDsq limiter, run once
// per session against the mixer's own last_dsq counter value, before the
// session accepts its first collateral.
func (p *Pool) checkFirstClientRateLimit() (mixing.RejectCode, error) {
	enabled := uint32(p.mixerList.CountEnabled(p.cfg.MinPeerProtoVersion))
	info, found := p.mixerList.Find(p.selfID)
	var lastDsq uint32
	if found {
		lastDsq = info.LastDsq
	}
	newLastDsq, ok := p.rate.Allow(lastDsq, enabled)
	if !ok {
		return mixing.RECENT, mixing.NewRuleError(mixing.RECENT, errQueueTooRecent)
	}
	p.mixerList.SetLastDsq(p.selfID, newLastDsq)
	return mixing.NOERR, nil
}

// HandleDSAccept processes a client's DSACCEPT, mixer-side: creating a
// fresh session if none is active (IDLE -> QUEUE), or joining the active
// one. On the MaxPoolTransactions'th
// accepted collateral it transitions QUEUE -> ACCEPTING and signs a ready
// queue advertisement for the caller to broadcast.
//
// readyQueue is non-nil only on the transition into ACCEPTING.
func (p *Pool) HandleDSAccept(denomMask uint32, collateral *mixing.Collateral) (code mixing.RejectCode, readyQueue *mixing.Queue, err error) {
	if p.role != RoleMixer {
		return mixing.MODE, nil, mixing.NewRuleError(mixing.MODE, errWrongRole)
	}

	s := &p.session
	switch s.state {
	case StateIdle:
		// Gate on the mixer's own nDsq limiter before touching any session
		// state: a throttled first client must leave the pool IDLE, not
		// stuck in QUEUE with no collaterals until it times out.
		if code, err := p.checkFirstClientRateLimit(); err != nil {
			return code, nil, err
		}
		if _, err := p.CreateNewSession(denomMask, p.selfID); err != nil {
			return mixing.SESSION, nil, err
		}
	case StateQueue:
		if denomMask != s.denomMask {
			return mixing.DENOM, nil, mixing.NewRuleError(mixing.DENOM, errDenomMismatch)
		}
		if len(s.collaterals) == 0 {
			if code, err := p.checkFirstClientRateLimit(); err != nil {
				return code, nil, err
			}
		}
	default:
		return mixing.SESSION, nil, mixing.NewRuleError(mixing.SESSION, errWrongState)
	}

	if err := mixing.ValidateCollateral(p.ledger, collateral.Tx, p.cfg.Collateral); err != nil {
		return err.(*mixing.RuleError).Code, nil, err
	}
	hash := collateral.Tx.TxHash()
	for _, c := range s.collaterals {
		if c.Tx.TxHash() == hash {
			return mixing.EXISTING_TX, nil, mixing.NewRuleError(mixing.EXISTING_TX, errCollateralReused)
		}
	}
	if len(s.collaterals) >= p.cfg.MaxPoolTransactions {
		return mixing.QUEUE_FULL, nil, mixing.NewRuleError(mixing.QUEUE_FULL, fmt.Errorf("session already has %d collaterals", len(s.collaterals)))
	}

	s.collaterals = append(s.collaterals, collateral)
	p.touch()

	if len(s.collaterals) < p.cfg.MaxPoolTransactions {
		return mixing.ENTRIES_ADDED, nil, nil
	}

	s.state = StateAccepting
	q := &mixing.Queue{
		DenomMask: s.denomMask,
		MixerID:   p.selfID,
		Time:      p.clock().Unix(),
		Ready:     true,
	}
	if p.signer != nil {
		if serr := q.SignWith(p.signer); serr != nil {
			err = serr
		}
	}
	p.queue = append(p.queue, q)
	p.touch()
	return mixing.ENTRIES_ADDED, q, err
}

// AdvertiseQueue signs and appends a non-ready queue for the session's
// denomination, for a mixer to broadcast immediately after creating a
// session (the mixer-side send bookkeeping the state machine needs beyond
// what a client can observe).
func (p *Pool) AdvertiseQueue() (*mixing.Queue, error) {
	if p.role != RoleMixer || p.session.state == StateIdle {
		return nil, mixing.NewRuleError(mixing.SESSION, errNoActiveSession)
	}
	q := &mixing.Queue{
		DenomMask: p.session.denomMask,
		MixerID:   p.selfID,
		Time:      p.clock().Unix(),
		Ready:     false,
	}
	if err := q.SignWith(p.signer); err != nil {
		return nil, err
	}
	p.queue = append(p.queue, q)
	return q, nil
}

// SubmitDenominate transitions a client's session from QUEUE to ACCEPTING
// upon observing a ready queue advertisement for its chosen mixer, and
// reports the entry it should send as DSVIN. The caller constructs entry
// from the wallet's prepared inputs/outputs/collateral; this method only
// performs the protocol-side bookkeeping and validation of the transition.
func (p *Pool) SubmitDenominate(q *mixing.Queue) error {
	if p.role != RoleClient {
		return mixing.NewRuleError(mixing.MODE, errWrongRole)
	}
	s := &p.session
	if s.state != StateQueue {
		return mixing.NewRuleError(mixing.SESSION, errWrongState)
	}
	if s.mixerID != q.MixerID || !q.Ready {
		return mixing.NewRuleError(mixing.SESSION, errWrongSessionID)
	}
	s.state = StateAccepting
	p.touch()
	return nil
}

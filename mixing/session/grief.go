// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package session

import (
	"math/rand"

	"github.com/coinmix/coinmixd/mixing"
)

// offenders returns the collaterals of participants who failed to follow
// through on the current session: in ACCEPTING, any collateral not matched
// by an entry; in SIGNING, any entry holding an unsigned DSIn.
func (p *Pool) offenders() []*mixing.Collateral {
	s := &p.session
	switch s.state {
	case StateAccepting:
		var offenders []*mixing.Collateral
		for _, c := range s.collaterals {
			matched := false
			for _, e := range s.entries {
				if e.Collateral != nil && e.Collateral.Tx.TxHash() == c.Tx.TxHash() {
					matched = true
					break
				}
			}
			if !matched {
				offenders = append(offenders, c)
			}
		}
		return offenders
	case StateSigning:
		var offenders []*mixing.Collateral
		for _, e := range s.entries {
			if !e.AllSigned() && e.Collateral != nil {
				offenders = append(offenders, e.Collateral)
			}
		}
		return offenders
	default:
		return nil
	}
}

// ChargeFees runs the anti-griefing charge for the current (timed-out)
// session: with probability 2/3 it skips entirely; if every participant is
// an offender it skips (can't punish everyone); if all but one are
// offenders it skips with probability 2/3; otherwise it picks one
// offender uniformly at random and broadcasts its collateral to the local
// mempool and inventory.
//
// rng is taken as a parameter (rather than a package-level source) so tests
// can supply a fixed seed and assert the exact branch taken.
func (p *Pool) ChargeFees(rng *rand.Rand) {
	offenders := p.offenders()
	if len(offenders) == 0 {
		return
	}
	if rng.Intn(3) != 0 {
		return
	}
	if len(offenders) == p.cfg.MaxPoolTransactions {
		return
	}
	if len(offenders) == p.cfg.MaxPoolTransactions-1 && rng.Intn(3) < 2 {
		return
	}

	shuffled := make([]*mixing.Collateral, len(offenders))
	copy(shuffled, offenders)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	chosen := shuffled[0]
	if err := p.ledger.AcceptTransaction(chosen.Tx); err != nil {
		log.Debugf("griefing collateral rejected by mempool: %v", err)
		return
	}
	p.ledger.RelayTransaction(chosen.Tx)
	p.ledger.RelayInventory(chosen.Tx.TxHash())
}

// chargeRandomFees broadcasts each successful session's collateral with
// probability 1/10, paying miners from the pool. It uses the package's
// default randomness source since, unlike ChargeFees,
// no testable property depends on an exact offender selection here.
func (p *Pool) chargeRandomFees() {
	for _, c := range p.session.collaterals {
		if rand.Intn(10) != 0 {
			continue
		}
		if err := p.ledger.AcceptTransaction(c.Tx); err != nil {
			log.Debugf("random-fee collateral rejected by mempool: %v", err)
			continue
		}
		p.ledger.RelayTransaction(c.Tx)
		p.ledger.RelayInventory(c.Tx.TxHash())
	}
}

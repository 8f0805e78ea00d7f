// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package session

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/wire"
	"github.com/coinmix/coinmixd/mixing"
)

func newMixerPool(t *testing.T) (*Pool, *fakeLedger, *fakeMixerList) {
	t.Helper()
	ledger := newFakeLedger()
	mixerList := newFakeMixerList()
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	selfID := mixing.MixerID{Index: 1}
	mixerList.add(&mixing.MixerInfo{ID: selfID, ProtoVersion: mixing.MinPeerProtoVersion, PubKey: priv.PubKey().SerializeCompressed()})
	pool := NewPool(RoleMixer, testConfig(), ledger, mixerList, nil)
	pool.SetSigner(selfID, mixing.NewSigner(priv))
	return pool, ledger, mixerList
}

func TestHandleDSAcceptTransitionsToAccepting(t *testing.T) {
	pool, ledger, _ := newMixerPool(t)

	var lastCode mixing.RejectCode
	for i := byte(0); i < 3; i++ {
		c := newCollateral(ledger, i+1, mixing.DefaultCollateral)
		code, q, err := pool.HandleDSAccept(0b0100, c)
		if err != nil {
			t.Fatalf("HandleDSAccept #%d: %v", i, err)
		}
		lastCode = code
		if i < 2 && q != nil {
			t.Fatalf("unexpected ready queue before the pool is full")
		}
		if i == 2 {
			if q == nil {
				t.Fatal("expected a ready queue on the final accepted collateral")
			}
			if !q.Ready {
				t.Fatal("expected Ready=true on the transition queue")
			}
		}
	}
	if lastCode != mixing.ENTRIES_ADDED {
		t.Fatalf("final code = %v, want ENTRIES_ADDED", lastCode)
	}
	if pool.session.state != StateAccepting {
		t.Fatalf("state = %v, want ACCEPTING", pool.session.state)
	}
	if len(pool.session.collaterals) != 3 {
		t.Fatalf("collaterals = %d, want 3", len(pool.session.collaterals))
	}
}

// TestHandleDSAcceptRateLimitedFirstClientLeavesPoolIdle verifies that a
// mixer throttled by its own nDsq limiter on the very first DSACCEPT of a
// session never creates one: the pool must stay IDLE rather than being left
// in QUEUE with zero collaterals until the timeout reaps it.
func TestHandleDSAcceptRateLimitedFirstClientLeavesPoolIdle(t *testing.T) {
	pool, ledger, mixerList := newMixerPool(t)
	mixerList.SetLastDsq(mixing.MixerID{Index: 1}, 1)

	code, q, err := pool.HandleDSAccept(0b0100, newCollateral(ledger, 1, 0))
	if err == nil {
		t.Fatal("expected the rate limiter to reject the first accept")
	}
	if code != mixing.RECENT {
		t.Fatalf("code = %v, want RECENT", code)
	}
	if q != nil {
		t.Fatal("expected no ready queue on rejection")
	}
	if pool.session.state != StateIdle || pool.session.id != 0 {
		t.Fatalf("session = %+v, want untouched IDLE with no id assigned", pool.session)
	}
}

func TestHandleDSAcceptRejectsDenomMismatch(t *testing.T) {
	pool, ledger, _ := newMixerPool(t)
	if _, _, err := pool.HandleDSAccept(0b0100, newCollateral(ledger, 1, mixing.DefaultCollateral)); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	_, _, err := pool.HandleDSAccept(0b0010, newCollateral(ledger, 2, mixing.DefaultCollateral))
	if err == nil {
		t.Fatal("expected denom mismatch to be rejected")
	}
}

func TestHandleDSAcceptRejectsDuplicateCollateral(t *testing.T) {
	pool, ledger, _ := newMixerPool(t)
	c := newCollateral(ledger, 1, mixing.DefaultCollateral)
	if _, _, err := pool.HandleDSAccept(0b0100, c); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	_, _, err := pool.HandleDSAccept(0b0100, c)
	if err == nil {
		t.Fatal("expected duplicate collateral to be rejected")
	}
}

func TestSubmitDenominateRequiresReadyQueueForOurMixer(t *testing.T) {
	pool := NewPool(RoleClient, testConfig(), newFakeLedger(), newFakeMixerList(), nil)
	mixerID := mixing.MixerID{Index: 9}
	if _, err := pool.CreateNewSession(0b0100, mixerID); err != nil {
		t.Fatalf("CreateNewSession: %v", err)
	}
	wrongMixer := &mixing.Queue{MixerID: mixing.MixerID{Index: 8}, Ready: true}
	if err := pool.SubmitDenominate(wrongMixer); err == nil {
		t.Fatal("expected rejection for a queue from a different mixer")
	}
	notReady := &mixing.Queue{MixerID: mixerID, Ready: false}
	if err := pool.SubmitDenominate(notReady); err == nil {
		t.Fatal("expected rejection for a non-ready queue")
	}
	ready := &mixing.Queue{MixerID: mixerID, Ready: true}
	if err := pool.SubmitDenominate(ready); err != nil {
		t.Fatalf("SubmitDenominate: %v", err)
	}
	if pool.session.state != StateAccepting {
		t.Fatalf("state = %v, want ACCEPTING", pool.session.state)
	}
}

var _ = wire.OutPoint{}

// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package session

import (
	"crypto/rand"
	"math/big"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coinmix/coinmixd/mixing"
)

// Config carries the tunable protocol constants a Pool enforces.
type Config struct {
	MaxPoolTransactions int
	Collateral          btcutil.Amount
	PoolMax             btcutil.Amount
	MinPeerProtoVersion uint32
}

// Pool owns the single session a process is running, plus the process-wide
// state shared across sessions: the gossiped queue FIFO, the broadcast-tx
// map, and the nDsq rate-limiter counter. A single mutex protects all of
// it, matching the session lock of the concurrency model.
type Pool struct {
	mu sync.Mutex

	role Role
	cfg  Config

	ledger    mixing.Ledger
	wallet    mixing.Wallet // nil when role == RoleMixer
	mixerList mixing.MixerList
	signer    mixing.Signer
	selfID    mixing.MixerID // this mixer's own identity, when role == RoleMixer

	session Session

	queue       []*mixing.Queue
	broadcastTx map[chainhash.Hash]*mixing.BroadcastTx
	rate        mixing.RateLimiter

	clock func() time.Time
}

// NewPool constructs a Pool running in the given role.
func NewPool(role Role, cfg Config, ledger mixing.Ledger, mixerList mixing.MixerList, wallet mixing.Wallet) *Pool {
	if cfg.MaxPoolTransactions == 0 {
		cfg.MaxPoolTransactions = mixing.MaxPoolTransactions
	}
	return &Pool{
		role:        role,
		cfg:         cfg,
		ledger:      ledger,
		wallet:      wallet,
		mixerList:   mixerList,
		broadcastTx: make(map[chainhash.Hash]*mixing.BroadcastTx),
		clock:       time.Now,
	}
}

// SetSigner installs the mixer's own signing identity, required for a
// RoleMixer pool to sign queue advertisements.
func (p *Pool) SetSigner(id mixing.MixerID, signer mixing.Signer) {
	p.selfID = id
	p.signer = signer
}

// Role reports which side of the protocol this pool runs.
func (p *Pool) Role() Role { return p.role }

// TryWithLock attempts to acquire the session lock and, on success, runs fn
// and returns true. On contention it returns false immediately without
// running fn: the try-lock-and-drop policy every message handler and the
// timer must use, since a dropped message is safe under gossip.
func (p *Pool) TryWithLock(fn func(p *Pool)) bool {
	if !p.mu.TryLock() {
		return false
	}
	defer p.mu.Unlock()
	fn(p)
	return true
}

// WithLock runs fn while holding the session lock unconditionally. Used by
// callers, such as the automatic-denomination driver, that already know
// they must make progress rather than drop on contention.
func (p *Pool) WithLock(fn func(p *Pool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

// Session returns a snapshot copy of the current session for read-only
// inspection outside of the lock. Callers needing a consistent view across
// multiple fields should instead call a Pool method under WithLock.
func (p *Pool) Session() Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

func (p *Pool) nowMs() int64 {
	return p.clock().UnixMilli()
}

// touch advances the session's last observable progress timestamp.
func (p *Pool) touch() {
	p.session.lastStepMs = p.nowMs()
}

// randomSessionID draws a uniform integer in [1, 1e6], matching the
// CreateNewSession id assignment rule.
func randomSessionID() int32 {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		panic(err)
	}
	return int32(n.Int64()) + 1
}

// CreateNewSession starts a new session for denomMask, requiring that no
// session is currently active. Both roles use it: the mixer upon receiving
// a first DSACCEPT, and the client upon deciding to send one.
func (p *Pool) CreateNewSession(denomMask uint32, mixerID mixing.MixerID) (*Session, error) {
	if p.session.state != StateIdle || p.session.id != 0 {
		return nil, mixing.NewRuleError(mixing.SESSION, errSessionAlreadyActive)
	}
	p.session = Session{
		id:        randomSessionID(),
		denomMask: denomMask,
		state:     StateQueue,
		mixerID:   mixerID,
	}
	p.touch()
	return &p.session, nil
}

// AdoptSessionID overwrites the client-local session id with the
// authoritative id assigned by the mixer, once learned from a
// DSSTATUSUPDATE or accepted queue. It does not otherwise disturb state.
func (p *Pool) AdoptSessionID(id int32) {
	if p.role != RoleClient {
		return
	}
	p.session.id = id
}

// CompleteSession applies the outcome of a DSComplete message to the
// client-local session: mixing.SUCCESS transitions to SUCCESS, anything
// else resets with ERROR carrying the reject code's message. Decoding
// DSComplete off the wire and delivering it here is the host transport's
// responsibility, the same boundary AdoptSessionID draws for DSSTATUSUPDATE.
func (p *Pool) CompleteSession(code mixing.RejectCode) {
	if p.role != RoleClient {
		return
	}
	if code == mixing.SUCCESS {
		p.session.state = StateSuccess
		p.touch()
		return
	}
	p.resetWithError(code.String())
}

// SetNull resets the session to IDLE, dropping its entries and
// collaterals. Called directly on explicit reset and by the timer after
// the SUCCESS/ERROR dwell period.
func (p *Pool) SetNull() {
	p.session = Session{}
}

// resetWithError transitions the session to ERROR with a status message,
// from any prior state.
func (p *Pool) resetWithError(message string) {
	p.session.state = StateError
	p.session.message = message
	p.touch()
}

// RelayQueue validates and, if accepted, appends q to the gossiped queue
// FIFO and reports whether the caller should relay it onward. It implements
// the full rate-limiter/acceptance rule of the queue component: duplicates
// are silently ignored, and a non-duplicate, non-ready queue is
// additionally subject to the rate limiter; ready queues and
// duplicate-of-ready relays bypass the rate limiter since they don't consume
// a fresh dsq slot.
func (p *Pool) RelayQueue(q *mixing.Queue) (relay bool, err error) {
	for _, existing := range p.queue {
		if existing.Equal(q) {
			return false, nil
		}
	}
	info, found := p.mixerList.Find(q.MixerID)
	if !found {
		return false, mixing.NewRuleError(mixing.MN_LIST, errUnknownMixer)
	}
	if !q.Verify(info.PubKey) {
		return false, mixing.NewRuleError(mixing.INVALID_INPUT, errQueueSignatureInvalid)
	}
	if q.Expired(p.clock()) {
		return false, mixing.NewRuleError(mixing.RECENT, errQueueExpired)
	}

	if !q.Ready {
		enabled := uint32(p.mixerList.CountEnabled(p.cfg.MinPeerProtoVersion))
		newLastDsq, ok := p.rate.Allow(info.LastDsq, enabled)
		if !ok {
			return false, mixing.NewRuleError(mixing.RECENT, errQueueTooRecent)
		}
		p.mixerList.SetLastDsq(q.MixerID, newLastDsq)
	}
	p.mixerList.SetMixingAllowed(q.MixerID, true)
	p.queue = append(p.queue, q)
	return true, nil
}

// PruneExpiredQueue drops every queue entry that has expired, matching
// CheckTimeout's queue-FIFO maintenance duty.
func (p *Pool) PruneExpiredQueue() {
	now := p.clock()
	kept := p.queue[:0]
	for _, q := range p.queue {
		if !q.Expired(now) {
			kept = append(kept, q)
		}
	}
	p.queue = kept
}

// Queue returns the current gossiped queue FIFO. The slice must not be
// mutated by callers.
func (p *Pool) Queue() []*mixing.Queue { return p.queue }

// RateCount returns the global nDsq counter, for tests and diagnostics.
func (p *Pool) RateCount() uint32 { return p.rate.Count() }

// BroadcastTx looks up a previously committed broadcast-transaction record
// by hash.
func (p *Pool) BroadcastTx(hash chainhash.Hash) (*mixing.BroadcastTx, bool) {
	rec, ok := p.broadcastTx[hash]
	return rec, ok
}

// recordBroadcastTx stores an already-signed broadcast-transaction record
// for a committed final_tx, keyed by its hash.
func (p *Pool) recordBroadcastTx(tx *mixing.BroadcastTx) {
	p.broadcastTx[tx.Tx.TxHash()] = tx
}

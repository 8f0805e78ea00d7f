// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mixclient

import (
	"context"
	"time"

	"github.com/coinmix/coinmixd/mixing"
	"github.com/coinmix/coinmixd/mixing/session"
	"golang.org/x/sync/errgroup"
)

// runTimer is the single long-running per-client timer: on every 1 s tick
// it drives CheckTimeout and CheckForCompleteQueue; every 60 s it reaps stale
// queue entries; every 5 min it runs mixer self-verification; at a
// jittered interval in [AutoTimeoutMin, AutoTimeoutMax] it invokes the
// driver. Exactly one instance runs per Client, enforced by Run's running
// flag.
func (c *Client) runTimer(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var ticks int64
	nextDriverTick := c.jitteredDriverInterval()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				ticks++

				c.checkTimeout()

				if ticks%60 == 0 {
					c.reapStaleMixers()
				}
				if ticks%300 == 0 {
					c.selfVerify()
				}

				nextDriverTick--
				if nextDriverTick <= 0 {
					c.DoAutomaticDenominating()
					nextDriverTick = c.jitteredDriverInterval()
				}
			}
		}
	})
	return g.Wait()
}

func (c *Client) jitteredDriverInterval() int64 {
	lo := int64(mixing.AutoTimeoutMin / time.Second)
	hi := int64(mixing.AutoTimeoutMax / time.Second)
	return lo + c.rng.Int63n(hi-lo+1)
}

// checkTimeout advances the session timers and, if it observes the session
// sitting in SUCCESS (a committed mix, applied earlier by CompleteSession),
// records the current height as the block-spacing baseline before
// CheckForCompleteQueue eventually resets the session to IDLE. Like every
// other timer duty, it tries the session lock and drops the tick on
// contention rather than blocking; the next tick, a second later, retries.
func (c *Client) checkTimeout() {
	var success bool
	c.pool.TryWithLock(func(p *session.Pool) {
		success = p.AdvanceTimers(true)
	})
	if success {
		c.recordSuccessHeight()
	}
}

func (c *Client) reapStaleMixers() {
	c.pool.TryWithLock(func(p *session.Pool) {
		p.PruneExpiredQueue()
	})
}

// selfVerify is a placeholder for periodic mixer self-verification, which
// this client-side driver has nothing to do for: mixer-list health checks
// are an out-of-scope collaborator's responsibility.
func (c *Client) selfVerify() {}

func (c *Client) recordSuccessHeight() {
	c.mu.Lock()
	c.lastSuccessHeight = c.ledger.BestHeight()
	c.mu.Unlock()
}

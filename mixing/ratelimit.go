// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mixing

// RateLimiter implements the "nDsq" fairness counter that prevents any
// single mixer from dominating the gossiped queue.
//
// RateLimiter is not itself safe for concurrent use: like the rest of the
// process-wide queue/session state listed in the concurrency model, its
// counter is only ever touched while the caller holds the single session
// lock.
type RateLimiter struct {
	dsqCount uint32
}

// Count returns the current value of the global queue counter.
func (r *RateLimiter) Count() uint32 {
	return r.dsqCount
}

// Allow reports whether a mixer whose last issued queue was counted at
// lastDsq may issue another one, given enabled mixers meeting the minimum
// protocol version.  On success it increments and returns the new counter
// value the caller must record as the mixer's new last_dsq.
//
// The same rule governs a mixer's willingness to accept a first client
// while no collaterals have yet been gathered for a session.
func (r *RateLimiter) Allow(lastDsq uint32, enabled uint32) (newLastDsq uint32, ok bool) {
	if lastDsq != 0 && lastDsq+enabled/5 > r.dsqCount {
		return 0, false
	}
	r.dsqCount++
	return r.dsqCount, true
}

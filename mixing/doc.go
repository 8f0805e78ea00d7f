// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mixing implements the core data model and primitives of a
// coin-mixing coordination protocol run between wallet clients and mixer
// service nodes on a Bitcoin-derived network: the denomination codec, the
// collateral validator, the gossiped queue advertisement, the per-mixer
// fairness rate limiter, and the wire message and error-code vocabulary
// shared by the session state machine in package session and the
// automatic-denomination driver in package mixclient.
//
// The package never touches the ledger, mempool, or peer-to-peer transport
// directly; it consumes those through the narrow interfaces declared in
// interfaces.go.
package mixing

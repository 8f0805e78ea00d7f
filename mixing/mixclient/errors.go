// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mixclient

import "errors"

var (
	errAlreadyRunning    = errors.New("the automatic-denomination driver is already running")
	errNoMixerAvailable  = errors.New("no compatible mixer is currently available")
	errWalletLocked      = errors.New("wallet is locked")
	errBackupStale       = errors.New("wallet has no recent automatic backup")
	errKeypoolExhausted  = errors.New("keypool is below the minimum threshold for mixing")
	errNoSpacing         = errors.New("not enough blocks have passed since the last successful mix")
)

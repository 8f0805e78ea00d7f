// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command coinmixd wires the mixing and mixclient packages into a
// standalone process. It is the thin host binary: the actual ledger,
// wallet, and mixer-list collaborators it depends on are supplied by
// whatever full node or wallet process embeds this package; see
// unimplementedCollaborators in collaborators.go for the narrow seam a real
// integration fills in.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/decred/slog"

	"github.com/coinmix/coinmixd/internal/config"
	"github.com/coinmix/coinmixd/mixing"
	"github.com/coinmix/coinmixd/mixing/mixclient"
	"github.com/coinmix/coinmixd/mixing/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		return err
	}

	backend := slog.NewBackend(os.Stdout)
	level, ok := slog.LevelFromString(cfg.DebugLevel)
	if !ok {
		level = slog.LevelInfo
	}
	mixLog := backend.Logger("MIXG")
	mixLog.SetLevel(level)
	mixing.UseLogger(mixLog)
	sessionLog := backend.Logger("MIXS")
	sessionLog.SetLevel(level)
	session.UseLogger(sessionLog)
	clientLog := backend.Logger("MIXC")
	clientLog.SetLevel(level)
	mixclient.UseLogger(clientLog)

	ledger, wallet, mixerList, signer, selfID := unimplementedCollaborators()

	role := session.RoleClient
	if cfg.Role == "mixer" {
		role = session.RoleMixer
	}
	pool := session.NewPool(role, cfg.SessionConfig(), ledger, mixerList, wallet)
	if role == session.RoleMixer {
		pool.SetSigner(selfID, signer)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch role {
	case session.RoleMixer:
		return runMixer(ctx, pool)
	default:
		client := mixclient.New(pool, wallet, ledger, mixerList, cfg.ClientConfig())
		return client.Run(ctx)
	}
}

// runMixer runs the minimal timer loop a mixer-role process needs: the
// client-side automatic-denomination driver has nothing to do on this
// side, but CheckTimeout and CheckForCompleteQueue still have to advance
// every second, with isClient=false so a mixer detects its own timeouts
// without the head-start lag a client gives it. A tick that finds the
// session lock held is dropped; the next tick retries.
func runMixer(ctx context.Context, pool *session.Pool) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pool.TryWithLock(func(p *session.Pool) {
				p.CheckTimeout(false)
				p.CheckForCompleteQueue()
			})
		}
	}
}

// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config parses the coinmixd command-line/INI configuration into
// the typed structures the mixing and mixclient packages consume.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"

	"github.com/coinmix/coinmixd/mixing"
	"github.com/coinmix/coinmixd/mixing/mixclient"
	"github.com/coinmix/coinmixd/mixing/session"
)

// Config is the full set of tunables a coinmixd process accepts, covering
// both the wire-exact protocol constants and the liquidity-provider and
// multi-session driver options.
type Config struct {
	Role string `long:"role" description:"run as \"client\" or \"mixer\"" default:"client"`

	Enabled           bool `long:"mix" description:"enable the automatic-denomination driver"`
	LiquidityProvider bool `long:"liquidityprovider" description:"always try gossiped queues first and add a collateral-sized output when creating denominations"`
	MultiSession      bool `long:"multisession" description:"allow more than one session before the minimum block spacing elapses"`

	Collateral          int64 `long:"collateral" description:"smallest allowable collateral fee, in atoms" default:"10000"`
	PoolMax             int64 `long:"poolmax" description:"maximum aggregate input value accepted in a single entry, in atoms" default:"10000000000000"`
	QueueTimeoutSecs    int   `long:"queuetimeout" description:"seconds after which a gossiped queue advertisement expires" default:"30"`
	SigningTimeoutSecs  int   `long:"signingtimeout" description:"seconds a session may spend in SIGNING before resetting" default:"15"`
	MaxPoolTransactions int   `long:"maxpooltx" description:"per-session participant cap" default:"3"`
	MinPeerProtoVersion uint32 `long:"minpeerproto" description:"minimum protocol version a mixer must advertise" default:"70213"`

	TargetAmount    int64 `long:"targetamount" description:"target denominated balance, in atoms" default:"1000000000"`
	MinBlockSpacing int32 `long:"minblockspacing" description:"minimum blocks between successful mixes" default:"1"`
	MinRounds       int   `long:"minrounds" description:"minimum PrepareDenominate round range" default:"0"`
	MaxRounds       int   `long:"maxrounds" description:"maximum PrepareDenominate round range" default:"4"`

	KeysThresholdWarning int `long:"keysthresholdwarning" description:"keypool size at which mixing warns of low keys" default:"100"`
	KeysThresholdStop    int `long:"keysthresholdstop" description:"keypool size at which mixing is disabled" default:"50"`
	DenomsCountMax       int `long:"denomscountmax" description:"per-denomination UTXO count before skipping new ones of that size" default:"100"`

	DebugLevel string `long:"debuglevel" description:"logging level {trace, debug, info, warn, error, critical}" default:"info"`
}

// Default returns a Config populated the way dcrd's own config.go seeds a
// config{} literal: hardcoded defaults rather than relying solely on
// go-flags struct tags, since a caller may also construct a Config
// programmatically (e.g. in tests) without parsing argv.
func Default() Config {
	return Config{
		Role:                 "client",
		Collateral:           int64(mixing.DefaultCollateral),
		PoolMax:              int64(mixing.DefaultPoolMax),
		QueueTimeoutSecs:     int(mixing.QueueTimeout / time.Second),
		SigningTimeoutSecs:   int(mixing.SigningTimeout / time.Second),
		MaxPoolTransactions:  mixing.MaxPoolTransactions,
		MinPeerProtoVersion:  mixing.MinPeerProtoVersion,
		TargetAmount:         int64(10 * btcutil.SatoshiPerBitcoin),
		MinBlockSpacing:      1,
		MinRounds:            0,
		MaxRounds:            4,
		KeysThresholdWarning: mixing.KeysThresholdWarning,
		KeysThresholdStop:    mixing.KeysThresholdStop,
		DenomsCountMax:       mixing.DenomsCountMax,
		DebugLevel:           "info",
	}
}

// Parse parses argv (typically os.Args[1:]) into a Config seeded with
// Default's values.
func Parse(argv []string) (*Config, error) {
	cfg := Default()
	parser := flags.NewParser(&cfg, flags.Default)
	parser.Usage = "[OPTIONS]"
	if _, err := parser.ParseArgs(argv); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}
	if cfg.Role != "client" && cfg.Role != "mixer" {
		return nil, fmt.Errorf("invalid --role %q: must be \"client\" or \"mixer\"", cfg.Role)
	}
	return &cfg, nil
}

// SessionConfig projects the protocol-level tunables into session.Config.
func (c *Config) SessionConfig() session.Config {
	return session.Config{
		MaxPoolTransactions: c.MaxPoolTransactions,
		Collateral:          btcutil.Amount(c.Collateral),
		PoolMax:             btcutil.Amount(c.PoolMax),
		MinPeerProtoVersion: c.MinPeerProtoVersion,
	}
}

// ClientConfig projects the driver-level tunables into mixclient.Config.
func (c *Config) ClientConfig() mixclient.Config {
	return mixclient.Config{
		Enabled:           c.Enabled,
		LiquidityProvider: c.LiquidityProvider,
		MultiSession:      c.MultiSession,
		MinBlockSpacing:   c.MinBlockSpacing,
		TargetAmount:      btcutil.Amount(c.TargetAmount),
		MinRounds:         c.MinRounds,
		MaxRounds:         c.MaxRounds,
		Session:           c.SessionConfig(),
	}
}

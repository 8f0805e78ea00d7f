// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mixing

import "github.com/decred/slog"

// log is the package-level logger.  It is disabled until a caller installs
// a real backend with UseLogger, matching the rest of the module.
var log = slog.Disabled

// UseLogger sets the logger used by this package.
func UseLogger(logger slog.Logger) {
	log = logger
}

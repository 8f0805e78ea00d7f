// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mixing

// RejectCode is the on-wire integer status/error identifier exchanged in
// DSSTATUSUPDATE and DSCOMPLETE messages.  Values are preserved exactly for
// wire compatibility and must never be renumbered.
type RejectCode int32

// Wire-exact error and status codes.
const (
	NOERR RejectCode = iota
	SUCCESS
	ENTRIES_ADDED
	ALREADY_HAVE
	DENOM
	ENTRIES_FULL
	EXISTING_TX
	FEES
	INVALID_COLLATERAL
	INVALID_INPUT
	INVALID_SCRIPT
	INVALID_TX
	MAXIMUM
	MN_LIST
	MODE
	NON_STANDARD_PUBKEY
	NOT_A_MN
	QUEUE_FULL
	RECENT
	SESSION
	MISSING_TX
	VERSION
)

var rejectCodeNames = map[RejectCode]string{
	NOERR:               "NOERR",
	SUCCESS:             "SUCCESS",
	ENTRIES_ADDED:       "ENTRIES_ADDED",
	ALREADY_HAVE:        "ALREADY_HAVE",
	DENOM:               "DENOM",
	ENTRIES_FULL:        "ENTRIES_FULL",
	EXISTING_TX:         "EXISTING_TX",
	FEES:                "FEES",
	INVALID_COLLATERAL:  "INVALID_COLLATERAL",
	INVALID_INPUT:       "INVALID_INPUT",
	INVALID_SCRIPT:      "INVALID_SCRIPT",
	INVALID_TX:          "INVALID_TX",
	MAXIMUM:             "MAXIMUM",
	MN_LIST:             "MN_LIST",
	MODE:                "MODE",
	NON_STANDARD_PUBKEY: "NON_STANDARD_PUBKEY",
	NOT_A_MN:            "NOT_A_MN",
	QUEUE_FULL:          "QUEUE_FULL",
	RECENT:              "RECENT",
	SESSION:             "SESSION",
	MISSING_TX:          "MISSING_TX",
	VERSION:             "VERSION",
}

// String implements fmt.Stringer.
func (c RejectCode) String() string {
	if s, ok := rejectCodeNames[c]; ok {
		return s
	}
	return "UNKNOWN"
}

// RuleError pairs a wire-exact RejectCode with the underlying Go error that
// triggered it.  Network message handlers never let these propagate as
// panics: they're converted to a DSSTATUSUPDATE/DSCOMPLETE rejection or a
// silent drop, per the error handling design.
type RuleError struct {
	Code RejectCode
	Err  error
}

func (e *RuleError) Error() string {
	return e.Code.String() + ": " + e.Err.Error()
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

func ruleError(code RejectCode, err error) *RuleError {
	return &RuleError{Code: code, Err: err}
}

// NewRuleError is the exported constructor used by the session and
// mixclient packages to produce protocol rejections with a stable wire
// code.
func NewRuleError(code RejectCode, err error) *RuleError {
	return ruleError(code, err)
}

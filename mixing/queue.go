// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mixing

import (
	"bytes"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Queue is the gossiped advertisement a mixer broadcasts to signal it is
// accepting clients for a denomination, or that it has already accepted
// enough clients and is ready for them to submit their entries.
type Queue struct {
	DenomMask uint32
	MixerID   MixerID
	Time      int64
	Ready     bool
	Signature []byte
}

// signaturePayload builds the exact textual encoding that is signed: the
// outpoint's vin-string, the denomination mask, the time, and the ready
// flag, each as decimal, concatenated.
func (q *Queue) signaturePayload() string {
	ready := 0
	if q.Ready {
		ready = 1
	}
	return fmt.Sprintf("%s-%d|%d|%d|%d", q.MixerID.Hash, q.MixerID.Index, q.DenomMask, q.Time, ready)
}

// Sign computes and stores the queue's signature using the mixer's private
// key.
func (q *Queue) Sign(priv *btcec.PrivateKey) error {
	sig, err := SignPayload(priv, q.signaturePayload())
	if err != nil {
		return err
	}
	q.Signature = sig
	return nil
}

// SignWith computes and stores the queue's signature using signer, the
// same payload Sign and Verify use. It lets a caller holding only a
// mixing.Signer (rather than the raw private key) sign a queue
// advertisement without reaching into signaturePayload itself.
func (q *Queue) SignWith(signer Signer) error {
	sig, err := signer.Sign(q.signaturePayload())
	if err != nil {
		return err
	}
	q.Signature = sig
	return nil
}

// Verify reports whether the queue's stored signature is a valid signature
// by pubKey over the queue's fields.
func (q *Queue) Verify(pubKey []byte) bool {
	return VerifyPayload(pubKey, q.signaturePayload(), q.Signature)
}

// Expired reports whether the queue was advertised more than QueueTimeout
// seconds in the past (or, accounting for clock skew, the future).
func (q *Queue) Expired(now time.Time) bool {
	delta := now.Unix() - q.Time
	if delta < 0 {
		delta = -delta
	}
	return delta > int64(QueueTimeout/time.Second)
}

// Equal reports whether two queue advertisements carry identical fields,
// used to detect and silently ignore duplicate relays.
func (q *Queue) Equal(other *Queue) bool {
	if other == nil {
		return false
	}
	return q.DenomMask == other.DenomMask &&
		q.MixerID == other.MixerID &&
		q.Time == other.Time &&
		q.Ready == other.Ready &&
		bytes.Equal(q.Signature, other.Signature)
}

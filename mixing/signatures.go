// Copyright (c) 2024-2026 The CoinMix developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mixing

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// messageMagic is prefixed to every signed payload, the same convention
// Bitcoin-derived wallets use for signmessage/verifymessage, so that a
// signature over a mixing payload can never be replayed as a signature over
// a raw transaction or vice versa.
const messageMagic = "CoinMix Signed Message:\n"

// signaturePayloadHash hashes a payload the way compact message signatures
// are computed: double-SHA256 of the magic-prefixed, length-delimited
// string.
func signaturePayloadHash(payload string) chainhash.Hash {
	var buf bytes.Buffer
	_ = wire.WriteVarString(&buf, 0, messageMagic)
	_ = wire.WriteVarString(&buf, 0, payload)
	return chainhash.DoubleHashH(buf.Bytes())
}

// SignPayload signs payload with priv, producing a compact signature from
// which the public key can be recovered by VerifyPayload.
func SignPayload(priv *btcec.PrivateKey, payload string) ([]byte, error) {
	hash := signaturePayloadHash(payload)
	sig := ecdsa.SignCompact(priv, hash[:], true)
	return sig, nil
}

// VerifyPayload reports whether sig is a valid compact signature over
// payload that recovers to pubKey.
func VerifyPayload(pubKey []byte, payload string, sig []byte) bool {
	hash := signaturePayloadHash(payload)
	recovered, _, err := ecdsa.RecoverCompact(sig, hash[:])
	if err != nil {
		return false
	}
	want, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return false
	}
	return bytes.Equal(recovered.SerializeCompressed(), want.SerializeCompressed())
}

// localSigner is the default Signer implementation, wrapping a single
// mixer's long-lived signing key.  Host applications that hold the key
// elsewhere (e.g. a hardware wallet) can satisfy the Signer interface
// directly instead.
type localSigner struct {
	priv *btcec.PrivateKey
}

// NewSigner returns a Signer that signs with priv.
func NewSigner(priv *btcec.PrivateKey) Signer {
	return &localSigner{priv: priv}
}

func (s *localSigner) Sign(payload string) ([]byte, error) {
	return SignPayload(s.priv, payload)
}

func (s *localSigner) Verify(pubKey, payload []byte, sig []byte) bool {
	return VerifyPayload(pubKey, string(payload), sig)
}

// Package keyattest binds a lot's RSA public modulus to the key operator
// that will decrypt its bids. The binding is a CBOR payload signed as a
// COSE_Sign1 message with ES256, so anyone holding the operator's public
// key can check that the modulus a lot was created with is the one the
// operator committed to.
package keyattest

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"
)

// Binding is the signed payload: one lot, one modulus.
type Binding struct {
	LotID       uint64 `cbor:"lot_id"`
	Modulus     []byte `cbor:"modulus"`
	Fingerprint string `cbor:"fingerprint"`
}

// Fingerprint returns the hex SHA-256 of a public modulus, the short
// identifier used in logs and tooling.
func Fingerprint(modulus []byte) string {
	sum := sha256.Sum256(modulus)
	return hex.EncodeToString(sum[:])
}

// Sign produces a COSE_Sign1 message binding the modulus to the lot.
func Sign(lotID uint64, modulus []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	payload, err := cbor.Marshal(Binding{
		LotID:       lotID,
		Modulus:     modulus,
		Fingerprint: Fingerprint(modulus),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal binding: %w", err)
	}

	signer, err := cose.NewSigner(cose.AlgorithmES256, key)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmES256)
	msg.Payload = payload
	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("sign binding: %w", err)
	}

	signed, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("marshal COSE message: %w", err)
	}
	return signed, nil
}

// Verify checks a signed binding against the operator's public key and the
// modulus the lot was actually created with. It returns the decoded binding
// on success.
func Verify(signed []byte, lotID uint64, modulus []byte, key *ecdsa.PublicKey) (*Binding, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(signed); err != nil {
		return nil, fmt.Errorf("parse COSE message: %w", err)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, key)
	if err != nil {
		return nil, fmt.Errorf("create verifier: %w", err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return nil, fmt.Errorf("COSE signature verification failed: %w", err)
	}

	var b Binding
	if err := cbor.Unmarshal(msg.Payload, &b); err != nil {
		return nil, fmt.Errorf("decode binding payload: %w", err)
	}
	if b.LotID != lotID {
		return nil, fmt.Errorf("binding is for lot %d, not lot %d", b.LotID, lotID)
	}
	if !bytes.Equal(b.Modulus, modulus) {
		return nil, fmt.Errorf("binding modulus does not match lot modulus")
	}
	if b.Fingerprint != Fingerprint(modulus) {
		return nil, fmt.Errorf("binding fingerprint does not match modulus")
	}
	return &b, nil
}

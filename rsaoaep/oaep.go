// Package rsaoaep implements the deterministic RSA-OAEP primitive sealed
// bids are verified with: re-encrypt the claimed plaintext under the lot's
// public modulus with the claimed seed and compare ciphertexts
// byte-for-byte. The private key never appears on the verification path, so
// anyone can check a decrypt claim.
//
// OAEP uses SHA-256 throughout and the public exponent is fixed at 65537.
package rsaoaep

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
)

const (
	// PublicExponent is fixed for every auction key.
	PublicExponent = 65537

	// SeedSize is the OAEP seed length, one SHA-256 digest.
	SeedSize = sha256.Size
)

// Encrypt performs RSA-OAEP encryption of message under the given modulus
// and label, using the supplied 32-byte seed for the padding. The result is
// fully deterministic: identical inputs always produce an identical
// ciphertext, which is what makes re-encryption usable as a verification
// primitive.
func Encrypt(message, label []byte, modulus *big.Int, seed []byte) ([]byte, error) {
	if modulus == nil || modulus.Sign() <= 0 {
		return nil, errors.New("rsaoaep: missing modulus")
	}
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("rsaoaep: seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	k := (modulus.BitLen() + 7) / 8
	if len(message) > k-2*SeedSize-2 {
		return nil, fmt.Errorf("rsaoaep: message too long for %d-byte modulus", k)
	}

	pub := &rsa.PublicKey{N: modulus, E: PublicExponent}
	// EncryptOAEP draws exactly one hash-length seed from the random source,
	// so feeding it the fixed seed makes the output deterministic.
	ciphertext, err := rsa.EncryptOAEP(sha256.New(), bytes.NewReader(seed), pub, message, label)
	if err != nil {
		return nil, fmt.Errorf("rsaoaep: encrypt: %w", err)
	}
	return ciphertext, nil
}

// GenerateKeyPair generates a fresh RSA key pair for an auction. Lots store
// a 128-byte modulus, so auction keys are generated with bits = 1024.
func GenerateKeyPair(bits int) (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("rsaoaep: generate key pair: %w", err)
	}
	return key, nil
}

// DecryptWithSeed decrypts an OAEP ciphertext and recovers both the message
// and the padding seed. The seed is exactly what a bidder must publish in a
// decrypt claim, so the standard-library decrypt (which discards it) is not
// usable here; the OAEP decoding is done manually.
func DecryptWithSeed(ciphertext, label []byte, priv *rsa.PrivateKey) (message, seed []byte, err error) {
	k := (priv.N.BitLen() + 7) / 8
	if len(ciphertext) != k {
		return nil, nil, fmt.Errorf("rsaoaep: ciphertext must be %d bytes, got %d", k, len(ciphertext))
	}
	if k < 2*SeedSize+2 {
		return nil, nil, errors.New("rsaoaep: modulus too small for OAEP/SHA-256")
	}

	c := new(big.Int).SetBytes(ciphertext)
	if c.Cmp(priv.N) >= 0 {
		return nil, nil, errors.New("rsaoaep: ciphertext out of range")
	}
	em := new(big.Int).Exp(c, priv.D, priv.N).FillBytes(make([]byte, k))

	if em[0] != 0 {
		return nil, nil, errors.New("rsaoaep: decryption error")
	}
	maskedSeed := em[1 : 1+SeedSize]
	maskedDB := em[1+SeedSize:]

	seed = xorMGF1(maskedSeed, maskedDB)
	db := xorMGF1(maskedDB, seed)

	lHash := sha256.Sum256(label)
	if !bytes.Equal(db[:SeedSize], lHash[:]) {
		return nil, nil, errors.New("rsaoaep: label mismatch")
	}

	// The data block is lHash || 0x00.. || 0x01 || message.
	for i, b := range db[SeedSize:] {
		switch b {
		case 0x00:
			// padding, keep scanning
		case 0x01:
			return db[SeedSize+i+1:], seed, nil
		default:
			return nil, nil, errors.New("rsaoaep: malformed padding")
		}
	}
	return nil, nil, errors.New("rsaoaep: malformed padding")
}

// xorMGF1 XORs data with the MGF1/SHA-256 mask generated from mgfSeed,
// returning a new slice.
func xorMGF1(data, mgfSeed []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)

	h := sha256.New()
	var counter [4]byte
	for off := 0; off < len(out); off += sha256.Size {
		h.Reset()
		h.Write(mgfSeed)
		binary.BigEndian.PutUint32(counter[:], uint32(off/sha256.Size))
		h.Write(counter[:])
		digest := h.Sum(nil)
		for i := 0; i < len(digest) && off+i < len(out); i++ {
			out[off+i] ^= digest[i]
		}
	}
	return out
}

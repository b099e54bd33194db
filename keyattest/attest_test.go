package keyattest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/Axis-Fi/axis-core-sub009/rsaoaep"
)

func testKeys(t *testing.T) (*ecdsa.PrivateKey, []byte) {
	signer, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	assert.NoError(t, err)
	auctionKey, err := rsaoaep.GenerateKeyPair(1024)
	assert.NoError(t, err)
	return signer, auctionKey.N.Bytes()
}

func TestSignAndVerify(t *testing.T) {
	signer, modulus := testKeys(t)

	signed, err := Sign(7, modulus, signer)
	assert.NoError(t, err)

	b, err := Verify(signed, 7, modulus, &signer.PublicKey)
	assert.NoError(t, err)
	check.Equal(t, uint64(7), b.LotID)
	check.Equal(t, modulus, b.Modulus)
	check.Equal(t, Fingerprint(modulus), b.Fingerprint)
}

func TestVerifyWrongLot(t *testing.T) {
	signer, modulus := testKeys(t)

	signed, err := Sign(7, modulus, signer)
	assert.NoError(t, err)

	_, err = Verify(signed, 8, modulus, &signer.PublicKey)
	check.Error(t, err)
}

func TestVerifyWrongModulus(t *testing.T) {
	signer, modulus := testKeys(t)
	_, otherModulus := testKeys(t)

	signed, err := Sign(7, modulus, signer)
	assert.NoError(t, err)

	_, err = Verify(signed, 7, otherModulus, &signer.PublicKey)
	check.Error(t, err)
}

func TestVerifyWrongKey(t *testing.T) {
	signer, modulus := testKeys(t)
	otherSigner, _ := testKeys(t)

	signed, err := Sign(7, modulus, signer)
	assert.NoError(t, err)

	_, err = Verify(signed, 7, modulus, &otherSigner.PublicKey)
	check.Error(t, err)
}

func TestVerifyGarbage(t *testing.T) {
	signer, modulus := testKeys(t)
	_, err := Verify([]byte{0x01, 0x02}, 7, modulus, &signer.PublicKey)
	check.Error(t, err)
}

func TestFingerprintStable(t *testing.T) {
	_, modulus := testKeys(t)
	check.Equal(t, Fingerprint(modulus), Fingerprint(modulus))
	check.Equal(t, 64, len(Fingerprint(modulus)))
}

package signing

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestStability(t *testing.T) {
	record := "Test University | Jane Doe | Professor | January 2, 2026 15:04 UTC"

	d1 := Digest(record)
	d2 := Digest(record)
	assert.Equal(t, d1, d2)

	// Known SHA-256 vector for the record above.
	assert.Equal(t,
		"d545c9c8b1098c1d6e962c15cb714dd3798de5f0f8673e65c061730a93a11123",
		hex.EncodeToString(d1[:]))
}

func TestSignAndVerify(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	record := BuildRecord("Test University", "Jane Doe", "Professor", "January 2, 2026 15:04 UTC")
	digest := Digest(record)

	sig, err := Sign(digest, key)
	require.NoError(t, err)
	assert.NoError(t, Verify(&key.PublicKey, digest, sig))
}

func TestVerifyRejectsTamperedRecord(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	record := BuildRecord("Test University", "Jane Doe", "Professor", "January 2, 2026 15:04 UTC")
	sig, err := Sign(Digest(record), key)
	require.NoError(t, err)

	// A single altered byte must break verification.
	tampered := []byte(record)
	tampered[0] ^= 0x01
	err = Verify(&key.PublicKey, Digest(string(tampered)), sig)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	key1, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	key2, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	digest := Digest("some record")
	sig, err := Sign(digest, key1)
	require.NoError(t, err)

	assert.ErrorIs(t, Verify(&key2.PublicKey, digest, sig), ErrBadSignature)
}

func TestVerifyRejectsGarbageBase64(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	assert.ErrorIs(t, Verify(&key.PublicKey, Digest("x"), "!!not base64!!"), ErrBadSignature)
}

func TestSignNilKey(t *testing.T) {
	_, err := Sign(Digest("x"), nil)
	assert.ErrorIs(t, err, ErrSigning)
}

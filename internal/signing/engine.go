package signing

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrSigning is returned when signing fails, e.g. the key is absent or
	// unusable at call time. The credential validator gates entry, so this
	// should not occur in the normal flow.
	ErrSigning = errors.New("signing failed")

	// ErrBadSignature is returned when a signature does not verify against
	// the certificate's public key.
	ErrBadSignature = errors.New("invalid signature")
)

// Digest computes the SHA-256 digest of the canonical record's UTF-8 bytes.
// Digest-then-sign keeps signature cost independent of document size.
func Digest(record string) [32]byte {
	return sha256.Sum256([]byte(record))
}

// Sign produces an RSA PKCS#1 v1.5 signature over the digest, Base64-encoded
// for storage and on-page display.
func Sign(digest [32]byte, key *rsa.PrivateKey) (string, error) {
	if key == nil {
		return "", ErrSigning
	}
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks a Base64 signature against the given digest and public key.
func Verify(pub *rsa.PublicKey, digest [32]byte, signatureB64 string) error {
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return ErrBadSignature
	}
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return ErrBadSignature
	}
	return nil
}

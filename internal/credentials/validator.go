// Package credentials parses and validates the signer's certificate and
// encrypted private key. Both validators are pure: they touch nothing but
// their inputs, and neither the passphrase nor decrypted key material is
// ever logged or retained.
package credentials

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/youmark/pkcs8"
)

var (
	// ErrInvalidCertificate covers any malformed or non-certificate PEM input.
	ErrInvalidCertificate = errors.New("invalid certificate")

	// ErrInvalidPassphraseOrKey covers both a wrong passphrase and a corrupt
	// key file. The decryption primitives cannot reliably tell the two apart,
	// so callers are given a single kind to re-prompt on.
	ErrInvalidPassphraseOrKey = errors.New("invalid passphrase or private key")
)

// ParseCertificate decodes a PEM-encoded X.509 certificate and returns it
// along with the subject common name used as the signer display identity.
func ParseCertificate(pemBytes []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, ErrInvalidCertificate
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}
	return cert, nil
}

// DecryptPrivateKey decrypts a PEM-encoded encrypted RSA private key with
// the supplied passphrase. Both legacy encrypted PEM (DEK-Info header) and
// PKCS#8 ENCRYPTED PRIVATE KEY blocks are accepted. The returned key must
// not outlive the signing operation it was decrypted for.
func DecryptPrivateKey(pemBytes, passphrase []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidPassphraseOrKey
	}

	switch block.Type {
	case "ENCRYPTED PRIVATE KEY":
		key, err := pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, passphrase)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPassphraseOrKey, err)
		}
		return key, nil

	case "RSA PRIVATE KEY":
		der := block.Bytes
		if x509.IsEncryptedPEMBlock(block) {
			decrypted, err := x509.DecryptPEMBlock(block, passphrase)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidPassphraseOrKey, err)
			}
			der = decrypted
		}
		key, err := x509.ParsePKCS1PrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPassphraseOrKey, err)
		}
		return key, nil

	default:
		return nil, ErrInvalidPassphraseOrKey
	}
}

package credentials

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateFixture(t *testing.T, commonName, passphrase string) (certPEM, keyPEM []byte) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: commonName, Organization: []string{"Test University"}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	block, err := x509.EncryptPEMBlock(rand.Reader, "RSA PRIVATE KEY",
		x509.MarshalPKCS1PrivateKey(key), []byte(passphrase), x509.PEMCipherAES256)
	require.NoError(t, err)
	keyPEM = pem.EncodeToMemory(block)

	return certPEM, keyPEM
}

func TestParseCertificate(t *testing.T) {
	certPEM, keyPEM := generateFixture(t, "Jane Doe", "test1234")

	cert, err := ParseCertificate(certPEM)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", cert.Subject.CommonName)

	_, err = ParseCertificate([]byte("not a certificate"))
	assert.ErrorIs(t, err, ErrInvalidCertificate)

	// A valid PEM block of the wrong type is still not a certificate.
	_, err = ParseCertificate(keyPEM)
	assert.ErrorIs(t, err, ErrInvalidCertificate)

	truncated := certPEM[:len(certPEM)/2]
	_, err = ParseCertificate(truncated)
	assert.ErrorIs(t, err, ErrInvalidCertificate)
}

func TestDecryptPrivateKey(t *testing.T) {
	_, keyPEM := generateFixture(t, "Jane Doe", "test1234")

	key, err := DecryptPrivateKey(keyPEM, []byte("test1234"))
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.NoError(t, key.Validate())
}

func TestDecryptPrivateKeyWrongPassphrase(t *testing.T) {
	_, keyPEM := generateFixture(t, "Jane Doe", "test1234")

	for _, pass := range []string{"test12345", "Test1234", ""} {
		_, err := DecryptPrivateKey(keyPEM, []byte(pass))
		assert.ErrorIs(t, err, ErrInvalidPassphraseOrKey, "passphrase %q", pass)
	}
}

func TestDecryptPrivateKeyGarbage(t *testing.T) {
	_, err := DecryptPrivateKey([]byte("garbage"), []byte("test1234"))
	assert.ErrorIs(t, err, ErrInvalidPassphraseOrKey)

	certPEM, _ := generateFixture(t, "Jane Doe", "test1234")
	_, err = DecryptPrivateKey(certPEM, []byte("test1234"))
	assert.ErrorIs(t, err, ErrInvalidPassphraseOrKey)
}

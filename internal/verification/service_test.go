package verification

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"firmadocs/signing-portal/signing-portal-backend/internal/signing"
	"firmadocs/signing-portal/signing-portal-backend/pkg/storage"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateDocument(ctx context.Context, doc *signing.DocumentMetadata) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockRepository) GetDocumentByName(ctx context.Context, name string) (*signing.DocumentMetadata, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*signing.DocumentMetadata), args.Error(1)
}

func (m *MockRepository) ListDocuments(ctx context.Context, owner string) ([]signing.DocumentMetadata, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).([]signing.DocumentMetadata), args.Error(1)
}

func (m *MockRepository) MarkSigned(ctx context.Context, name string, fields signing.SignedFields) error {
	args := m.Called(ctx, name, fields)
	return args.Error(0)
}

func (m *MockRepository) FindByPublicID(ctx context.Context, publicID uuid.UUID) ([]signing.DocumentMetadata, error) {
	args := m.Called(ctx, publicID)
	return args.Get(0).([]signing.DocumentMetadata), args.Error(1)
}

func (m *MockRepository) ListSigned(ctx context.Context) ([]signing.DocumentMetadata, error) {
	args := m.Called(ctx)
	return args.Get(0).([]signing.DocumentMetadata), args.Error(1)
}

func (m *MockRepository) DeleteDocument(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// signedDoc builds a fully signed metadata record whose signature genuinely
// verifies against the embedded certificate.
func signedDoc(t *testing.T, publicID uuid.UUID) signing.DocumentMetadata {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "Jane Doe"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	certPEM := string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))

	record := signing.BuildRecord("Test University", "Jane Doe", "Professor", "January 2, 2026 15:04 UTC")
	signature, err := signing.Sign(signing.Digest(record), key)
	require.NoError(t, err)

	now := time.Now().UTC()
	return signing.DocumentMetadata{
		Name:            "contract.pdf",
		Owner:           "user-1",
		S3Bucket:        "test-bucket",
		S3Key:           "documents/user-1/contract.pdf",
		SignatureStatus: signing.StatusSigned,
		PublicID:        &publicID,
		CanonicalRecord: &record,
		Signature:       &signature,
		CertificatePEM:  &certPEM,
		UploadedAt:      now,
		ModifiedAt:      now,
	}
}

func newTestService(t *testing.T, repo signing.Repository, s3 storage.S3Client) *Service {
	t.Helper()
	return NewService(repo, s3, 15*time.Minute, zap.NewNop())
}

func TestResolveSuccess(t *testing.T) {
	ctx := context.Background()
	publicID := uuid.New()
	doc := signedDoc(t, publicID)

	mem := storage.NewMemoryClient()
	require.NoError(t, mem.Upload(ctx, doc.S3Bucket, doc.S3Key, bytes.NewReader([]byte("%PDF-stamped"))))

	mockRepo := new(MockRepository)
	mockRepo.On("FindByPublicID", ctx, publicID).Return([]signing.DocumentMetadata{doc}, nil)

	result, err := newTestService(t, mockRepo, mem).Resolve(ctx, publicID)
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", result.SignerName)
	assert.Equal(t, "Test University", result.Institution)
	assert.Equal(t, "Professor", result.Role)
	assert.Equal(t, "January 2, 2026 15:04 UTC", result.Timestamp)
	assert.NotEmpty(t, result.DocumentAccessURL)

	mockRepo.AssertExpectations(t)
}

func TestResolveNotFound(t *testing.T) {
	ctx := context.Background()
	publicID := uuid.New()

	mockRepo := new(MockRepository)
	mockRepo.On("FindByPublicID", ctx, publicID).Return([]signing.DocumentMetadata{}, nil)

	_, err := newTestService(t, mockRepo, storage.NewMemoryClient()).Resolve(ctx, publicID)
	assert.ErrorIs(t, err, signing.ErrNotFound)
}

func TestResolveAmbiguous(t *testing.T) {
	ctx := context.Background()
	publicID := uuid.New()

	// Two records sharing a publicId simulate a violated uniqueness
	// constraint; the resolver must refuse rather than pick one.
	docs := []signing.DocumentMetadata{signedDoc(t, publicID), signedDoc(t, publicID)}

	mockRepo := new(MockRepository)
	mockRepo.On("FindByPublicID", ctx, publicID).Return(docs, nil)

	_, err := newTestService(t, mockRepo, storage.NewMemoryClient()).Resolve(ctx, publicID)
	assert.ErrorIs(t, err, ErrAmbiguous)
}

func TestResolveTamperDetected(t *testing.T) {
	ctx := context.Background()
	publicID := uuid.New()
	doc := signedDoc(t, publicID)

	// Mutate one byte of the stored record after signing.
	tampered := "Fake University" + (*doc.CanonicalRecord)[15:]
	doc.CanonicalRecord = &tampered

	mockRepo := new(MockRepository)
	mockRepo.On("FindByPublicID", ctx, publicID).Return([]signing.DocumentMetadata{doc}, nil)

	_, err := newTestService(t, mockRepo, storage.NewMemoryClient()).Resolve(ctx, publicID)
	assert.ErrorIs(t, err, ErrTamperDetected)
}

func TestResolveIncompleteRecord(t *testing.T) {
	ctx := context.Background()
	publicID := uuid.New()
	doc := signedDoc(t, publicID)
	doc.Signature = nil

	mockRepo := new(MockRepository)
	mockRepo.On("FindByPublicID", ctx, publicID).Return([]signing.DocumentMetadata{doc}, nil)

	_, err := newTestService(t, mockRepo, storage.NewMemoryClient()).Resolve(ctx, publicID)
	assert.ErrorIs(t, err, signing.ErrStorage)
}

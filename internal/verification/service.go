// Package verification resolves public references: given an unguessable
// publicId, it locates the signed document's metadata, re-checks the stored
// signature against the stored certificate, and reconstructs the display
// fields from the canonical record.
package verification

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"firmadocs/signing-portal/signing-portal-backend/internal/credentials"
	"firmadocs/signing-portal/signing-portal-backend/internal/signing"
	"firmadocs/signing-portal/signing-portal-backend/pkg/storage"
)

var (
	// ErrAmbiguous means more than one metadata record matched a publicId.
	// Unreachable if the store's uniqueness constraint holds, but checked
	// rather than assumed.
	ErrAmbiguous = errors.New("ambiguous public reference")

	// ErrTamperDetected means the stored signature no longer verifies
	// against the stored certificate and canonical record.
	ErrTamperDetected = errors.New("signature verification failed")
)

// Result is the public read-only view of one signed document.
type Result struct {
	DocumentAccessURL string `json:"document_access_url"`
	SignerName        string `json:"signer_name"`
	Timestamp         string `json:"timestamp"`
	Institution       string `json:"institution"`
	Role              string `json:"role"`
}

type Service struct {
	repo       signing.Repository
	s3         storage.S3Client
	presignTTL time.Duration
	logger     *zap.Logger
}

func NewService(repo signing.Repository, s3 storage.S3Client, presignTTL time.Duration, logger *zap.Logger) *Service {
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	return &Service{
		repo:       repo,
		s3:         s3,
		presignTTL: presignTTL,
		logger:     logger.With(zap.String("service", "verification")),
	}
}

// Resolve answers a public lookup. Zero matches is ErrNotFound, more than
// one is ErrAmbiguous; on a single match the stored record is re-verified
// before anything is returned.
func (s *Service) Resolve(ctx context.Context, publicID uuid.UUID) (*Result, error) {
	docs, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	switch len(docs) {
	case 0:
		return nil, signing.ErrNotFound
	case 1:
	default:
		s.logger.Error("uniqueness constraint violated",
			zap.String("public_id", publicID.String()), zap.Int("matches", len(docs)))
		return nil, ErrAmbiguous
	}

	doc := docs[0]
	if doc.CanonicalRecord == nil || doc.Signature == nil || doc.CertificatePEM == nil {
		return nil, fmt.Errorf("%w: signed record is incomplete", signing.ErrStorage)
	}

	fields, err := signing.SplitRecord(*doc.CanonicalRecord)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", signing.ErrStorage, err)
	}

	if err := s.verifyStored(doc); err != nil {
		return nil, err
	}

	sctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	url, err := s.s3.GetPresignedURL(sctx, doc.S3Bucket, doc.S3Key, s.presignTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", signing.ErrStorage, err)
	}

	return &Result{
		DocumentAccessURL: url,
		SignerName:        fields.SignerName,
		Timestamp:         fields.Timestamp,
		Institution:       fields.Institution,
		Role:              fields.Role,
	}, nil
}

func (s *Service) verifyStored(doc signing.DocumentMetadata) error {
	cert, err := credentials.ParseCertificate([]byte(*doc.CertificatePEM))
	if err != nil {
		return fmt.Errorf("%w: stored certificate unreadable", ErrTamperDetected)
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("%w: stored certificate key is not RSA", ErrTamperDetected)
	}
	if err := signing.Verify(pub, signing.Digest(*doc.CanonicalRecord), *doc.Signature); err != nil {
		s.logger.Error("stored signature does not verify", zap.String("document", doc.Name))
		return ErrTamperDetected
	}
	return nil
}

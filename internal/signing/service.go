package signing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"firmadocs/signing-portal/signing-portal-backend/internal/credentials"
	"firmadocs/signing-portal/signing-portal-backend/pkg/stamp"
	"firmadocs/signing-portal/signing-portal-backend/pkg/storage"
)

// ErrAlreadySigned is returned when a sign request targets a document whose
// metadata already carries a signature.
var ErrAlreadySigned = errors.New("document is already signed")

type Service interface {
	UploadDocument(ctx context.Context, req UploadRequest) (*DocumentMetadata, error)
	GetDocument(ctx context.Context, name string) (*DocumentMetadata, error)
	ListDocuments(ctx context.Context, owner string) ([]DocumentMetadata, error)
	DownloadDocument(ctx context.Context, name string) (io.ReadCloser, error)
	DeleteDocument(ctx context.Context, name string) error

	SignDocument(ctx context.Context, req SignRequest) (*SignResult, error)
}

type UploadRequest struct {
	Name    string
	Owner   string
	Content io.Reader
}

// SignRequest carries one signing operation's inputs. KeyPEM and Passphrase
// are used once to decrypt the private key and must not be retained, logged
// or cached anywhere downstream.
type SignRequest struct {
	DocumentName string
	SignerName   string
	Institution  string
	Role         string
	CertPEM      []byte
	KeyPEM       []byte
	Passphrase   []byte
}

type SignResult struct {
	Reference       PublicReference `json:"reference"`
	CanonicalRecord string          `json:"canonical_record"`
	SignerName      string          `json:"signer_name"`
	Timestamp       string          `json:"timestamp"`
	Signature       string          `json:"signature"`
}

type signingService struct {
	repo      Repository
	s3        storage.S3Client
	stamper   *stamp.Stamper
	refs      *ReferenceGenerator
	bucket    string
	opTimeout time.Duration
	logger    *zap.Logger
}

func NewService(repo Repository, s3 storage.S3Client, stamper *stamp.Stamper,
	refs *ReferenceGenerator, bucket string, opTimeout time.Duration, logger *zap.Logger) Service {
	if opTimeout <= 0 {
		opTimeout = 30 * time.Second
	}
	return &signingService{
		repo:      repo,
		s3:        s3,
		stamper:   stamper,
		refs:      refs,
		bucket:    bucket,
		opTimeout: opTimeout,
		logger:    logger.With(zap.String("service", "signing")),
	}
}

// opCtx bounds one storage or metadata operation. Both the object store and
// the metadata store sit behind the same deadline so neither can stall a
// request indefinitely.
func (s *signingService) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *signingService) UploadDocument(ctx context.Context, req UploadRequest) (*DocumentMetadata, error) {
	key := documentKey(req.Owner, req.Name)

	sctx, cancel := s.opCtx(ctx)
	defer cancel()
	if err := s.s3.Upload(sctx, s.bucket, key, req.Content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	now := time.Now().UTC()
	doc := &DocumentMetadata{
		Name:            req.Name,
		Owner:           req.Owner,
		S3Bucket:        s.bucket,
		S3Key:           key,
		SignatureStatus: StatusPending,
		UploadedAt:      now,
		ModifiedAt:      now,
	}
	rctx, rcancel := s.opCtx(ctx)
	defer rcancel()
	if err := s.repo.CreateDocument(rctx, doc); err != nil {
		// The bytes are already durable but nothing references them;
		// reclaim the object instead of leaving it orphaned. Cleanup runs
		// on a fresh context since the request's may already be dead.
		dctx, dcancel := context.WithTimeout(context.Background(), s.opTimeout)
		defer dcancel()
		if derr := s.s3.Delete(dctx, s.bucket, key); derr != nil {
			s.logger.Warn("orphaned object cleanup failed",
				zap.String("key", key), zap.Error(derr))
		}
		return nil, err
	}
	return doc, nil
}

func (s *signingService) GetDocument(ctx context.Context, name string) (*DocumentMetadata, error) {
	sctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.repo.GetDocumentByName(sctx, name)
}

func (s *signingService) ListDocuments(ctx context.Context, owner string) ([]DocumentMetadata, error) {
	sctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.repo.ListDocuments(sctx, owner)
}

func (s *signingService) DownloadDocument(ctx context.Context, name string) (io.ReadCloser, error) {
	rctx, rcancel := s.opCtx(ctx)
	defer rcancel()
	doc, err := s.repo.GetDocumentByName(rctx, name)
	if err != nil {
		return nil, err
	}
	body, err := s.s3.Download(ctx, doc.S3Bucket, doc.S3Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return body, nil
}

func (s *signingService) DeleteDocument(ctx context.Context, name string) error {
	rctx, rcancel := s.opCtx(ctx)
	defer rcancel()
	doc, err := s.repo.GetDocumentByName(rctx, name)
	if err != nil {
		return err
	}
	sctx, cancel := s.opCtx(ctx)
	defer cancel()
	if err := s.s3.Delete(sctx, doc.S3Bucket, doc.S3Key); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	dctx, dcancel := s.opCtx(ctx)
	defer dcancel()
	return s.repo.DeleteDocument(dctx, name)
}

// SignDocument runs the full pipeline: validate credentials, build the
// canonical record, digest, sign, mint the public reference, stamp the
// evidence page, then persist. The stamped bytes are written to the object
// store first and the metadata flips to signed only afterwards, so a crash
// in between never yields a signed record pointing at unsigned bytes.
func (s *signingService) SignDocument(ctx context.Context, req SignRequest) (*SignResult, error) {
	cert, err := credentials.ParseCertificate(req.CertPEM)
	if err != nil {
		return nil, err
	}
	key, err := credentials.DecryptPrivateKey(req.KeyPEM, req.Passphrase)
	if err != nil {
		return nil, err
	}

	lctx, lcancel := s.opCtx(ctx)
	defer lcancel()
	doc, err := s.repo.GetDocumentByName(lctx, req.DocumentName)
	if err != nil {
		return nil, err
	}
	if doc.SignatureStatus == StatusSigned {
		return nil, ErrAlreadySigned
	}

	original, err := s.fetchBytes(ctx, doc.S3Bucket, doc.S3Key)
	if err != nil {
		return nil, err
	}

	signerName := req.SignerName
	if signerName == "" {
		signerName = cert.Subject.CommonName
	}

	timestamp := FormatTimestamp(time.Now())
	record := BuildRecord(req.Institution, signerName, req.Role, timestamp)

	digest := Digest(record)
	signature, err := Sign(digest, key)
	// The decrypted key is scoped to this operation only.
	key = nil
	if err != nil {
		return nil, err
	}

	reference := s.refs.Mint()

	stamped, err := s.stamper.Stamp(original, stamp.Input{
		SignerName:      signerName,
		Timestamp:       timestamp,
		CanonicalRecord: record,
		SignatureB64:    signature,
		ReferenceURL:    reference.URL,
	})
	if err != nil {
		return nil, err
	}

	// Overwrite the document of record, then commit the metadata.
	sctx, cancel := s.opCtx(ctx)
	defer cancel()
	if err := s.s3.Upload(sctx, doc.S3Bucket, doc.S3Key, bytes.NewReader(stamped)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	fields := SignedFields{
		PublicID:        reference.PublicID,
		CanonicalRecord: record,
		Signature:       signature,
		CertificatePEM:  string(req.CertPEM),
		ModifiedAt:      time.Now().UTC(),
	}
	mctx, mcancel := s.opCtx(ctx)
	defer mcancel()
	if err := s.repo.MarkSigned(mctx, doc.Name, fields); err != nil {
		return nil, err
	}

	s.logger.Info("document signed",
		zap.String("document", doc.Name),
		zap.String("public_id", reference.PublicID.String()),
		zap.String("signer", signerName))

	return &SignResult{
		Reference:       reference,
		CanonicalRecord: record,
		SignerName:      signerName,
		Timestamp:       timestamp,
		Signature:       signature,
	}, nil
}

func (s *signingService) fetchBytes(ctx context.Context, bucket, key string) ([]byte, error) {
	sctx, cancel := s.opCtx(ctx)
	defer cancel()

	body, err := s.s3.Download(sctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return data, nil
}

func documentKey(owner, name string) string {
	return fmt.Sprintf("documents/%s/%s", owner, name)
}

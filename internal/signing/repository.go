package signing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when no metadata record matches a lookup.
	ErrNotFound = errors.New("document not found")

	// ErrStorage covers metadata store failures, including a violated
	// public_id uniqueness constraint on commit.
	ErrStorage = errors.New("storage error")
)

// Repository is the metadata store collaborator. FindByPublicID returns a
// slice on purpose: the resolver checks the cardinality itself rather than
// trusting the uniqueness constraint upstream.
type Repository interface {
	CreateDocument(ctx context.Context, doc *DocumentMetadata) error
	GetDocumentByName(ctx context.Context, name string) (*DocumentMetadata, error)
	ListDocuments(ctx context.Context, owner string) ([]DocumentMetadata, error)
	MarkSigned(ctx context.Context, name string, fields SignedFields) error
	FindByPublicID(ctx context.Context, publicID uuid.UUID) ([]DocumentMetadata, error)
	ListSigned(ctx context.Context) ([]DocumentMetadata, error)
	DeleteDocument(ctx context.Context, name string) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateDocument(ctx context.Context, doc *DocumentMetadata) error {
	query := `
		INSERT INTO documents (
			name, owner, s3_bucket, s3_key, signature_status,
			public_id, canonical_record, signature, certificate_pem,
			uploaded_at, modified_at
		) VALUES (
			:name, :owner, :s3_bucket, :s3_key, :signature_status,
			:public_id, :canonical_record, :signature, :certificate_pem,
			:uploaded_at, :modified_at
		)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return wrapStorageErr(err)
	}
	return nil
}

func (r *postgresRepository) GetDocumentByName(ctx context.Context, name string) (*DocumentMetadata, error) {
	var doc DocumentMetadata
	err := r.db.GetContext(ctx, &doc, "SELECT * FROM documents WHERE name = $1", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	return &doc, nil
}

func (r *postgresRepository) ListDocuments(ctx context.Context, owner string) ([]DocumentMetadata, error) {
	var docs []DocumentMetadata
	err := r.db.SelectContext(ctx, &docs,
		"SELECT * FROM documents WHERE owner = $1 ORDER BY uploaded_at DESC", owner)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	return docs, nil
}

// MarkSigned flips a pending document to signed in a single UPDATE. The
// object store write happens before this, so a crash in between leaves a
// pending record with already-stamped bytes, never the reverse; the
// reconciliation sweep covers the remaining window.
func (r *postgresRepository) MarkSigned(ctx context.Context, name string, fields SignedFields) error {
	query := `
		UPDATE documents SET
			signature_status = $1,
			public_id = $2,
			canonical_record = $3,
			signature = $4,
			certificate_pem = $5,
			modified_at = $6
		WHERE name = $7 AND signature_status = $8`
	res, err := r.db.ExecContext(ctx, query,
		StatusSigned, fields.PublicID, fields.CanonicalRecord, fields.Signature,
		fields.CertificatePEM, fields.ModifiedAt, name, StatusPending)
	if err != nil {
		return wrapStorageErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapStorageErr(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) FindByPublicID(ctx context.Context, publicID uuid.UUID) ([]DocumentMetadata, error) {
	var docs []DocumentMetadata
	err := r.db.SelectContext(ctx, &docs, "SELECT * FROM documents WHERE public_id = $1", publicID)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	return docs, nil
}

func (r *postgresRepository) ListSigned(ctx context.Context) ([]DocumentMetadata, error) {
	var docs []DocumentMetadata
	err := r.db.SelectContext(ctx, &docs,
		"SELECT * FROM documents WHERE signature_status = $1", StatusSigned)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	return docs, nil
}

func (r *postgresRepository) DeleteDocument(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE name = $1", name); err != nil {
		return wrapStorageErr(err)
	}
	return nil
}

func wrapStorageErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: public_id collision: %v", ErrStorage, err)
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

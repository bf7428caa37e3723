package signing

import (
	"time"

	"github.com/google/uuid"
)

type SignatureStatus string

const (
	StatusPending SignatureStatus = "pending"
	StatusSigned  SignatureStatus = "signed"
)

// DocumentMetadata is the metadata store record for one uploaded document,
// keyed by name. PublicID, CanonicalRecord, Signature and CertificatePEM are
// populated together when the document flips to signed; the certificate and
// signature are kept so the resolver can re-verify the record independently.
type DocumentMetadata struct {
	Name            string          `json:"name" db:"name"`
	Owner           string          `json:"owner" db:"owner"`
	S3Bucket        string          `json:"s3_bucket" db:"s3_bucket"`
	S3Key           string          `json:"s3_key" db:"s3_key"`
	SignatureStatus SignatureStatus `json:"signature_status" db:"signature_status"`
	PublicID        *uuid.UUID      `json:"public_id,omitempty" db:"public_id"`
	CanonicalRecord *string         `json:"canonical_record,omitempty" db:"canonical_record"`
	Signature       *string         `json:"signature,omitempty" db:"signature"`
	CertificatePEM  *string         `json:"-" db:"certificate_pem"`
	UploadedAt      time.Time       `json:"uploaded_at" db:"uploaded_at"`
	ModifiedAt      time.Time       `json:"modified_at" db:"modified_at"`
}

// SignedFields is the set of columns written atomically when a signing
// operation commits.
type SignedFields struct {
	PublicID        uuid.UUID
	CanonicalRecord string
	Signature       string
	CertificatePEM  string
	ModifiedAt      time.Time
}

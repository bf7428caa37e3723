package signing

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// viewPath is the fixed public lookup path a reference URL embeds the id into.
const viewPath = "/view-signed?id=%s"

// PublicReference is the shareable verification handle for one signing
// event: an unguessable id plus the URL a third party resolves it at.
type PublicReference struct {
	PublicID uuid.UUID `json:"public_id"`
	URL      string    `json:"url"`
}

// ReferenceGenerator mints public references. Uniqueness of the minted id is
// not checked here; the metadata store enforces it with a unique constraint
// at write time.
type ReferenceGenerator struct {
	baseURL string
	logger  *zap.Logger
}

func NewReferenceGenerator(baseURL string, logger *zap.Logger) *ReferenceGenerator {
	if baseURL == "" {
		logger.Warn("public base URL not configured, verification links will be relative")
	}
	return &ReferenceGenerator{baseURL: baseURL, logger: logger}
}

// Mint generates a fresh UUIDv4 reference. With an empty base URL the
// returned URL is relative; callers treat that as degraded but non-fatal.
func (g *ReferenceGenerator) Mint() PublicReference {
	id := uuid.New()
	return PublicReference{
		PublicID: id,
		URL:      g.baseURL + fmt.Sprintf(viewPath, id),
	}
}

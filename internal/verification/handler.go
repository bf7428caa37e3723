package verification

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"firmadocs/signing-portal/signing-portal-backend/internal/signing"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the public, unauthenticated lookup. This single
// endpoint parameterized by an opaque id is the entire wire protocol.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/view-signed", h.Resolve)
}

func (h *Handler) Resolve(c *gin.Context) {
	publicID, err := uuid.Parse(c.Query("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	result, err := h.service.Resolve(c.Request.Context(), publicID)
	if err != nil {
		switch {
		case errors.Is(err, signing.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "no signed document for this id"})
		case errors.Is(err, ErrAmbiguous):
			c.JSON(http.StatusConflict, gin.H{"error": "reference is ambiguous"})
		case errors.Is(err, ErrTamperDetected):
			c.JSON(http.StatusConflict, gin.H{"error": "signature verification failed"})
		default:
			h.logger.Error("resolve failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

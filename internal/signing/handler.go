package signing

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"firmadocs/signing-portal/signing-portal-backend/internal/auth"
	"firmadocs/signing-portal/signing-portal-backend/internal/credentials"
	"firmadocs/signing-portal/signing-portal-backend/pkg/stamp"
)

type Handler struct {
	service     Service
	institution string
	logger      *zap.Logger
}

func NewHandler(service Service, institution string, logger *zap.Logger) *Handler {
	return &Handler{service: service, institution: institution, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	docs := rg.Group("/documents")
	{
		docs.POST("/upload", h.Upload)
		docs.GET("", h.List)
		docs.GET("/:name", h.Download)
		docs.GET("/:name/metadata", h.GetMetadata)
		docs.DELETE("/:name", h.Delete)
		docs.POST("/:name/sign", h.Sign)
	}
}

func (h *Handler) Upload(c *gin.Context) {
	identity, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	doc, err := h.service.UploadDocument(c.Request.Context(), UploadRequest{
		Name:    file.Filename,
		Owner:   identity.UserID,
		Content: f,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) List(c *gin.Context) {
	identity, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	docs, err := h.service.ListDocuments(c.Request.Context(), identity.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *Handler) Download(c *gin.Context) {
	reader, err := h.service.DownloadDocument(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, -1, "application/pdf", reader, nil)
}

func (h *Handler) GetMetadata(c *gin.Context) {
	doc, err := h.service.GetDocument(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.DeleteDocument(c.Request.Context(), c.Param("name")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Sign accepts multipart form data: the certificate file ("cer"), the
// encrypted key file ("key"), the passphrase and optional role. The key and
// passphrase never leave the request scope.
func (h *Handler) Sign(c *gin.Context) {
	identity, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	certPEM, err := formFileBytes(c, "cer")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "certificate file is required"})
		return
	}
	keyPEM, err := formFileBytes(c, "key")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key file is required"})
		return
	}
	passphrase := c.PostForm("passphrase")
	if passphrase == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "passphrase is required"})
		return
	}

	result, err := h.service.SignDocument(c.Request.Context(), SignRequest{
		DocumentName: c.Param("name"),
		SignerName:   identity.Name,
		Institution:  h.institution,
		Role:         c.PostForm("role"),
		CertPEM:      certPEM,
		KeyPEM:       keyPEM,
		Passphrase:   []byte(passphrase),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
	case errors.Is(err, credentials.ErrInvalidCertificate),
		errors.Is(err, credentials.ErrInvalidPassphraseOrKey),
		errors.Is(err, stamp.ErrNotAPDF):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrAlreadySigned):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func formFileBytes(c *gin.Context, field string) ([]byte, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

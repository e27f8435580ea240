package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"clipstream/server/internal/ids"
	"clipstream/server/internal/media/sniffer"
	"clipstream/server/internal/middleware"
	"clipstream/server/internal/models"
	"clipstream/server/internal/security"
)

type mediaResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	MimeType         string    `json:"mimeType"`
	SizeBytes        int64     `json:"sizeBytes"`
	DurationSeconds  int       `json:"durationSeconds,omitempty"`
	SensitivityLevel string    `json:"sensitivityLevel,omitempty"`
	Status           string    `json:"status"`
	Progress         int       `json:"progress"`
	CreatedAt        time.Time `json:"createdAt"`
}

func toMediaResponse(m models.Media) mediaResponse {
	return mediaResponse{
		ID:               m.ID,
		Title:            m.Title,
		Description:      m.Description,
		MimeType:         m.MimeType,
		SizeBytes:        m.SizeBytes,
		DurationSeconds:  m.DurationSeconds,
		SensitivityLevel: string(m.SensitivityLevel),
		Status:           string(m.Status),
		Progress:         m.Progress,
		CreatedAt:        m.CreatedAt,
	}
}

// Upload lands the file in the originals directory, creates the record and
// hands it to the queue. Each successful upload triggers exactly one job.
func (h HandlerSet) Upload(c *gin.Context) {
	claims, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_required"})
		return
	}
	defer file.Close()

	result, head, err := sniffer.Detect(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_media_type"})
		return
	}

	declared := sniffer.MimeTypeFromHTTP(http.Header(header.Header))
	if declared != "" && declared != result.MIME {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("content type mismatch: declared %s, actual %s", declared, result.MIME),
		})
		return
	}

	mediaID := ids.New()
	if err := os.MkdirAll(h.cfg.Storage.OriginalsDir, 0o755); err != nil {
		h.log.Error().Err(err).Msg("originals dir")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_unavailable"})
		return
	}

	originalPath := filepath.Join(h.cfg.Storage.OriginalsDir, fmt.Sprintf("%s.%s", mediaID, result.Type))
	size, err := saveUpload(originalPath, head, file)
	if err != nil {
		h.log.Error().Err(err).Str("media_id", mediaID).Msg("save upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save_failed"})
		return
	}

	title := c.PostForm("title")
	if title == "" {
		title = header.Filename
	}

	m := models.Media{
		ID:           mediaID,
		TenantID:     claims.TenantID,
		OwnerID:      claims.UserID,
		Title:        title,
		Description:  c.PostForm("description"),
		MimeType:     result.MIME,
		SizeBytes:    size,
		OriginalPath: originalPath,
		Status:       models.MediaStatusUploaded,
	}

	if err := h.media.Create(c.Request.Context(), m); err != nil {
		_ = os.Remove(originalPath)
		h.log.Error().Err(err).Str("media_id", mediaID).Msg("create record failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save_failed"})
		return
	}

	h.queue.Enqueue(mediaID, claims.UserID)

	c.JSON(http.StatusCreated, gin.H{"media": toMediaResponse(m)})
}

// saveUpload writes the already-sniffed head bytes followed by the rest of
// the stream.
func saveUpload(path string, head []byte, rest io.Reader) (int64, error) {
	dst, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer dst.Close()

	n, err := dst.Write(head)
	if err != nil {
		return int64(n), err
	}
	copied, err := io.Copy(dst, rest)
	return int64(n) + copied, err
}

func (h HandlerSet) Get(c *gin.Context) {
	claims, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	m, err := h.media.GetForTenant(c.Request.Context(), c.Param("id"), claims.TenantID)
	if err != nil {
		if errors.Is(err, models.ErrMediaNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		h.log.Error().Err(err).Msg("get media failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"media": toMediaResponse(m)})
}

func (h HandlerSet) List(c *gin.Context) {
	claims, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	items, err := h.media.ListByTenant(c.Request.Context(), claims.TenantID, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("list media failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	resp := make([]mediaResponse, 0, len(items))
	for _, m := range items {
		resp = append(resp, toMediaResponse(m))
	}
	c.JSON(http.StatusOK, gin.H{"media": resp})
}

func (h HandlerSet) Delete(c *gin.Context) {
	claims, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	m, err := h.media.GetForTenant(c.Request.Context(), c.Param("id"), claims.TenantID)
	if err != nil {
		if errors.Is(err, models.ErrMediaNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	if m.OwnerID != claims.UserID && claims.Role != security.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	if err := h.media.Delete(c.Request.Context(), m.ID); err != nil {
		h.log.Error().Err(err).Str("media_id", m.ID).Msg("delete record failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	// Best-effort file cleanup after the record is gone.
	for _, path := range []string{m.OriginalPath, m.ProcessedPath, m.ThumbnailPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			h.log.Warn().Err(err).Str("path", path).Msg("file cleanup failed")
		}
	}

	c.Status(http.StatusNoContent)
}

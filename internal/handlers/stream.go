package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"

	"clipstream/server/internal/middleware"
	"clipstream/server/internal/models"
)

var rangePattern = regexp.MustCompile(`^bytes=(\d+)-(\d*)$`)

// byteRange is an inclusive span within a file.
type byteRange struct {
	start int64
	end   int64
}

// parseRange accepts exactly `bytes=<start>-[<end>]`. A malformed or
// out-of-bounds range yields ok=false and the caller degrades to a full
// 200 response; range errors are never surfaced to the client.
func parseRange(header string, size int64) (byteRange, bool) {
	matches := rangePattern.FindStringSubmatch(header)
	if matches == nil {
		return byteRange{}, false
	}

	start, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return byteRange{}, false
	}

	end := size - 1
	if matches[2] != "" {
		end, err = strconv.ParseInt(matches[2], 10, 64)
		if err != nil {
			return byteRange{}, false
		}
	}

	if start < 0 || start > end || end >= size {
		return byteRange{}, false
	}
	return byteRange{start: start, end: end}, true
}

// Stream serves the derivative (or the original as fallback) with
// byte-range support. Registered for both GET and HEAD; HEAD performs the
// same resolution and auth but sends headers only.
func (h HandlerSet) Stream(c *gin.Context) {
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
		h.log.Error().Err(err).Msg("resolve media failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	if !m.Status.Streamable() {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "not_ready",
			"status": string(m.Status),
		})
		return
	}

	path := m.PlayablePath()
	if path == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "file_not_found"})
		return
	}

	f, err := os.Open(path)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file_not_found"})
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	size := stat.Size()

	contentType := m.MimeType
	if m.ProcessedPath != "" && path == m.ProcessedPath {
		contentType = "video/mp4"
	}

	w := c.Writer
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Accept-Ranges", "bytes")

	rng, partial := byteRange{}, false
	if header := c.GetHeader("Range"); header != "" {
		rng, partial = parseRange(header, size)
	}

	if !partial {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes 0-%d/%d", size-1, size))
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if c.Request.Method == http.MethodHead {
			return
		}
		if _, err := io.Copy(w, f); err != nil {
			h.log.Debug().Err(err).Str("media_id", m.ID).Msg("stream aborted")
		}
		return
	}

	length := rng.end - rng.start + 1
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.start, rng.end, size))
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(http.StatusPartialContent)
	if c.Request.Method == http.MethodHead {
		return
	}

	if _, err := f.Seek(rng.start, io.SeekStart); err != nil {
		h.log.Error().Err(err).Str("media_id", m.ID).Msg("seek failed")
		return
	}
	if _, err := io.CopyN(w, f, length); err != nil {
		h.log.Debug().Err(err).Str("media_id", m.ID).Msg("stream aborted")
	}
}

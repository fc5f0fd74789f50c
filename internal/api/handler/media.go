package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/podsum/internal/storage"
)

// MediaHandler serves stored artifacts over HTTP.
type MediaHandler struct {
	store storage.ArtifactStore
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(store storage.ArtifactStore) *MediaHandler {
	return &MediaHandler{store: store}
}

// Serve streams the named artifact from the job's namespace.
func (h *MediaHandler) Serve(c *gin.Context) {
	jobID := c.Param("job_id")
	name := c.Param("name")

	data, err := h.store.Read(c.Request.Context(), jobID, name)
	if err != nil {
		if errors.Is(err, storage.ErrArtifactNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "media file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read media file"})
		return
	}

	c.Data(http.StatusOK, storage.ContentTypeFor(name), data)
}

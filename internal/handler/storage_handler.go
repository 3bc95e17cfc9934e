package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/storage"
	"github.com/Maldo155/gta-mlo-map-sub001/pkg/response"
)

// ObjectReader fetches stored images
type ObjectReader interface {
	Get(ctx context.Context, key string) (*storage.Object, error)
}

// StorageHandler serves uploaded banners and MLO images
type StorageHandler struct {
	objects ObjectReader
}

// NewStorageHandler creates a new storage handler
func NewStorageHandler(objects ObjectReader) *StorageHandler {
	return &StorageHandler{objects: objects}
}

// Serve handles GET /storage/*key
func (h *StorageHandler) Serve(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || strings.Contains(key, "..") {
		response.NotFound(c, "Object not found")
		return
	}

	obj, err := h.objects.Get(c.Request.Context(), key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		response.NotFound(c, "Object not found")
		return
	}
	if err != nil {
		response.InternalError(c, "Failed to read object", err)
		return
	}

	// Keys embed a random suffix, so content under a key never changes.
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Header("Content-Length", strconv.Itoa(len(obj.Data)))
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, obj.ContentType, obj.Data)
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/middleware"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/models"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/service"
	"github.com/Maldo155/gta-mlo-map-sub001/pkg/response"
)

// MLOHandler handles HTTP requests for map assets
type MLOHandler struct {
	mloService     *service.MLOService
	maxUploadBytes int64
}

// NewMLOHandler creates a new MLO handler
func NewMLOHandler(mloService *service.MLOService, maxUploadBytes int64) *MLOHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = service.DefaultMaxUploadBytes
	}
	return &MLOHandler{
		mloService:     mloService,
		maxUploadBytes: maxUploadBytes,
	}
}

// Create handles POST /api/v1/mlos
func (h *MLOHandler) Create(c *gin.Context) {
	var req models.CreateMLORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	mlo, err := h.mloService.Create(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, mlo)
}

// List handles GET /api/v1/mlos
func (h *MLOHandler) List(c *gin.Context) {
	var filter models.MLOFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		bindError(c, err)
		return
	}

	page, err := h.mloService.List(c.Request.Context(), middleware.ActorFrom(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, page)
}

// Get handles GET /api/v1/mlos/:id
func (h *MLOHandler) Get(c *gin.Context) {
	mlo, err := h.mloService.Get(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, mlo)
}

// SetStatus handles PATCH /api/v1/mlos/:id/status
func (h *MLOHandler) SetStatus(c *gin.Context) {
	var req models.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	mlo, err := h.mloService.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, mlo)
}

// Delete handles DELETE /api/v1/mlos/:id
func (h *MLOHandler) Delete(c *gin.Context) {
	if err := h.mloService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

// UploadImage handles POST /api/v1/mlos/:id/image
func (h *MLOHandler) UploadImage(c *gin.Context) {
	data, err := readUpload(c, h.maxUploadBytes)
	if err != nil {
		writeError(c, err)
		return
	}

	mlo, err := h.mloService.SetImage(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), data)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, mlo)
}

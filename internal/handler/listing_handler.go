package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/middleware"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/models"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/service"
	"github.com/Maldo155/gta-mlo-map-sub001/pkg/response"
)

// ListingHandler handles HTTP requests for server listings
type ListingHandler struct {
	listingService *service.ListingService
	maxUploadBytes int64
}

// NewListingHandler creates a new listing handler
func NewListingHandler(listingService *service.ListingService, maxUploadBytes int64) *ListingHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = service.DefaultMaxUploadBytes
	}
	return &ListingHandler{
		listingService: listingService,
		maxUploadBytes: maxUploadBytes,
	}
}

// Create handles POST /api/v1/listings
func (h *ListingHandler) Create(c *gin.Context) {
	var req models.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	listing, err := h.listingService.Create(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, listing)
}

// List handles GET /api/v1/listings
func (h *ListingHandler) List(c *gin.Context) {
	var filter models.ListingFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		bindError(c, err)
		return
	}

	page, err := h.listingService.List(c.Request.Context(), middleware.ActorFrom(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, page)
}

// Get handles GET /api/v1/listings/:id
func (h *ListingHandler) Get(c *gin.Context) {
	listing, err := h.listingService.Get(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, listing)
}

// Update handles PUT /api/v1/listings/:id
func (h *ListingHandler) Update(c *gin.Context) {
	var req models.UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	listing, err := h.listingService.Update(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, listing)
}

// SetStatus handles PATCH /api/v1/listings/:id/status
func (h *ListingHandler) SetStatus(c *gin.Context) {
	var req models.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	listing, err := h.listingService.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, listing)
}

// Delete handles DELETE /api/v1/listings/:id
func (h *ListingHandler) Delete(c *gin.Context) {
	if err := h.listingService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

// UploadBanner handles POST /api/v1/listings/:id/banner
func (h *ListingHandler) UploadBanner(c *gin.Context) {
	data, err := readUpload(c, h.maxUploadBytes)
	if err != nil {
		writeError(c, err)
		return
	}

	listing, err := h.listingService.SetBanner(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), data)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, listing)
}

// ServerStatus handles GET /api/v1/listings/:id/status
func (h *ListingHandler) ServerStatus(c *gin.Context) {
	status, err := h.listingService.ServerStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=30")
	response.Success(c, status)
}

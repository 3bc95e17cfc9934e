package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/middleware"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/models"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/service"
	"github.com/Maldo155/gta-mlo-map-sub001/pkg/response"
)

// claimBodyLimit caps the wizard request bodies; field checks belong to the claim service.
const claimBodyLimit = 4 << 10

// ClaimHandler handles the listing ownership wizard
type ClaimHandler struct {
	claimService *service.ClaimService
}

// NewClaimHandler creates a new claim handler
func NewClaimHandler(claimService *service.ClaimService) *ClaimHandler {
	return &ClaimHandler{claimService: claimService}
}

// RequestPin handles POST /api/v1/listings/:id/claim/request-pin
func (h *ClaimHandler) RequestPin(c *gin.Context) {
	var req models.RequestPinRequest
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, claimBodyLimit)
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	actor := middleware.ActorFrom(c)
	issued, err := h.claimService.RequestPin(c.Request.Context(), c.Param("id"), actor.UserID, req.WebhookURL)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, issued)
}

// VerifyPin handles POST /api/v1/listings/:id/claim/verify
func (h *ClaimHandler) VerifyPin(c *gin.Context) {
	var req models.VerifyPinRequest
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, claimBodyLimit)
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	actor := middleware.ActorFrom(c)
	if err := h.claimService.VerifyPin(c.Request.Context(), c.Param("id"), actor.UserID, req.Pin); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"claimed": true, "claimedByUserId": actor.UserID})
}

// Reset handles POST /api/v1/listings/:id/claim/reset
func (h *ClaimHandler) Reset(c *gin.Context) {
	if err := h.claimService.ResetClaim(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"claimed": false})
}

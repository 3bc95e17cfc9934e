package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/models"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/service"
	"github.com/Maldo155/gta-mlo-map-sub001/pkg/response"
)

const defaultNearbyRadius = 128.0

// MapHandler handles the coordinate engine endpoints
type MapHandler struct {
	mapService *service.MapService
}

// NewMapHandler creates a new map handler
func NewMapHandler(mapService *service.MapService) *MapHandler {
	return &MapHandler{mapService: mapService}
}

// Config handles GET /api/v1/map/config
func (h *MapHandler) Config(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=86400")
	response.Success(c, h.mapService.Config())
}

// Search handles GET /api/v1/map/search?x=&y=
func (h *MapHandler) Search(c *gin.Context) {
	x, err := queryFloat(c, "x")
	if err != nil {
		writeError(c, err)
		return
	}
	y, err := queryFloat(c, "y")
	if err != nil {
		writeError(c, err)
		return
	}

	pixel, err := h.mapService.Search(x, y)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"pixel": pixel})
}

// Locate handles POST /api/v1/map/locate
func (h *MapHandler) Locate(c *gin.Context) {
	var req models.LocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	game, err := h.mapService.Locate(*req.PX, *req.PY)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"game": game})
}

// Markers handles GET /api/v1/map/markers
func (h *MapHandler) Markers(c *gin.Context) {
	set, err := h.mapService.Markers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, set)
}

// MarkersGeoJSON handles GET /api/v1/map/markers.geojson
func (h *MapHandler) MarkersGeoJSON(c *gin.Context) {
	fc, err := h.mapService.GeoJSON(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	body, err := fc.MarshalJSON()
	if err != nil {
		response.InternalError(c, "Failed to encode GeoJSON", err)
		return
	}

	c.Data(http.StatusOK, "application/geo+json", body)
}

// Nearby handles GET /api/v1/map/nearby?px=&py=&radius=
func (h *MapHandler) Nearby(c *gin.Context) {
	px, err := queryFloat(c, "px")
	if err != nil {
		writeError(c, err)
		return
	}
	py, err := queryFloat(c, "py")
	if err != nil {
		writeError(c, err)
		return
	}
	radius := defaultNearbyRadius
	if c.Query("radius") != "" {
		if radius, err = queryFloat(c, "radius"); err != nil {
			writeError(c, err)
			return
		}
	}

	markers, err := h.mapService.Nearby(c.Request.Context(), px, py, radius)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"markers": markers})
}

func queryFloat(c *gin.Context, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", service.ErrInvalidCoordinates, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", service.ErrInvalidCoordinates, name)
	}
	return v, nil
}

package models

import (
	"time"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/spatial"
)

// MLO is a user-submitted map asset placed on the interactive map.
// X and Y are true game coordinates.
type MLO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Creator     string    `json:"creator"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	WebsiteURL  string    `json:"websiteUrl,omitempty"`
	ImageKey    string    `json:"imageKey,omitempty"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Status      string    `json:"status"`
	SubmittedBy string    `json:"submittedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateMLORequest is the body of POST /api/v1/mlos. Either the game
// coordinates (x, y) or a map click (px, py) must be given.
type CreateMLORequest struct {
	Title       string   `json:"title" binding:"required,max=120"`
	Creator     string   `json:"creator" binding:"max=100"`
	Description string   `json:"description" binding:"max=4000"`
	Category    string   `json:"category" binding:"max=50"`
	WebsiteURL  string   `json:"websiteUrl" binding:"omitempty,url,max=300"`
	X           *float64 `json:"x"`
	Y           *float64 `json:"y"`
	PX          *float64 `json:"px"`
	PY          *float64 `json:"py"`
}

// MLOFilter represents filter parameters for querying MLOs
type MLOFilter struct {
	Query    string `form:"q"`
	Category string `form:"category"`
	Creator  string `form:"creator"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// Marker is an approved MLO placed on the raster
type Marker struct {
	ID       string             `json:"id"`
	Title    string             `json:"title"`
	Category string             `json:"category"`
	ImageKey string             `json:"imageKey,omitempty"`
	Game     spatial.WorldPoint `json:"game"`
	Pixel    spatial.MapPoint   `json:"pixel"`
}

// MapPosition implements spatial.Placed
func (m Marker) MapPosition() spatial.MapPoint {
	return m.Pixel
}

// MarkerSet is the response of GET /api/v1/map/markers
type MarkerSet struct {
	Markers     []Marker          `json:"markers"`
	TopLeft     *spatial.MapPoint `json:"topLeft,omitempty"`
	BottomRight *spatial.MapPoint `json:"bottomRight,omitempty"`
}

// LocateRequest is the body of POST /api/v1/map/locate
type LocateRequest struct {
	PX *float64 `json:"px" binding:"required"`
	PY *float64 `json:"py" binding:"required"`
}

// Page wraps a paginated result
type Page[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

// NormalizePage applies the default and maximum page sizes
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}

// NewPage computes pagination info the same way for every list endpoint
func NewPage[T any](data []T, total int64, page, pageSize int) Page[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize > 0 {
			totalPages++
		}
	}
	return Page[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

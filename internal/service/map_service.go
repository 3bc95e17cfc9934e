package service

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/models"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/spatial"
)

// MaxNearbyRadius caps the pixel radius of nearby queries
const MaxNearbyRadius = 2048.0

// MarkerSource lists the MLOs shown on the map
type MarkerSource interface {
	ListApproved(ctx context.Context) ([]models.MLO, error)
}

// MapService places MLOs on the map raster
type MapService struct {
	source MarkerSource
}

// NewMapService creates a new map service
func NewMapService(source MarkerSource) *MapService {
	return &MapService{source: source}
}

// Config returns the raster size and the world box it covers
func (s *MapService) Config() spatial.Bounds {
	return spatial.MapBounds()
}

// Search places a true game coordinate on the raster
func (s *MapService) Search(x, y float64) (spatial.MapPoint, error) {
	if !spatial.IsFinite(x, y) {
		return spatial.MapPoint{}, fmt.Errorf("%w: x and y must be finite", ErrInvalidCoordinates)
	}
	return spatial.GTAToMap(spatial.WorldPoint{X: x, Y: y}), nil
}

// Locate converts a raster pixel to true game coordinates
func (s *MapService) Locate(px, py float64) (spatial.WorldPoint, error) {
	p := spatial.MapPoint{X: px, Y: py}
	if !spatial.IsFinite(px, py) || !spatial.InMapBounds(p) {
		return spatial.WorldPoint{}, fmt.Errorf("%w: pixel outside the map", ErrInvalidCoordinates)
	}
	return spatial.MapToGTA(p), nil
}

// Markers returns every approved MLO with its pixel position and the
// bounding box of all markers
func (s *MapService) Markers(ctx context.Context) (*models.MarkerSet, error) {
	markers, err := s.markers(ctx)
	if err != nil {
		return nil, err
	}

	set := &models.MarkerSet{Markers: markers}
	points := make([]spatial.MapPoint, len(markers))
	for i, m := range markers {
		points[i] = m.Pixel
	}
	if tl, br, ok := spatial.BoundingBox(points); ok {
		set.TopLeft, set.BottomRight = &tl, &br
	}
	return set, nil
}

// Nearby returns approved MLOs within radius pixels of (px, py), nearest first
func (s *MapService) Nearby(ctx context.Context, px, py, radius float64) ([]models.Marker, error) {
	if !spatial.IsFinite(px, py) || !spatial.IsFinite(radius, 0) || radius < 0 || radius > MaxNearbyRadius {
		return nil, fmt.Errorf("%w: px, py and radius (0..%g) must be finite", ErrInvalidCoordinates, MaxNearbyRadius)
	}
	markers, err := s.markers(ctx)
	if err != nil {
		return nil, err
	}
	return spatial.WithinRadius(markers, spatial.MapPoint{X: px, Y: py}, radius), nil
}

// GeoJSON exports approved MLOs as point features in true game coordinates
func (s *MapService) GeoJSON(ctx context.Context) (*geojson.FeatureCollection, error) {
	mlos, err := s.source.ListApproved(ctx)
	if err != nil {
		return nil, err
	}

	fc := geojson.NewFeatureCollection()
	for _, m := range mlos {
		f := geojson.NewFeature(orb.Point{m.X, m.Y})
		f.ID = m.ID
		f.Properties["title"] = m.Title
		f.Properties["creator"] = m.Creator
		f.Properties["category"] = m.Category
		if m.ImageKey != "" {
			f.Properties["imageKey"] = m.ImageKey
		}
		pixel := spatial.GTAToMap(spatial.WorldPoint{X: m.X, Y: m.Y})
		f.Properties["px"] = pixel.X
		f.Properties["py"] = pixel.Y
		fc.Append(f)
	}
	return fc, nil
}

func (s *MapService) markers(ctx context.Context) ([]models.Marker, error) {
	mlos, err := s.source.ListApproved(ctx)
	if err != nil {
		return nil, err
	}

	markers := make([]models.Marker, len(mlos))
	for i, m := range mlos {
		game := spatial.WorldPoint{X: m.X, Y: m.Y}
		markers[i] = models.Marker{
			ID:       m.ID,
			Title:    m.Title,
			Category: m.Category,
			ImageKey: m.ImageKey,
			Game:     game,
			Pixel:    spatial.GTAToMap(game),
		}
	}
	return markers, nil
}

package spatial

import (
	"sort"

	"github.com/golang/geo/r2"
)

// Placed is anything that has a position on the map raster.
type Placed interface {
	MapPosition() MapPoint
}

// Distance returns the pixel distance between two map points.
func Distance(a, b MapPoint) float64 {
	return r2.Point{X: a.X, Y: a.Y}.Sub(r2.Point{X: b.X, Y: b.Y}).Norm()
}

// WithinRadius returns the items whose map position lies within radius pixels
// of center, nearest first. Ties keep their input order.
func WithinRadius[T Placed](items []T, center MapPoint, radius float64) []T {
	type hit struct {
		item T
		dist float64
	}

	var hits []hit
	for _, item := range items {
		d := Distance(item.MapPosition(), center)
		if d <= radius {
			hits = append(hits, hit{item: item, dist: d})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].dist < hits[j].dist
	})

	result := make([]T, len(hits))
	for i, h := range hits {
		result[i] = h.item
	}
	return result
}

// BoundingBox returns the top-left and bottom-right corners of the smallest
// pixel rectangle holding all points. ok is false for an empty input.
func BoundingBox(points []MapPoint) (topLeft, bottomRight MapPoint, ok bool) {
	if len(points) == 0 {
		return MapPoint{}, MapPoint{}, false
	}

	pts := make([]r2.Point, len(points))
	for i, p := range points {
		pts[i] = r2.Point{X: p.X, Y: p.Y}
	}
	rect := r2.RectFromPoints(pts...)

	return MapPoint{X: rect.X.Lo, Y: rect.Y.Lo}, MapPoint{X: rect.X.Hi, Y: rect.Y.Hi}, true
}

package spatial

import (
	"fmt"
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
)

// MapSize is the side length in pixels of the square map raster. It must match
// the served image exactly.
const MapSize = 8192.0

// World bounds of the map raster in engine-world units. The box is square so
// both axes share the same pixel scale.
const (
	WorldMinX = -6000.0
	WorldMaxX = 6000.0
	WorldMinY = -8000.0
	WorldMaxY = 4000.0
)

// Coarse calibration from estimated game coordinates to engine-world units.
// ScaleY is negative: game Y grows opposite to engine Y.
const (
	ScaleX  = 1.0012
	OffsetX = 3.75
	ScaleY  = -0.9987
	OffsetY = -2.5
)

// CoordinatePrecision is the number of decimals kept for stored coordinates.
const CoordinatePrecision = 4

// WorldPoint is a point in one of the world-like spaces (true game, estimated
// game or engine-world coordinates).
type WorldPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MapPoint is a pixel position on the map raster.
type MapPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// affine2 is estimated = M·p + t for a 2x2 matrix M = [[a, b], [c, d]].
type affine2 struct {
	a, b, c, d float64
	t          r2.Point
}

func (m affine2) apply(p r2.Point) r2.Point {
	return r2.Point{
		X: m.a*p.X + m.b*p.Y + m.t.X,
		Y: m.c*p.X + m.d*p.Y + m.t.Y,
	}
}

// inverse returns the exact algebraic inverse. It panics on a singular matrix,
// which can only happen if the calibration constants below are edited badly.
func (m affine2) inverse() affine2 {
	det := m.a*m.d - m.b*m.c
	if det == 0 {
		panic(fmt.Sprintf("spatial: singular correction matrix %+v", m))
	}
	inv := affine2{
		a: m.d / det,
		b: -m.b / det,
		c: -m.c / det,
		d: m.a / det,
	}
	// p = M⁻¹(e - t) = M⁻¹e - M⁻¹t
	inv.t = r2.Point{
		X: -(inv.a*m.t.X + inv.b*m.t.Y),
		Y: -(inv.c*m.t.X + inv.d*m.t.Y),
	}
	return inv
}

var (
	// trueToEstimated is the fine correction fitted against surveyed reference points.
	trueToEstimated = affine2{
		a: 1.0021, b: -0.0034,
		c: 0.0029, d: 0.9978,
		t: r2.Point{X: -6.4, Y: 11.2},
	}
	estimatedToTrue = trueToEstimated.inverse()

	worldBounds = r2.Rect{
		X: r1.Interval{Lo: WorldMinX, Hi: WorldMaxX},
		Y: r1.Interval{Lo: WorldMinY, Hi: WorldMaxY},
	}
	mapBounds = r2.Rect{
		X: r1.Interval{Lo: 0, Hi: MapSize},
		Y: r1.Interval{Lo: 0, Hi: MapSize},
	}
)

// WorldToMap converts engine-world coordinates to map pixels. Points outside
// the world bounds are pinned to the map edge.
func WorldToMap(p WorldPoint) MapPoint {
	c := worldBounds.ClampPoint(r2.Point{X: p.X, Y: p.Y})
	return MapPoint{
		X: (c.X - worldBounds.X.Lo) / worldBounds.X.Length() * MapSize,
		Y: (worldBounds.Y.Hi - c.Y) / worldBounds.Y.Length() * MapSize,
	}
}

// MapToWorld converts map pixels back to engine-world coordinates. Only valid
// for pixels inside [0, MapSize]².
func MapToWorld(p MapPoint) WorldPoint {
	return WorldPoint{
		X: worldBounds.X.Lo + p.X/MapSize*worldBounds.X.Length(),
		Y: worldBounds.Y.Hi - p.Y/MapSize*worldBounds.Y.Length(),
	}
}

// GTAToWorld applies the coarse per-axis calibration.
func GTAToWorld(p WorldPoint) WorldPoint {
	return WorldPoint{
		X: p.X*ScaleX + OffsetX,
		Y: p.Y*ScaleY + OffsetY,
	}
}

// WorldToGTA is the inverse of GTAToWorld.
func WorldToGTA(p WorldPoint) WorldPoint {
	return WorldPoint{
		X: (p.X - OffsetX) / ScaleX,
		Y: (p.Y - OffsetY) / ScaleY,
	}
}

// TrueGTAToEstimated applies the fine correction layer.
func TrueGTAToEstimated(p WorldPoint) WorldPoint {
	e := trueToEstimated.apply(r2.Point{X: p.X, Y: p.Y})
	return WorldPoint{X: e.X, Y: e.Y}
}

// EstimatedGTAToTrue undoes the fine correction layer.
func EstimatedGTAToTrue(p WorldPoint) WorldPoint {
	t := estimatedToTrue.apply(r2.Point{X: p.X, Y: p.Y})
	return WorldPoint{X: t.X, Y: t.Y}
}

// GTAToMap places a true game coordinate on the map raster.
func GTAToMap(p WorldPoint) MapPoint {
	return WorldToMap(GTAToWorld(TrueGTAToEstimated(p)))
}

// MapToGTA converts a map click into true game coordinates rounded to the
// stored precision.
func MapToGTA(p MapPoint) WorldPoint {
	t := EstimatedGTAToTrue(WorldToGTA(MapToWorld(p)))
	return WorldPoint{
		X: Round(t.X, CoordinatePrecision),
		Y: Round(t.Y, CoordinatePrecision),
	}
}

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}

// IsFinite reports whether both components are neither NaN nor infinite.
func IsFinite(x, y float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0) && !math.IsNaN(y) && !math.IsInf(y, 0)
}

// InMapBounds reports whether p lies on the raster.
func InMapBounds(p MapPoint) bool {
	return mapBounds.ContainsPoint(r2.Point{X: p.X, Y: p.Y})
}

// Bounds describes the raster and the world box it covers.
type Bounds struct {
	MapSize float64 `json:"mapSize"`
	MinX    float64 `json:"minX"`
	MaxX    float64 `json:"maxX"`
	MinY    float64 `json:"minY"`
	MaxY    float64 `json:"maxY"`
}

// MapBounds returns the fixed raster configuration.
func MapBounds() Bounds {
	return Bounds{
		MapSize: MapSize,
		MinX:    WorldMinX,
		MaxX:    WorldMaxX,
		MinY:    WorldMinY,
		MaxY:    WorldMaxY,
	}
}

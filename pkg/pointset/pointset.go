// Package pointset is a pointlinkage.PointSet backed by a GeoJSON
// FeatureCollection of Point features — the external-collaborator shape
// spec.md §6 describes for a point set (featureCount, getLat(i), getLon(i)),
// fed from whatever evaluation grid, point-of-interest list, or stop table a
// caller has serialized as GeoJSON rather than a transit feed.
package pointset

import (
	"fmt"
	"io"

	"github.com/paulmach/go.geojson"

	"github.com/azybler/streetrouter/pkg/geo"
)

// PointSet holds one lat/lon pair per Point feature in a FeatureCollection,
// in fixed-point degrees (x1e7) matching this module's other coordinate
// storage, and implements pointlinkage.PointSet.
type PointSet struct {
	fixedLat []int32
	fixedLon []int32
}

// FromFeatureCollection builds a PointSet from an already-parsed
// FeatureCollection, skipping any feature whose geometry isn't a bare
// Point (MultiPoint, LineString, and Polygon features have no single
// coordinate to link against the street network).
func FromFeatureCollection(fc *geojson.FeatureCollection) *PointSet {
	ps := &PointSet{
		fixedLat: make([]int32, 0, len(fc.Features)),
		fixedLon: make([]int32, 0, len(fc.Features)),
	}
	for _, f := range fc.Features {
		if f.Geometry == nil || !f.Geometry.IsPoint() {
			continue
		}
		lon, lat := f.Geometry.Point[0], f.Geometry.Point[1]
		ps.fixedLat = append(ps.fixedLat, geo.ToFixed(lat))
		ps.fixedLon = append(ps.fixedLon, geo.ToFixed(lon))
	}
	return ps
}

// Read parses a GeoJSON FeatureCollection from r and builds a PointSet from
// its Point features.
func Read(r io.Reader) (*PointSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("pointset: read: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("pointset: unmarshal: %w", err)
	}
	return FromFeatureCollection(fc), nil
}

// FeatureCount implements pointlinkage.PointSet.
func (ps *PointSet) FeatureCount() int { return len(ps.fixedLat) }

// GetLat implements pointlinkage.PointSet.
func (ps *PointSet) GetLat(i int) float64 { return geo.ToFloat(ps.fixedLat[i]) }

// GetLon implements pointlinkage.PointSet.
func (ps *PointSet) GetLon(i int) float64 { return geo.ToFloat(ps.fixedLon[i]) }

package boundary

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/county-choropleth/internal/domain"
	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
)

// LoadShapefile reads polygons from a .shp file and their attributes from the
// sibling .dbf file.
func LoadShapefile(path string, opts Options) ([]domain.CountyGeometry, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMissingSourceData, err)
	}
	defer r.Close()

	fipsIdx, nameIdx := -1, -1
	for i, f := range r.Fields() {
		switch strings.TrimSpace(f.String()) {
		case opts.FIPSField:
			fipsIdx = i
		case opts.NameField:
			nameIdx = i
		}
	}
	if fipsIdx < 0 {
		return nil, fmt.Errorf("%w: attribute %q not found", domain.ErrMissingSourceData, opts.FIPSField)
	}
	if nameIdx < 0 {
		return nil, fmt.Errorf("%w: attribute %q not found", domain.ErrMissingSourceData, opts.NameField)
	}

	b := newCollector()
	for r.Next() {
		n, shape := r.Shape()

		fips, err := parseFIPS(r.ReadAttribute(n, fipsIdx))
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", domain.ErrMissingSourceData, n, err)
		}

		geom, err := shapeToGeometry(shape)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d (FIPS %d): %w", domain.ErrMissingSourceData, n, fips, err)
		}

		g := domain.CountyGeometry{
			FIPS:     fips,
			Name:     strings.TrimSpace(r.ReadAttribute(n, nameIdx)),
			Geometry: geom,
		}
		if err := b.add(g); err != nil {
			return nil, err
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMissingSourceData, err)
	}
	return b.result()
}

func shapeToGeometry(s shp.Shape) (orb.Geometry, error) {
	switch p := s.(type) {
	case *shp.Polygon:
		return ringsToGeometry(p.Parts, p.Points)
	case *shp.PolygonZ:
		return ringsToGeometry(p.Parts, p.Points)
	case *shp.PolygonM:
		return ringsToGeometry(p.Parts, p.Points)
	default:
		return nil, fmt.Errorf("unsupported shape %T", s)
	}
}

// ringsToGeometry groups shapefile parts into polygons. Shapefile outer rings
// wind clockwise and holes counter-clockwise; a hole belongs to the outer
// ring preceding it.
func ringsToGeometry(parts []int32, points []shp.Point) (orb.Geometry, error) {
	if len(parts) == 0 || len(points) == 0 {
		return nil, fmt.Errorf("empty polygon")
	}

	var polys orb.MultiPolygon
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start >= end || int(end) > len(points) {
			return nil, fmt.Errorf("invalid part offsets %d..%d", start, end)
		}

		ring := make(orb.Ring, 0, end-start)
		for _, pt := range points[start:end] {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}

		if ring.Orientation() == orb.CCW && len(polys) > 0 {
			last := len(polys) - 1
			polys[last] = append(polys[last], ring)
			continue
		}
		polys = append(polys, orb.Polygon{ring})
	}

	if len(polys) == 1 {
		return polys[0], nil
	}
	return polys, nil
}

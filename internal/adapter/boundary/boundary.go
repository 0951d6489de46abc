// Package boundary loads county boundary geometries from a shapefile or a
// GeoJSON FeatureCollection.
package boundary

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/county-choropleth/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Options names the attribute columns holding the county identifier and name.
type Options struct {
	FIPSField string
	NameField string
}

// DefaultOptions matches the TIGER/Line 2010 county attribute names.
func DefaultOptions() Options {
	return Options{FIPSField: "GEOID10", NameField: "NAME10"}
}

// Load reads county geometries from path, choosing the reader by extension.
func Load(path string, opts Options) ([]domain.CountyGeometry, error) {
	if opts.FIPSField == "" || opts.NameField == "" {
		return nil, fmt.Errorf("boundary %s: FIPS and name fields are required", path)
	}

	var (
		geoms []domain.CountyGeometry
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".shp":
		geoms, err = LoadShapefile(path, opts)
	case ".geojson", ".json":
		geoms, err = LoadGeoJSON(path, opts)
	default:
		return nil, fmt.Errorf("%w: boundary %s: unsupported extension %q", domain.ErrMissingSourceData, path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("boundary %s: %w", path, err)
	}
	return geoms, nil
}

// LoadGeoJSON reads a GeoJSON FeatureCollection file.
func LoadGeoJSON(path string, opts Options) ([]domain.CountyGeometry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMissingSourceData, err)
	}
	defer f.Close()
	return ReadGeoJSON(f, opts)
}

// ReadGeoJSON decodes a FeatureCollection, one county per feature.
func ReadGeoJSON(r io.Reader, opts Options) ([]domain.CountyGeometry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMissingSourceData, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode geojson: %w", domain.ErrMissingSourceData, err)
	}

	b := newCollector()
	for i, f := range fc.Features {
		fips, err := fipsFromProperty(f.Properties[opts.FIPSField])
		if err != nil {
			return nil, fmt.Errorf("%w: feature %d: %s: %w", domain.ErrMissingSourceData, i, opts.FIPSField, err)
		}
		name, _ := f.Properties[opts.NameField].(string)

		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			return nil, fmt.Errorf("%w: feature %d: unsupported geometry %T", domain.ErrMissingSourceData, i, f.Geometry)
		}

		if err := b.add(domain.CountyGeometry{FIPS: fips, Name: strings.TrimSpace(name), Geometry: f.Geometry}); err != nil {
			return nil, err
		}
	}
	return b.result()
}

func fipsFromProperty(v any) (int, error) {
	switch x := v.(type) {
	case float64:
		if x != float64(int(x)) {
			return 0, fmt.Errorf("not an integer: %v", x)
		}
		return int(x), nil
	case string:
		return parseFIPS(x)
	case nil:
		return 0, fmt.Errorf("missing")
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func parseFIPS(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid FIPS %q", s)
	}
	return n, nil
}

// collector accumulates geometries in file order and rejects repeated FIPS.
type collector struct {
	geoms []domain.CountyGeometry
	seen  map[int]struct{}
}

func newCollector() *collector {
	return &collector{seen: make(map[int]struct{})}
}

func (c *collector) add(g domain.CountyGeometry) error {
	if _, dup := c.seen[g.FIPS]; dup {
		return fmt.Errorf("%w: duplicate FIPS %d", domain.ErrMissingSourceData, g.FIPS)
	}
	c.seen[g.FIPS] = struct{}{}
	c.geoms = append(c.geoms, g)
	return nil
}

func (c *collector) result() ([]domain.CountyGeometry, error) {
	if len(c.geoms) == 0 {
		return nil, fmt.Errorf("%w: no counties", domain.ErrMissingSourceData)
	}
	return c.geoms, nil
}

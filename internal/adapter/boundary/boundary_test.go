package boundary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/county-choropleth/internal/domain"
	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoCounties = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"GEOID10": "13121", "NAME10": "Fulton"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
    {"type": "Feature", "properties": {"GEOID10": 13067, "NAME10": "Cobb"},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[2,0],[3,0],[3,1],[2,1],[2,0]]],[[[4,0],[5,0],[5,1],[4,0]]]]}}
  ]
}`

func TestReadGeoJSON(t *testing.T) {
	geoms, err := ReadGeoJSON(strings.NewReader(twoCounties), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, geoms, 2)

	assert.Equal(t, 13121, geoms[0].FIPS)
	assert.Equal(t, "Fulton", geoms[0].Name)
	assert.IsType(t, orb.Polygon{}, geoms[0].Geometry)

	assert.Equal(t, 13067, geoms[1].FIPS, "numeric FIPS property")
	mp, ok := geoms[1].Geometry.(orb.MultiPolygon)
	require.True(t, ok)
	assert.Len(t, mp, 2)
}

func TestReadGeoJSON_CustomFields(t *testing.T) {
	input := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{"fips":"01001","county":"Autauga"},
	   "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`

	geoms, err := ReadGeoJSON(strings.NewReader(input), Options{FIPSField: "fips", NameField: "county"})
	require.NoError(t, err)
	require.Len(t, geoms, 1)
	assert.Equal(t, 1001, geoms[0].FIPS)
	assert.Equal(t, "Autauga", geoms[0].Name)
}

func TestReadGeoJSON_Errors(t *testing.T) {
	feature := func(props, geom string) string {
		return `{"type":"FeatureCollection","features":[{"type":"Feature","properties":` + props + `,"geometry":` + geom + `}]}`
	}
	poly := `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "not json", input: "{", want: "decode geojson"},
		{name: "no features", input: `{"type":"FeatureCollection","features":[]}`, want: "no counties"},
		{name: "missing fips", input: feature(`{"NAME10":"x"}`, poly), want: "missing"},
		{name: "bad fips", input: feature(`{"GEOID10":"abc"}`, poly), want: "invalid FIPS"},
		{name: "point geometry", input: feature(`{"GEOID10":"1"}`, `{"type":"Point","coordinates":[0,0]}`), want: "unsupported geometry"},
		{
			name:  "duplicate fips",
			input: `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"GEOID10":"1"},"geometry":` + poly + `},{"type":"Feature","properties":{"GEOID10":"1"},"geometry":` + poly + `}]}`,
			want:  "duplicate FIPS 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGeoJSON(strings.NewReader(tt.input), DefaultOptions())
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrMissingSourceData)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_DispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counties.geojson")
	require.NoError(t, os.WriteFile(path, []byte(twoCounties), 0o600))

	geoms, err := Load(path, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, geoms, 2)

	_, err = Load(filepath.Join(dir, "counties.kml"), DefaultOptions())
	require.ErrorIs(t, err, domain.ErrMissingSourceData)
	assert.Contains(t, err.Error(), "unsupported extension")

	_, err = Load(filepath.Join(dir, "absent.geojson"), DefaultOptions())
	assert.ErrorIs(t, err, domain.ErrMissingSourceData)

	_, err = Load(path, Options{})
	assert.Error(t, err)
}

func TestLoadShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counties.shp")
	writeShapefile(t, path)

	geoms, err := Load(path, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, geoms, 2)

	assert.Equal(t, 13121, geoms[0].FIPS)
	assert.Equal(t, "Fulton", geoms[0].Name)
	poly, ok := geoms[0].Geometry.(orb.Polygon)
	require.True(t, ok)
	assert.Len(t, poly, 2, "outer ring plus hole")

	assert.Equal(t, 13067, geoms[1].FIPS)
	_, ok = geoms[1].Geometry.(orb.MultiPolygon)
	assert.True(t, ok)
}

func TestLoadShapefile_MissingAttribute(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counties.shp")
	writeShapefile(t, path)

	_, err := LoadShapefile(path, Options{FIPSField: "COUNTYFP", NameField: "NAME10"})
	require.ErrorIs(t, err, domain.ErrMissingSourceData)
	assert.Contains(t, err.Error(), "COUNTYFP")
}

func TestRingsToGeometry(t *testing.T) {
	// clockwise outer, counter-clockwise hole, clockwise second outer
	outer := []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}}
	hole := []shp.Point{{X: 2, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 4}, {X: 2, Y: 4}, {X: 2, Y: 2}}
	island := []shp.Point{{X: 20, Y: 0}, {X: 20, Y: 5}, {X: 25, Y: 5}, {X: 20, Y: 0}}

	var points []shp.Point
	points = append(points, outer...)
	points = append(points, hole...)
	points = append(points, island...)
	parts := []int32{0, int32(len(outer)), int32(len(outer) + len(hole))}

	geom, err := ringsToGeometry(parts, points)
	require.NoError(t, err)

	mp, ok := geom.(orb.MultiPolygon)
	require.True(t, ok)
	require.Len(t, mp, 2)
	assert.Len(t, mp[0], 2)
	assert.Len(t, mp[1], 1)
	assert.Equal(t, orb.Point{20, 0}, mp[1][0][0])

	_, err = ringsToGeometry(nil, nil)
	assert.Error(t, err)

	_, err = ringsToGeometry([]int32{0, 9}, points[:5])
	assert.Error(t, err)
}

func writeShapefile(t *testing.T, path string) {
	t.Helper()

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("GEOID10", 5),
		shp.StringField("NAME10", 20),
	}))

	withHole := shp.Polygon(*shp.NewPolyLine([][]shp.Point{
		{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}},
		{{X: 2, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 4}, {X: 2, Y: 4}, {X: 2, Y: 2}},
	}))
	twoParts := shp.Polygon(*shp.NewPolyLine([][]shp.Point{
		{{X: 20, Y: 0}, {X: 20, Y: 5}, {X: 25, Y: 5}, {X: 20, Y: 0}},
		{{X: 30, Y: 0}, {X: 30, Y: 5}, {X: 35, Y: 5}, {X: 30, Y: 0}},
	}))

	row := w.Write(&withHole)
	require.NoError(t, w.WriteAttribute(int(row), 0, "13121"))
	require.NoError(t, w.WriteAttribute(int(row), 1, "Fulton"))

	row = w.Write(&twoParts)
	require.NoError(t, w.WriteAttribute(int(row), 0, "13067"))
	require.NoError(t, w.WriteAttribute(int(row), 1, "Cobb"))

	w.Close()
}

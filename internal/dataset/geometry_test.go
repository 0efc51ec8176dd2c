package dataset

import (
	"context"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/suburb-insights/internal/model"
)

const boundariesGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"SA2_CODE21": "206041117", "SA2_NAME21": "Carlton"},
      "geometry": {"type": "Polygon", "coordinates": [[[144.96,-37.80],[144.97,-37.80],[144.97,-37.79],[144.96,-37.79],[144.96,-37.80]]]}
    },
    {
      "type": "Feature",
      "properties": {"sa2_code_2021": 206041118, "sa2_name_2021": "Carlton North - Princes Hill"},
      "geometry": {"type": "MultiPolygon", "coordinates": [[[[144.96,-37.79],[144.98,-37.79],[144.98,-37.78],[144.96,-37.78],[144.96,-37.79]]]]}
    },
    {
      "type": "Feature",
      "properties": {"SA2_CODE21": "206041119"},
      "geometry": null
    },
    {
      "type": "Feature",
      "properties": {"SA2_CODE21": "206041120"},
      "geometry": {"type": "Point", "coordinates": [144.9, -37.8]}
    }
  ]
}`

func TestLoadGeometry_GeoJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "geometry/sa2_simplified.geojson", boundariesGeoJSON)

	tbl, err := NewLoader(testDataConfig(dir)).LoadGeometry(context.Background())
	require.NoError(t, err)
	assert.True(t, tbl.UsedSample)
	require.Equal(t, 2, tbl.Len())

	assert.Equal(t, "206041117", tbl.Rows[0].RawKey)
	assert.Equal(t, "Carlton", tbl.Rows[0].Name)
	assert.IsType(t, &geom.Polygon{}, tbl.Rows[0].Geometry)

	assert.Equal(t, "206041118", tbl.Rows[1].RawKey)
	assert.Equal(t, "Carlton North - Princes Hill", tbl.Rows[1].Name)
	assert.IsType(t, &geom.MultiPolygon{}, tbl.Rows[1].Geometry)

	require.Len(t, tbl.Warnings, 2)
	assert.Equal(t, 3, tbl.Warnings[0].Line)
	assert.Contains(t, tbl.Warnings[0].Message, "no polygon geometry")
	assert.Contains(t, tbl.Warnings[1].Message, "not a polygon")
}

func TestLoadGeometry_Optional(t *testing.T) {
	tbl, err := NewLoader(testDataConfig(t.TempDir())).LoadGeometry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	require.Len(t, tbl.Warnings, 1)
	assert.Equal(t, SourceGeometry, tbl.Warnings[0].Source)
}

func TestLoadGeometry_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "geometry/sa2_full.geojson", `{"type": "FeatureCollection", "features": [`)

	tbl, err := NewLoader(testDataConfig(dir)).LoadGeometry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	require.Len(t, tbl.Warnings, 1)
	assert.Equal(t, 0, tbl.Warnings[0].Line)
	assert.Contains(t, tbl.Warnings[0].Message, "not a GeoJSON FeatureCollection")
}

const malformedFeatureGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"SA2_CODE21": "206041117", "SA2_NAME21": "Carlton"},
      "geometry": {"type": "Polygon", "coordinates": [[[144.96,-37.80],[144.97,-37.80],[144.97,-37.79],[144.96,-37.79],[144.96,-37.80]]]}
    },
    {
      "type": "Feature",
      "properties": {"SA2_CODE21": "206041118"},
      "geometry": {"type": "Polygon", "coordinates": [[144.96,-37.80]]}
    }
  ]
}`

func TestLoadGeometry_MalformedFeatureSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "geometry/sa2_full.geojson", malformedFeatureGeoJSON)

	tbl, err := NewLoader(testDataConfig(dir)).LoadGeometry(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "206041117", tbl.Rows[0].RawKey)
	require.Len(t, tbl.Warnings, 1)
	assert.Equal(t, 2, tbl.Warnings[0].Line)
	assert.Contains(t, tbl.Warnings[0].Message, "invalid feature")
}

// fakeShapes is an in-memory shp.SequentialReader.
type fakeShapes struct {
	fields []shp.Field
	shapes []shp.Shape
	attrs  [][]string
	pos    int
}

func (f *fakeShapes) Close() error { return nil }

func (f *fakeShapes) Next() bool {
	if f.pos >= len(f.shapes) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeShapes) Shape() (int, shp.Shape) { return f.pos - 1, f.shapes[f.pos-1] }

func (f *fakeShapes) Attribute(n int) string { return f.attrs[f.pos-1][n] }

func (f *fakeShapes) Fields() []shp.Field { return f.fields }

func (f *fakeShapes) Err() error { return nil }

func clockwiseSquare(x, y float64) *shp.Polygon {
	pl := shp.NewPolyLine([][]shp.Point{{{X: x, Y: y}, {X: x, Y: y + 1}, {X: x + 1, Y: y + 1}, {X: x + 1, Y: y}, {X: x, Y: y}}})
	p := shp.Polygon(*pl)
	return &p
}

func TestReadShapes(t *testing.T) {
	r := &fakeShapes{
		fields: []shp.Field{shp.StringField("SA2_NAME21", 50), shp.StringField("SA2_CODE21", 9)},
		shapes: []shp.Shape{clockwiseSquare(144, -38), &shp.Point{X: 1, Y: 1}, clockwiseSquare(145, -38)},
		attrs: [][]string{
			{"Carlton\x00\x00", "206041117"},
			{"Dot", "206041118"},
			{"Nowhere", ""},
		},
	}

	tbl := Table[model.BoundaryRecord]{Source: SourceGeometry}
	require.NoError(t, readShapes(r, &tbl))
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "206041117", tbl.Rows[0].RawKey)
	assert.Equal(t, "Carlton", tbl.Rows[0].Name)
	assert.Equal(t, 1, tbl.Rows[0].Line)
	assert.IsType(t, &geom.MultiPolygon{}, tbl.Rows[0].Geometry)

	require.Len(t, tbl.Warnings, 2)
	assert.Equal(t, 2, tbl.Warnings[0].Line)
	assert.Contains(t, tbl.Warnings[1].Message, "no SA2 code")
}

func TestReadShapes_NoKeyField(t *testing.T) {
	r := &fakeShapes{fields: []shp.Field{shp.StringField("NAME", 20)}}

	tbl := Table[model.BoundaryRecord]{Source: SourceGeometry}
	require.NoError(t, readShapes(r, &tbl))
	assert.Equal(t, 0, tbl.Len())
	require.Len(t, tbl.Warnings, 1)
	assert.Contains(t, tbl.Warnings[0].Message, "SA2_CODE21")
}

func TestPropString(t *testing.T) {
	props := map[string]interface{}{"sa2_code21": 206041117.0, "SA2_NAME21": " Carlton ", "empty": nil}
	assert.Equal(t, "206041117", propString(props, boundaryKeyProps))
	assert.Equal(t, "Carlton", propString(props, boundaryNameProps))
	assert.Equal(t, "", propString(props, []string{"empty", "missing"}))
}

func TestPropString_ExactCaseWins(t *testing.T) {
	props := map[string]interface{}{"sa2_code21": "206041999", "SA2_CODE21": "206041117", "Sa2_Code21": "206041888"}
	for i := 0; i < 20; i++ {
		assert.Equal(t, "206041117", propString(props, boundaryKeyProps))
	}

	folded := map[string]interface{}{"sa2_code21": "206041999", "Sa2_Code21": "206041888"}
	for i := 0; i < 20; i++ {
		assert.Equal(t, "206041888", propString(folded, boundaryKeyProps))
	}
}

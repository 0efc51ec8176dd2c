package dataset

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/suburb-insights/internal/fetcher"
	"github.com/sells-group/suburb-insights/internal/geo"
	"github.com/sells-group/suburb-insights/internal/model"
)

var (
	boundaryKeyProps  = []string{"SA2_CODE21", "SA2_CODE_2021", "SA2_MAIN16", "SA2_CODE", "sa2_code"}
	boundaryNameProps = []string{"SA2_NAME21", "SA2_NAME_2021", "SA2_NAME16", "SA2_NAME", "sa2_name"}
)

// LoadGeometry loads SA2 boundaries from GeoJSON, a shapefile, or a ZIP
// holding a shapefile. Paths resolve against the geometry directory, which
// is itself relative to the data directory. The source is optional.
func (l *Loader) LoadGeometry(ctx context.Context) (Table[model.BoundaryRecord], error) {
	tbl := Table[model.BoundaryRecord]{Source: SourceGeometry}
	log := zap.L().With(zap.String("component", "dataset"), zap.String("source", SourceGeometry))

	dir := l.cfg.GeometryDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(l.cfg.Dir, dir)
	}
	res, err := l.resolve(SourceGeometry, dir, l.cfg.Geometry, geometrySchema, true)
	if err != nil {
		return tbl, err
	}
	if res.path == "" {
		tbl.warn(0, "optional source not found, skipped")
		log.Info("optional source not found")
		return tbl, nil
	}
	tbl.Path = res.path
	tbl.UsedSample = res.usedSample

	if err := ctx.Err(); err != nil {
		return tbl, eris.Wrap(err, "dataset: read geometry")
	}

	switch fetcher.Kind(res.path) {
	case fetcher.KindShape:
		err = l.readShapefile(res.path, &tbl)
	case fetcher.KindZIP:
		err = l.readShapeZIP(res.path, &tbl)
	default:
		err = readGeoJSON(res.path, &tbl)
	}
	if err != nil {
		return tbl, eris.Wrap(err, "dataset: read geometry")
	}

	if len(tbl.Warnings) > 0 {
		log.Warn("skipped malformed features", zap.Int("count", len(tbl.Warnings)))
	}
	log.Debug("source loaded", zap.String("path", res.path), zap.Int("features", len(tbl.Rows)))
	return tbl, nil
}

// readGeoJSON decodes features one at a time so a malformed feature is
// skipped with a warning instead of failing the whole collection. A file
// that is not a FeatureCollection at all yields an empty table and one
// warning.
func readGeoJSON(path string, tbl *Table[model.BoundaryRecord]) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "geojson: open %s", path)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &fc); err != nil {
		tbl.warn(0, "not a GeoJSON FeatureCollection: %v", err)
		return nil
	}

	for i, raw := range fc.Features {
		line := i + 1
		var f geojson.Feature
		if err := json.Unmarshal(raw, &f); err != nil {
			tbl.Warnings = append(tbl.Warnings, (&MalformedRowError{Source: SourceGeometry, Line: line, Reason: "invalid feature: " + err.Error()}).Warning())
			continue
		}
		key := propString(f.Properties, boundaryKeyProps)
		if key == "" {
			key = f.ID
		}
		rec := model.BoundaryRecord{Line: line, RawKey: key, Name: propString(f.Properties, boundaryNameProps)}
		if reason := checkBoundary(rec, f.Geometry); reason != "" {
			tbl.Warnings = append(tbl.Warnings, (&MalformedRowError{Source: SourceGeometry, Line: line, Reason: reason}).Warning())
			continue
		}
		rec.Geometry = f.Geometry
		tbl.Rows = append(tbl.Rows, rec)
	}
	return nil
}

func (l *Loader) readShapefile(path string, tbl *Table[model.BoundaryRecord]) error {
	r, err := shp.Open(path)
	if err != nil {
		return eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer r.Close() //nolint:errcheck
	return readShapes(r, tbl)
}

// readShapeZIP reads the first shapefile in a ZIP archive. The archive is
// read in place when it holds exactly one shapefile and extracted otherwise.
func (l *Loader) readShapeZIP(path string, tbl *Table[model.BoundaryRecord]) error {
	if zr, err := shp.OpenZip(path); err == nil {
		defer zr.Close() //nolint:errcheck
		return readShapes(zr, tbl)
	}

	tmp, err := os.MkdirTemp(l.cfg.TempDir, "suburb-shp-*")
	if err != nil {
		return eris.Wrap(err, "shapefile: create temp dir")
	}
	defer os.RemoveAll(tmp) //nolint:errcheck

	shpPath, err := fetcher.ExtractZIPMatching(path, tmp, ".shp")
	if err != nil {
		return eris.Wrapf(err, "shapefile: extract %s", path)
	}
	base := strings.TrimSuffix(filepath.Base(shpPath), filepath.Ext(shpPath))
	for _, ext := range []string{".dbf", ".shx", ".prj"} {
		// Sidecars are optional; the .dbf only supplies attributes.
		_, _ = fetcher.ExtractZIPFile(path, base+ext, tmp)
	}
	return l.readShapefile(shpPath, tbl)
}

func readShapes(r shp.SequentialReader, tbl *Table[model.BoundaryRecord]) error {
	fields := r.Fields()
	keyIdx, nameIdx := fieldIndex(fields, boundaryKeyProps), fieldIndex(fields, boundaryNameProps)
	if keyIdx < 0 {
		tbl.warn(0, "%v", missingColumn("SA2_CODE21", boundaryKeyProps))
		return nil
	}

	for r.Next() {
		n, shape := r.Shape()
		line := n + 1
		rec := model.BoundaryRecord{Line: line, RawKey: dbfString(r.Attribute(keyIdx))}
		if nameIdx >= 0 {
			rec.Name = dbfString(r.Attribute(nameIdx))
		}
		var g geom.T
		if shape != nil {
			g = geo.FromShape(shape)
		}
		if reason := checkBoundary(rec, g); reason != "" {
			tbl.Warnings = append(tbl.Warnings, (&MalformedRowError{Source: SourceGeometry, Line: line, Reason: reason}).Warning())
			continue
		}
		rec.Geometry = g
		tbl.Rows = append(tbl.Rows, rec)
	}
	if err := r.Err(); err != nil {
		return eris.Wrap(err, "shapefile: read")
	}
	return nil
}

func checkBoundary(rec model.BoundaryRecord, g geom.T) string {
	switch {
	case rec.RawKey == "":
		return "feature has no SA2 code"
	case g == nil || g.Empty():
		return "feature has no polygon geometry"
	}
	switch g.(type) {
	case *geom.Polygon, *geom.MultiPolygon:
		return ""
	default:
		return "feature geometry is not a polygon"
	}
}

// dbfString strips the space and NUL padding of a DBF character field.
func dbfString(s string) string {
	return strings.TrimSpace(strings.Trim(s, "\x00"))
}

func fieldIndex(fields []shp.Field, names []string) int {
	for _, want := range names {
		for i, f := range fields {
			if strings.EqualFold(f.String(), want) {
				return i
			}
		}
	}
	return -1
}

// propString returns the first property present under any of names. An
// exact-case key wins over a case-insensitive match; among case-insensitive
// matches the lexically smallest key wins. Numeric codes are formatted
// without a fractional part.
func propString(props map[string]interface{}, names []string) string {
	for _, want := range names {
		if s, ok := propValue(props[want]); ok {
			return s
		}
		var keys []string
		for k := range props {
			if k != want && strings.EqualFold(k, want) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s, ok := propValue(props[k]); ok {
				return s
			}
		}
	}
	return ""
}

func propValue(v interface{}) (string, bool) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case json.Number:
		return x.String(), true
	}
	return "", false
}

package fetcher

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestZIP(t *testing.T, files map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

func TestExtractZIPFile_ByBaseName(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"data/ownership.csv": "a,b",
		"data/seifa.csv":     "c,d",
	})

	path, err := ExtractZIPFile(zipPath, "SEIFA.csv", t.TempDir())
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "c,d", string(data))

	_, err = ExtractZIPFile(zipPath, "vacancy.csv", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestExtractZIPMatching(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"README.txt":             "notes",
		"__MACOSX/._vacancy.csv": "junk",
		"vacancy.csv":            "postcode,vacancy_rate\n2000,1.5\n",
		"zz_later.csv":           "x",
	})

	path, err := ExtractZIPMatching(zipPath, t.TempDir(), ".csv")
	require.NoError(t, err)
	assert.Equal(t, "vacancy.csv", filepath.Base(path))

	_, err = ExtractZIPMatching(zipPath, t.TempDir(), ".xlsx")
	require.Error(t, err)
}

func TestExtractZIP_ZipSlip(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{"../../evil.txt": "pwned"})

	_, err := ExtractZIPMatching(zipPath, t.TempDir(), ".txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip slip")
}

func TestExtractZIP_BadArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := ExtractZIPFile(path, "vacancy.csv", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip: open archive")
}

func TestReadRows_ZIPMember(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"cash_rate.csv": "date,rate\n2024-01-01,4.35\n",
	})

	rows, err := ReadRows(context.Background(), zipPath, ReadOptions{TempDir: t.TempDir()})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2024-01-01", "4.35"}, rows[1].Fields)

	rows, err = ReadRows(context.Background(), zipPath, ReadOptions{Member: "cash_rate.csv", TempDir: t.TempDir()})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestReadRows_MissingFile(t *testing.T) {
	_, err := ReadRows(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), ReadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetcher: open")
}

func TestKind(t *testing.T) {
	assert.Equal(t, KindCSV, Kind("a.csv"))
	assert.Equal(t, KindCSV, Kind("a.tsv"))
	assert.Equal(t, KindXLSX, Kind("A.XLSX"))
	assert.Equal(t, KindZIP, Kind("a.zip"))
	assert.Equal(t, KindShape, Kind("a.shp"))
	assert.Equal(t, KindGeoJSON, Kind("a.geojson"))
}

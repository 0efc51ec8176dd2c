package fetcher

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAll(t *testing.T, in []byte, charset string) string {
	t.Helper()
	r, err := DecodeReader(bytes.NewReader(in), charset)
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestDecodeReader(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		charset string
		want    string
	}{
		{"plain utf8", []byte("code,name\n"), "", "code,name\n"},
		{"utf8 bom stripped", append([]byte{0xEF, 0xBB, 0xBF}, "code,name\n"...), "utf-8", "code,name\n"},
		{"bom beats label", append([]byte{0xEF, 0xBB, 0xBF}, "Café"...), "windows-1252", "Café"},
		{"windows-1252", []byte{'C', 'a', 'f', 0xE9}, "windows-1252", "Café"},
		{"latin1 alias", []byte{'C', 'a', 'f', 0xE9}, "latin1", "Café"},
		{"utf16 little endian with bom", []byte{0xFF, 0xFE, 'a', 0, ',', 0, 'b', 0}, "", "a,b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeAll(t, tt.in, tt.charset))
		})
	}
}

func TestDecodeReader_UnknownCharset(t *testing.T) {
	_, err := DecodeReader(strings.NewReader("x"), "klingon-8")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported charset")
}

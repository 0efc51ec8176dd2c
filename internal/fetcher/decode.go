package fetcher

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeReader wraps r so it yields UTF-8. charset is a WHATWG label
// ("utf-8", "windows-1252", "latin1", "utf-16le"); empty means utf-8. A
// leading byte order mark always wins over the label and is stripped.
func DecodeReader(r io.Reader, charset string) (io.Reader, error) {
	label := strings.TrimSpace(charset)
	if label == "" {
		label = "utf-8"
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, eris.Wrapf(err, "decode: unsupported charset %q", charset)
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

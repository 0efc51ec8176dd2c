package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune // 0 sniffs from the first line
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

// maxRecordLines bounds how many physical lines one quoted record may span
// before its opening quote is treated as stray.
const maxRecordLines = 64

// StreamCSV reads delimited text and sends positioned rows to a channel.
// Caller must consume the returned row channel. Errors are sent on the error channel.
// Both channels are closed when processing completes.
//
// Each record is parsed on its own. A record that fails to parse is sent as
// a Row with Err set, and reading resumes on the line after its first line,
// so one stray quote cannot swallow the rest of the file.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan Row, <-chan error) {
	rowCh := make(chan Row, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		br := bufio.NewReader(r)
		delim := opts.Delimiter
		if delim == 0 {
			delim = sniffDelimiter(br)
		}
		lines := &lineReader{br: br}

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			row, ok, err := nextRecord(lines, delim, opts)
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}
			if !ok {
				return
			}

			select {
			case rowCh <- row:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// nextRecord gathers the physical lines of one record and parses them. ok is
// false at end of input.
func nextRecord(lines *lineReader, delim rune, opts CSVOptions) (Row, bool, error) {
	var first physicalLine
	for {
		l, ok, err := lines.next()
		if err != nil || !ok {
			return Row{}, false, err
		}
		if l.text == "" || (opts.Comment != 0 && strings.HasPrefix(l.text, string(opts.Comment))) {
			continue
		}
		first = l
		break
	}

	text := first.text
	var extra []physicalLine
	for openQuote(text, delim) {
		l, ok, err := lines.next()
		if err != nil {
			return Row{}, false, err
		}
		if !ok || len(extra)+1 >= maxRecordLines {
			if ok {
				extra = append(extra, l)
			}
			lines.unread(extra)
			return Row{Line: first.n, Err: eris.Errorf("line %d: unterminated quoted field", first.n)}, true, nil
		}
		extra = append(extra, l)
		text += "\n" + l.text
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = delim
	cr.LazyQuotes = opts.LazyQuotes
	cr.FieldsPerRecord = -1
	record, err := cr.Read()
	if err == io.EOF {
		return Row{Line: first.n, Fields: []string{""}}, true, nil
	}
	if err != nil {
		return Row{Line: first.n, Err: eris.Errorf("line %d: %v", first.n, err)}, true, nil
	}

	if opts.TrimSpace {
		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}
	}
	return Row{Line: first.n, Fields: record}, true, nil
}

// openQuote reports whether text ends inside a quoted field. Quotes that do
// not start a field are literal, as with csv.Reader.LazyQuotes.
func openQuote(text string, delim rune) bool {
	quoted, fieldStart := false, true
	for i := 0; i < len(text); i++ {
		c := text[i]
		if quoted {
			if c == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					i++
					continue
				}
				quoted = false
			}
			continue
		}
		switch {
		case c == '"' && fieldStart:
			quoted = true
			fieldStart = false
		case rune(c) == delim || c == '\n':
			fieldStart = true
		default:
			fieldStart = false
		}
	}
	return quoted
}

type physicalLine struct {
	n    int
	text string
}

// lineReader yields numbered physical lines without their terminators and
// lets the caller push lines back.
type lineReader struct {
	br      *bufio.Reader
	n       int
	pending []physicalLine
}

func (lr *lineReader) next() (physicalLine, bool, error) {
	if len(lr.pending) > 0 {
		l := lr.pending[0]
		lr.pending = lr.pending[1:]
		return l, true, nil
	}
	s, err := lr.br.ReadString('\n')
	if err != nil && err != io.EOF {
		return physicalLine{}, false, err
	}
	if s == "" && err == io.EOF {
		return physicalLine{}, false, nil
	}
	lr.n++
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return physicalLine{n: lr.n, text: s}, true, nil
}

func (lr *lineReader) unread(lines []physicalLine) {
	lr.pending = append(append([]physicalLine{}, lines...), lr.pending...)
}

// sniffDelimiter picks the most frequent of comma, tab, semicolon and pipe
// in the first line. Ties and empty input fall back to comma.
func sniffDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(br.Size())
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		peek = peek[:i]
	}
	best, bestCount := ',', bytes.Count(peek, []byte{','})
	for _, d := range []rune{'\t', ';', '|'} {
		if n := bytes.Count(peek, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

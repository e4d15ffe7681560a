package codec

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dshills/cfgdoc/internal/config/document"
)

func init() {
	register(CSVCodec{})
}

// CSVCodec reads and writes one row per section:
//
//	Section,id,name
//	object,17030,Vesta
//
// The first column names the section and the header names the remaining
// columns. Several rows may target the same section. Empty cells are
// skipped on load, so empty string values do not survive a round trip,
// and kinds are re-inferred.
type CSVCodec struct {
	// NoHeader treats the first row as data and names columns col1, col2, ...
	NoHeader bool

	// Delimiter overrides delimiter detection when non-zero.
	Delimiter rune
}

// Format implements Codec.
func (CSVCodec) Format() Format { return FormatCSV }

// Decode implements Codec.
func (c CSVCodec) Decode(data []byte) (*document.Document, error) {
	if isBlank(data) {
		return nil, emptyError(FormatCSV)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = c.Delimiter
	if r.Comma == 0 {
		r.Comma = DetectDelimiter(data)
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	doc := document.New()
	var header []string
	first := true
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				continue
			}
			return nil, &ParseError{Format: FormatCSV, Message: err.Error(), Err: err}
		}

		if first && !c.NoHeader {
			first = false
			header = record
			continue
		}
		first = false

		if len(record) == 0 {
			continue
		}
		section := strings.TrimSpace(record[0])
		if section == "" {
			continue
		}
		doc.AddSection(section)
		for i, cell := range record[1:] {
			if cell == "" {
				continue
			}
			doc.SetParameter(section, csvColumn(header, i+1), cell)
		}
	}
	return doc, nil
}

// Encode implements Codec. Without an explicit Delimiter it writes with
// the first of comma, semicolon and tab that DetectDelimiter recovers from
// the output, so keys holding a candidate character still load back.
func (c CSVCodec) Encode(doc *document.Document) ([]byte, error) {
	if c.Delimiter != 0 {
		return c.encode(doc, c.Delimiter)
	}
	var first []byte
	for _, d := range []rune{',', ';', '\t'} {
		data, err := c.encode(doc, d)
		if err != nil {
			return nil, err
		}
		if DetectDelimiter(data) == d {
			return data, nil
		}
		if first == nil {
			first = data
		}
	}
	return first, nil
}

func (c CSVCodec) encode(doc *document.Document, delim rune) ([]byte, error) {
	sections := doc.Sections()

	var keys []string
	seen := make(map[string]bool)
	for _, s := range sections {
		for _, k := range s.Keys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delim
	if !c.NoHeader {
		if err := w.Write(append([]string{"Section"}, keys...)); err != nil {
			return nil, fmt.Errorf("writing csv header: %w", err)
		}
	}
	for _, s := range sections {
		row := make([]string, 0, len(keys)+1)
		row = append(row, s.Name())
		for _, k := range keys {
			v, _ := s.Get(k)
			row = append(row, v.Literal())
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("writing csv row %q: %w", s.Name(), err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DetectDelimiter picks the most frequent of comma, semicolon and tab in
// the first line. Ties and lines without any candidate give a comma.
func DetectDelimiter(data []byte) rune {
	line, _, _ := bytes.Cut(data, []byte{'\n'})
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func csvColumn(header []string, i int) string {
	if i < len(header) {
		if k := document.NormalizeKey(header[i]); k != "" {
			return k
		}
	}
	return fmt.Sprintf("col%d", i)
}

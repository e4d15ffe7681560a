// Package codec translates documents to and from text formats.
//
// Supported formats are the native OOP text format, JSON, XML, YAML, TOML
// and CSV. Each format has a Codec whose Decode and Encode are inverses for
// documents holding only scalar and array values, except for the lossy
// edges documented on each codec.
//
// Decoding is tolerant. Fragments a codec cannot map (nested objects,
// lines without a key, rows without a section) are skipped. Only input
// with no usable top-level structure fails.
//
// The XML, YAML and TOML codecs can be left out of a build with the
// noxml, noyaml and notoml build tags. Lookup and Supported report
// whether a codec is present.
package codec

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dshills/cfgdoc/internal/config/document"
)

// Format names a text format.
type Format string

const (
	FormatNative Format = "oop"
	FormatJSON   Format = "json"
	FormatXML    Format = "xml"
	FormatYAML   Format = "yaml"
	FormatTOML   Format = "toml"
	FormatCSV    Format = "csv"
)

// ContentKey is the parameter that holds an XML element's text content.
const ContentKey = "_content"

// Sentinel errors.
var (
	// ErrEmptyDocument indicates input with no usable top-level structure.
	ErrEmptyDocument = errors.New("empty document")

	// ErrUnsupported indicates a format whose codec is not compiled in.
	ErrUnsupported = errors.New("format not supported")
)

// Codec converts between a document and one text format.
type Codec interface {
	// Format returns the format handled by the codec.
	Format() Format

	// Decode parses data into a new document.
	Decode(data []byte) (*document.Document, error)

	// Encode renders doc as text.
	Encode(doc *document.Document) ([]byte, error)
}

var registry = map[Format]Codec{}

// register adds a codec to the registry. Called from init functions only.
func register(c Codec) {
	registry[c.Format()] = c
}

// Lookup returns the codec for format f.
func Lookup(f Format) (Codec, bool) {
	c, ok := registry[f]
	return c, ok
}

// MustLookup returns the codec for f or an error wrapping ErrUnsupported.
func MustLookup(f Format) (Codec, error) {
	c, ok := registry[f]
	if !ok {
		return nil, fmt.Errorf("%s: %w", f, ErrUnsupported)
	}
	return c, nil
}

// Supported reports whether the codec for f is compiled in.
func Supported(f Format) bool {
	_, ok := registry[f]
	return ok
}

// Formats returns the available formats in a stable order.
func Formats() []Format {
	out := make([]Format, 0, len(registry))
	for f := range registry {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// ParseFormat converts a format name or file extension to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "oop", "native", "txt":
		return FormatNative, nil
	case "json":
		return FormatJSON, nil
	case "xml":
		return FormatXML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	case "csv", "tsv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unknown format %q", name)
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("no extension in %q", path)
	}
	return ParseFormat(ext)
}

// Extension returns the preferred file extension for f, with dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ParseError reports malformed input.
type ParseError struct {
	Format  Format
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	src := e.Path
	if src == "" {
		src = "<string>"
	}
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("%s parse error in %s at line %d, column %d: %s", e.Format, src, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s parse error in %s at line %d: %s", e.Format, src, e.Line, e.Message)
	}
	return fmt.Sprintf("%s parse error in %s: %s", e.Format, src, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// withPath returns err with the source path recorded when it is a
// ParseError.
func withPath(err error, path string) error {
	var pe *ParseError
	if errors.As(err, &pe) && pe.Path == "" {
		pe.Path = path
	}
	return err
}

func emptyError(f Format) error {
	return &ParseError{Format: f, Message: "no content", Err: ErrEmptyDocument}
}

func isBlank(data []byte) bool {
	return len(strings.TrimSpace(string(data))) == 0
}

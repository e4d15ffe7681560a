//go:build !notoml

package codec

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"

	"github.com/dshills/cfgdoc/internal/config/document"
)

func init() {
	register(TOMLCodec{})
}

var (
	tomlBareKey  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	tomlInteger  = regexp.MustCompile(`^[+-]?(?:0|[1-9][0-9]*)$`)
	tomlFloat    = regexp.MustCompile(`^[+-]?(?:0|[1-9][0-9]*)(?:\.[0-9]+)?(?:[eE][+-]?[0-9]+)?$`)
	tomlSpecials = map[string]bool{"inf": true, "+inf": true, "-inf": true, "nan": true, "+nan": true, "-nan": true}
)

// TOMLCodec maps tables to sections and their key/values to parameters.
// Dotted table names such as [a.b] are flattened into the section name
// "a.b". Key/values outside a table, arrays of tables and inline tables
// are skipped. Integers are normalized to base 10 without separators.
type TOMLCodec struct{}

// Format implements Codec.
func (TOMLCodec) Format() Format { return FormatTOML }

// Decode implements Codec.
func (TOMLCodec) Decode(data []byte) (*document.Document, error) {
	if isBlank(data) {
		return nil, emptyError(FormatTOML)
	}

	// Full decode first: it reports duplicate keys and gives positions.
	var probe map[string]any
	if err := toml.Unmarshal(data, &probe); err != nil {
		pe := &ParseError{Format: FormatTOML, Message: err.Error(), Err: err}
		var de *toml.DecodeError
		if errors.As(err, &de) {
			pe.Line, pe.Column = de.Position()
		}
		return nil, pe
	}

	doc := document.New()
	section := ""
	p := unstable.Parser{}
	p.Reset(data)
	for p.NextExpression() {
		e := p.Expression()
		switch e.Kind {
		case unstable.Table:
			section = tomlKey(e.Key())
			doc.AddSection(section)
		case unstable.ArrayTable:
			section = ""
		case unstable.KeyValue:
			if section == "" {
				continue
			}
			if v, ok := tomlValue(e.Value()); ok {
				doc.SetValue(section, tomlKey(e.Key()), v)
			}
		}
	}
	if err := p.Error(); err != nil {
		return nil, &ParseError{Format: FormatTOML, Message: err.Error(), Err: err}
	}
	return doc, nil
}

// Encode implements Codec.
func (TOMLCodec) Encode(doc *document.Document) ([]byte, error) {
	var b strings.Builder
	for i, s := range doc.Sections() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteByte('[')
		b.WriteString(tomlName(s.Name()))
		b.WriteString("]\n")
		for _, p := range s.Parameters() {
			b.WriteString(tomlName(p.Key))
			b.WriteString(" = ")
			b.WriteString(tomlLiteral(p.Value))
			b.WriteByte('\n')
		}
	}
	return []byte(b.String()), nil
}

func tomlKey(it unstable.Iterator) string {
	var parts []string
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return strings.Join(parts, ".")
}

func tomlValue(n *unstable.Node) (document.Value, bool) {
	switch n.Kind {
	case unstable.String:
		return document.StringValue(string(n.Data)), true
	case unstable.Bool:
		return document.NewTypedValue(string(n.Data), document.KindBoolean), true
	case unstable.Integer:
		raw := strings.ReplaceAll(string(n.Data), "_", "")
		if i, err := strconv.ParseInt(raw, 0, 64); err == nil {
			return document.IntValue(i), true
		}
		return document.NewTypedValue(raw, document.KindInteger), true
	case unstable.Float:
		return document.NewTypedValue(strings.ReplaceAll(string(n.Data), "_", ""), document.KindFloat), true
	case unstable.LocalDate, unstable.LocalTime, unstable.LocalDateTime, unstable.DateTime:
		return document.StringValue(string(n.Data)), true
	case unstable.Array:
		var elems []string
		it := n.Children()
		for it.Next() {
			c := it.Node()
			if c.Kind == unstable.Array || c.Kind == unstable.InlineTable {
				continue
			}
			if v, ok := tomlValue(c); ok {
				elems = append(elems, v.Literal())
			}
		}
		return document.ListValue(elems), true
	}
	return document.Value{}, false
}

func tomlLiteral(v document.Value) string {
	lit := v.Literal()
	switch v.Kind() {
	case document.KindInteger:
		if tomlInteger.MatchString(lit) {
			return lit
		}
		if n, err := v.AsInt(); err == nil && document.DetectType(lit) == document.KindInteger {
			return strconv.FormatInt(n, 10)
		}
	case document.KindFloat:
		if s, ok := tomlFloatLiteral(lit); ok {
			return s
		}
	case document.KindBoolean:
		if b, err := v.AsBoolean(); err == nil {
			return strconv.FormatBool(b)
		}
	case document.KindArray:
		elems := v.AsStringVector()
		out := make([]string, len(elems))
		for i, e := range elems {
			out[i] = tomlElement(e)
		}
		return "[" + strings.Join(out, ", ") + "]"
	}
	return tomlQuote(lit)
}

func tomlElement(e string) string {
	switch document.DetectType(e) {
	case document.KindInteger:
		if tomlInteger.MatchString(e) {
			return e
		}
	case document.KindFloat:
		if tomlFloat.MatchString(e) {
			return e
		}
	case document.KindBoolean:
		if e == "true" || e == "false" {
			return e
		}
	}
	return tomlQuote(e)
}

func tomlFloatLiteral(lit string) (string, bool) {
	if tomlSpecials[lit] {
		return lit, true
	}
	if tomlFloat.MatchString(lit) && strings.ContainsAny(lit, ".eE") {
		return lit, true
	}
	f, err := document.NewValue(lit).AsDouble()
	if err != nil {
		return "", false
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s, true
}

func tomlName(s string) string {
	if tomlBareKey.MatchString(s) {
		return s
	}
	return tomlQuote(s)
}

// tomlQuote renders s as a TOML basic string.
func tomlQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

package codec

import (
	"bytes"
	"errors"
	"regexp"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/dshills/cfgdoc/internal/config/document"
)

func init() {
	register(JSONCodec{})
}

var jsonNumberPattern = regexp.MustCompile(`^-?(?:0|[1-9][0-9]*)(?:\.[0-9]+)?(?:[eE][+-]?[0-9]+)?$`)

// JSONCodec maps top-level object keys to sections and their members to
// parameters. Numbers keep their source text, null reads as an empty
// string, and nested objects inside a section are skipped. Boolean
// spellings are normalized to true/false on output.
type JSONCodec struct {
	// Compact disables pretty-printing.
	Compact bool
}

// Format implements Codec.
func (JSONCodec) Format() Format { return FormatJSON }

// Decode implements Codec.
func (JSONCodec) Decode(data []byte) (*document.Document, error) {
	if isBlank(data) {
		return nil, emptyError(FormatJSON)
	}
	if !gjson.ValidBytes(data) {
		return nil, jsonSyntaxError(data)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, &ParseError{Format: FormatJSON, Message: "top-level value is not an object", Err: ErrEmptyDocument}
	}

	doc := document.New()
	root.ForEach(func(name, section gjson.Result) bool {
		if !section.IsObject() {
			return true
		}
		doc.AddSection(name.String())
		section.ForEach(func(key, value gjson.Result) bool {
			if v, ok := jsonValue(value); ok {
				doc.SetValue(name.String(), key.String(), v)
			}
			return true
		})
		return true
	})
	return doc, nil
}

// Encode implements Codec.
func (c JSONCodec) Encode(doc *document.Document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range doc.Sections() {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(&buf, s.Name())
		buf.WriteByte(':')
		writeJSONSection(&buf, s)
	}
	buf.WriteByte('}')
	return c.finish(buf.Bytes()), nil
}

// EncodeSection renders one section as a JSON object.
func (c JSONCodec) EncodeSection(s *document.Section) []byte {
	var buf bytes.Buffer
	writeJSONSection(&buf, s)
	return c.finish(buf.Bytes())
}

func (c JSONCodec) finish(data []byte) []byte {
	if c.Compact {
		return data
	}
	return pretty.Pretty(data)
}

func writeJSONSection(buf *bytes.Buffer, s *document.Section) {
	buf.WriteByte('{')
	for i, p := range s.Parameters() {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(buf, p.Key)
		buf.WriteByte(':')
		writeJSONValue(buf, p.Value)
	}
	buf.WriteByte('}')
}

func writeJSONValue(buf *bytes.Buffer, v document.Value) {
	switch v.Kind() {
	case document.KindArray:
		buf.WriteByte('[')
		for i, e := range v.AsStringVector() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONScalar(buf, e)
		}
		buf.WriteByte(']')
	case document.KindInteger, document.KindFloat:
		if n, ok := jsonNumber(v.Literal()); ok {
			buf.WriteString(n)
			return
		}
		writeJSONString(buf, v.Literal())
	case document.KindBoolean:
		if b, err := v.AsBoolean(); err == nil {
			buf.WriteString(strconv.FormatBool(b))
			return
		}
		writeJSONString(buf, v.Literal())
	default:
		writeJSONString(buf, v.Literal())
	}
}

// writeJSONScalar writes an array element with the JSON type its text
// infers to.
func writeJSONScalar(buf *bytes.Buffer, elem string) {
	switch document.DetectType(elem) {
	case document.KindInteger, document.KindFloat:
		if jsonNumberPattern.MatchString(elem) {
			buf.WriteString(elem)
			return
		}
	case document.KindBoolean:
		if b, err := document.NewValue(elem).AsBoolean(); err == nil {
			buf.WriteString(strconv.FormatBool(b))
			return
		}
	}
	writeJSONString(buf, elem)
}

// jsonNumber returns literal as a valid JSON number, normalizing forms
// JSON does not allow such as "+5" or "5.".
func jsonNumber(literal string) (string, bool) {
	if jsonNumberPattern.MatchString(literal) {
		return literal, true
	}
	if n, err := strconv.ParseInt(literal, 10, 64); err == nil {
		return strconv.FormatInt(n, 10), true
	}
	if f, err := document.NewValue(literal).AsDouble(); err == nil {
		return strconv.FormatFloat(f, 'g', -1, 64), true
	}
	return "", false
}

func writeJSONString(buf *bytes.Buffer, s string) {
	data, err := json.MarshalNoEscape(s)
	if err != nil {
		buf.WriteString(strconv.Quote(s))
		return
	}
	buf.Write(data)
}

func jsonValue(r gjson.Result) (document.Value, bool) {
	switch r.Type {
	case gjson.String:
		return document.StringValue(r.Str), true
	case gjson.Number:
		kind := document.DetectType(r.Raw)
		if kind != document.KindInteger {
			kind = document.KindFloat
		}
		return document.NewTypedValue(r.Raw, kind), true
	case gjson.True, gjson.False:
		return document.BoolValue(r.Type == gjson.True), true
	case gjson.Null:
		return document.StringValue(""), true
	}
	if r.IsArray() {
		var elems []string
		for _, e := range r.Array() {
			if e.Type == gjson.String {
				elems = append(elems, e.Str)
			} else {
				elems = append(elems, e.Raw)
			}
		}
		return document.ListValue(elems), true
	}
	return document.Value{}, false
}

// jsonSyntaxError locates the first syntax error for the error message.
func jsonSyntaxError(data []byte) error {
	var probe any
	err := json.Unmarshal(data, &probe)
	pe := &ParseError{Format: FormatJSON, Message: "invalid JSON", Err: err}
	var se *json.SyntaxError
	if errors.As(err, &se) {
		pe.Message = se.Error()
		pe.Line, pe.Column = lineColumn(data, int(se.Offset))
	}
	return pe
}

func lineColumn(data []byte, offset int) (int, int) {
	if offset > len(data) {
		offset = len(data)
	}
	line, col := 1, 1
	for _, c := range data[:offset] {
		if c == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

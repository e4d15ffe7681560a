package codec

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/dshills/cfgdoc/internal/config/document"
)

func init() {
	register(NativeCodec{})
}

// NativeCodec reads and writes the line-oriented OOP format:
//
//	! comment
//	object.
//		.id = '17030'
//		.name = 'Sierks'
//
// A line ending in a dot opens a section. A "key = value" line adds a
// parameter to the open section; the leading dot on the key is optional
// when reading. Quoted values are unquoted and stored as strings. Lines
// without "=" and parameters before the first section are skipped.
type NativeCodec struct{}

// Format implements Codec.
func (NativeCodec) Format() Format { return FormatNative }

// Decode implements Codec.
func (NativeCodec) Decode(data []byte) (*document.Document, error) {
	doc := document.New()
	current := ""
	recognized := false

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || isNativeComment(text) {
			continue
		}

		if name, ok := nativeHeader(text); ok {
			if name == "" {
				continue
			}
			doc.AddSection(name)
			current = name
			recognized = true
			continue
		}

		key, raw, ok := strings.Cut(text, "=")
		if !ok || current == "" {
			continue
		}
		key = document.NormalizeKey(key)
		if key == "" {
			continue
		}
		doc.SetValue(current, key, nativeValue(strings.TrimSpace(raw)))
		recognized = true
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{Format: FormatNative, Line: line + 1, Message: err.Error(), Err: err}
	}
	if !recognized {
		return nil, emptyError(FormatNative)
	}
	return doc, nil
}

// Encode implements Codec.
func (NativeCodec) Encode(doc *document.Document) ([]byte, error) {
	var b strings.Builder
	for i, s := range doc.Sections() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s.Name())
		b.WriteString(".\n")
		for _, p := range s.Parameters() {
			b.WriteString("\t.")
			b.WriteString(p.Key)
			b.WriteString(" = ")
			b.WriteString(nativeLiteral(p.Value))
			b.WriteByte('\n')
		}
	}
	return []byte(b.String()), nil
}

func isNativeComment(line string) bool {
	switch line[0] {
	case '!', '#', ';':
		return true
	}
	return false
}

// nativeHeader recognizes "name.", "[name]" and "[name].".
func nativeHeader(line string) (string, bool) {
	if strings.Contains(line, "=") {
		return "", false
	}
	name := strings.TrimSuffix(line, ".")
	bracketed := strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]")
	if bracketed {
		name = name[1 : len(name)-1]
	} else if !strings.HasSuffix(line, ".") {
		return "", false
	}
	return strings.TrimSpace(name), true
}

func nativeValue(raw string) document.Value {
	if document.IsQuoted(raw) {
		return document.StringValue(document.Unquote(raw))
	}
	return document.NewValue(raw)
}

// nativeLiteral single-quotes string values so they read back as strings.
func nativeLiteral(v document.Value) string {
	lit := v.Literal()
	if v.Kind() == document.KindString {
		return document.Quote(lit)
	}
	return lit
}

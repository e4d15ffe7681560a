//go:build !noxml

package codec

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"unicode"

	"github.com/dshills/cfgdoc/internal/config/document"
)

func init() {
	register(XMLCodec{})
}

// XMLCodec maps child elements of the root to sections and their
// attributes to parameters:
//
//	<?xml version="1.0" encoding="UTF-8"?>
//	<config>
//	  <object id="17030" name="Vesta" />
//	  <search magnitude="16.5">text</search>
//	</config>
//
// Trimmed text content is stored under ContentKey. A grandchild element
// holding only text, such as <epoch>2025-12-01</epoch>, becomes a
// parameter named after its tag. Kinds are re-inferred on load. Names that
// are not valid XML names have invalid characters replaced by '_' on save.
type XMLCodec struct{}

// Format implements Codec.
func (XMLCodec) Format() Format { return FormatXML }

// Decode implements Codec.
func (XMLCodec) Decode(data []byte) (*document.Document, error) {
	if isBlank(data) {
		return nil, emptyError(FormatXML)
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	doc := document.New()
	var (
		depth    int
		rootSeen bool
		section  string
		content  strings.Builder
		leaf     string
		leafText strings.Builder
		leafNest bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line, _ := dec.InputPos()
			return nil, &ParseError{Format: FormatXML, Line: line, Message: err.Error(), Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 1:
				rootSeen = true
			case 2:
				section = t.Name.Local
				doc.AddSection(section)
				content.Reset()
				for _, a := range t.Attr {
					if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
						continue
					}
					doc.SetParameter(section, a.Name.Local, a.Value)
				}
			case 3:
				leaf = t.Name.Local
				leafText.Reset()
				leafNest = false
			default:
				leafNest = true
			}
		case xml.EndElement:
			switch depth {
			case 2:
				if text := strings.TrimSpace(content.String()); text != "" {
					doc.SetParameter(section, ContentKey, text)
				}
			case 3:
				if !leafNest {
					doc.SetParameter(section, leaf, strings.TrimSpace(leafText.String()))
				}
			}
			depth--
		case xml.CharData:
			switch depth {
			case 2:
				content.Write(t)
			case 3:
				leafText.Write(t)
			}
		}
	}
	if !rootSeen {
		return nil, &ParseError{Format: FormatXML, Message: "no root element", Err: ErrEmptyDocument}
	}
	return doc, nil
}

// Encode implements Codec.
func (XMLCodec) Encode(doc *document.Document) ([]byte, error) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString("<config>\n")
	for _, s := range doc.Sections() {
		name := xmlName(s.Name())
		b.WriteString("  <")
		b.WriteString(name)

		content, hasContent := "", false
		for _, p := range s.Parameters() {
			if p.Key == ContentKey {
				content, hasContent = p.Value.Literal(), true
				continue
			}
			b.WriteByte(' ')
			b.WriteString(xmlName(p.Key))
			b.WriteString(`="`)
			b.WriteString(xmlAttrEscaper.Replace(p.Value.Literal()))
			b.WriteByte('"')
		}

		if hasContent {
			b.WriteByte('>')
			b.WriteString(xmlTextEscaper.Replace(content))
			b.WriteString("</")
			b.WriteString(name)
			b.WriteString(">\n")
		} else {
			b.WriteString(" />\n")
		}
	}
	b.WriteString("</config>\n")
	return []byte(b.String()), nil
}

var (
	xmlTextEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	xmlAttrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
		"\n", "&#xA;",
		"\r", "&#xD;",
		"\t", "&#x9;",
	)
)

// xmlName replaces characters that are not allowed in an XML name.
func xmlName(s string) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	for i, r := range s {
		ok := unicode.IsLetter(r) || r == '_' ||
			(i > 0 && (unicode.IsDigit(r) || r == '-' || r == '.'))
		if ok {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

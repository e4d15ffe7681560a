//go:build !noyaml

package codec

import (
	"bytes"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/dshills/cfgdoc/internal/config/document"
)

func init() {
	register(YAMLCodec{})
}

// YAMLCodec maps top-level mapping keys to sections and their entries to
// parameters. Scalars keep their tag-derived kind; sequences become arrays
// and are written in flow style.
type YAMLCodec struct{}

// Format implements Codec.
func (YAMLCodec) Format() Format { return FormatYAML }

// Decode implements Codec.
func (YAMLCodec) Decode(data []byte) (*document.Document, error) {
	if isBlank(data) {
		return nil, emptyError(FormatYAML)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{Format: FormatYAML, Message: err.Error(), Err: err}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, emptyError(FormatYAML)
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, &ParseError{
			Format:  FormatYAML,
			Line:    top.Line,
			Column:  top.Column,
			Message: "top-level value is not a mapping",
			Err:     ErrEmptyDocument,
		}
	}

	doc := document.New()
	for i := 0; i+1 < len(top.Content); i += 2 {
		name, body := top.Content[i].Value, top.Content[i+1]
		switch {
		case body.Kind == yaml.MappingNode:
			doc.AddSection(name)
			for j := 0; j+1 < len(body.Content); j += 2 {
				if v, ok := yamlValue(body.Content[j+1]); ok {
					doc.SetValue(name, body.Content[j].Value, v)
				}
			}
		case body.Kind == yaml.ScalarNode && body.ShortTag() == "!!null":
			doc.AddSection(name)
		}
	}
	return doc, nil
}

// Encode implements Codec.
func (YAMLCodec) Encode(doc *document.Document) ([]byte, error) {
	top := &yaml.Node{Kind: yaml.MappingNode}
	for _, s := range doc.Sections() {
		body := &yaml.Node{Kind: yaml.MappingNode}
		for _, p := range s.Parameters() {
			body.Content = append(body.Content, yamlString(p.Key), yamlNode(p.Value))
		}
		top.Content = append(top.Content, yamlString(s.Name()), body)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{top}}); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func yamlString(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func yamlNode(v document.Value) *yaml.Node {
	lit := v.Literal()
	switch v.Kind() {
	case document.KindInteger:
		if _, err := v.AsInt(); err == nil && document.DetectType(lit) == document.KindInteger {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: lit}
		}
	case document.KindFloat:
		if _, err := v.AsDouble(); err == nil {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: lit}
		}
	case document.KindBoolean:
		if b, err := v.AsBoolean(); err == nil {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
		}
	case document.KindArray:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, e := range v.AsStringVector() {
			seq.Content = append(seq.Content, yamlScalar(e))
		}
		return seq
	}
	return yamlString(lit)
}

// yamlScalar writes an array element with the tag its text infers to.
func yamlScalar(elem string) *yaml.Node {
	switch document.DetectType(elem) {
	case document.KindInteger:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: elem}
	case document.KindFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: elem}
	}
	return yamlString(elem)
}

func yamlValue(n *yaml.Node) (document.Value, bool) {
	switch n.Kind {
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!int":
			return document.NewTypedValue(n.Value, document.KindInteger), true
		case "!!float":
			return document.NewTypedValue(n.Value, document.KindFloat), true
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err == nil {
				return document.BoolValue(b), true
			}
			return document.NewTypedValue(n.Value, document.KindBoolean), true
		case "!!null":
			return document.StringValue(""), true
		default:
			return document.StringValue(n.Value), true
		}
	case yaml.SequenceNode:
		elems := make([]string, 0, len(n.Content))
		for _, e := range n.Content {
			if e.Kind != yaml.ScalarNode {
				continue
			}
			elems = append(elems, e.Value)
		}
		return document.ListValue(elems), true
	case yaml.AliasNode:
		if n.Alias != nil {
			return yamlValue(n.Alias)
		}
	}
	return document.Value{}, false
}

package schema

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/dshills/cfgdoc/internal/config/document"
)

// DraftURI identifies the JSON Schema dialect written by ToJSONSchema.
const DraftURI = "http://json-schema.org/draft-07/schema#"

// ErrInvalidSchema is returned for JSON that is not a schema object.
var ErrInvalidSchema = errors.New("invalid JSON schema")

type jsonSchema struct {
	Schema      string                  `json:"$schema"`
	Title       string                  `json:"title,omitempty"`
	Version     string                  `json:"version,omitempty"`
	Description string                  `json:"description,omitempty"`
	Type        string                  `json:"type"`
	Properties  map[string]*jsonSection `json:"properties"`
	Required    []string                `json:"required,omitempty"`
}

type jsonSection struct {
	Type        string                `json:"type"`
	Description string                `json:"description,omitempty"`
	Properties  map[string]*jsonParam `json:"properties"`
	Required    []string              `json:"required,omitempty"`
	Order       int                   `json:"x-order"`
}

type jsonParam struct {
	Type             string   `json:"type,omitempty"`
	Description      string   `json:"description,omitempty"`
	Default          string   `json:"default,omitempty"`
	Enum             []string `json:"enum,omitempty"`
	Minimum          *float64 `json:"minimum,omitempty"`
	ExclusiveMinimum *float64 `json:"exclusiveMinimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty"`
	ExclusiveMaximum *float64 `json:"exclusiveMaximum,omitempty"`
	Constraint       string   `json:"x-constraint,omitempty"`
	CatalogBound     bool     `json:"x-catalog-bound,omitempty"`
	Order            int      `json:"x-order"`
}

// ToJSONSchema renders s as an indented draft-07 JSON Schema. Sections and
// parameters carry an x-order index so ParseJSONSchema can restore their
// order; constraints are kept verbatim in x-constraint.
func ToJSONSchema(s *Schema) ([]byte, error) {
	out := jsonSchema{
		Schema:      DraftURI,
		Title:       s.Name,
		Version:     s.Version,
		Description: s.Description,
		Type:        "object",
		Properties:  make(map[string]*jsonSection, len(s.sections)),
	}
	for i, sec := range s.sections {
		js := &jsonSection{
			Type:        "object",
			Description: sec.Description,
			Properties:  make(map[string]*jsonParam, len(sec.Parameters)),
			Order:       i,
		}
		for j, p := range sec.Parameters {
			js.Properties[p.Key] = toJSONParam(p, j)
			if p.Required {
				js.Required = append(js.Required, p.Key)
			}
		}
		out.Properties[sec.Name] = js
		if sec.Required {
			out.Required = append(out.Required, sec.Name)
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding schema %q: %w", s.Name, err)
	}
	return data, nil
}

func toJSONParam(p *ParameterSpec, order int) *jsonParam {
	jp := &jsonParam{
		Description: p.Description,
		Default:     p.Default,
		Order:       order,
	}
	c := p.Constraint
	switch {
	case c.Enabled:
		jp.Type = "number"
		jp.Constraint = c.Expression
		jp.CatalogBound = c.CatalogBound
		if c.HasMin() {
			if c.MinInclusive {
				jp.Minimum = ptr(c.Min)
			} else {
				jp.ExclusiveMinimum = ptr(c.Min)
			}
		}
		if c.HasMax() {
			if c.MaxInclusive {
				jp.Maximum = ptr(c.Max)
			} else {
				jp.ExclusiveMaximum = ptr(c.Max)
			}
		}
	case len(p.AllowedValues) == 0:
		jp.Type = "string"
	}
	if len(p.AllowedValues) > 0 {
		jp.Enum = slices.Clone(p.AllowedValues)
	}
	return jp
}

func ptr(f float64) *float64 { return &f }

// ParseJSONSchema reads a schema written by ToJSONSchema or by hand. Only
// the subset ToJSONSchema writes is understood: top-level properties are
// sections, their properties are parameters. A parameter constraint comes
// from x-constraint when present, otherwise from the minimum and maximum
// keywords. Unparseable constraints are reported by Schema.Warnings.
func ParseJSONSchema(data []byte) (*Schema, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidSchema)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: root is not an object", ErrInvalidSchema)
	}

	s := New(root.Get("title").String(), root.Get("version").String())
	s.Description = root.Get("description").String()
	required := stringSet(root.Get("required"))

	type ordered struct {
		order int
		spec  SectionSpec
	}
	var sections []ordered
	root.Get("properties").ForEach(func(name, body gjson.Result) bool {
		spec := SectionSpec{
			Name:        name.String(),
			Required:    required[name.String()],
			Description: body.Get("description").String(),
		}
		paramRequired := stringSet(body.Get("required"))

		type orderedParam struct {
			order int
			spec  ParameterSpec
		}
		var params []orderedParam
		body.Get("properties").ForEach(func(key, pb gjson.Result) bool {
			p := ParameterSpec{
				Key:         key.String(),
				Required:    paramRequired[key.String()],
				Description: pb.Get("description").String(),
				Default:     pb.Get("default").String(),
				Constraint:  Unconstrained(),
			}
			for _, v := range pb.Get("enum").Array() {
				p.AllowedValues = append(p.AllowedValues, v.String())
			}
			if expr := constraintExpression(pb); expr != "" {
				c, err := ParseConstraint(expr)
				if err != nil {
					s.warn(spec.Name+"."+p.Key, err)
				}
				p.Constraint = c
			}
			params = append(params, orderedParam{order: orderOf(pb, len(params)), spec: p})
			return true
		})
		slices.SortStableFunc(params, func(a, b orderedParam) int { return a.order - b.order })
		for _, p := range params {
			spec.AddParameter(p.spec)
		}

		sections = append(sections, ordered{order: orderOf(body, len(sections)), spec: spec})
		return true
	})
	slices.SortStableFunc(sections, func(a, b ordered) int { return a.order - b.order })
	for _, sec := range sections {
		s.AddSection(sec.spec)
	}
	return s, nil
}

// constraintExpression returns x-constraint (or the legacy "constraint"
// key), or an expression rebuilt from the numeric bound keywords.
func constraintExpression(pb gjson.Result) string {
	for _, key := range []string{"x-constraint", "constraint"} {
		if v := pb.Get(key).String(); v != "" {
			return v
		}
	}

	var lower, upper string
	if v := pb.Get("minimum"); v.Exists() {
		lower = formatBound(v.Float()) + " <= "
	} else if v := pb.Get("exclusiveMinimum"); v.Exists() {
		lower = formatBound(v.Float()) + " < "
	}
	if v := pb.Get("maximum"); v.Exists() {
		upper = " <= " + formatBound(v.Float())
	} else if v := pb.Get("exclusiveMaximum"); v.Exists() {
		upper = " < " + formatBound(v.Float())
	}
	switch {
	case lower != "" && upper != "":
		return lower + "x" + upper
	case lower != "":
		// "a <= x" reads as "x >= a"
		return lower + "x"
	case upper != "":
		return "x" + upper
	}
	return ""
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// orderOf returns x-order when present. Entries without one keep their
// source position after all ordered entries.
func orderOf(r gjson.Result, pos int) int {
	if v := r.Get("x-order"); v.Exists() {
		return int(v.Int())
	}
	return 1<<30 + pos
}

func stringSet(arr gjson.Result) map[string]bool {
	set := make(map[string]bool)
	for _, v := range arr.Array() {
		set[v.String()] = true
	}
	return set
}

// ValidateRequired checks doc against a reduced JSON Schema: every name in
// the top-level "required" array must be a section, and for each present
// section every name in properties.<section>.required must be a
// parameter.
func ValidateRequired(doc *document.Document, schemaJSON []byte) ([]string, error) {
	if !gjson.ValidBytes(schemaJSON) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidSchema)
	}
	root := gjson.ParseBytes(schemaJSON)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: root is not an object", ErrInvalidSchema)
	}

	errs := &ValidationErrors{}
	for _, name := range root.Get("required").Array() {
		if !doc.HasSection(name.String()) {
			errs.AddError(NewSectionRequiredError(name.String()))
		}
	}
	root.Get("properties").ForEach(func(name, body gjson.Result) bool {
		section, ok := doc.GetSection(name.String())
		if !ok {
			return true
		}
		for _, key := range body.Get("required").Array() {
			if !section.Has(key.String()) {
				errs.AddError(NewRequiredError(name.String() + "." + document.NormalizeKey(key.String())))
			}
		}
		return true
	})
	return errs.Messages(), nil
}

package schema

import (
	"go.uber.org/zap"

	"github.com/dshills/cfgdoc/internal/config/document"
)

// ValidateOption configures Validate.
type ValidateOption func(*validateOptions)

type validateOptions struct {
	catalogSize int
	logger      *zap.Logger
}

// WithCatalogSize resolves the "N" bound of "a..N" constraints.
func WithCatalogSize(n int) ValidateOption {
	return func(o *validateOptions) {
		o.catalogSize = n
	}
}

// WithLogger sets the logger used to report disabled constraints.
func WithLogger(l *zap.Logger) ValidateOption {
	return func(o *validateOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Validate checks doc against s and returns one message per problem. An
// empty result means the document is valid.
func Validate(doc *document.Document, s *Schema, opts ...ValidateOption) []string {
	return ValidateErrors(doc, s, opts...).Messages()
}

// ValidateErrors is Validate with structured errors.
//
// A missing required section yields one error and its parameters are not
// checked; a missing optional section is skipped. In a present section
// each missing required parameter is an error, and each present parameter
// with a spec is checked with ParameterSpec.Check.
func ValidateErrors(doc *document.Document, s *Schema, opts ...ValidateOption) *ValidationErrors {
	o := validateOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	errs := &ValidationErrors{}
	if s == nil {
		return errs
	}
	for _, w := range s.warnings {
		o.logger.Warn("constraint disabled", zap.String("schema", s.Name), zap.String("warning", w))
	}

	for _, spec := range s.sections {
		section, ok := doc.GetSection(spec.Name)
		if !ok {
			if spec.Required {
				errs.AddError(NewSectionRequiredError(spec.Name))
			}
			continue
		}
		for _, p := range spec.Parameters {
			path := spec.Name + "." + p.Key
			v, ok := section.Get(p.Key)
			if !ok {
				if p.Required {
					errs.AddError(NewRequiredError(path))
				}
				continue
			}
			if verr := p.check(path, v.Literal(), o.catalogSize); verr != nil {
				errs.AddError(verr)
			}
		}
	}

	if errs.HasErrors() {
		o.logger.Debug("validation failed", zap.String("schema", s.Name), zap.Int("errors", errs.Len()))
	}
	return errs
}

// ApplyDefaults sets every missing parameter that declares a default, in
// sections present in doc or required by s. It returns the number of
// parameters set.
func ApplyDefaults(doc *document.Document, s *Schema) int {
	n := 0
	doc.Update(func(e *document.Editor) {
		for _, spec := range s.sections {
			if e.Section(spec.Name) == nil && !spec.Required {
				continue
			}
			for _, p := range spec.Parameters {
				if p.Default == "" {
					continue
				}
				if _, ok := e.Get(spec.Name, p.Key); ok {
					continue
				}
				e.Set(spec.Name, p.Key, document.NewValue(p.Default))
				n++
			}
		}
	})
	return n
}

package schema

import (
	_ "embed"
	"fmt"
)

//go:embed default.schema.json
var defaultSchemaJSON []byte

// DefaultSchema returns a fresh copy of the built-in schema: object and
// time with their identifying parameters required, search with a magnitude
// limit, and optional database and propag sections.
func DefaultSchema() *Schema {
	s, err := ParseJSONSchema(defaultSchemaJSON)
	if err != nil {
		panic(fmt.Sprintf("embedded default schema: %v", err))
	}
	return s
}

// DefaultSchemaJSON returns the JSON source of DefaultSchema.
func DefaultSchemaJSON() []byte {
	return append([]byte(nil), defaultSchemaJSON...)
}

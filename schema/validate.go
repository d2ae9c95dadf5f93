package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.jsonschema
var schemaDocumentSchema []byte

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func compiledDocumentSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		var doc any
		if err := json.Unmarshal(schemaDocumentSchema, &doc); err != nil {
			compileErr = fmt.Errorf("unmarshal embedded schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("spacetimedb-client-schema-document.json", doc); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile("spacetimedb-client-schema-document.json")
	})
	return compiled, compileErr
}

// Validate checks raw against the embedded JSON Schema describing the
// {typespace, tables, reducers} document shape spec.md §4.2/§6 define,
// before any attempt is made to unmarshal it into Go types. This turns a
// malformed server response into a single structured InvalidDocument error
// instead of a confusing field-by-field unmarshal failure.
func Validate(raw []byte) error {
	s, err := compiledDocumentSchema()
	if err != nil {
		return fmt.Errorf("schema: compile validator: %w", err)
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return &Error{Kind: InvalidDocument, Detail: err.Error()}
	}

	if err := s.Validate(payload); err != nil {
		return &Error{Kind: InvalidDocument, Detail: err.Error()}
	}
	return nil
}

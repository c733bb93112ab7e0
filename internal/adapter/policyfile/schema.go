package policyfile

import (
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["format", "version", "agents"],
  "properties": {
    "format": {"const": "farmcycle.policy"},
    "version": {"const": 1},
    "run_id": {"type": "string"},
    "episode": {"type": "integer", "minimum": 0},
    "saved_at": {"type": "string"},
    "agents": {
      "type": "array",
      "items": {"type": "object"}
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("policy.schema.json", documentSchema)
	})
	return schema, schemaErr
}

package merge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const shardSchemaURL = "shard.schema.json"

const shardSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "properties": {
      "query": {"type": "object"},
      "alignments": {
        "type": "array",
        "items": {"type": "object"}
      }
    }
  }
}`

func compileShardSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(shardSchemaURL, strings.NewReader(shardSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(shardSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validateShard(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal shard: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("shard does not match schema: %w", err)
	}
	return nil
}

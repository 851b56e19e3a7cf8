/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package serial

import (
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

// documentSchemaJSON is the minimal import contract. Elements are deliberately
// not described: any object inside a slide is accepted.
const documentSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "goslidedeck presentation",
  "type": "object",
  "required": ["title", "slides"],
  "properties": {
    "title": { "type": "string" },
    "slides": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "properties": {
          "elements": { "type": ["array", "null"] }
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchemaJSON))
	})
	return schema, schemaErr
}

// SchemaJSON returns the import schema, e.g. for publishing alongside exports.
func SchemaJSON() string { return documentSchemaJSON }

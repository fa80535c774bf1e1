package botspec

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	errs "github.com/edgard/botforge/internal/errors"
)

const schemaURL = "https://botforge.local/block_schema.json"

//go:embed block_schema.json
var blockSchema []byte

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// Schema returns the embedded JSON schema document.
func Schema() []byte {
	return bytes.Clone(blockSchema)
}

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft7

		if err := c.AddResource(schemaURL, bytes.NewReader(blockSchema)); err != nil {
			compileErr = fmt.Errorf("failed to load block schema: %w", err)
			return
		}

		compiled, compileErr = c.Compile(schemaURL)
	})

	return compiled, compileErr
}

func checkSchema(v any) error {
	sch, err := schema()
	if err != nil {
		return errs.NewValidationError("schema unavailable", err)
	}

	err = sch.Validate(v)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return errs.NewValidationError("schema validation failed", err)
	}

	leaf := deepest(verr)
	location := leaf.InstanceLocation
	if location == "" {
		location = "/"
	}

	return errs.NewValidationError(fmt.Sprintf("schema validation failed: %s: %s", location, leaf.Message), nil)
}

// deepest follows the first cause down to the most specific failure.
func deepest(e *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(e.Causes) > 0 {
		e = e.Causes[0]
	}

	return e
}

package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kitbuilder587/valyu-go/internal/domain"
	"github.com/kitbuilder587/valyu-go/pkg/valyu"
)

// ValidateAnswer checks structured answer contents against the JSON schema
// that was sent as structured_output.
func ValidateAnswer(schema json.RawMessage, resp *valyu.AnswerResponse) error {
	if len(resp.Contents) == 0 || resp.DataType == "unstructured" {
		return domain.ErrNotStructured
	}

	// contents иногда приходит строкой с JSON внутри
	doc := resp.Contents
	var s string
	if err := json.Unmarshal(doc, &s); err == nil {
		if !json.Valid([]byte(s)) {
			return domain.ErrNotStructured
		}
		doc = json.RawMessage(s)
	}

	return ValidateJSON(schema, doc)
}

// ValidateJSON validates doc against schema. Both are raw JSON.
func ValidateJSON(schema, doc json.RawMessage) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s", domain.ErrSchemaMismatch, strings.Join(errs, "; "))
	}

	return nil
}

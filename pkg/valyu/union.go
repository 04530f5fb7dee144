package valyu

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var errUnsetUnion = errors.New("union value has no variant set")

// ResponseLength is either a named preset ("short", "medium", "large", "max")
// or a custom character count. It is encoded as a bare JSON string or integer.
type ResponseLength struct {
	preset string
	custom int
	kind   lengthKind
}

type lengthKind uint8

const (
	lengthUnset lengthKind = iota
	lengthPreset
	lengthCustom
)

func PresetLength(name string) *ResponseLength {
	return &ResponseLength{preset: name, kind: lengthPreset}
}

func CustomLength(chars int) *ResponseLength {
	return &ResponseLength{custom: chars, kind: lengthCustom}
}

func (l ResponseLength) Preset() (string, bool) { return l.preset, l.kind == lengthPreset }
func (l ResponseLength) Custom() (int, bool)    { return l.custom, l.kind == lengthCustom }

func (l ResponseLength) MarshalJSON() ([]byte, error) {
	switch l.kind {
	case lengthPreset:
		return json.Marshal(l.preset)
	case lengthCustom:
		return json.Marshal(l.custom)
	default:
		return nil, errUnsetUnion
	}
}

func (l *ResponseLength) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = ResponseLength{preset: s, kind: lengthPreset}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*l = ResponseLength{custom: n, kind: lengthCustom}
		return nil
	}
	return fmt.Errorf("response_length: expected string or integer, got %s", data)
}

// Summary controls AI summarisation in the contents endpoint: a plain flag,
// free-text instructions, or a JSON schema for structured extraction.
type Summary struct {
	flag         bool
	instructions string
	schema       json.RawMessage
	kind         summaryKind
}

type summaryKind uint8

const (
	summaryUnset summaryKind = iota
	summaryFlag
	summaryInstructions
	summarySchema
)

func SummaryFlag(enabled bool) *Summary {
	return &Summary{flag: enabled, kind: summaryFlag}
}

func SummaryInstructions(text string) *Summary {
	return &Summary{instructions: text, kind: summaryInstructions}
}

// SummarySchema takes any JSON-encodable schema (map, struct or json.RawMessage).
func SummarySchema(schema any) (*Summary, error) {
	raw, err := toRaw(schema)
	if err != nil {
		return nil, fmt.Errorf("summary schema: %w", err)
	}
	return &Summary{schema: raw, kind: summarySchema}, nil
}

func (s Summary) Flag() (bool, bool)              { return s.flag, s.kind == summaryFlag }
func (s Summary) Instructions() (string, bool)    { return s.instructions, s.kind == summaryInstructions }
func (s Summary) Schema() (json.RawMessage, bool) { return s.schema, s.kind == summarySchema }

func (s Summary) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case summaryFlag:
		return json.Marshal(s.flag)
	case summaryInstructions:
		return json.Marshal(s.instructions)
	case summarySchema:
		return s.schema, nil
	default:
		return nil, errUnsetUnion
	}
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*s = Summary{flag: b, kind: summaryFlag}
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = Summary{instructions: str, kind: summaryInstructions}
		return nil
	}
	if !json.Valid(data) {
		return fmt.Errorf("summary: invalid JSON %s", data)
	}
	*s = Summary{schema: append(json.RawMessage(nil), data...), kind: summarySchema}
	return nil
}

// OutputFormats is either a list of format names ("markdown", "pdf") or a JSON
// schema describing structured research output.
type OutputFormats struct {
	names  []string
	schema json.RawMessage
}

func FormatNames(names ...string) *OutputFormats {
	if names == nil {
		names = []string{}
	}
	return &OutputFormats{names: names}
}

func FormatSchema(schema any) (*OutputFormats, error) {
	raw, err := toRaw(schema)
	if err != nil {
		return nil, fmt.Errorf("output schema: %w", err)
	}
	return &OutputFormats{schema: raw}, nil
}

func (f OutputFormats) Names() ([]string, bool)         { return f.names, f.names != nil }
func (f OutputFormats) Schema() (json.RawMessage, bool) { return f.schema, f.schema != nil }

func (f OutputFormats) MarshalJSON() ([]byte, error) {
	switch {
	case f.names != nil:
		return json.Marshal(f.names)
	case f.schema != nil:
		return f.schema, nil
	default:
		return nil, errUnsetUnion
	}
}

func (f *OutputFormats) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err == nil && names != nil {
		*f = OutputFormats{names: names}
		return nil
	}
	if !json.Valid(data) || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("output_formats: expected list or schema, got %s", data)
	}
	*f = OutputFormats{schema: append(json.RawMessage(nil), data...)}
	return nil
}

func toRaw(v any) (json.RawMessage, error) {
	if raw, ok := v.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return nil, errors.New("invalid JSON")
		}
		return raw, nil
	}
	return json.Marshal(v)
}

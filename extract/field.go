// Package extract implements strict schema-driven field projection over a
// scraped page: a caller supplies either a field schema or a
// natural-language prompt, and this package resolves values from well-known
// metadata slots first, then falls back to positional heuristics over the
// cleaned text, without ever inventing a field the caller didn't ask for.
package extract

import "encoding/json"

// FieldType constrains how a resolved value is coerced and what the
// placeholder default is when nothing was found.
type FieldType string

const (
	FieldTypeString FieldType = "string"
	FieldTypeNumber FieldType = "number"
	FieldTypeBool   FieldType = "bool"
	FieldTypeArray  FieldType = "array"
)

// FieldSpec describes one requested output field: a
// {name, description, field_type?, required?} schema entry.
type FieldSpec struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	FieldType   FieldType `json:"field_type,omitempty"`
	Required    bool      `json:"required,omitempty"`
}

// Schema is an ordered list of requested fields. A nil/empty Schema paired
// with a non-empty Prompt asks the resolver to infer fields from the prompt
// text instead (see inferFieldsFromPrompt in heuristic.go).
type Schema []FieldSpec

// Result is the strict projection output: Data has exactly the keys named
// in the resolved schema, nothing more. Confidence is in [0,1] and collapses
// to exactly 0 under the placeholder-page guard.
type Result struct {
	Data       json.RawMessage `json:"data"`
	Confidence float64         `json:"confidence"`
	Warnings   []string        `json:"warnings,omitempty"`
}

func (f FieldSpec) normalizedType() FieldType {
	switch f.FieldType {
	case FieldTypeNumber, FieldTypeBool, FieldTypeArray:
		return f.FieldType
	default:
		return FieldTypeString
	}
}

// zeroValue returns the strict-mode default for a field that resolved to
// nothing: `[]` for array fields, `null` for everything else.
func (f FieldSpec) zeroValue() interface{} {
	if f.normalizedType() == FieldTypeArray {
		return []interface{}{}
	}
	return nil
}

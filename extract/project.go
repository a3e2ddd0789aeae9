package extract

import "encoding/json"

// placeholderWordThreshold is the sparse-content bound below which a page
// is eligible for the placeholder-page override.
const placeholderWordThreshold = 80

// placeholderEmptyRatio is the fraction of scalar fields that must resolve
// empty before a sparse page is treated as a placeholder shell.
const placeholderEmptyRatio = 0.9

// Project resolves schema against src with strict projection: the output
// object has exactly schema's field names as keys, nothing added or
// dropped. When schema is empty, fields are inferred from prompt. When
// src.URL looks like a rustdoc-generated page and symbols are found,
// symbol-shaped fields get the rustdoc symbol list; all other fields are
// resolved as usual.
func Project(schema Schema, prompt string, src Source) Result {
	if len(schema) == 0 {
		schema = inferFieldsFromPrompt(prompt)
	}

	data := make(map[string]interface{}, len(schema))
	var warnings []string
	emptyScalars, scalarCount := 0, 0

	if isRustdocPage(src.URL) {
		if syms := rustdocSymbols(src); len(syms) > 0 {
			for _, f := range schema {
				if isSymbolField(f) {
					data[f.Name] = syms
					continue
				}
				data[f.Name] = resolveField(f, src, &emptyScalars, &scalarCount)
			}
			return finalize(data, src, emptyScalars, scalarCount, warnings)
		}
	}

	for _, f := range schema {
		data[f.Name] = resolveField(f, src, &emptyScalars, &scalarCount)
	}

	return finalize(data, src, emptyScalars, scalarCount, warnings)
}

func resolveField(f FieldSpec, src Source, emptyScalars, scalarCount *int) interface{} {
	val, known := wellKnownSlot(f, src)
	if !known {
		val = heuristicResolve(f, src)
	}

	if f.normalizedType() != FieldTypeArray {
		*scalarCount++
		if isEmptyScalar(val) {
			*emptyScalars++
		}
	}
	return val
}

func isSymbolField(f FieldSpec) bool {
	switch slotKey(f) {
	case "symbols", "items", "members", "api", "exports":
		return true
	default:
		return false
	}
}

func isEmptyScalar(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

func finalize(data map[string]interface{}, src Source, emptyScalars, scalarCount int, warnings []string) Result {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = []byte("{}")
	}

	confidence := 1.0
	if scalarCount > 0 {
		confidence = 1.0 - float64(emptyScalars)/float64(scalarCount)
	}

	if isPlaceholderPage(src.WordCount, emptyScalars, scalarCount) {
		confidence = 0
		warnings = append(warnings, "placeholder_page")
	}

	return Result{Data: raw, Confidence: confidence, Warnings: warnings}
}

// isPlaceholderPage guards against sparse visible content plus
// an overwhelmingly empty scalar projection, which most likely means an
// unhydrated SPA shell rather than a genuinely field-free page.
func isPlaceholderPage(wordCount, emptyScalars, scalarCount int) bool {
	if wordCount >= placeholderWordThreshold || scalarCount == 0 {
		return false
	}
	return float64(emptyScalars)/float64(scalarCount) >= placeholderEmptyRatio
}

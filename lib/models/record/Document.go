package record

import "encoding/json"

// Document is the full structural state of a record, a JSON object of
// nested objects, arrays and scalars.
type Document map[string]any

// Normalize round trips the document through JSON so that every nested
// value uses the canonical decoded types (map[string]any, []any,
// float64, string, bool, nil). Diffing two documents that were not
// normalized the same way would report phantom changes.
func Normalize(d Document) (Document, error) {
	if d == nil {
		return Document{}, nil
	}
	encoded, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var normalized Document
	if err := json.Unmarshal(encoded, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	cloned := make(Document, len(d))
	for k, v := range d {
		cloned[k] = cloneValue(v)
	}
	return cloned
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		cloned := make(map[string]any, len(value))
		for k, child := range value {
			cloned[k] = cloneValue(child)
		}
		return cloned
	case Document:
		return map[string]any(value.Clone())
	case []any:
		cloned := make([]any, len(value))
		for i, child := range value {
			cloned[i] = cloneValue(child)
		}
		return cloned
	default:
		return v
	}
}

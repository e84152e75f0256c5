package dataset

// Field names every record carries.
const (
	FieldFileName          = "file_name"
	FieldGenerationSeconds = "generation_seconds"
)

// Record is the structured result of extracting one document: a mapping from
// field name to scalar or nested value. It always contains FieldFileName and,
// when timed, FieldGenerationSeconds. Records are immutable once produced.
type Record map[string]any

// FileName returns the document reference the record was extracted from.
func (r Record) FileName() string {
	if v, ok := r[FieldFileName].(string); ok {
		return v
	}
	return ""
}

// Flatten converts nested objects into dot-joined keys, the addressing used
// for tabular storage. Lists and scalars are kept as values.
func Flatten(r Record) map[string]any {
	flat := make(map[string]any, len(r))
	flattenInto(flat, "", map[string]any(r))
	return flat
}

func flattenInto(dst map[string]any, prefix string, src map[string]any) {
	for key, value := range src {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flattenInto(dst, full, nested)
			continue
		}
		dst[full] = value
	}
}

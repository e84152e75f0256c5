package constants

// Dataset file extensions recognized by the store.
const (
	TableExt         = "csv"
	LineDelimitedExt = "jsonl"
)

// TableDelimiter is the default field separator for table datasets. A dollar
// sign is used because natural-language field content rarely contains it.
const TableDelimiter = '$'

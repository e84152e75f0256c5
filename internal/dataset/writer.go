package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/nbirkbak/journalist/constants"
	"github.com/nbirkbak/journalist/internal/common"
)

// Writer appends batches of records to a dataset file. Every flush is
// append-only and never rewrites prior content, so each completed flush is
// durable regardless of what happens afterward.
type Writer struct {
	path          string
	format        Format
	columns       []string
	headerWritten bool
	logger        *slog.Logger
}

// NewWriter creates a writer for path. columns fixes the header and cell
// order for table output; it is ignored for line-delimited output.
func NewWriter(path string, format Format, columns []string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{path: path, format: format, columns: columns, logger: logger}
}

// SetHeaderWritten primes the header state, used when a continuation run
// seeds the output file with a prior dataset whose header already exists.
func (w *Writer) SetHeaderWritten(written bool) { w.headerWritten = written }

// HeaderWritten reports whether the header row has been emitted.
func (w *Writer) HeaderWritten() bool { return w.headerWritten }

// Path returns the output file path.
func (w *Writer) Path() string { return w.path }

// Format returns the encoding the writer appends in.
func (w *Writer) Format() Format { return w.format }

// Flush appends records to the dataset file. For table output the header
// line is emitted exactly once, and it counts as written even on an empty
// batch so a later non-empty flush cannot duplicate it.
func (w *Writer) Flush(records []Record) error {
	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return common.WrapError(err, "open dataset for append")
	}
	defer file.Close()

	var b strings.Builder
	switch w.format {
	case Table:
		if !w.headerWritten {
			b.WriteString(strings.Join(w.columns, string(constants.TableDelimiter)))
			b.WriteByte('\n')
		}
		for _, rec := range records {
			flat := Flatten(rec)
			cells := make([]string, len(w.columns))
			for i, col := range w.columns {
				cells[i] = formatCell(flat[col])
			}
			b.WriteString(strings.Join(cells, string(constants.TableDelimiter)))
			b.WriteByte('\n')
		}
	case LineDelimited:
		for _, rec := range records {
			line, err := json.Marshal(rec)
			if err != nil {
				return common.WrapError(err, "encode record")
			}
			b.Write(line)
			b.WriteByte('\n')
		}
	default:
		return common.NewAppError("DATASET_FLUSH", fmt.Sprintf("format %q not recognized", w.format), common.ErrUnsupportedFormat)
	}

	if _, err := file.WriteString(b.String()); err != nil {
		return common.WrapError(err, "append to dataset")
	}
	if w.format == Table {
		w.headerWritten = true
	}
	w.logger.Debug("dataset.flush.ok", "path", w.path, "format", w.format, "records", len(records))
	return nil
}

// formatCell renders one flattened value as a table cell. The delimiter is
// replaced by a token and newlines collapse to spaces, matching what the
// extraction prompt asks of the model.
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return sanitizeCell(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		// Lists and other structures are stored as JSON in the cell.
		raw, err := json.Marshal(val)
		if err != nil {
			return sanitizeCell(fmt.Sprintf("%v", val))
		}
		return sanitizeCell(string(raw))
	}
}

func sanitizeCell(s string) string {
	s = strings.ReplaceAll(s, string(constants.TableDelimiter), "[DOLLAR]")
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

// Copy performs a byte-identical file copy, used to seed a continuation
// run's output file with the prior dataset before new appends begin.
func Copy(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return common.WrapError(err, "open source dataset")
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return common.WrapError(err, "create seeded dataset")
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return common.WrapError(err, "copy dataset")
	}
	return out.Close()
}

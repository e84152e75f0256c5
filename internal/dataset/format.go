package dataset

import (
	"fmt"
	"path/filepath"

	"github.com/nbirkbak/journalist/constants"
	"github.com/nbirkbak/journalist/internal/common"
)

// Format is the encoding of a dataset file. Within one file all rows share
// the chosen encoding, and the encoding is immutable for the life of a run.
type Format string

const (
	// Table is a delimited-table encoding: flattened records, one header row
	// written once, a single-character field separator.
	Table Format = Format(constants.TableExt)
	// LineDelimited is one independent JSON object per line, nested structure
	// preserved, no shared header.
	LineDelimited Format = Format(constants.LineDelimitedExt)
)

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string { return string(f) }

// ParseFormat maps a format name or extension to a Format.
func ParseFormat(s string) (Format, error) {
	switch constants.NormalizeExt(s) {
	case constants.TableExt:
		return Table, nil
	case constants.LineDelimitedExt:
		return LineDelimited, nil
	}
	return "", common.NewAppError("DATASET_FORMAT", fmt.Sprintf("format %q not recognized", s), common.ErrUnsupportedFormat)
}

// FormatForPath infers the format from a file extension.
func FormatForPath(path string) (Format, error) {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return "", common.NewAppError("DATASET_FORMAT", fmt.Sprintf("cannot infer format of %q", path), common.ErrUnsupportedFormat)
	}
	return f, nil
}

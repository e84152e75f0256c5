package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/nbirkbak/journalist/constants"
	"github.com/nbirkbak/journalist/internal/common"
)

// Info describes an existing dataset file: its encoding, the raw file_name
// values it covers, and how many rows it holds. Identities are raw strings;
// normalization is the resolver's job, applied by the caller.
type Info struct {
	Format     Format
	Identities map[string]struct{}
	Rows       int
}

// Load reads an existing dataset. When format is empty it is inferred from
// the file extension. For line-delimited files malformed lines are skipped;
// a corrupt middle line must not abort reading the remainder.
func Load(path string, format Format) (*Info, error) {
	if format == "" {
		f, err := FormatForPath(path)
		if err != nil {
			return nil, err
		}
		format = f
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.NewAppError("DATASET_LOAD", fmt.Sprintf("dataset %q does not exist", path), common.ErrNotFound)
		}
		return nil, common.WrapError(err, "open dataset")
	}
	defer file.Close()

	info := &Info{Format: format, Identities: make(map[string]struct{})}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	switch format {
	case Table:
		var nameIdx = -1
		var header []string
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), "\r\n")
			if line == "" {
				continue
			}
			cells := strings.Split(line, string(constants.TableDelimiter))
			if header == nil {
				header = cells
				for i, col := range header {
					if col == FieldFileName {
						nameIdx = i
					}
				}
				continue
			}
			info.Rows++
			if nameIdx >= 0 && nameIdx < len(cells) && cells[nameIdx] != "" {
				info.Identities[cells[nameIdx]] = struct{}{}
			}
		}
	case LineDelimited:
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var rec Record
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				continue
			}
			info.Rows++
			if name := rec.FileName(); name != "" {
				info.Identities[name] = struct{}{}
			}
		}
	default:
		return nil, common.NewAppError("DATASET_LOAD", fmt.Sprintf("format %q not recognized", format), common.ErrUnsupportedFormat)
	}
	if err := scanner.Err(); err != nil {
		return nil, common.WrapError(err, "read dataset")
	}
	return info, nil
}

// LoadRows reads every row of a dataset into memory. Table rows come back
// keyed by header column; line-delimited rows keep their nested structure.
// Used by exports and coverage tooling, not by the engine.
func LoadRows(path string, format Format) ([]Record, []string, error) {
	if format == "" {
		f, err := FormatForPath(path)
		if err != nil {
			return nil, nil, err
		}
		format = f
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, common.NewAppError("DATASET_LOAD", fmt.Sprintf("dataset %q does not exist", path), common.ErrNotFound)
		}
		return nil, nil, common.WrapError(err, "open dataset")
	}
	defer file.Close()

	var rows []Record
	var header []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	switch format {
	case Table:
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), "\r\n")
			if line == "" {
				continue
			}
			cells := strings.Split(line, string(constants.TableDelimiter))
			if header == nil {
				header = cells
				continue
			}
			rec := make(Record, len(header))
			for i, col := range header {
				if i < len(cells) {
					rec[col] = cells[i]
				}
			}
			rows = append(rows, rec)
		}
	case LineDelimited:
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var rec Record
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				continue
			}
			rows = append(rows, rec)
		}
	default:
		return nil, nil, common.NewAppError("DATASET_LOAD", fmt.Sprintf("format %q not recognized", format), common.ErrUnsupportedFormat)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, common.WrapError(err, "read dataset")
	}
	return rows, header, nil
}

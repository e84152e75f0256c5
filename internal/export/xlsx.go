// Package export converts a dataset file into an XLSX workbook for manual
// review and sharing.
package export

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nbirkbak/journalist/internal/common"
	"github.com/nbirkbak/journalist/internal/dataset"
	"github.com/nbirkbak/journalist/internal/schema"
)

// Service produces XLSX bytes from persisted datasets.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportXLSX reads the dataset at path (either encoding) and returns an XLSX
// workbook as bytes. Table datasets keep their header order; line-delimited
// datasets are flattened into the canonical column order with any extra keys
// appended alphabetically.
func (s *Service) ExportXLSX(path string) ([]byte, error) {
	start := time.Now()

	rows, header, err := dataset.LoadRows(path, "")
	if err != nil {
		return nil, err
	}
	flat := make([]map[string]any, len(rows))
	for i, rec := range rows {
		flat[i] = dataset.Flatten(rec)
	}
	columns := header
	if columns == nil {
		columns = columnsFor(flat)
	}

	f := excelize.NewFile()
	const sheet = "Journals"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, col)
	}
	for r, row := range flat {
		for c, col := range columns {
			v, ok := row[col]
			if !ok {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(sheet, cell, cellValue(v))
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, common.WrapError(err, "xlsx write")
	}
	s.logger.Info("export.xlsx.ok",
		"dataset", path,
		"rows", len(rows),
		"columns", len(columns),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// columnsFor orders flattened keys: canonical schema columns that actually
// occur first, then any remaining keys alphabetically.
func columnsFor(rows []map[string]any) []string {
	seen := map[string]struct{}{}
	for _, row := range rows {
		for k := range row {
			seen[k] = struct{}{}
		}
	}
	var columns []string
	for _, col := range schema.Columns() {
		if _, ok := seen[col]; ok {
			columns = append(columns, col)
			delete(seen, col)
		}
	}
	var extras []string
	for k := range seen {
		extras = append(extras, k)
	}
	sort.Strings(extras)
	return append(columns, extras...)
}

func cellValue(v any) any {
	switch v.(type) {
	case string, float64, int, bool:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

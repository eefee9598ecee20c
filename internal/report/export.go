// internal/report/export.go
package report

import (
	"encoding/json"
	"fmt"
	"time"

	"cnpj-workers/internal/task"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Resultados"

// ExportXLSX encodes the table as a spreadsheet containing only DONE
// rows, with the on-screen column order and date formatting. It returns
// the file bytes and a filename stamped with the generation time.
func (e *Engine) ExportXLSX(tbl *Table, generatedAt time.Time) ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, "", fmt.Errorf("rename sheet: %w", err)
	}

	for col, name := range tbl.Columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, "", err
		}
		if err := f.SetCellValue(exportSheet, cell, name); err != nil {
			return nil, "", err
		}
	}

	rowIdx := 2
	for _, row := range tbl.Rows {
		if row.Task.Status != task.StatusDone {
			continue
		}
		for col, name := range tbl.Columns {
			val := row.Cells[name]
			if val == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx)
			if err != nil {
				return nil, "", err
			}
			if err := f.SetCellValue(exportSheet, cell, exportValue(val)); err != nil {
				return nil, "", err
			}
		}
		rowIdx++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("encode spreadsheet: %w", err)
	}

	filename := fmt.Sprintf("consulta_cnpjs_resultados_%s.xlsx",
		generatedAt.In(e.loc).Format("2006-01-02_150405"))

	return buf.Bytes(), filename, nil
}

func exportValue(v interface{}) interface{} {
	if n, ok := v.(json.Number); ok {
		return n.String()
	}
	return v
}

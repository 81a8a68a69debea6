package report

import (
	"bytes"
	"fmt"

	"github.com/JonMunkholm/hwlog/internal/record"
	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the MIME type of Excel reports.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const sheetName = "Relatorio"

// XLSX renders the same rows as CSV into a single-sheet workbook.
func (e *Exporter) XLSX(history []record.SupportRecord, f Filter) (string, []byte, error) {
	rows, err := e.Rows(history, f)
	if err != nil {
		return "", nil, err
	}

	wb := excelize.NewFile()
	defer wb.Close()

	if err := wb.SetSheetName("Sheet1", sheetName); err != nil {
		return "", nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := setRow(wb, 1, Headers); err != nil {
		return "", nil, err
	}
	for i, row := range rows {
		if err := setRow(wb, i+2, row); err != nil {
			return "", nil, err
		}
	}

	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		return "", nil, fmt.Errorf("write workbook: %w", err)
	}
	return f.basename() + ".xlsx", buf.Bytes(), nil
}

func setRow(wb *excelize.File, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	if err := wb.SetSheetRow(sheetName, cell, &vals); err != nil {
		return fmt.Errorf("set row %d: %w", n, err)
	}
	return nil
}

package therapy

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"healthai.com/rider/types"
)

// LoadWorkbook reads flat rules from a spreadsheet. The first row holds
// the column names, every following non-empty row is one rule.
func LoadWorkbook(path string, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook %s has no sheets", types.ErrMalformedTable, path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", types.ErrMalformedTable, sheet)
	}

	header := rows[0]
	records := make([]map[string]interface{}, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		record := make(map[string]interface{}, len(header))
		for i, col := range header {
			if col == "" || i >= len(row) {
				continue
			}
			record[col] = strings.TrimSpace(row[i])
		}
		records = append(records, record)
	}
	return FlatTable(records), nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

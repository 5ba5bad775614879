package catalog

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// openSheet opens a workbook and returns the named sheet, or the first one
// when name is empty.
func openSheet(path, name string) (*xlsx.Sheet, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: open %s", path)
	}
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("catalog: sheet %q not found in %s", name, path)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("catalog: %s has no sheets", path)
	}
	return f.Sheets[0], nil
}

// header maps trimmed column names to their index.
type header map[string]int

func readHeader(sheet *xlsx.Sheet) (header, error) {
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("catalog: sheet %q is empty", sheet.Name)
	}
	h := make(header, len(sheet.Rows[0].Cells))
	for i, cell := range sheet.Rows[0].Cells {
		name := strings.TrimSpace(cell.String())
		if name != "" {
			h[name] = i
		}
	}
	return h, nil
}

func (h header) require(cols ...string) error {
	for _, c := range cols {
		if _, ok := h[c]; !ok {
			return eris.Errorf("catalog: missing column %s", c)
		}
	}
	return nil
}

// cell returns the row's cell for a column, or nil when the column or cell
// is absent.
func (h header) cell(row *xlsx.Row, col string) *xlsx.Cell {
	i, ok := h[col]
	if !ok || i >= len(row.Cells) {
		return nil
	}
	return row.Cells[i]
}

func (h header) text(row *xlsx.Row, col string) string {
	c := h.cell(row, col)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.String())
}

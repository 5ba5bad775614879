package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/brickwatch/internal/model"
)

// History sheet columns.
const (
	ColDate     = "Date"
	ColMerchant = "Site"
	ColPrice    = "Prix"
)

// HistoryDateLayout is the timestamp format of the history sheet.
const HistoryDateLayout = "2006-01-02 15:04:05"

var historyColumns = []string{ColDate, ColID, ColName, ColMerchant, ColPrice}

// WriteHistoryXLSX writes records oldest first to a new workbook at path.
// Dates are rendered in loc.
func WriteHistoryXLSX(path string, records []model.PriceHistoryRecord, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	sorted := append([]model.PriceHistoryRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RecordedAt.Before(sorted[j].RecordedAt)
	})

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Historique")
	if err != nil {
		return eris.Wrap(err, "catalog: add history sheet")
	}
	hdr := sheet.AddRow()
	for _, col := range historyColumns {
		hdr.AddCell().SetString(col)
	}
	for _, r := range sorted {
		row := sheet.AddRow()
		row.AddCell().SetString(r.RecordedAt.In(loc).Format(HistoryDateLayout))
		row.AddCell().SetString(r.ItemID)
		row.AddCell().SetString(r.ItemName)
		row.AddCell().SetString(r.Merchant)
		row.AddCell().SetFloat(r.Price.InexactFloat64())
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "catalog: save %s", path)
	}
	return nil
}

// ReadHistoryXLSX reads a history sheet (Date, ID_Set, Nom_Set, Site, Prix).
// Dates without a zone are interpreted in loc. Rows with a missing ID,
// merchant, date or price are skipped with a warning.
func ReadHistoryXLSX(path string, loc *time.Location) ([]model.PriceHistoryRecord, error) {
	if loc == nil {
		loc = time.UTC
	}
	sheet, err := openSheet(path, "")
	if err != nil {
		return nil, err
	}
	h, err := readHeader(sheet)
	if err != nil {
		return nil, err
	}
	if err := h.require(ColDate, ColID, ColMerchant, ColPrice); err != nil {
		return nil, err
	}

	var out []model.PriceHistoryRecord
	for i, row := range sheet.Rows[1:] {
		rowNum := i + 2
		id := h.text(row, ColID)
		merchant := h.text(row, ColMerchant)
		if id == "" || merchant == "" {
			continue
		}
		at, ok := parseDate(h.cell(row, ColDate), loc)
		if !ok {
			zap.L().Warn("catalog: unreadable date in history", zap.Int("row", rowNum))
			continue
		}
		price, ok := parsePrice(h.text(row, ColPrice))
		if !ok {
			zap.L().Warn("catalog: unreadable price in history",
				zap.Int("row", rowNum),
				zap.String("value", h.text(row, ColPrice)),
			)
			continue
		}
		out = append(out, model.PriceHistoryRecord{
			ItemID:     id,
			ItemName:   h.text(row, ColName),
			Merchant:   merchant,
			Price:      price,
			RecordedAt: at,
		})
	}
	return out, nil
}

var dateLayouts = []string{HistoryDateLayout, "2006-01-02T15:04:05", "2006-01-02"}

// parseDate accepts text timestamps as well as native spreadsheet dates.
func parseDate(c *xlsx.Cell, loc *time.Location) (time.Time, bool) {
	if c == nil {
		return time.Time{}, false
	}
	s := strings.TrimSpace(c.String())
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	if f, err := c.Float(); err == nil && f > 0 {
		t := xlsx.TimeFromExcelTime(f, false)
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), true
	}
	return time.Time{}, false
}

// parsePrice reads "49.99", "49,99" or "49.99 €" and rounds to cents.
func parsePrice(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "€"))
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d.Round(2), true
}

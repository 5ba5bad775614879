// Package catalog reads the tracking sheet listing the LEGO sets to follow
// and converts the ledger to and from the legacy history sheet.
package catalog

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/brickwatch/internal/model"
)

// Tracking sheet columns.
const (
	ColID         = "ID_Set"
	ColName       = "Nom_Set"
	ColPieces     = "nbPieces"
	ColCollection = "Collection"
	ColImage      = "Image_URL"
	URLPrefix     = "URL_"
)

// Task is one product page to check.
type Task struct {
	ItemID   string
	ItemName string
	URL      string
}

// MerchantTasks groups the pages of one merchant.
type MerchantTasks struct {
	Merchant string
	Tasks    []Task
}

// Catalog is the set of tracked items, in sheet order.
type Catalog struct {
	Items     map[string]model.TrackedItem
	order     []string
	merchants []string // URL_ columns in sheet order
}

// New builds a catalog from items; used by tests and the API.
func New(items ...model.TrackedItem) *Catalog {
	c := &Catalog{Items: make(map[string]model.TrackedItem, len(items))}
	seen := make(map[string]bool)
	for _, it := range items {
		c.add(it)
		merchants := make([]string, 0, len(it.URLs))
		for m := range it.URLs {
			merchants = append(merchants, m)
		}
		sort.Strings(merchants)
		for _, m := range merchants {
			if !seen[m] {
				seen[m] = true
				c.merchants = append(c.merchants, m)
			}
		}
	}
	return c
}

func (c *Catalog) add(it model.TrackedItem) {
	if _, dup := c.Items[it.ID]; dup {
		zap.L().Warn("catalog: duplicate item, keeping last row", zap.String("item", it.ID))
	} else {
		c.order = append(c.order, it.ID)
	}
	c.Items[it.ID] = it
}

// IDs returns item IDs in sheet order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// Len returns the number of tracked items.
func (c *Catalog) Len() int { return len(c.order) }

// Tasks groups product pages by merchant. Merchants keep their column
// order, items their row order. Merchants with no pages are omitted.
func (c *Catalog) Tasks() []MerchantTasks {
	var out []MerchantTasks
	for _, m := range c.merchants {
		mt := MerchantTasks{Merchant: m}
		for _, id := range c.order {
			it := c.Items[id]
			if u := it.URLs[m]; u != "" {
				mt.Tasks = append(mt.Tasks, Task{ItemID: id, ItemName: it.Name, URL: u})
			}
		}
		if len(mt.Tasks) > 0 {
			out = append(out, mt)
		}
	}
	return out
}

// Load reads the tracking sheet at path. sheetName selects a sheet; empty
// means the first one.
func Load(path, sheetName string) (*Catalog, error) {
	sheet, err := openSheet(path, sheetName)
	if err != nil {
		return nil, err
	}
	h, err := readHeader(sheet)
	if err != nil {
		return nil, err
	}
	if err := h.require(ColID); err != nil {
		return nil, err
	}

	c := &Catalog{Items: make(map[string]model.TrackedItem)}
	urlCols := make(map[string]string)
	for name := range h {
		if m := strings.TrimPrefix(name, URLPrefix); m != name && m != "" {
			urlCols[m] = name
		}
	}
	for m := range urlCols {
		c.merchants = append(c.merchants, m)
	}
	sort.Slice(c.merchants, func(i, j int) bool {
		return h[urlCols[c.merchants[i]]] < h[urlCols[c.merchants[j]]]
	})

	for i, row := range sheet.Rows[1:] {
		id := h.text(row, ColID)
		if id == "" {
			continue
		}
		item := model.TrackedItem{
			ID:         id,
			Name:       h.text(row, ColName),
			Collection: h.text(row, ColCollection),
			ImageURL:   h.text(row, ColImage),
			URLs:       make(map[string]string),
		}
		if raw := h.text(row, ColPieces); raw != "" {
			n, ok := parsePieces(raw)
			if !ok {
				zap.L().Warn("catalog: non-numeric piece count",
					zap.String("item", id),
					zap.String("value", raw),
					zap.Int("row", i+2),
				)
			} else {
				item.PieceCount = &n
			}
		}
		for m, col := range urlCols {
			if u := h.text(row, col); u != "" {
				item.URLs[m] = u
			}
		}
		c.add(item)
	}

	zap.L().Info("catalog: loaded",
		zap.String("path", path),
		zap.Int("items", c.Len()),
		zap.Strings("merchants", c.merchants),
	)
	return c, nil
}

// parsePieces accepts integers, including spreadsheet floats such as "482.0".
func parsePieces(s string) (int, bool) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, " ", ""), 64)
	if err != nil || f != math.Trunc(f) || f < 0 {
		return 0, false
	}
	return int(f), true
}

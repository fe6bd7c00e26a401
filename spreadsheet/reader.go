// Package spreadsheet reads product lists from .xlsx workbooks and writes
// price-comparison reports back out.
package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/use-agent/pricewatch/models"
	"github.com/xuri/excelize/v2"
)

// Fixed column headers. Every other non-blank header is a competitor column.
const (
	ColName         = "Product Name"
	ColCode         = "Product Code"
	ColCost         = "Cost"
	ColSellingPrice = "Selling Price"
)

var (
	// ErrEmptyWorkbook is returned for a workbook without a header row.
	ErrEmptyWorkbook = errors.New("spreadsheet: workbook has no header row")

	// ErrMissingColumn is returned when a fixed column header is absent.
	ErrMissingColumn = errors.New("spreadsheet: missing required column")

	// ErrNoProducts is returned when the header is followed by no data rows.
	ErrNoProducts = errors.New("spreadsheet: no product rows")
)

var fixedColumns = []string{ColName, ColCode, ColCost, ColSellingPrice}

// ParseProducts reads the first sheet of an .xlsx workbook. Row 1 is the
// header; fully blank rows are skipped. Missing fixed-field cells become
// "Unknown"; missing competitor cells become empty (no URL).
func ParseProducts(r io.Reader) ([]models.Product, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 || isBlank(rows[0]) {
		return nil, ErrEmptyWorkbook
	}

	layout, err := parseHeader(rows[0])
	if err != nil {
		return nil, err
	}

	products := make([]models.Product, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		products = append(products, layout.product(row))
	}
	if len(products) == 0 {
		return nil, ErrNoProducts
	}
	return products, nil
}

// header maps column positions to fields.
type header struct {
	fixed       map[string]int
	competitors map[int]models.CompetitorID
}

func parseHeader(row []string) (*header, error) {
	h := &header{
		fixed:       make(map[string]int, len(fixedColumns)),
		competitors: make(map[int]models.CompetitorID),
	}
	for i, cell := range row {
		name := strings.TrimSpace(cell)
		if name == "" {
			continue
		}
		if fixed, ok := matchFixed(name); ok {
			if _, dup := h.fixed[fixed]; !dup {
				h.fixed[fixed] = i
			}
			continue
		}
		h.competitors[i] = models.CompetitorID(name)
	}
	for _, col := range fixedColumns {
		if _, ok := h.fixed[col]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
	}
	return h, nil
}

func matchFixed(name string) (string, bool) {
	for _, col := range fixedColumns {
		if strings.EqualFold(name, col) {
			return col, true
		}
	}
	return "", false
}

func (h *header) product(row []string) models.Product {
	p := models.Product{
		Name:           h.fixedCell(row, ColName),
		Code:           h.fixedCell(row, ColCode),
		Cost:           h.fixedCell(row, ColCost),
		SellingPrice:   h.fixedCell(row, ColSellingPrice),
		CompetitorURLs: make(map[models.CompetitorID]string, len(h.competitors)),
	}
	for i, id := range h.competitors {
		p.CompetitorURLs[id] = cell(row, i)
	}
	return p
}

func (h *header) fixedCell(row []string, col string) string {
	v := cell(row, h.fixed[col])
	if v == "" {
		return models.UnknownField
	}
	return v
}

// cell returns the trimmed value at i; excelize omits trailing empty cells.
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

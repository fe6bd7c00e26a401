package spreadsheet

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/use-agent/pricewatch/models"
	"github.com/use-agent/pricewatch/report"
	"github.com/xuri/excelize/v2"
)

// ReportSheet is the name of the single sheet written by WriteReport.
const ReportSheet = "Price Comparison"

// OutOfStockCell is written for competitors that list the product without
// stock.
const OutOfStockCell = "Out of stock"

// WriteReport writes reports as an .xlsx workbook to w. competitors selects
// and orders the competitor columns; when empty every competitor found in
// reports is written.
func WriteReport(w io.Writer, reports []models.ProductReport, competitors []models.CompetitorID) error {
	if len(competitors) == 0 {
		competitors = report.Competitors(reports)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReportSheet); err != nil {
		return fmt.Errorf("spreadsheet: rename sheet: %w", err)
	}

	headers := []any{"Product Name", "Product Code", "Cost", "Our Price"}
	for _, id := range competitors {
		headers = append(headers, string(id))
	}
	headers = append(headers, "Min Price", "Avg Price", "Price Status", "Feasibility")
	if err := f.SetSheetRow(ReportSheet, "A1", &headers); err != nil {
		return fmt.Errorf("spreadsheet: write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("spreadsheet: header style: %w", err)
	}
	if err := f.SetRowStyle(ReportSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("spreadsheet: header style: %w", err)
	}
	if err := f.SetPanes(ReportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("spreadsheet: freeze header: %w", err)
	}

	for i, r := range reports {
		row := report.Build(r)
		values := []any{row.Name, row.Code, row.Cost, row.SellingPrice}
		for _, id := range competitors {
			values = append(values, priceCell(row.Prices[id]))
		}
		if row.Stats.Empty() {
			values = append(values, "", "")
		} else {
			values = append(values, number(row.Stats.Min), number(row.Stats.Avg))
		}
		values = append(values, string(row.Position), string(row.Feasibility))

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ReportSheet, cell, &values); err != nil {
			return fmt.Errorf("spreadsheet: write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("spreadsheet: write workbook: %w", err)
	}
	return nil
}

func priceCell(r models.PriceResult) any {
	switch r.Status() {
	case models.StatusPrice:
		a, _ := r.Amount()
		return number(a)
	case models.StatusOutOfStock:
		return OutOfStockCell
	default:
		return ""
	}
}

func number(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

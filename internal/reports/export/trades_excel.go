package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"carbon-registry/registry-backend/internal/marketplace"
)

var tradeColumns = []string{"Listing", "Buyer", "Seller", "Amount", "Total Price", "Executed At"}

// ExcelExporter writes the trade log as a spreadsheet.
type ExcelExporter struct {
	sheetName string
}

func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{sheetName: "Trades"}
}

// Export writes all trades to w as an xlsx workbook.
func (e *ExcelExporter) Export(w io.Writer, trades []marketplace.Trade) error {
	file := excelize.NewFile()
	defer file.Close()

	file.SetSheetName("Sheet1", e.sheetName)

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	for i, col := range tradeColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		file.SetCellValue(e.sheetName, cell, col)
		file.SetCellStyle(e.sheetName, cell, cell, headerStyle)
	}
	file.SetPanes(e.sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	for i, trade := range trades {
		row := i + 2
		values := []interface{}{
			trade.ListingID,
			trade.Buyer,
			trade.Seller,
			trade.Amount.String(),
			trade.TotalPrice.String(),
			trade.At.Format("2006-01-02T15:04:05Z07:00"),
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			file.SetCellValue(e.sheetName, cell, v)
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

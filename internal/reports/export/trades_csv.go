package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"carbon-registry/registry-backend/internal/marketplace"
)

// CSVExporter writes the trade log as CSV.
type CSVExporter struct {
	includeHeader bool
}

func NewCSVExporter() *CSVExporter {
	return &CSVExporter{includeHeader: true}
}

// Export writes all trades to w.
func (e *CSVExporter) Export(w io.Writer, trades []marketplace.Trade) error {
	writer := csv.NewWriter(w)
	if e.includeHeader {
		if err := writer.Write(tradeColumns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, trade := range trades {
		record := []string{
			strconv.FormatUint(trade.ListingID, 10),
			trade.Buyer,
			trade.Seller,
			trade.Amount.String(),
			trade.TotalPrice.String(),
			trade.At.Format("2006-01-02T15:04:05Z07:00"),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write trade row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

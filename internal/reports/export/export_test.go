package export

import (
	"bytes"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"carbon-registry/registry-backend/internal/marketplace"
)

func sampleTrades() []marketplace.Trade {
	return []marketplace.Trade{
		{
			ListingID:  0,
			Buyer:      "0xbuyer",
			Seller:     "0xseller",
			Amount:     big.NewInt(500),
			TotalPrice: big.NewInt(1000),
			At:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ListingID:  1,
			Buyer:      "0xother",
			Seller:     "0xseller",
			Amount:     big.NewInt(200),
			TotalPrice: big.NewInt(600),
			At:         time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		},
	}
}

func TestCSVExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVExporter().Export(&buf, sampleTrades()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Listing,Buyer,Seller,Amount,Total Price,Executed At", lines[0])
	assert.Contains(t, lines[1], "0xbuyer")
	assert.Contains(t, lines[2], "0xother")
}

func TestExcelExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewExcelExporter().Export(&buf, sampleTrades()))

	file, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer file.Close()

	rows, err := file.GetRows("Trades")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Buyer", rows[0][1])
	assert.Equal(t, "0xbuyer", rows[1][1])
	assert.Equal(t, "1000", rows[1][4])
}

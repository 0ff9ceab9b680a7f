package certificates

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"carbon-registry/registry-backend/internal/ledger"
)

// RenderPDF produces a printable attestation for the certificate.
func RenderPDF(cert *Certificate) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 12, "Certificate of Carbon Credit Retirement", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 8, fmt.Sprintf("Token #%d", cert.TokenID), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(0, 0, 0)
	rows := [][2]string{
		{"Retired by", cert.RetiredBy},
		{"Credits retired", formatUnits(cert.CreditsRetired)},
		{"Credit id", fmt.Sprintf("%d", cert.CreditID)},
		{"Project", cert.ProjectName},
		{"Retired at", cert.RetiredAt.Format("2006-01-02 15:04:05 UTC")},
		{"Metadata", cert.URI},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(50, 9, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 9, row[1], "", 1, "L", false, 0, "")
	}

	pdf.Ln(12)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.SetTextColor(128, 128, 128)
	pdf.MultiCell(0, 6, "These credits have been permanently removed from circulation. This attestation is immutable and references the retirement recorded on the registry ledger.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// formatUnits renders a unit-scaled amount as whole credits for display.
func formatUnits(units *big.Int) string {
	whole, rem := new(big.Int).QuoRem(units, ledger.Unit, new(big.Int))
	if rem.Sign() == 0 {
		return whole.String()
	}
	frac := strings.TrimRight(fmt.Sprintf("%018s", rem.String()), "0")
	return fmt.Sprintf("%s.%s", whole, frac)
}

package reports

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carbon-registry/registry-backend/internal/domain"
	"carbon-registry/registry-backend/internal/marketplace"
	"carbon-registry/registry-backend/internal/reports/export"
)

// Exporter writes a trade slice in one output format.
type Exporter interface {
	Export(w io.Writer, trades []marketplace.Trade) error
}

type Handler struct {
	market    *marketplace.Service
	exporters map[string]Exporter
}

func NewHandler(market *marketplace.Service) *Handler {
	return &Handler{
		market: market,
		exporters: map[string]Exporter{
			"csv":  export.NewCSVExporter(),
			"xlsx": export.NewExcelExporter(),
		},
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/reports/trades/:address", h.ExportTrades)
}

func (h *Handler) ExportTrades(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	exporter, ok := h.exporters[format]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported format"})
		return
	}
	trades, err := h.market.GetTrades(c.Param("address"))
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	filename := fmt.Sprintf("trades-%s.%s", time.Now().Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	contentType := "text/csv"
	if format == "xlsx" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if err := exporter.Export(c.Writer, trades); err != nil {
		c.Error(err)
	}
}

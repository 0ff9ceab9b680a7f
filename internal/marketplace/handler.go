package marketplace

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"carbon-registry/registry-backend/internal/auth"
	"carbon-registry/registry-backend/internal/domain"
)

type CreateListingRequest struct {
	Amount       string `json:"amount"`
	PricePerUnit string `json:"price_per_unit"`
	CreditID     uint64 `json:"credit_id"`
	ProjectName  string `json:"project_name"`
}

type BuyRequest struct {
	Amount  string `json:"amount"`
	Payment string `json:"payment"`
}

type UpdatePriceRequest struct {
	PricePerUnit string `json:"price_per_unit"`
}

type UpdateFeeRequest struct {
	FeeBps uint64 `json:"fee_bps"`
}

type Handler struct {
	service  *Service
	maxField int
}

func NewHandler(service *Service, maxField int) *Handler {
	return &Handler{service: service, maxField: maxField}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/listings", h.CreateListing)
	r.GET("/listings", h.ActiveListings)
	r.GET("/listings/:id", h.GetListing)
	r.POST("/listings/:id/buy", h.Buy)
	r.POST("/listings/:id/cancel", h.Cancel)
	r.PUT("/listings/:id/price", h.UpdatePrice)
	r.PUT("/fee", h.UpdateFee)
	r.POST("/fees/withdraw", h.WithdrawFees)
	r.GET("/stats", h.Stats)
	r.GET("/users/:address/trades", h.UserTrades)
}

func (h *Handler) CreateListing(c *gin.Context) {
	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.ProjectName) > h.maxField {
		c.JSON(http.StatusBadRequest, gin.H{"error": "field exceeds maximum length"})
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	price, err := domain.ParseAmount(req.PricePerUnit)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	id, err := h.service.CreateListing(auth.Principal(c), amount, price, req.CreditID, req.ProjectName)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"listing_id": id})
}

func (h *Handler) ActiveListings(c *gin.Context) {
	fromID, _ := strconv.ParseUint(c.DefaultQuery("from", "0"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	listings, err := h.service.GetActiveListings(fromID, limit)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

func (h *Handler) GetListing(c *gin.Context) {
	id, ok := h.listingID(c)
	if !ok {
		return
	}
	listing, err := h.service.GetListing(id)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) Buy(c *gin.Context) {
	id, ok := h.listingID(c)
	if !ok {
		return
	}
	var req BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	payment, err := domain.ParseAmount(req.Payment)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	if err := h.service.BuyCredits(auth.Principal(c), id, amount, payment); err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "settled"})
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := h.listingID(c)
	if !ok {
		return
	}
	if err := h.service.CancelListing(auth.Principal(c), id); err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (h *Handler) UpdatePrice(c *gin.Context) {
	id, ok := h.listingID(c)
	if !ok {
		return
	}
	var req UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	price, err := domain.ParseAmount(req.PricePerUnit)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	if err := h.service.UpdateListingPrice(auth.Principal(c), id, price); err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) UpdateFee(c *gin.Context) {
	var req UpdateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.UpdatePlatformFee(auth.Principal(c), req.FeeBps); err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) WithdrawFees(c *gin.Context) {
	amount, err := h.service.WithdrawFees(auth.Principal(c))
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawn": amount.String()})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.GetMarketplaceStats()
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"listings_created": stats.ListingsCreated,
		"total_volume":     stats.TotalVolume.String(),
		"total_trades":     stats.TotalTrades,
		"fee_bps":          stats.FeeBps,
	})
}

func (h *Handler) UserTrades(c *gin.Context) {
	trades, err := h.service.GetTrades(c.Param("address"))
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (h *Handler) listingID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed listing id"})
		return 0, false
	}
	return id, true
}

package ledger

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"carbon-registry/registry-backend/internal/auth"
	"carbon-registry/registry-backend/internal/domain"
)

type MintRequest struct {
	To          string    `json:"to"`
	Amount      string    `json:"amount"`
	ProjectName string    `json:"project_name"`
	ProjectType string    `json:"project_type"`
	Location    string    `json:"location"`
	Vintage     time.Time `json:"vintage"`
}

type RetireRequest struct {
	Amount   string `json:"amount"`
	CreditID uint64 `json:"credit_id"`
}

type TransferRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type Handler struct {
	service  *Service
	maxField int
}

func NewHandler(service *Service, maxField int) *Handler {
	return &Handler{service: service, maxField: maxField}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/mint", h.Mint)
	r.POST("/retire", h.Retire)
	r.POST("/transfer", h.Transfer)
	r.GET("/credits/:id", h.GetMetadata)
	r.GET("/balances/:address", h.Balance)
	r.GET("/users/:address/retired", h.UserRetired)
	r.GET("/projects/:name/total", h.ProjectTotal)
	r.GET("/supply", h.Supply)
}

func (h *Handler) Supply(c *gin.Context) {
	minted, err := h.service.TotalMinted()
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	retired, err := h.service.TotalRetired()
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_minted":  minted.String(),
		"total_retired": retired.String(),
	})
}

func (h *Handler) Mint(c *gin.Context) {
	var req MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, field := range []string{req.ProjectName, req.ProjectType, req.Location} {
		if len(field) > h.maxField {
			c.JSON(http.StatusBadRequest, gin.H{"error": "field exceeds maximum length"})
			return
		}
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	id, err := h.service.Mint(auth.Principal(c), req.To, amount, req.ProjectName, req.ProjectType, req.Location, req.Vintage)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"credit_id": id})
}

func (h *Handler) Retire(c *gin.Context) {
	var req RetireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	if err := h.service.Retire(auth.Principal(c), amount, req.CreditID); err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "retired"})
}

func (h *Handler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	if err := h.service.Transfer(auth.Principal(c), req.To, amount); err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "transferred"})
}

func (h *Handler) GetMetadata(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed credit id"})
		return
	}
	credit, err := h.service.GetMetadata(id)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, credit)
}

func (h *Handler) Balance(c *gin.Context) {
	bal, err := h.service.BalanceOf(c.Param("address"))
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": c.Param("address"), "balance": bal.String()})
}

func (h *Handler) UserRetired(c *gin.Context) {
	retired, err := h.service.GetUserRetired(c.Param("address"))
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"credit_ids": retired})
}

func (h *Handler) ProjectTotal(c *gin.Context) {
	total, err := h.service.GetProjectTotal(c.Param("name"))
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": c.Param("name"), "total": total.String()})
}

package roles

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carbon-registry/registry-backend/internal/auth"
	"carbon-registry/registry-backend/internal/domain"
)

type GrantRequest struct {
	Principal string `json:"principal"`
	Role      Role   `json:"role"`
}

type Handler struct {
	set *Set
}

func NewHandler(set *Set) *Handler {
	return &Handler{set: set}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/roles/grant", h.Grant)
	r.POST("/roles/revoke", h.Revoke)
	r.GET("/roles/:address", h.List)
}

func (h *Handler) Grant(c *gin.Context) {
	req, ok := bindGrant(c)
	if !ok {
		return
	}
	if err := h.set.Grant(auth.Principal(c), req.Principal, req.Role); err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "granted"})
}

func (h *Handler) Revoke(c *gin.Context) {
	req, ok := bindGrant(c)
	if !ok {
		return
	}
	if err := h.set.Revoke(auth.Principal(c), req.Principal, req.Role); err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

func (h *Handler) List(c *gin.Context) {
	address := c.Param("address")
	held := make([]Role, 0, 3)
	for _, role := range []Role{Admin, Verifier, Minter} {
		if h.set.Has(address, role) {
			held = append(held, role)
		}
	}
	c.JSON(http.StatusOK, gin.H{"address": address, "roles": held})
}

func bindGrant(c *gin.Context) (GrantRequest, bool) {
	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, false
	}
	switch req.Role {
	case Admin, Verifier, Minter:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return req, false
	}
	return req, true
}

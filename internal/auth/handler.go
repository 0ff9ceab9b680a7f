package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const tokenTTL = 24 * time.Hour

type TokenRequest struct {
	Address string `json:"address"`
}

type Handler struct {
	secret []byte
}

func NewHandler(secret []byte) *Handler {
	return &Handler{secret: secret}
}

// RegisterRoutes mounts the token endpoint. It is unauthenticated; in a real
// deployment the address claim would come from a wallet signature challenge.
// TODO: replace with a signed-nonce challenge before exposing publicly.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/auth/token", h.Token)
}

func (h *Handler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address is required"})
		return
	}
	token, err := IssueToken(h.secret, req.Address, tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_in": int(tokenTTL.Seconds())})
}

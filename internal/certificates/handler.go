package certificates

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"carbon-registry/registry-backend/internal/domain"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/certificates/:id", h.GetCertificate)
	r.GET("/certificates/:id/pdf", h.GetCertificatePDF)
	r.GET("/owners/:address/certificates", h.OwnerCertificates)
}

func (h *Handler) GetCertificate(c *gin.Context) {
	id, ok := tokenID(c)
	if !ok {
		return
	}
	cert, err := h.service.GetCertificate(id)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cert)
}

func (h *Handler) GetCertificatePDF(c *gin.Context) {
	id, ok := tokenID(c)
	if !ok {
		return
	}
	cert, err := h.service.GetCertificate(id)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	buf, err := RenderPDF(cert)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=certificate-%d.pdf", cert.TokenID))
	c.Data(http.StatusOK, "application/pdf", buf)
}

func (h *Handler) OwnerCertificates(c *gin.Context) {
	ids, err := h.service.GetOwnerCertificates(c.Param("address"))
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"certificates": ids})
}

func tokenID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed certificate id"})
		return 0, false
	}
	return id, true
}

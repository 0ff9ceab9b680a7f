package registry

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"carbon-registry/registry-backend/internal/auth"
	"carbon-registry/registry-backend/internal/domain"
)

type RegisterIssuerRequest struct {
	Name string `json:"name"`
}

type VerifyIssuerRequest struct {
	Address string `json:"address"`
}

type RegisterProjectRequest struct {
	Name        string `json:"name"`
	ProjectType string `json:"project_type"`
	Location    string `json:"location"`
	MetadataURI string `json:"metadata_uri"`
}

type RecordCreditsRequest struct {
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
	r.POST("/issuers", h.RegisterIssuer)
	r.POST("/issuers/verify", h.VerifyIssuer)
	r.GET("/issuers/:address", h.GetIssuer)
	r.POST("/projects", h.RegisterProject)
	r.POST("/projects/:id/verify", h.VerifyProject)
	r.POST("/projects/:id/credits", h.RecordCredits)
	r.POST("/projects/:id/deactivate", h.Deactivate)
	r.GET("/projects/:id", h.GetProject)
	r.GET("/stats", h.Stats)
}

func (h *Handler) Stats(c *gin.Context) {
	verified, err := h.service.TotalVerifiedProjects()
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_verified_projects": verified})
}

func (h *Handler) RegisterIssuer(c *gin.Context) {
	var req RegisterIssuerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Name) > h.maxField {
		c.JSON(http.StatusBadRequest, gin.H{"error": "field exceeds maximum length"})
		return
	}
	if err := h.service.RegisterIssuer(auth.Principal(c), req.Name); err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "registered"})
}

func (h *Handler) VerifyIssuer(c *gin.Context) {
	var req VerifyIssuerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.VerifyIssuer(auth.Principal(c), req.Address); err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "verified"})
}

func (h *Handler) GetIssuer(c *gin.Context) {
	issuer, err := h.service.GetIssuer(c.Param("address"))
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, issuer)
}

func (h *Handler) RegisterProject(c *gin.Context) {
	var req RegisterProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, field := range []string{req.Name, req.ProjectType, req.Location, req.MetadataURI} {
		if len(field) > h.maxField {
			c.JSON(http.StatusBadRequest, gin.H{"error": "field exceeds maximum length"})
			return
		}
	}
	id, err := h.service.RegisterProject(auth.Principal(c), req.Name, req.ProjectType, req.Location, req.MetadataURI)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project_id": id})
}

func (h *Handler) VerifyProject(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		return
	}
	if err := h.service.VerifyProject(auth.Principal(c), id); err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "verified"})
}

func (h *Handler) RecordCredits(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		return
	}
	var req RecordCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	if err := h.service.RecordCreditsIssued(auth.Principal(c), id, amount); err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

func (h *Handler) Deactivate(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		return
	}
	if err := h.service.DeactivateProject(auth.Principal(c), id); err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

func (h *Handler) GetProject(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		return
	}
	project, err := h.service.GetProject(id)
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, project)
}

func parseID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed project id"})
	}
	return id, err
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-market/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-market/internal/service"
)

type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler создаёт новый хэндлер.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Categories обрабатывает GET /categories.
func (h *CatalogHandler) Categories(c *gin.Context) {
	categories, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// Skills обрабатывает GET /skills.
func (h *CatalogHandler) Skills(c *gin.Context) {
	skills, err := h.catalog.Skills(c.Request.Context())
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"skills": skills})
}

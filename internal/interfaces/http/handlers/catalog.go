// internal/interfaces/http/handlers/catalog.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/farmshop-backend/internal/domain/catalog"
)

// CatalogHandler handles operator catalog lookups
type CatalogHandler struct {
	catalogService *catalog.Service
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogService *catalog.Service) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
	}
}

// GetVariant handles GET /catalog/variants/:sku, used by operators to
// check what a SKU on an order or task refers to.
func (h *CatalogHandler) GetVariant(c *gin.Context) {
	variant, err := h.catalogService.VariantBySKU(c.Param("sku"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, variant)
}

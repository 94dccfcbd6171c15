package handler

import (
	"net/http"

	"discovery/internal/catalog"
	"discovery/internal/model"
)

// CatalogHandler serves the static question catalog
type CatalogHandler struct {
	catalog *catalog.Catalog
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: cat}
}

// CatalogResponse is the catalog as sent to clients
type CatalogResponse struct {
	Title    string          `json:"title"`
	Sections []model.Section `json:"sections"`
}

// Get handles GET /v1/catalog
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CatalogResponse{
		Title:    h.catalog.Title,
		Sections: h.catalog.Sections(),
	})
}

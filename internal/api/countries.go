package api

import (
	"log/slog"
	"net/http"

	"github.com/scholarwatch/scholarship-watcher/internal/catalog"
	"github.com/scholarwatch/scholarship-watcher/internal/domain"
)

type CountriesHandler struct {
	catalog catalog.Provider
	logger  *slog.Logger
}

func NewCountriesHandler(c catalog.Provider, logger *slog.Logger) *CountriesHandler {
	return &CountriesHandler{catalog: c, logger: logger}
}

func (h *CountriesHandler) List(w http.ResponseWriter, r *http.Request) {
	countries, err := h.catalog.Countries(r.Context())
	if err != nil {
		h.logger.Error("failed to load country catalog", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load countries")
		return
	}

	// The catalog changes rarely; let clients and CDNs hold it for an hour.
	w.Header().Set("Cache-Control", "public, max-age=3600")
	respondJSON(w, http.StatusOK, domain.CountriesResponse{Countries: countries})
}

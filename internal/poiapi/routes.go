package poiapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/nearby", h.NearbyHandler)
	r.Get("/datasets", h.DatasetsHandler)
	r.Get("/exclusions", h.ExclusionsHandler)
	r.Get("/{id}", h.POIHandler)

	return r
}

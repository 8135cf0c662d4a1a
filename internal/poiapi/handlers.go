package poiapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/LayeredData/POI-Backend/internal/unify"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// Handler serves read queries over the canonical dataset. The store handle
// is injected rather than pulled from a global.
type Handler struct {
	DB   *gorm.DB
	SRID int
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// NearbyHandler answers "what is near this location": the K nearest canonical
// records to a point, optionally restricted to one layer. The ordering rides
// on the GiST index via the KNN operator.
func (h *Handler) NearbyHandler(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil {
		http.Error(w, "lat and lng are required numeric parameters", http.StatusBadRequest)
		return
	}

	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 100 {
			http.Error(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = n
	}

	query := fmt.Sprintf(`
		SELECT poi_id, name, layer, latitude, longitude,
		       ST_Distance(geometry, ST_SetSRID(ST_MakePoint(?, ?), %d)) AS distance
		FROM public.unified_pois
		WHERE geometry IS NOT NULL
	`, h.SRID)
	args := []any{lng, lat}

	if layer := r.URL.Query().Get("layer"); layer != "" {
		query += " AND layer = ?"
		args = append(args, layer)
	}

	query += fmt.Sprintf(`
		ORDER BY geometry <-> ST_SetSRID(ST_MakePoint(?, ?), %d)
		LIMIT ?
	`, h.SRID)
	args = append(args, lng, lat, limit)

	rows, err := h.DB.WithContext(r.Context()).Raw(query, args...).Rows()
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	results := []NearbyPOI{}
	for rows.Next() {
		var p NearbyPOI
		if err := rows.Scan(&p.PoiID, &p.Name, &p.Layer, &p.Latitude, &p.Longitude, &p.Distance); err != nil {
			http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		results = append(results, p)
	}

	writeJSON(w, results)
}

// POIHandler returns one canonical record in full, attribute bag and
// nearest-neighbor summary included.
func (h *Handler) POIHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var poi unify.POI
	res := h.DB.WithContext(r.Context()).Raw(`
		SELECT poi_id, name, layer, district_id, district, neighborhood_id, neighborhood,
		       latitude, longitude, ST_AsEWKT(geometry) AS geometry, attributes, nearest_pois
		FROM public.unified_pois
		WHERE poi_id = ?
	`, id).Scan(&poi)
	if res.Error != nil {
		http.Error(w, "DB error: "+res.Error.Error(), http.StatusInternalServerError)
		return
	}
	if res.RowsAffected == 0 {
		http.Error(w, "POI not found", http.StatusNotFound)
		return
	}

	writeJSON(w, poi)
}

// DatasetsHandler lists the merge history (the processed-set ledger).
func (h *Handler) DatasetsHandler(w http.ResponseWriter, r *http.Request) {
	var entries []unify.ProcessedTable
	if err := h.DB.WithContext(r.Context()).Order("processed_date").Find(&entries).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

// ExclusionsHandler lists the current validation findings.
func (h *Handler) ExclusionsHandler(w http.ResponseWriter, r *http.Request) {
	var entries []unify.Exclusion
	if err := h.DB.WithContext(r.Context()).Order("table_name, reason").Find(&entries).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

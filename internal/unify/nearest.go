package unify

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// EnrichNearest fills nearest_pois for every record of the query layer,
// using the full in-flight record set of the run as the candidate pool.
// For each other layer present, the single nearest candidate is summarised;
// equidistant candidates resolve to the smaller poi_id so results stay
// deterministic across runs.
//
// Distances are planar in the units of the storage SRS (degrees for 4326),
// matching what ST_Distance reports for the stored geometry.
//
// Each query record scans every candidate, so a run over Q query records and
// N candidates costs O(Q*N). Fine for batch sizes in the tens of thousands;
// beyond that the lookup belongs on the GiST index instead.
func EnrichNearest(records []*POI, queryLayer string) {
	type candidate struct {
		rec  *POI
		x, y float64
	}

	byLayer := map[string][]candidate{}
	for _, r := range records {
		if r.Layer == queryLayer {
			continue
		}
		x, y, ok := pointCoords(r)
		if !ok {
			continue
		}
		byLayer[r.Layer] = append(byLayer[r.Layer], candidate{rec: r, x: x, y: y})
	}

	layers := make([]string, 0, len(byLayer))
	for l := range byLayer {
		layers = append(layers, l)
	}
	sort.Strings(layers)

	for _, q := range records {
		if q.Layer != queryLayer {
			continue
		}
		qx, qy, ok := pointCoords(q)
		if !ok {
			continue // degenerate geometry: no enrichment, still merged
		}

		nearest := JSONB{}
		for _, layer := range layers {
			var best *candidate
			var bestDist float64
			for i := range byLayer[layer] {
				c := &byLayer[layer][i]
				d := math.Hypot(c.x-qx, c.y-qy)
				switch {
				case best == nil, d < bestDist:
					best, bestDist = c, d
				case d == bestDist && c.rec.PoiID < best.rec.PoiID:
					best = c
				}
			}
			if best != nil {
				nearest[layer] = summarize(best.rec, bestDist)
			}
		}
		if len(nearest) > 0 {
			q.NearestPois = nearest
		}
	}
}

// summarize builds the compact per-category entry stored under nearest_pois.
// Address parts come from the candidate's attribute bag and degrade to null
// when the source never carried them.
func summarize(rec *POI, dist float64) map[string]any {
	var street, houseNumber any
	if rec.Attributes != nil {
		street = rec.Attributes["street"]
		houseNumber = rec.Attributes["housenumber"]
	}
	return map[string]any{
		"id":       rec.PoiID,
		"name":     rec.Name,
		"distance": dist,
		"address": map[string]any{
			"street":      street,
			"housenumber": houseNumber,
		},
	}
}

// pointCoords extracts a planar coordinate for a record. The stored geometry
// is authoritative when it parses; records whose geometry is absent or not a
// point fall back to the numeric latitude/longitude columns, and only records
// with neither are degenerate.
func pointCoords(p *POI) (x, y float64, ok bool) {
	if x, y, ok = parsePoint(string(p.Geometry)); ok {
		return x, y, true
	}
	if p.Longitude != nil && p.Latitude != nil {
		return *p.Longitude, *p.Latitude, true
	}
	return 0, 0, false
}

// parsePoint reads "POINT(x y)" with an optional SRID prefix. Empty,
// malformed or non-point text reports not-ok and leaves the caller to its
// coordinate-column fallback.
func parsePoint(wkt string) (x, y float64, ok bool) {
	wkt = strings.TrimSpace(wkt)
	if wkt == "" {
		return 0, 0, false
	}
	if strings.HasPrefix(strings.ToUpper(wkt), "SRID=") {
		i := strings.Index(wkt, ";")
		if i < 0 {
			return 0, 0, false
		}
		wkt = wkt[i+1:]
	}
	up := strings.ToUpper(strings.TrimSpace(wkt))
	if !strings.HasPrefix(up, "POINT") {
		return 0, 0, false
	}
	open := strings.Index(wkt, "(")
	end := strings.Index(wkt, ")")
	if open < 0 || end < open {
		return 0, 0, false
	}
	parts := strings.Fields(wkt[open+1 : end])
	if len(parts) != 2 {
		return 0, 0, false
	}
	x, errX := strconv.ParseFloat(parts[0], 64)
	y, errY := strconv.ParseFloat(parts[1], 64)
	if errX != nil || errY != nil {
		return 0, 0, false
	}
	return x, y, true
}

package unify_test

import (
	"testing"

	"github.com/LayeredData/POI-Backend/internal/unify"
)

func strPtr(s string) *string { return &s }
func fPtr(f float64) *float64 { return &f }

func poi(id, layer string, lng, lat float64) *unify.POI {
	return &unify.POI{
		PoiID:     id,
		Name:      strPtr(id),
		Layer:     layer,
		Latitude:  fPtr(lat),
		Longitude: fPtr(lng),
	}
}

func entryFor(t *testing.T, p *unify.POI, layer string) map[string]any {
	t.Helper()
	if p.NearestPois == nil {
		t.Fatalf("%s: expected nearest_pois", p.PoiID)
	}
	raw, ok := p.NearestPois[layer]
	if !ok {
		t.Fatalf("%s: expected a %q entry, got %v", p.PoiID, layer, p.NearestPois)
	}
	entry, ok := raw.(map[string]any)
	if !ok {
		t.Fatalf("%s: entry has unexpected shape %T", p.PoiID, raw)
	}
	return entry
}

// TestEnrichNearest_Scenario covers the two-galleries-one-listing case: three
// records total, the listing picks the closer gallery, and the galleries
// themselves stay unenriched.
func TestEnrichNearest_Scenario(t *testing.T) {
	near := poi("gall-1", "galleries", 13.25, 52.0)
	far := poi("gall-2", "galleries", 13.5, 52.0)
	listing := poi("long-1", "long_term_listings", 13.0, 52.0)
	near.Attributes = unify.JSONB{"street": "Turmstrasse", "housenumber": "75"}

	records := []*unify.POI{near, far, listing}
	unify.EnrichNearest(records, "long_term_listings")

	if len(records) != 3 {
		t.Fatalf("enrichment must not add or drop records, got %d", len(records))
	}
	if near.NearestPois != nil || far.NearestPois != nil {
		t.Error("non-query records must not receive nearest_pois")
	}

	entry := entryFor(t, listing, "galleries")
	if entry["id"] != "gall-1" {
		t.Errorf("nearest id = %v, want gall-1", entry["id"])
	}
	if d := entry["distance"].(float64); d != 0.25 {
		t.Errorf("distance = %v, want 0.25", d)
	}

	addr, ok := entry["address"].(map[string]any)
	if !ok {
		t.Fatalf("address has unexpected shape %T", entry["address"])
	}
	if addr["street"] != "Turmstrasse" || addr["housenumber"] != "75" {
		t.Errorf("address = %v", addr)
	}
}

// TestEnrichNearest_TieBreak verifies that equidistant candidates resolve to
// the smaller poi_id regardless of input order.
func TestEnrichNearest_TieBreak(t *testing.T) {
	left := poi("bank-2", "banks", 12.75, 52.0)
	right := poi("bank-1", "banks", 13.25, 52.0)
	listing := poi("long-1", "long_term_listings", 13.0, 52.0)

	unify.EnrichNearest([]*unify.POI{left, right, listing}, "long_term_listings")

	entry := entryFor(t, listing, "banks")
	if entry["id"] != "bank-1" {
		t.Errorf("tie should resolve to smaller poi_id, got %v", entry["id"])
	}
}

// TestEnrichNearest_MissingAddress verifies that absent address attributes
// degrade to nulls instead of being dropped.
func TestEnrichNearest_MissingAddress(t *testing.T) {
	gallery := poi("gall-1", "galleries", 13.25, 52.0)
	listing := poi("long-1", "long_term_listings", 13.0, 52.0)

	unify.EnrichNearest([]*unify.POI{gallery, listing}, "long_term_listings")

	entry := entryFor(t, listing, "galleries")
	addr := entry["address"].(map[string]any)
	if addr["street"] != nil || addr["housenumber"] != nil {
		t.Errorf("expected null address parts, got %v", addr)
	}
}

// TestEnrichNearest_GeometryFallback verifies that a candidate without
// numeric coordinates still participates through its POINT geometry.
func TestEnrichNearest_GeometryFallback(t *testing.T) {
	gallery := &unify.POI{
		PoiID:    "gall-1",
		Layer:    "galleries",
		Geometry: "SRID=4326;POINT(13.25 52)",
	}
	listing := poi("long-1", "long_term_listings", 13.0, 52.0)

	unify.EnrichNearest([]*unify.POI{gallery, listing}, "long_term_listings")

	entry := entryFor(t, listing, "galleries")
	if entry["id"] != "gall-1" {
		t.Errorf("nearest id = %v, want gall-1", entry["id"])
	}
}

// TestEnrichNearest_GeometryPreferred verifies that the stored geometry wins
// over the coordinate columns when both are present and disagree.
func TestEnrichNearest_GeometryPreferred(t *testing.T) {
	gallery := poi("gall-1", "galleries", 99.0, 99.0)
	gallery.Geometry = "SRID=4326;POINT(13.25 52)"
	listing := poi("long-1", "long_term_listings", 13.0, 52.0)

	unify.EnrichNearest([]*unify.POI{gallery, listing}, "long_term_listings")

	entry := entryFor(t, listing, "galleries")
	if d := entry["distance"].(float64); d != 0.25 {
		t.Errorf("distance = %v, want 0.25 (from geometry, not columns)", d)
	}
}

// TestEnrichNearest_NonPointGeometry verifies that a record with a non-point
// geometry still participates through its coordinate columns rather than
// being treated as degenerate.
func TestEnrichNearest_NonPointGeometry(t *testing.T) {
	gallery := poi("gall-1", "galleries", 13.25, 52.0)
	gallery.Geometry = "SRID=4326;POLYGON((13.2 51.9,13.3 51.9,13.3 52.1,13.2 52.1,13.2 51.9))"
	listing := poi("long-1", "long_term_listings", 13.0, 52.0)

	unify.EnrichNearest([]*unify.POI{gallery, listing}, "long_term_listings")

	entry := entryFor(t, listing, "galleries")
	if entry["id"] != "gall-1" {
		t.Errorf("nearest id = %v, want gall-1", entry["id"])
	}
	if d := entry["distance"].(float64); d != 0.25 {
		t.Errorf("distance = %v, want 0.25 (from coordinate columns)", d)
	}
}

// TestEnrichNearest_DegenerateCandidates verifies that a category whose
// members all lack usable geometry contributes no entry at all.
func TestEnrichNearest_DegenerateCandidates(t *testing.T) {
	mall := &unify.POI{PoiID: "mall-1", Layer: "malls"}
	gallery := poi("gall-1", "galleries", 13.25, 52.0)
	listing := poi("long-1", "long_term_listings", 13.0, 52.0)

	unify.EnrichNearest([]*unify.POI{mall, gallery, listing}, "long_term_listings")

	if _, ok := listing.NearestPois["malls"]; ok {
		t.Error("category with only degenerate geometry must be absent")
	}
	if _, ok := listing.NearestPois["galleries"]; !ok {
		t.Error("other categories must still be present")
	}
}

// TestEnrichNearest_DegenerateQuery verifies that a query record without
// usable geometry is left unenriched instead of failing the run.
func TestEnrichNearest_DegenerateQuery(t *testing.T) {
	gallery := poi("gall-1", "galleries", 13.25, 52.0)
	listing := &unify.POI{PoiID: "long-1", Layer: "long_term_listings"}

	unify.EnrichNearest([]*unify.POI{gallery, listing}, "long_term_listings")

	if listing.NearestPois != nil {
		t.Errorf("expected no enrichment, got %v", listing.NearestPois)
	}
}

// TestEnrichNearest_NoCandidates verifies a run that merges only the query
// layer: nothing to look up, nothing to fail.
func TestEnrichNearest_NoCandidates(t *testing.T) {
	listing := poi("long-1", "long_term_listings", 13.0, 52.0)

	unify.EnrichNearest([]*unify.POI{listing}, "long_term_listings")

	if listing.NearestPois != nil {
		t.Errorf("expected no enrichment, got %v", listing.NearestPois)
	}
}

package poiapi

// NearbyPOI is one row of a nearest-neighbor query response. Distance is in
// the units of the storage SRS, as reported by ST_Distance.
type NearbyPOI struct {
	PoiID     string   `json:"poi_id"`
	Name      *string  `json:"name"`
	Layer     string   `json:"layer"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Distance  float64  `json:"distance"`
}

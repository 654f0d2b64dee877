package models

// RouteCompareRequest is the body of POST /v1/routes:compare.
type RouteCompareRequest struct {
	Start      *Point `json:"start"`
	End        *Point `json:"end"`
	Preference string `json:"preference"`
}

// Validate checks required fields and returns field errors for any missing.
func (r *RouteCompareRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Start == nil {
		errs = append(errs, FieldError{Field: "start", Message: "required"})
	}
	if r.End == nil {
		errs = append(errs, FieldError{Field: "end", Message: "required"})
	}
	return errs
}

// PreferenceList is the response of GET /v1/metadata/preferences.
type PreferenceList struct {
	Preferences []PreferenceProfile `json:"preferences"`
}

// PreferenceProfile describes a routing preference profile.
type PreferenceProfile struct {
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	MinPOIStops     int     `json:"min_poi_stops"`
	MaxPOIStops     int     `json:"max_poi_stops"`
	MaxPOIDistanceM float64 `json:"max_poi_distance_m"`
}

// RouteCompareError is the failure payload of a route comparison: which
// calculation stage failed plus diagnostic details.
type RouteCompareError struct {
	Success      bool           `json:"success"`
	Error        string         `json:"error"`
	ErrorDetails map[string]any `json:"error_details"`
}

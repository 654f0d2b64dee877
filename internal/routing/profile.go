package routing

import (
	"fmt"
	"strings"
)

// Preference selects a scenic routing profile.
type Preference string

// Supported preferences.
const (
	PreferenceFast        Preference = "fast"
	PreferenceBalanced    Preference = "balanced"
	PreferenceMostWinding Preference = "most_winding"
)

// Tunables shared across profiles.
const (
	// MaxDetourFactor caps a scenic candidate's travel time relative to the
	// basic scenic route.
	MaxDetourFactor = 1.2

	// MaxTimeExcessMinutes caps how much longer a scenic route may take
	// than the fastest route.
	MaxTimeExcessMinutes = 40.0

	// MinPOIImportance filters POI candidates below this importance score.
	MinPOIImportance = 2.0

	// MaxCircuitousFactor is the route-length-to-straight-line ratio above
	// which a route fails the sanity check.
	MaxCircuitousFactor = 2.0

	// DefaultVertexThresholdDeg bounds vertex snapping, roughly 1.1 km.
	DefaultVertexThresholdDeg = 0.01

	// MinEndpointSeparationKm is the minimum straight-line distance between
	// start and end for a comparison to make sense.
	MinEndpointSeparationKm = 1.0
)

// Profile holds the cost weights and POI bounds of one preference.
type Profile struct {
	Name        Preference
	Description string

	// Cost expression weights; sum to 1.
	TimeWeight      float64
	POIWeight       float64
	ScenicWeight    float64
	CurvatureWeight float64

	MinPOIs         int
	MaxPOIs         int
	MaxPOIDistanceM float64
}

var profiles = map[Preference]Profile{
	PreferenceFast: {
		Name:            PreferenceFast,
		Description:     "Prioritize speed with light scenic detours",
		TimeWeight:      0.70,
		POIWeight:       0.20,
		ScenicWeight:    0.08,
		CurvatureWeight: 0.02,
		MinPOIs:         1,
		MaxPOIs:         6,
		MaxPOIDistanceM: 1500,
	},
	PreferenceBalanced: {
		Name:            PreferenceBalanced,
		Description:     "Balance travel time against scenic quality",
		TimeWeight:      0.50,
		POIWeight:       0.30,
		ScenicWeight:    0.15,
		CurvatureWeight: 0.05,
		MinPOIs:         1,
		MaxPOIs:         4,
		MaxPOIDistanceM: 2000,
	},
	PreferenceMostWinding: {
		Name:            PreferenceMostWinding,
		Description:     "Favor winding scenic roads over speed",
		TimeWeight:      0.30,
		POIWeight:       0.20,
		ScenicWeight:    0.25,
		CurvatureWeight: 0.25,
		MinPOIs:         3,
		MaxPOIs:         8,
		MaxPOIDistanceM: 2500,
	},
}

// ProfileFor returns the profile for a preference name.
func ProfileFor(p Preference) (Profile, error) {
	prof, ok := profiles[p]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownPreference, p)
	}
	return prof, nil
}

// Preferences returns the supported preference names.
func Preferences() []Preference {
	return []Preference{PreferenceFast, PreferenceBalanced, PreferenceMostWinding}
}

// secondaryHighways are the road classes counted as "secondary and below":
// the quiet roads scenic riders actually want.
var secondaryHighways = map[string]bool{
	"secondary":     true,
	"tertiary":      true,
	"unclassified":  true,
	"road":          true,
	"track":         true,
	"path":          true,
	"service":       true,
	"residential":   true,
	"living_street": true,
}

// isSecondaryHighway reports whether a highway class is secondary or below.
func isSecondaryHighway(highway string) bool {
	return secondaryHighways[highway]
}

// secondaryHighwayList renders the secondary set as a SQL IN list.
func secondaryHighwayList() string {
	classes := make([]string, 0, len(secondaryHighways))
	for _, h := range []string{
		"secondary", "tertiary", "unclassified", "road", "track",
		"path", "service", "residential", "living_street",
	} {
		classes = append(classes, "'"+h+"'")
	}
	return strings.Join(classes, ", ")
}

// CostVariant selects which cost expression a shortest-path run uses.
type CostVariant int

const (
	// CostPrimary is the full multi-factor expression with graduated
	// highway-class penalties.
	CostPrimary CostVariant = iota
	// CostSecondary is the fallback expression with fixed weights and a
	// binary secondary-road bonus, used when the primary route fails the
	// sanity check.
	CostSecondary
)

// FastestCostExpression is the cost expression for pure fastest routing.
func FastestCostExpression() string {
	return "cost_time"
}

// CostExpression builds the per-edge SQL cost expression for this profile.
// Every factor is normalized to [0,1] before weighting and NULL columns fall
// back to neutral values, so missing metrics never zero out an edge.
func (p Profile) CostExpression(v CostVariant) string {
	if v == CostSecondary {
		return fmt.Sprintf(`(
			(cost_time / 60.0) * 0.40 +
			((100.0 - LEAST(COALESCE(weighted_poi_density, 0) * 10, 100)) / 100.0) * 0.25 +
			((10.0 - COALESCE(scenic_rating, 5.0)) / 10.0) * 0.20 +
			((2.0 - LEAST(COALESCE(curvature, 1.0), 2.0))) * 0.15
		) * CASE WHEN highway IN (%s) THEN 0.7 ELSE 1.3 END`, secondaryHighwayList())
	}

	return fmt.Sprintf(`(
		(cost_time / 60.0) * %.2f +
		((100.0 - LEAST(COALESCE(weighted_poi_density, 0) * 10, 100)) / 100.0) * %.2f +
		((10.0 - COALESCE(scenic_rating, 5.0)) / 10.0) * %.2f +
		((2.0 - LEAST(COALESCE(curvature, 1.0), 2.0))) * %.2f
	) * CASE
		WHEN highway IN ('motorway', 'motorway_link', 'trunk', 'trunk_link') THEN 3.0
		WHEN highway IN ('primary', 'primary_link') THEN 1.8
		WHEN highway IN ('secondary', 'secondary_link', 'tertiary', 'tertiary_link') THEN 0.9
		WHEN highway IN ('unclassified', 'residential', 'track', 'path') THEN 0.8
		ELSE 1.0
	END`, p.TimeWeight, p.POIWeight, p.ScenicWeight, p.CurvatureWeight)
}

package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/apexgps/apexgps/internal/geo"
	"github.com/apexgps/apexgps/internal/graph"
)

func TestCheckRouteSanity_ReasonableRoute(t *testing.T) {
	// Roughly 13.6 km crow-flight, 16 km on the road.
	segments := []graph.Segment{{LengthM: 16000}}
	res := CheckRouteSanity(segments, testStart, testEnd)

	assert.True(t, res.IsSane)
	assert.InDelta(t, 16.0, res.RouteKm, 0.001)
	assert.Greater(t, res.CircuitousFactor, 1.0)
	assert.Less(t, res.CircuitousFactor, 2.0)
}

func TestCheckRouteSanity_CircuitousRoute(t *testing.T) {
	segments := []graph.Segment{{LengthM: 30000}}
	res := CheckRouteSanity(segments, testStart, testEnd)

	assert.False(t, res.IsSane)
	assert.Greater(t, res.CircuitousFactor, MaxCircuitousFactor)
}

func TestCheckRouteSanity_LoopRideAlwaysPasses(t *testing.T) {
	segments := []graph.Segment{{LengthM: 80000}}
	res := CheckRouteSanity(segments, testStart, testStart)

	assert.True(t, res.IsSane)
	assert.Equal(t, 1.0, res.CircuitousFactor)
}

func TestCheckRouteSanity_JustUnderLimit(t *testing.T) {
	straight := geo.DistanceKm(testStart, testEnd)
	segments := []graph.Segment{{LengthM: straight * MaxCircuitousFactor * 1000 * 0.999}}
	res := CheckRouteSanity(segments, testStart, testEnd)

	assert.True(t, res.IsSane)
	assert.InDelta(t, MaxCircuitousFactor, res.CircuitousFactor, 0.01)
}

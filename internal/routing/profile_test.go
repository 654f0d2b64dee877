package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileFor(t *testing.T) {
	p, err := ProfileFor(PreferenceBalanced)
	require.NoError(t, err)
	assert.Equal(t, 0.50, p.TimeWeight)
	assert.Equal(t, 0.30, p.POIWeight)
	assert.Equal(t, 0.15, p.ScenicWeight)
	assert.Equal(t, 0.05, p.CurvatureWeight)
	assert.Equal(t, 1, p.MinPOIs)
	assert.Equal(t, 4, p.MaxPOIs)
	assert.Equal(t, 2000.0, p.MaxPOIDistanceM)
}

func TestProfileFor_Unknown(t *testing.T) {
	_, err := ProfileFor("ludicrous")
	require.ErrorIs(t, err, ErrUnknownPreference)
}

func TestProfileWeightsSumToOne(t *testing.T) {
	for _, name := range Preferences() {
		p, err := ProfileFor(name)
		require.NoError(t, err)
		sum := p.TimeWeight + p.POIWeight + p.ScenicWeight + p.CurvatureWeight
		assert.InDelta(t, 1.0, sum, 0.001, "profile %s", name)
	}
}

func TestCostExpression_Primary(t *testing.T) {
	p, err := ProfileFor(PreferenceMostWinding)
	require.NoError(t, err)

	expr := p.CostExpression(CostPrimary)
	assert.Contains(t, expr, "0.30")
	assert.Contains(t, expr, "0.25")
	assert.Contains(t, expr, "COALESCE(scenic_rating, 5.0)")
	assert.Contains(t, expr, "COALESCE(curvature, 1.0)")
	assert.Contains(t, expr, "'motorway'")
	assert.Contains(t, expr, "THEN 3.0")
	assert.Contains(t, expr, "THEN 1.8")
	assert.Contains(t, expr, "ELSE 1.0")
}

func TestCostExpression_SecondaryUsesFixedWeights(t *testing.T) {
	fast, err := ProfileFor(PreferenceFast)
	require.NoError(t, err)
	winding, err := ProfileFor(PreferenceMostWinding)
	require.NoError(t, err)

	// The fallback expression ignores profile weights.
	assert.Equal(t, fast.CostExpression(CostSecondary), winding.CostExpression(CostSecondary))

	expr := fast.CostExpression(CostSecondary)
	assert.Contains(t, expr, "0.40")
	assert.Contains(t, expr, "THEN 0.7 ELSE 1.3")
	assert.Contains(t, expr, "'tertiary'")
	assert.Contains(t, expr, "'living_street'")
}

func TestFastestCostExpression(t *testing.T) {
	assert.Equal(t, "cost_time", FastestCostExpression())
}

func TestIsSecondaryHighway(t *testing.T) {
	assert.True(t, isSecondaryHighway("tertiary"))
	assert.True(t, isSecondaryHighway("living_street"))
	assert.False(t, isSecondaryHighway("motorway"))
	assert.False(t, isSecondaryHighway("primary"))
	assert.False(t, isSecondaryHighway(""))
}

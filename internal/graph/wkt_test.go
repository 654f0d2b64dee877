package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexgps/apexgps/internal/geo"
)

func TestParseLineString(t *testing.T) {
	coords := parseLineString("LINESTRING(9.19 45.4642, 9.2 45.47)")
	require.Len(t, coords, 2)
	assert.Equal(t, geo.Point{Lat: 45.4642, Lon: 9.19}, coords[0])
	assert.Equal(t, geo.Point{Lat: 45.47, Lon: 9.2}, coords[1])
}

func TestParseLineString_Invalid(t *testing.T) {
	assert.Nil(t, parseLineString(""))
	assert.Nil(t, parseLineString("POINT(9.19 45.4642)"))
	assert.Nil(t, parseLineString("LINESTRING(not numbers)"))
	assert.Nil(t, parseLineString("LINESTRING(9.19 45.4642"))
}

func TestParsePoint(t *testing.T) {
	p, ok := parsePoint("POINT(11.3426 44.4949)")
	require.True(t, ok)
	assert.Equal(t, geo.Point{Lat: 44.4949, Lon: 11.3426}, p)

	_, ok = parsePoint("LINESTRING(1 2, 3 4)")
	assert.False(t, ok)
	_, ok = parsePoint("POINT()")
	assert.False(t, ok)
}

func TestEdgeIDs(t *testing.T) {
	steps := []PathStep{
		{Seq: 1, Node: 10, Edge: 100, Cost: 1, AggCost: 0},
		{Seq: 2, Node: 11, Edge: 101, Cost: 1, AggCost: 1},
		{Seq: 3, Node: 12, Edge: -1, Cost: 0, AggCost: 2},
	}
	assert.Equal(t, []int64{100, 101}, EdgeIDs(steps))
	assert.Nil(t, EdgeIDs(nil))
}

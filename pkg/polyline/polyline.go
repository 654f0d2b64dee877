// Package polyline implements Google's encoded polyline algorithm
// (https://developers.google.com/maps/documentation/utilities/polylinealgorithm)
// at the standard precision of 5 decimal places.
package polyline

import (
	"math"
)

// Point is a geographic coordinate in lat/lon order, the order the polyline
// format expects.
type Point struct {
	Lat float64
	Lon float64
}

// Encode encodes the given points into a polyline string. An empty or nil
// slice encodes to the empty string.
func Encode(points []Point) string {
	if len(points) == 0 {
		return ""
	}

	buf := make([]byte, 0, len(points)*6)
	var prevLat, prevLon int32

	for _, p := range points {
		lat := int32(math.Round(p.Lat * 1e5))
		lon := int32(math.Round(p.Lon * 1e5))

		buf = appendDelta(buf, lat-prevLat)
		buf = appendDelta(buf, lon-prevLon)

		prevLat = lat
		prevLon = lon
	}

	return string(buf)
}

// appendDelta appends one zig-zag encoded delta in 5-bit chunks.
func appendDelta(buf []byte, delta int32) []byte {
	v := delta << 1
	if delta < 0 {
		v = ^v
	}
	for v >= 0x20 {
		buf = append(buf, byte(0x20|(v&0x1f))+63)
		v >>= 5
	}
	return append(buf, byte(v)+63)
}

// Decode decodes a polyline string back into points. A truncated trailing
// value is dropped; the format carries no checksum.
func Decode(encoded string) []Point {
	if encoded == "" {
		return nil
	}

	points := make([]Point, 0, len(encoded)/4)
	var lat, lon int32
	i := 0

	for i < len(encoded) {
		dLat, next, ok := readDelta(encoded, i)
		if !ok {
			break
		}
		dLon, after, ok := readDelta(encoded, next)
		if !ok {
			break
		}

		lat += dLat
		lon += dLon
		i = after

		points = append(points, Point{
			Lat: float64(lat) / 1e5,
			Lon: float64(lon) / 1e5,
		})
	}

	return points
}

// readDelta reads one zig-zag encoded value starting at index i.
func readDelta(encoded string, i int) (int32, int, bool) {
	var result int32
	var shift uint
	complete := false

	for i < len(encoded) {
		b := int32(encoded[i]) - 63
		i++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			complete = true
			break
		}
	}
	if !complete {
		return 0, i, false
	}

	if result&1 != 0 {
		return ^(result >> 1), i, true
	}
	return result >> 1, i, true
}

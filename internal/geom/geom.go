package geom

import "math"

const earthRadiusMeters = 6371000

// Point is a geographic coordinate
type Point struct {
	Lon float64
	Lat float64
}

// Line is an ordered polyline of geographic points
type Line []Point

// Haversine calculates the distance between two points in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaPhi := (lat2 - lat1) * math.Pi / 180
	deltaLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Length calculates the total length of the line in meters
func (l Line) Length() float64 {
	var total float64
	for i := 1; i < len(l); i++ {
		total += Haversine(l[i-1].Lat, l[i-1].Lon, l[i].Lat, l[i].Lon)
	}
	return total
}

// Project returns the distance in meters along the line of the point on the
// line nearest to p
func (l Line) Project(p Point) float64 {
	if len(l) == 0 {
		return 0
	}
	if len(l) == 1 {
		return 0
	}

	best := math.MaxFloat64
	bestDist := 0.0
	cumulative := 0.0

	for i := 1; i < len(l); i++ {
		a, b := l[i-1], l[i]
		segLen := Haversine(a.Lat, a.Lon, b.Lat, b.Lon)

		t, separation := projectOntoSegment(a, b, p)
		if separation < best {
			best = separation
			bestDist = cumulative + t*segLen
		}
		cumulative += segLen
	}
	return bestDist
}

// projectOntoSegment projects p onto the segment a-b in a local planar frame.
// Returns the clamped position along the segment (0..1) and the separation in
// meters between p and that position.
func projectOntoSegment(a, b, p Point) (float64, float64) {
	// Equirectangular projection around the segment; fine at stop-to-stop scale
	cosLat := math.Cos(a.Lat * math.Pi / 180)
	ax, ay := 0.0, 0.0
	bx := (b.Lon - a.Lon) * cosLat
	by := b.Lat - a.Lat
	px := (p.Lon - a.Lon) * cosLat
	py := p.Lat - a.Lat

	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy

	var t float64
	if lenSq > 0 {
		t = (px*dx + py*dy) / lenSq
		t = math.Max(0, math.Min(1, t))
	}

	nearLon := a.Lon + t*(b.Lon-a.Lon)
	nearLat := a.Lat + t*(b.Lat-a.Lat)
	return t, Haversine(p.Lat, p.Lon, nearLat, nearLon)
}

// Substring extracts the sub-line between two distances along the line. The
// second return value is false when the result is not a usable line: the
// distances coincide or the slice collapses to a single point.
func (l Line) Substring(startDist, endDist float64) (Line, bool) {
	if len(l) < 2 {
		return nil, false
	}

	reversed := false
	if startDist > endDist {
		startDist, endDist = endDist, startDist
		reversed = true
	}
	if endDist-startDist <= 0 {
		return nil, false
	}

	var result Line
	cumulative := 0.0

	for i := 1; i < len(l); i++ {
		a, b := l[i-1], l[i]
		segLen := Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
		segStart := cumulative
		segEnd := cumulative + segLen
		cumulative = segEnd

		if segEnd < startDist || segLen == 0 {
			continue
		}
		if segStart > endDist {
			break
		}

		if len(result) == 0 {
			t := (startDist - segStart) / segLen
			if t < 0 {
				t = 0
			}
			result = append(result, interpolate(a, b, t))
		}

		if segEnd <= endDist {
			result = appendPoint(result, b)
		} else {
			t := (endDist - segStart) / segLen
			result = appendPoint(result, interpolate(a, b, t))
			break
		}
	}

	if len(result) < 2 {
		return nil, false
	}
	if reversed {
		for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
			result[i], result[j] = result[j], result[i]
		}
	}
	return result, true
}

func interpolate(a, b Point, t float64) Point {
	return Point{
		Lon: a.Lon + (b.Lon-a.Lon)*t,
		Lat: a.Lat + (b.Lat-a.Lat)*t,
	}
}

func appendPoint(l Line, p Point) Line {
	if len(l) > 0 && l[len(l)-1] == p {
		return l
	}
	return append(l, p)
}

package geom

import (
	"strconv"
	"strings"
)

// LineWKT formats a line as a WKT LINESTRING
func LineWKT(l Line) string {
	var b strings.Builder
	b.WriteString("LINESTRING(")
	for i, p := range l {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(formatCoord(p.Lon))
		b.WriteByte(' ')
		b.WriteString(formatCoord(p.Lat))
	}
	b.WriteByte(')')
	return b.String()
}

// MultiLineWKT formats a set of lines as a WKT MULTILINESTRING. A single
// line is formatted as a plain LINESTRING.
func MultiLineWKT(lines []Line) string {
	if len(lines) == 1 {
		return LineWKT(lines[0])
	}
	var b strings.Builder
	b.WriteString("MULTILINESTRING(")
	for i, l := range lines {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, p := range l {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(formatCoord(p.Lon))
			b.WriteByte(' ')
			b.WriteString(formatCoord(p.Lat))
		}
		b.WriteByte(')')
	}
	b.WriteByte(')')
	return b.String()
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

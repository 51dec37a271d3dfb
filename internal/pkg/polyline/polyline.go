// Package polyline implements the encoded polyline algorithm used by web
// mapping APIs: coordinates are scaled, delta-encoded against the previous
// point and written as printable 5-bit groups.
package polyline

import (
	"fmt"
	"math"
	"strings"

	"github.com/rerouting-service/internal/domain"
)

// DefaultPrecision is the number of decimal digits kept by Encode (1e5).
const DefaultPrecision = 5

// Encode encodes points with DefaultPrecision.
func Encode(points []domain.Point) string {
	return EncodePrecision(points, DefaultPrecision)
}

// Decode decodes a polyline produced with DefaultPrecision.
func Decode(s string) ([]domain.Point, error) {
	return DecodePrecision(s, DefaultPrecision)
}

// EncodePrecision encodes points keeping precision decimal digits.
func EncodePrecision(points []domain.Point, precision int) string {
	factor := math.Pow10(precision)

	var b strings.Builder
	var prevLat, prevLon int64
	for _, p := range points {
		lat := round(p.Lat * factor)
		lon := round(p.Lon * factor)

		encodeValue(&b, lat-prevLat)
		encodeValue(&b, lon-prevLon)

		prevLat, prevLon = lat, lon
	}
	return b.String()
}

// DecodePrecision is the inverse of EncodePrecision.
func DecodePrecision(s string, precision int) ([]domain.Point, error) {
	factor := math.Pow10(precision)

	var points []domain.Point
	var lat, lon int64
	for i := 0; i < len(s); {
		dLat, n, err := decodeValue(s, i)
		if err != nil {
			return nil, err
		}
		i += n

		dLon, n, err := decodeValue(s, i)
		if err != nil {
			return nil, err
		}
		i += n

		lat += dLat
		lon += dLon
		points = append(points, domain.Point{
			Lat: float64(lat) / factor,
			Lon: float64(lon) / factor,
		})
	}
	return points, nil
}

// round rounds half away from zero, like the reference JavaScript encoder.
func round(v float64) int64 {
	return int64(math.Round(v))
}

func encodeValue(b *strings.Builder, v int64) {
	u := uint64(v) << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		b.WriteByte(byte((0x20 | (u & 0x1f)) + 63))
		u >>= 5
	}
	b.WriteByte(byte(u + 63))
}

// decodeValue reads one signed value starting at s[start] and returns it with
// the number of bytes consumed.
func decodeValue(s string, start int) (int64, int, error) {
	var result uint64
	var shift uint
	for i := start; i < len(s); i++ {
		c := int(s[i]) - 63
		if c < 0 || c > 0x3f {
			return 0, 0, fmt.Errorf("polyline: invalid character %q at %d", s[i], i)
		}
		if shift > 63 {
			return 0, 0, fmt.Errorf("polyline: value overflow at %d", i)
		}
		result |= uint64(c&0x1f) << shift
		shift += 5
		if c < 0x20 {
			v := int64(result >> 1)
			if result&1 != 0 {
				v = ^v
			}
			return v, i - start + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("polyline: unterminated value at %d", start)
}

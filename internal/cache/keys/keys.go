// Package keys derives cache keys from coordinate pairs. Coordinates are
// rounded to 4 decimal degrees (~11 m) so near-duplicate requests share a
// hit; the key is order-sensitive, start→end is distinct from end→start.
package keys

import (
	"fmt"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/domain"
)

const precision = 1e4 // 4 decimal degrees

// Normalize rounds a coordinate to the cache key precision.
func Normalize(c domain.Coordinate) domain.Coordinate {
	return domain.Coordinate{
		Lat: math.Round(c.Lat*precision) / precision,
		Lon: math.Round(c.Lon*precision) / precision,
	}
}

// Plan returns the cache key for a normalized (start, end) pair. The key
// keeps a readable coordinate prefix plus an xxhash of the canonical form,
// so truncated prefixes can never collide silently.
func Plan(start, end domain.Coordinate) string {
	s, e := Normalize(start), Normalize(end)
	canonical := fmt.Sprintf("%.4f,%.4f|%.4f,%.4f", s.Lat, s.Lon, e.Lat, e.Lon)
	sum := xxhash.Sum64String(canonical)
	return fmt.Sprintf("plan:%s:h=%016x", sanitize(canonical), sum)
}

// StateIndex returns the key of the per-state index of cached plan keys.
func StateIndex(state string) string {
	return "planidx:" + sanitize(strings.ToUpper(strings.TrimSpace(state)))
}

// sanitize keeps keys shell- and log-friendly: anything outside the safe
// set becomes '-', runs collapse.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := r
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == ',' || r == '|' || r == '-' || r == '_':
		default:
			out = '-'
		}
		if out == '-' && prev == '-' {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

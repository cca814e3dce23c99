package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeCoords removes whitespace around the components of a "lat,lng" pair.
func NormalizeCoords(s string) string {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, ",")
}

// ParseCoords parses a "lat,lng" pair in decimal degrees.
func ParseCoords(s string) (lat, lng float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("coordinates must be \"lat,lng\", got %q", s)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || !isValidLatitude(lat) {
		return 0, 0, fmt.Errorf("invalid latitude %q", parts[0])
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || !isValidLongitude(lng) {
		return 0, 0, fmt.Errorf("invalid longitude %q", parts[1])
	}
	return lat, lng, nil
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}

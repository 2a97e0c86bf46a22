package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"chaintrace/internal/scan/models"
)

// geo:LAT,LON[,ALT][?query] per RFC 5870 (query part kept opaque).
var geoPattern = regexp.MustCompile(`(?i)^geo:(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)(?:,(-?\d+(?:\.\d+)?))?(?:\?(.*))?$`)

// extractGeoCoordinate captures latitude, longitude, optional altitude, and
// an optional query string from a geo URI.
func extractGeoCoordinate(raw string) models.FieldMap {
	m := geoPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return models.FieldMap{"raw": raw, models.ErrorField: "malformed geo URI"}
	}

	lat, _ := strconv.ParseFloat(m[1], 64)
	lon, _ := strconv.ParseFloat(m[2], 64)
	fields := models.FieldMap{
		"latitude":  lat,
		"longitude": lon,
	}
	if m[3] != "" {
		alt, _ := strconv.ParseFloat(m[3], 64)
		fields["altitude"] = alt
	}
	if m[4] != "" {
		fields["query"] = m[4]
	}
	return fields
}

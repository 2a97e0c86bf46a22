// Package classifier assigns a content type tag to a raw decoded payload.
//
// Detect is total and deterministic: any input string maps to exactly one
// tag and the same input always maps to the same tag. Detection order is
// fixed; the first matching check wins.
package classifier

import (
	"encoding/json"
	"regexp"
	"strings"

	"chaintrace/internal/scan/models"
)

// ProductDiscriminator is the JSON value of the "type" key that marks a
// payload as product verification data.
const ProductDiscriminator = "product_verification"

var (
	urlPattern   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://\S+$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\s\-().]*$`)
	markupToken  = regexp.MustCompile(`<[a-zA-Z!/][^>]*>`)
)

// Detect classifies raw into one of the closed set of content types.
func Detect(raw string) models.ContentType {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return models.TypeGenericText
	}

	if tag, ok := detectStructured(trimmed); ok {
		return tag
	}

	upper := strings.ToUpper(trimmed)
	switch {
	case urlPattern.MatchString(trimmed) &&
		!strings.HasPrefix(upper, "MAILTO:") &&
		!strings.HasPrefix(upper, "TEL:") &&
		!strings.HasPrefix(upper, "SMS:"):
		return models.TypeLocator
	case strings.HasPrefix(upper, "MAILTO:") || emailPattern.MatchString(trimmed):
		return models.TypeContactEmail
	case strings.HasPrefix(upper, "TEL:") || phonePattern.MatchString(trimmed):
		return models.TypeTelephone
	case strings.HasPrefix(upper, "SMS:") || strings.HasPrefix(upper, "SMSTO:"):
		return models.TypeShortMessage
	case strings.HasPrefix(upper, "WIFI:"):
		return models.TypeNetworkCredential
	case strings.HasPrefix(upper, "BEGIN:VCARD"):
		return models.TypeContactCard
	case strings.HasPrefix(upper, "BEGIN:VEVENT") || strings.HasPrefix(upper, "BEGIN:VCALENDAR"):
		return models.TypeCalendarEvent
	case strings.HasPrefix(upper, "GEO:"):
		return models.TypeGeoCoordinate
	case markupToken.MatchString(trimmed):
		return models.TypeMarkup
	}

	return models.TypeGenericText
}

// detectStructured attempts a JSON decode. Only decoded mappings count as
// structured content; scalars and lists fall through to the pattern checks.
func detectStructured(raw string) (models.ContentType, bool) {
	if !strings.HasPrefix(raw, "{") {
		return "", false
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return "", false
	}
	if t, ok := decoded["type"].(string); ok && t == ProductDiscriminator {
		return models.TypeProductTracking, true
	}
	if _, ok := decoded["layers"].([]any); ok {
		return models.TypeLayeredPayload, true
	}
	return models.TypeStructuredJSON, true
}

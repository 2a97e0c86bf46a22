package extractor

import (
	"strings"

	"chaintrace/internal/scan/models"
)

// extractTelephone strips everything but digits and the leading plus, and
// guesses a two-digit country code for international numbers.
func extractTelephone(raw string) models.FieldMap {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "tel:") {
		trimmed = trimmed[len("tel:"):]
	}

	var b strings.Builder
	for i, r := range trimmed {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	number := b.String()

	fields := models.FieldMap{"number": number}
	if strings.HasPrefix(number, "+") && len(number) >= 3 {
		fields["country_code"] = number[1:3]
	}
	return fields
}

package extractor

import (
	"encoding/json"
	"math"
	"time"

	"chaintrace/internal/scan/models"
)

// timeNow is swapped in tests to pin expiry computations.
var timeNow = time.Now

// productIdentityFields are the flat identity/lifecycle keys projected out
// of the nested data object. The first three are mandatory for a valid
// record; the validator enforces that.
var productIdentityFields = []string{
	"id",
	"name",
	"batch_number",
	"lot_number",
	"manufacturing_date",
	"expiry_date",
	"manufacturer",
	"dosage",
	"strength",
	"storage_conditions",
	"tracking_code",
	"verification_code",
}

type productPayload struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// extractProductTracking verifies the discriminator, projects the nested
// data object into a flat mapping, and derives expiry fields:
// is_expired and days_until_expiry (ceiling over 24h days).
func extractProductTracking(raw string) models.FieldMap {
	var payload productPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return models.FieldMap{"raw": raw, models.ErrorField: "malformed product payload: " + err.Error()}
	}
	if payload.Type != "product_verification" {
		return models.FieldMap{"raw": raw, models.ErrorField: "missing product discriminator"}
	}

	var data map[string]any
	if err := json.Unmarshal(payload.Data, &data); err != nil || data == nil {
		return models.FieldMap{"raw": raw, models.ErrorField: "missing product data object"}
	}

	fields := models.FieldMap{}
	for _, key := range productIdentityFields {
		if v, ok := data[key]; ok {
			fields[key] = v
		}
	}

	if expiryRaw, ok := fields["expiry_date"].(string); ok {
		if expiry, err := parseDate(expiryRaw); err == nil {
			now := timeNow()
			fields["is_expired"] = expiry.Before(now)
			fields["days_until_expiry"] = int(math.Ceil(expiry.Sub(now).Hours() / 24))
		}
	}

	return fields
}

// parseDate accepts plain dates and full RFC 3339 timestamps.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

package extractor

import (
	"net/url"
	"strings"

	"chaintrace/internal/scan/models"
)

// extractLocator decomposes an absolute URL into protocol, host, path,
// query, and a flattened parameter mapping. Malformed URLs keep the raw
// value plus an error field.
func extractLocator(raw string) models.FieldMap {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		msg := "malformed URL"
		if err != nil {
			msg = err.Error()
		}
		return models.FieldMap{"url": raw, models.ErrorField: msg}
	}

	params := map[string]any{}
	for key, values := range u.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	return models.FieldMap{
		"url":      raw,
		"protocol": u.Scheme,
		"host":     u.Host,
		"path":     u.Path,
		"query":    u.RawQuery,
		"params":   params,
	}
}

// extractEmail handles mailto URIs and bare addresses. Mailto parameters
// (subject, body, cc, bcc) are lifted into the mapping when present.
func extractEmail(raw string) models.FieldMap {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "mailto:") {
		return models.FieldMap{"address": trimmed}
	}

	rest := trimmed[len("mailto:"):]
	address, query, _ := strings.Cut(rest, "?")
	fields := models.FieldMap{"address": address}

	values, err := url.ParseQuery(query)
	if err != nil {
		return fields
	}
	for _, key := range []string{"subject", "body", "cc", "bcc"} {
		if v := values.Get(key); v != "" {
			fields[key] = v
		}
	}
	return fields
}

// extractShortMessage splits sms:/smsto: URIs into recipient and body.
func extractShortMessage(raw string) models.FieldMap {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)

	rest := trimmed
	switch {
	case strings.HasPrefix(lower, "smsto:"):
		rest = trimmed[len("smsto:"):]
		// SMSTO uses a colon separator for the body.
		number, body, found := strings.Cut(rest, ":")
		fields := models.FieldMap{"number": number}
		if found {
			fields["body"] = body
		}
		return fields
	case strings.HasPrefix(lower, "sms:"):
		rest = trimmed[len("sms:"):]
	}

	number, query, _ := strings.Cut(rest, "?")
	fields := models.FieldMap{"number": number}
	if values, err := url.ParseQuery(query); err == nil {
		if body := values.Get("body"); body != "" {
			fields["body"] = body
		}
	}
	return fields
}

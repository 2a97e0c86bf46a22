package extractor

import (
	"regexp"
	"strings"

	"chaintrace/internal/scan/models"
)

// WIFI:T:WPA;S:MyNet;P:secret;H:false; field order is not guaranteed by
// encoders, so each component is captured independently.
var (
	wifiSecurity = regexp.MustCompile(`(?i)T:([^;]*);`)
	wifiSSID     = regexp.MustCompile(`(?i)S:([^;]*);`)
	wifiPassword = regexp.MustCompile(`(?i)P:([^;]*);`)
	wifiHidden   = regexp.MustCompile(`(?i)H:([^;]*);`)
)

// extractNetworkCredential captures security type, SSID, password, and the
// hidden flag from the WIFI: marker grammar.
func extractNetworkCredential(raw string) models.FieldMap {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(strings.ToUpper(trimmed), "WIFI:") {
		return models.FieldMap{"raw": raw, models.ErrorField: "missing WIFI marker"}
	}
	body := trimmed[len("WIFI:"):]

	ssid := captureFirst(wifiSSID, body)
	if ssid == "" {
		return models.FieldMap{"raw": raw, models.ErrorField: "missing SSID"}
	}

	return models.FieldMap{
		"security": captureFirst(wifiSecurity, body),
		"ssid":     ssid,
		"password": captureFirst(wifiPassword, body),
		"hidden":   strings.EqualFold(captureFirst(wifiHidden, body), "true"),
	}
}

func captureFirst(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// extractLineOriented turns BEGIN:VCARD / BEGIN:VEVENT blocks into a flat
// key:value mapping with lower-cased keys. Later duplicate keys overwrite
// earlier ones.
func extractLineOriented(raw string) models.FieldMap {
	fields := models.FieldMap{}
	for line := range strings.Lines(strings.ReplaceAll(raw, "\r\n", "\n")) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found || key == "" {
			continue
		}
		fields[strings.ToLower(key)] = value
	}
	return fields
}

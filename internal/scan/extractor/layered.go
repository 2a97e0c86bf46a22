package extractor

import (
	"encoding/json"

	"chaintrace/internal/scan/models"
)

type layeredPayload struct {
	Layers []layer `json:"layers"`
}

type layer struct {
	Data         any      `json:"data"`
	Checksum     string   `json:"checksum,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// extractLayered decodes a list of layer objects and records the total
// layer count, which later becomes the record's dimensionality.
func extractLayered(raw string) models.FieldMap {
	var payload layeredPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return models.FieldMap{"raw": raw, models.ErrorField: "malformed layered payload: " + err.Error()}
	}

	layers := make([]any, 0, len(payload.Layers))
	for _, l := range payload.Layers {
		entry := map[string]any{"data": l.Data}
		if l.Checksum != "" {
			entry["checksum"] = l.Checksum
		}
		if len(l.Dependencies) > 0 {
			entry["dependencies"] = l.Dependencies
		}
		layers = append(layers, entry)
	}

	return models.FieldMap{
		"layers":      layers,
		"layer_count": len(layers),
	}
}

// extractStructuredJSON passes an already-valid JSON object through
// unchanged.
func extractStructuredJSON(raw string) models.FieldMap {
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return models.FieldMap{"raw": raw, models.ErrorField: "malformed JSON: " + err.Error()}
	}
	return models.FieldMap(decoded)
}

package extractor

import "chaintrace/internal/scan/models"

// Dimensionality computes the structural depth of a parsed record.
//
// Layered payloads use their layer count (minimum 1). Everything else uses
// the maximum nested-mapping depth, starting at 1 for the top level. The
// result is always >= 1.
func Dimensionality(tag models.ContentType, fields models.FieldMap) int {
	if tag == models.TypeLayeredPayload {
		if count, ok := fields["layer_count"].(int); ok && count > 1 {
			return count
		}
		return 1
	}
	return mapDepth(map[string]any(fields), 1)
}

func mapDepth(m map[string]any, depth int) int {
	max := depth
	for _, v := range m {
		if nested, ok := v.(map[string]any); ok {
			if d := mapDepth(nested, depth+1); d > max {
				max = d
			}
		}
	}
	return max
}

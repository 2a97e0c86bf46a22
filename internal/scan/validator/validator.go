// Package validator assigns a validation status from type-specific
// completeness rules.
package validator

import "chaintrace/internal/scan/models"

// productMandatoryFields are the identity fields a product tracking record
// must carry to be valid.
var productMandatoryFields = []string{"id", "name", "batch_number"}

// Validate returns the validation status for an extracted field mapping.
// A captured extraction error always wins and yields corrupted; no other
// status can coexist with it.
func Validate(tag models.ContentType, fields models.FieldMap) models.ValidationStatus {
	if fields.HasError() {
		return models.StatusCorrupted
	}

	switch tag {
	case models.TypeLocator:
		if host, ok := fields["host"].(string); ok && host != "" {
			return models.StatusValid
		}
		return models.StatusInvalid

	case models.TypeContactEmail:
		if addr, ok := fields["address"].(string); ok && addr != "" {
			return models.StatusValid
		}
		return models.StatusInvalid

	case models.TypeLayeredPayload:
		if count, ok := fields["layer_count"].(int); ok && count > 0 {
			return models.StatusValid
		}
		return models.StatusIncomplete

	case models.TypeProductTracking:
		for _, key := range productMandatoryFields {
			if !hasNonEmpty(fields, key) {
				return models.StatusIncomplete
			}
		}
		return models.StatusValid
	}

	// Remaining recognized types carry no further structural requirement.
	return models.StatusValid
}

func hasNonEmpty(fields models.FieldMap, key string) bool {
	v, ok := fields[key]
	if !ok {
		return false
	}
	if s, isString := v.(string); isString {
		return s != ""
	}
	return true
}

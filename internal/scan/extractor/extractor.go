// Package extractor decodes a raw payload into a normalized field mapping
// according to its detected content type.
//
// Extraction never fails past this boundary: malformed input is captured
// under the "error" key of the returned mapping and surfaces later as a
// corrupted validation status. The per-type decoders are registered in a
// strategy map so new content types plug in without branching sprawl.
package extractor

import (
	"fmt"

	"chaintrace/internal/scan/models"
)

// Func decodes one payload of a known content type.
type Func func(raw string) models.FieldMap

// Extractor holds the type -> decoder strategy map.
type Extractor struct {
	strategies map[models.ContentType]Func
}

// New builds an Extractor with the default decoder set registered.
func New() *Extractor {
	e := &Extractor{strategies: make(map[models.ContentType]Func)}
	e.Register(models.TypeLocator, extractLocator)
	e.Register(models.TypeContactEmail, extractEmail)
	e.Register(models.TypeTelephone, extractTelephone)
	e.Register(models.TypeShortMessage, extractShortMessage)
	e.Register(models.TypeNetworkCredential, extractNetworkCredential)
	e.Register(models.TypeContactCard, extractLineOriented)
	e.Register(models.TypeCalendarEvent, extractLineOriented)
	e.Register(models.TypeGeoCoordinate, extractGeoCoordinate)
	e.Register(models.TypeLayeredPayload, extractLayered)
	e.Register(models.TypeProductTracking, extractProductTracking)
	e.Register(models.TypeStructuredJSON, extractStructuredJSON)
	return e
}

// Register installs (or replaces) the decoder for a content type.
func (e *Extractor) Register(t models.ContentType, fn Func) {
	e.strategies[t] = fn
}

// Extract decodes raw according to tag. Types without a registered decoder
// (generic-text, markup) fall back to a plain text mapping. A panicking
// decoder is captured as an error field, honoring the never-throws contract.
func (e *Extractor) Extract(raw string, tag models.ContentType) (fields models.FieldMap) {
	defer func() {
		if r := recover(); r != nil {
			fields = models.FieldMap{
				"raw":             raw,
				models.ErrorField: fmt.Sprintf("extraction panic: %v", r),
			}
		}
	}()

	fn, ok := e.strategies[tag]
	if !ok {
		return models.FieldMap{"text": raw}
	}
	return fn(raw)
}

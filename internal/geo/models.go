// Package geo resolves GPS points to named administrative regions and
// detects shipment diversion.
package geo

import "time"

// UnknownRegion is returned when no registered region contains a point.
// Diversion is never asserted against it.
const UnknownRegion = "Unknown"

// Point is a GPS sample (WGS 84).
type Point struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	AccuracyM float64   `json:"accuracy_m,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Region is a named circular area. Static reference data, not mutated at
// runtime.
type Region struct {
	Name     string  `json:"name" toml:"name"`
	Lat      float64 `json:"lat" toml:"lat"`
	Lon      float64 `json:"lon" toml:"lon"`
	RadiusKm float64 `json:"radius_km" toml:"radius_km"`
}

// Center returns the region's center point.
func (r Region) Center() Point {
	return Point{Lat: r.Lat, Lon: r.Lon}
}

package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

var ErrEmptyGeometry = errors.New("geometry has no coordinates")

// ValidCoordinates reports whether lat/lon fall inside WGS84 bounds.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// BoundaryCenter returns the centre of the bounding box of a GeoJSON geometry or feature.
// The input is the decoded JSON value (map) as received from upstream.
//
// Flow:
// map → GeoJSON bytes → geom.T → bounds → (lat, lon)
func BoundaryCenter(raw any) (lat, lon float64, err error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return 0, 0, fmt.Errorf("boundary must be a GeoJSON object, got %T", raw)
	}
	if t, _ := obj["type"].(string); t == "Feature" {
		inner, ok := obj["geometry"].(map[string]any)
		if !ok {
			return 0, 0, errors.New("feature has no geometry")
		}
		obj = inner
	}
	if _, ok := obj["coordinates"]; !ok && obj["type"] != "GeometryCollection" {
		return 0, 0, ErrEmptyGeometry
	}

	geoJSONBytes, err := json.Marshal(obj)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}

	var geometry geom.T
	if err := geojson.Unmarshal(geoJSONBytes, &geometry); err != nil {
		return 0, 0, fmt.Errorf("failed to unmarshal GeoJSON: %w", err)
	}

	bounds := geometry.Bounds()
	if bounds == nil || bounds.IsEmpty() {
		return 0, 0, ErrEmptyGeometry
	}

	// GeoJSON coordinates are (lon, lat)
	lon = (bounds.Min(0) + bounds.Max(0)) / 2
	lat = (bounds.Min(1) + bounds.Max(1)) / 2
	if !ValidCoordinates(lat, lon) {
		return 0, 0, fmt.Errorf("boundary centre out of range: lat=%f lon=%f", lat, lon)
	}
	return lat, lon, nil
}

// Package bia provides the shared data model for building-integrated
// agriculture (BIA) potential assessment.
//
// Pipeline stages:
//   - DLI stage: radiation filter, DLI conversion, floor/wall classification
//   - Crop profile stage: crop ranking, calendar building, surface selection
//
// Every building is processed independently; nothing in this package holds
// shared mutable state.
package bia

import (
	"fmt"
	"strings"
)

// =============================================================================
// Year Constants
// =============================================================================

// HoursInYear is the number of hourly rows in a radiation table (no leap day).
const HoursInYear = 8760

// DaysInYear is the number of daily DLI columns and calendar slots.
const DaysInYear = 365

// HoursInDay is the DLI bucket width.
const HoursInDay = 24

// =============================================================================
// Surface Type
// =============================================================================

// SurfaceType identifies the envelope surface a sensor sits on.
type SurfaceType string

const (
	SurfaceRoof   SurfaceType = "roof"
	SurfaceWall   SurfaceType = "wall"
	SurfaceWindow SurfaceType = "window"
)

// ParseSurfaceType accepts both the singular form and the plural form used by
// the radiation simulation metadata ("roofs", "walls", "windows").
func ParseSurfaceType(s string) (SurfaceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "roof", "roofs":
		return SurfaceRoof, nil
	case "wall", "walls":
		return SurfaceWall, nil
	case "window", "windows":
		return SurfaceWindow, nil
	}
	return "", fmt.Errorf("%w: unknown surface type %q", ErrDataShape, s)
}

// =============================================================================
// Orientation
// =============================================================================

// Orientation is the facing of a sensor. Roof sensors face "top".
type Orientation string

const (
	North Orientation = "north"
	East  Orientation = "east"
	South Orientation = "south"
	West  Orientation = "west"
	Top   Orientation = "top"
)

// FacadeOrientations lists the orientations classified into wall zones, in
// classification order.
var FacadeOrientations = []Orientation{North, East, South, West}

// ParseOrientation validates an orientation label.
func ParseOrientation(s string) (Orientation, error) {
	o := Orientation(strings.ToLower(strings.TrimSpace(s)))
	switch o {
	case North, East, South, West, Top:
		return o, nil
	}
	return "", fmt.Errorf("%w: unknown orientation %q", ErrDataShape, s)
}

// =============================================================================
// Wall Zone
// =============================================================================

// WallZone locates a wall sensor relative to the window sensors on the same
// floor and orientation. The zero value is WallZoneUnset; the classifier
// resolves every sensor to one of the other values.
type WallZone uint8

const (
	WallZoneUnset WallZone = iota
	WallZoneUpper
	WallZoneLower
	WallZoneSide
	WallZoneNonWall
)

// String returns the label written to the DLI daily output.
func (z WallZone) String() string {
	switch z {
	case WallZoneUpper:
		return "upper"
	case WallZoneLower:
		return "lower"
	case WallZoneSide:
		return "side"
	case WallZoneNonWall:
		return "non_wall"
	}
	return ""
}

// ParseWallZone parses an output label back to a WallZone.
func ParseWallZone(s string) (WallZone, error) {
	switch s {
	case "upper":
		return WallZoneUpper, nil
	case "lower":
		return WallZoneLower, nil
	case "side":
		return WallZoneSide, nil
	case "non_wall":
		return WallZoneNonWall, nil
	case "":
		return WallZoneUnset, nil
	}
	return WallZoneUnset, fmt.Errorf("%w: unknown wall type %q", ErrDataShape, s)
}

// =============================================================================
// Sensor Record
// =============================================================================

// SensorRecord is one sensor point on a building envelope.
type SensorRecord struct {
	Surface     string      // Unique surface id (SURFACE)
	Building    string      // Building name (BUILDING)
	Type        SurfaceType // roof, wall or window (TYPE)
	Orientation Orientation // north, east, south, west or top
	Z           float64     // Elevation in m (Zcoor)
	TotalRad    float64     // Annual radiation in Wh/m2/year (total_rad_Whm2)

	// Set by the floor/wall classifier
	Floor    int      // 0 = roof, 1..N = facade floors (n_floor)
	WallZone WallZone // wall_type
}

// IsFacade reports whether the sensor is on a facade (not facing top).
func (r *SensorRecord) IsFacade() bool {
	return r.Orientation != Top
}

// =============================================================================
// Geometry
// =============================================================================

// Geometry is the above-ground height information of one building.
type Geometry struct {
	Building string  // Name
	HeightAG float64 // Above-ground height in m (height_ag)
	FloorsAG int     // Above-ground floors (floors_ag)
}

// FloorToFloorHeight returns the unit floor height.
func (g Geometry) FloorToFloorHeight() float64 {
	if g.FloorsAG <= 0 {
		return 0
	}
	return g.HeightAG / float64(g.FloorsAG)
}

package bia

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Objective
// =============================================================================

// Objective is the scalar a crop profile optimises per surface.
type Objective string

const (
	ObjectiveCropYield                 Objective = "CropYield"
	ObjectiveGHGEmission               Objective = "GHGEmission"
	ObjectiveEnergyUse                 Objective = "EnergyUse"
	ObjectiveWaterUse                  Objective = "WaterUse"
	ObjectiveAnnualisedCAPEX           Objective = "AnnualisedCAPEX"
	ObjectiveAnnualisedCAPEXPerKgYield Objective = "AnnualisedCAPEXPerKgYield"
	ObjectiveAnnualOPEX                Objective = "AnnualOPEX"
	ObjectiveAnnualOPEXPerKgYield      Objective = "AnnualOPEXPerKgYield"
	ObjectiveAnnualCost                Objective = "AnnualCost"
	ObjectiveAnnualCostPerKgYield      Objective = "AnnualCostPerKgYield"
)

// Objectives lists every recognised objective.
var Objectives = []Objective{
	ObjectiveCropYield,
	ObjectiveGHGEmission,
	ObjectiveEnergyUse,
	ObjectiveWaterUse,
	ObjectiveAnnualisedCAPEX,
	ObjectiveAnnualisedCAPEXPerKgYield,
	ObjectiveAnnualOPEX,
	ObjectiveAnnualOPEXPerKgYield,
	ObjectiveAnnualCost,
	ObjectiveAnnualCostPerKgYield,
}

// Valid reports whether o is a recognised objective.
func (o Objective) Valid() bool {
	for _, known := range Objectives {
		if o == known {
			return true
		}
	}
	return false
}

// Maximize reports whether higher scores are better.
func (o Objective) Maximize() bool {
	return o == ObjectiveCropYield
}

// =============================================================================
// Calendar Mode
// =============================================================================

// CalendarMode selects how many eligible days each ranked crop stamps.
type CalendarMode string

const (
	// CalendarFirstDay stamps one day per rank position (reference behaviour).
	CalendarFirstDay CalendarMode = "first_day"
	// CalendarAllDays stamps every eligible day of every crop.
	CalendarAllDays CalendarMode = "all_days"
)

// =============================================================================
// Output Format
// =============================================================================

// OutputFormat selects how stage outputs are written to disk.
type OutputFormat string

const (
	FormatCSV     OutputFormat = "csv"
	FormatCSVGzip OutputFormat = "csv.gz"
	FormatParquet OutputFormat = "parquet"
)

// EmptyDayMarker is written in tabular calendar cells of days without a crop,
// so it cannot name a crop type.
const EmptyDayMarker = "0"

// OutputFormats lists every supported output format.
var OutputFormats = []OutputFormat{FormatCSV, FormatCSVGzip, FormatParquet}

// Ext returns the file extension including the leading dot.
func (f OutputFormat) Ext() string {
	return "." + string(f)
}

// =============================================================================
// Settings
// =============================================================================

// Settings is the run configuration. It is built once per run, validated,
// and passed by value into every stage.
type Settings struct {
	CropOnRoof               bool         // Include roof sensors
	CropOnWall               bool         // Include wall sensors
	AnnualRadiationThreshold float64      // kWh/m2/year
	CropTypes                []string     // Candidate crops, in tie-break order
	Objective                Objective    // Ranking objective
	CalendarMode             CalendarMode // first_day or all_days
	OutputFormat             OutputFormat // csv, csv.gz or parquet
}

// ThresholdWh returns the annual radiation threshold in Wh/m2/year.
func (s Settings) ThresholdWh() float64 {
	return s.AnnualRadiationThreshold * 1000
}

// Validate checks every option. All failures wrap ErrConfiguration.
func (s Settings) Validate() error {
	if !s.Objective.Valid() {
		return fmt.Errorf("%w: unknown bia_assessment_metric_objective %q (want one of %s)",
			ErrConfiguration, s.Objective, objectiveList())
	}
	if len(s.CropTypes) == 0 {
		return fmt.Errorf("%w: types_crop is empty", ErrConfiguration)
	}
	seen := make(map[string]bool, len(s.CropTypes))
	for _, c := range s.CropTypes {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("%w: types_crop contains an empty name", ErrConfiguration)
		}
		if c == EmptyDayMarker {
			return fmt.Errorf("%w: crop type %q is reserved for days without a crop", ErrConfiguration, c)
		}
		if strings.Contains(c, ",") {
			return fmt.Errorf("%w: crop type %q contains a comma", ErrConfiguration, c)
		}
		if seen[c] {
			return fmt.Errorf("%w: duplicate crop type %q", ErrConfiguration, c)
		}
		seen[c] = true
	}
	if s.AnnualRadiationThreshold < 0 {
		return fmt.Errorf("%w: annual_radiation_threshold must be >= 0, got %v",
			ErrConfiguration, s.AnnualRadiationThreshold)
	}
	switch s.CalendarMode {
	case CalendarFirstDay, CalendarAllDays:
	default:
		return fmt.Errorf("%w: unknown calendar_mode %q", ErrConfiguration, s.CalendarMode)
	}
	switch s.OutputFormat {
	case FormatCSV, FormatCSVGzip, FormatParquet:
	default:
		return fmt.Errorf("%w: unknown output_format %q", ErrConfiguration, s.OutputFormat)
	}
	return nil
}

func objectiveList() string {
	names := make([]string, len(Objectives))
	for i, o := range Objectives {
		names[i] = string(o)
	}
	return strings.Join(names, ", ")
}

// settingsFile mirrors the YAML layout. Pointer fields distinguish a missing
// option from its zero value.
type settingsFile struct {
	Agriculture struct {
		CropOnRoof               *bool    `yaml:"crop_on_roof"`
		CropOnWall               *bool    `yaml:"crop_on_wall"`
		AnnualRadiationThreshold *float64 `yaml:"annual_radiation_threshold"`
	} `yaml:"agriculture"`
	CropProfile struct {
		TypesCrop    []string `yaml:"types_crop"`
		Objective    *string  `yaml:"bia_assessment_metric_objective"`
		CalendarMode string   `yaml:"calendar_mode"`
	} `yaml:"crop_profile"`
	OutputFormat string `yaml:"output_format"`
}

// ParseSettings decodes and validates a YAML settings document.
func ParseSettings(data []byte) (Settings, error) {
	var f settingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Settings{}, fmt.Errorf("%w: parsing settings YAML: %v", ErrConfiguration, err)
	}

	var missing []string
	if f.Agriculture.CropOnRoof == nil {
		missing = append(missing, "agriculture.crop_on_roof")
	}
	if f.Agriculture.CropOnWall == nil {
		missing = append(missing, "agriculture.crop_on_wall")
	}
	if f.Agriculture.AnnualRadiationThreshold == nil {
		missing = append(missing, "agriculture.annual_radiation_threshold")
	}
	if f.CropProfile.TypesCrop == nil {
		missing = append(missing, "crop_profile.types_crop")
	}
	if f.CropProfile.Objective == nil {
		missing = append(missing, "crop_profile.bia_assessment_metric_objective")
	}
	if len(missing) > 0 {
		return Settings{}, fmt.Errorf("%w: missing required option(s): %s",
			ErrConfiguration, strings.Join(missing, ", "))
	}

	s := Settings{
		CropOnRoof:               *f.Agriculture.CropOnRoof,
		CropOnWall:               *f.Agriculture.CropOnWall,
		AnnualRadiationThreshold: *f.Agriculture.AnnualRadiationThreshold,
		CropTypes:                append([]string(nil), f.CropProfile.TypesCrop...),
		Objective:                Objective(*f.CropProfile.Objective),
		CalendarMode:             CalendarMode(f.CropProfile.CalendarMode),
		OutputFormat:             OutputFormat(f.OutputFormat),
	}
	if s.CalendarMode == "" {
		s.CalendarMode = CalendarFirstDay
	}
	if s.OutputFormat == "" {
		s.OutputFormat = FormatCSV
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// LoadSettings reads a settings file from disk.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Settings{}, fmt.Errorf("%w: reading settings file: %v", ErrConfiguration, err)
	}
	return ParseSettings(data)
}

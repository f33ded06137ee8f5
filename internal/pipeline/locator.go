package pipeline

import (
	"os"
	"path/filepath"

	"github.com/KI7MT/ki7mt-bia-apps/internal/bia"
)

// RunLogName is the file name of the run ledger in the agriculture output
// directory.
const RunLogName = "bia_runs.db"

// Locator builds input and output paths inside a scenario directory.
type Locator struct {
	Scenario string
}

// RadiationDir returns the solar radiation simulation output directory.
func (l Locator) RadiationDir() string {
	return filepath.Join(l.Scenario, "outputs", "data", "solar-radiation")
}

// Radiation returns the hourly radiation file of a building. A plain .json
// file wins over .json.gz when both exist.
func (l Locator) Radiation(building string) string {
	path := filepath.Join(l.RadiationDir(), building+"_radiation.json")
	if _, err := os.Stat(path); err != nil {
		if _, gzErr := os.Stat(path + ".gz"); gzErr == nil {
			return path + ".gz"
		}
	}
	return path
}

// SensorMetadata returns the sensor metadata table of a building.
func (l Locator) SensorMetadata(building string) string {
	return filepath.Join(l.RadiationDir(), building+"_geometry.csv")
}

// Zone returns the building height table of the scenario.
func (l Locator) Zone() string {
	return filepath.Join(l.Scenario, "inputs", "building-geometry", "zone.csv")
}

// AgricultureDir returns the directory the stages write to.
func (l Locator) AgricultureDir() string {
	return filepath.Join(l.Scenario, "outputs", "data", "potentials", "agriculture")
}

// SurfaceDir holds the per-crop metric and cycle tables.
func (l Locator) SurfaceDir() string {
	return filepath.Join(l.AgricultureDir(), "surface")
}

// Metrics returns the metric table of one crop type.
func (l Locator) Metrics(building, cropType string) string {
	return filepath.Join(l.SurfaceDir(), building+"_BIA_metrics_"+cropType+".csv")
}

// Cycles returns the growing cycle table of one crop type.
func (l Locator) Cycles(building, cropType string) string {
	return filepath.Join(l.SurfaceDir(), building+"_BIA_cycle_"+cropType+".csv")
}

// DLIDaily returns the DLI daily output path for format.
func (l Locator) DLIDaily(building string, format bia.OutputFormat) string {
	return filepath.Join(l.AgricultureDir(), building+"_DLI_daily"+format.Ext())
}

// CropProfile returns the crop profile output path for format.
func (l Locator) CropProfile(building string, format bia.OutputFormat) string {
	return filepath.Join(l.AgricultureDir(), building+"_BIA_crop_profile"+format.Ext())
}

// RunLog returns the run ledger path.
func (l Locator) RunLog() string {
	return filepath.Join(l.AgricultureDir(), RunLogName)
}

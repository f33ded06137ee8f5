// Package pipeline runs the BIA stages over the buildings of a scenario.
//
// Stages:
//   - dli: filter sensors, convert to daily light integral, classify floors
//     and wall zones, write {building}_DLI_daily
//   - crop-profile: rank crops per surface, build the 365-day calendar,
//     write {building}_BIA_crop_profile
//
// Each building is one task. Tasks are independent; a failed building never
// affects its siblings.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/KI7MT/ki7mt-bia-apps/internal/bia"
	"github.com/KI7MT/ki7mt-bia-apps/internal/crop"
	"github.com/KI7MT/ki7mt-bia-apps/internal/facade"
	"github.com/KI7MT/ki7mt-bia-apps/internal/solar"
	"github.com/KI7MT/ki7mt-bia-apps/internal/tabular"
)

// Stage names a pipeline stage.
type Stage string

const (
	StageDLI         Stage = "dli"
	StageCropProfile Stage = "crop-profile"
)

// Status is the outcome of one building task.
type Status string

const (
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped" // no surface with BIA potential
	StatusFailed  Status = "failed"
)

// Result is the outcome of one stage for one building.
type Result struct {
	Building string
	Stage    Stage
	Status   Status
	Sensors  int // surfaces written
	Output   string
	Elapsed  time.Duration
	Err      error

	// DLI stage only, in Wh/m2/year
	MaxAnnualRadiation float64
	Threshold          float64
}

// Task processes one building.
type Task func(ctx context.Context, building string) Result

// finish fills in status and elapsed time from err.
func (r Result) finish(start time.Time, err error) Result {
	r.Elapsed = time.Since(start)
	r.Err = err
	switch {
	case err == nil:
		r.Status = StatusDone
	case errors.Is(err, bia.ErrNoPotential):
		r.Status = StatusSkipped
	default:
		r.Status = StatusFailed
	}
	return r
}

// Runner holds the immutable inputs shared by all building tasks of a run.
type Runner struct {
	Locator  Locator
	Settings bia.Settings

	zone      map[string]bia.Geometry
	buildings []string
}

// NewRunner validates settings and loads the scenario's zone table.
func NewRunner(loc Locator, settings bia.Settings) (*Runner, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	zone, err := tabular.ReadZone(loc.Zone())
	if err != nil {
		return nil, fmt.Errorf("zone table: %w", err)
	}

	r := &Runner{
		Locator:  loc,
		Settings: settings,
		zone:     make(map[string]bia.Geometry, len(zone)),
	}
	for _, g := range zone {
		if _, dup := r.zone[g.Building]; dup {
			continue
		}
		r.zone[g.Building] = g
		r.buildings = append(r.buildings, g.Building)
	}
	return r, nil
}

// Buildings returns the buildings of the zone table in file order.
func (r *Runner) Buildings() []string {
	return append([]string(nil), r.buildings...)
}

// LogSettings prints the effective settings of a stage.
func (r *Runner) LogSettings(stage Stage) {
	s := r.Settings
	log.Printf("[%s] crop on roof: %t | crop on wall: %t | threshold: %.0f kWh/m2/year",
		stage, s.CropOnRoof, s.CropOnWall, s.AnnualRadiationThreshold)
	if stage == StageCropProfile {
		log.Printf("[%s] crops: %v | objective: %s | calendar: %s",
			stage, s.CropTypes, s.Objective, s.CalendarMode)
	}
	log.Printf("[%s] output format: %s", stage, s.OutputFormat)
}

// Task returns the task function of stage.
func (r *Runner) Task(stage Stage) (Task, error) {
	switch stage {
	case StageDLI:
		return r.DLI, nil
	case StageCropProfile:
		return r.CropProfile, nil
	}
	return nil, fmt.Errorf("%w: unknown stage %q", bia.ErrConfiguration, stage)
}

// =============================================================================
// DLI stage
// =============================================================================

// DLI runs the DLI stage for one building.
func (r *Runner) DLI(ctx context.Context, building string) Result {
	start := time.Now()
	res := Result{Building: building, Stage: StageDLI}

	err := ctx.Err()
	if err == nil {
		err = r.dli(building, &res)
	}
	if err == nil || errors.Is(err, bia.ErrNoPotential) {
		if rmErr := clearOutputs(r.Locator.DLIDaily, building, res.Output); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return res.finish(start, err)
}

func (r *Runner) dli(building string, res *Result) error {
	geo, ok := r.zone[building]
	if !ok {
		return fmt.Errorf("%w: building %s not in zone table", bia.ErrGeometry, building)
	}

	filtered, err := r.filter(building)
	if err != nil {
		return err
	}
	res.MaxAnnualRadiation = filtered.MaxAnnualRadiation
	res.Threshold = filtered.Threshold
	log.Printf("[%s] max annual radiation: %.2f Wh/m2 | threshold: %.2f Wh/m2",
		building, filtered.MaxAnnualRadiation, filtered.Threshold)

	if filtered.Empty() {
		return fmt.Errorf("%w: building %s", bia.ErrNoPotential, building)
	}

	dli, err := solar.ConvertTable(filtered.Radiation)
	if err != nil {
		return err
	}
	if err := facade.Classify(filtered.Sensors, geo); err != nil {
		return err
	}

	if err := os.MkdirAll(r.Locator.AgricultureDir(), 0o755); err != nil {
		return err
	}
	res.Output = r.Locator.DLIDaily(building, r.Settings.OutputFormat)
	if err := tabular.WriteDLI(res.Output, r.Settings.OutputFormat, filtered.Sensors, dli); err != nil {
		return err
	}
	res.Sensors = len(filtered.Sensors)
	return nil
}

// filter reads a building's radiation and sensor metadata and applies the
// run's surface policy.
func (r *Runner) filter(building string) (*solar.FilterResult, error) {
	rad, err := tabular.ReadRadiation(r.Locator.Radiation(building))
	if err != nil {
		return nil, err
	}
	sensors, err := tabular.ReadSensorMetadata(r.Locator.SensorMetadata(building), building)
	if err != nil {
		return nil, err
	}
	return solar.FilterLowPotential(rad, sensors, solar.PolicyFromSettings(r.Settings))
}

// =============================================================================
// Crop profile stage
// =============================================================================

// CropProfile runs the crop profile stage for one building.
func (r *Runner) CropProfile(ctx context.Context, building string) Result {
	start := time.Now()
	res := Result{Building: building, Stage: StageCropProfile}

	err := ctx.Err()
	if err == nil {
		err = r.cropProfile(building, &res)
	}
	if err == nil || errors.Is(err, bia.ErrNoPotential) {
		if rmErr := clearOutputs(r.Locator.CropProfile, building, res.Output); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return res.finish(start, err)
}

func (r *Runner) cropProfile(building string, res *Result) error {
	keep, err := r.survivors(building)
	if err != nil {
		return err
	}
	if len(keep) == 0 {
		return fmt.Errorf("%w: building %s", bia.ErrNoPotential, building)
	}

	s := r.Settings
	tables := make([]crop.MetricsTable, len(s.CropTypes))
	cycles := make([]crop.CycleTable, len(s.CropTypes))
	for k, cropType := range s.CropTypes {
		if tables[k], err = tabular.ReadMetrics(r.Locator.Metrics(building, cropType), cropType); err != nil {
			return err
		}
		if cycles[k], err = tabular.ReadCycles(r.Locator.Cycles(building, cropType), cropType); err != nil {
			return err
		}
	}

	ranking, err := crop.Rank(s.Objective, s.CropTypes, tables)
	if err != nil {
		return err
	}
	if n := ranking.NonFinite(); n > 0 {
		log.Printf("[%s] %d surface(s) with non-finite %s scores ranked last", building, n, s.Objective)
	}

	cal, err := crop.BuildCalendar(ranking, cycles, s.CalendarMode)
	if err != nil {
		return err
	}
	cal = crop.SelectSurfaces(cal, keep)
	if cal.Len() == 0 {
		return fmt.Errorf("%w: building %s has no ranked surface with potential", bia.ErrNoPotential, building)
	}

	if err := os.MkdirAll(r.Locator.AgricultureDir(), 0o755); err != nil {
		return err
	}
	res.Output = r.Locator.CropProfile(building, s.OutputFormat)
	if err := tabular.WriteProfile(res.Output, s.OutputFormat, cal); err != nil {
		return err
	}
	res.Sensors = cal.Len()
	return nil
}

// survivors returns the surfaces that pass the radiation filter under the
// run's settings.
func (r *Runner) survivors(building string) ([]string, error) {
	filtered, err := r.filter(building)
	if err != nil {
		return nil, err
	}
	return filtered.Radiation.Surfaces, nil
}

// clearOutputs removes every output of a building written by an earlier run,
// in any format, except keep.
func clearOutputs(path func(string, bia.OutputFormat) string, building, keep string) error {
	for _, f := range bia.OutputFormats {
		p := path(building, f)
		if p == keep {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// bia-potential - Building-integrated agriculture potential per building
//
// Stages:
//   - dli:          radiation filter, daily light integral, floor/wall zones
//   - crop-profile: per-surface crop ranking and 365-day crop calendar
//   - run:          both stages in sequence
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/bia-potential ./cmd/bia-potential

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/KI7MT/ki7mt-bia-apps/internal/bia"
	"github.com/KI7MT/ki7mt-bia-apps/internal/common"
	"github.com/KI7MT/ki7mt-bia-apps/internal/pipeline"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

// options are the flags shared by every subcommand.
type options struct {
	scenario     string
	settingsFile string
	workers      int
	buildings    []string
	silent       bool
	noRunLog     bool

	// Settings overrides, applied only when the flag is set
	cropOnRoof   bool
	cropOnWall   bool
	threshold    float64
	crops        []string
	objective    string
	calendarMode string
	format       string
}

func main() {
	common.LoadEnv()
	cfg := common.DefaultConfig()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "bia-potential",
		Short:        "Building-integrated agriculture potential tools",
		Version:      Version,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.scenario, "scenario", cfg.Scenario, "Scenario directory (env BIA_SCENARIO)")
	pf.StringVar(&opts.settingsFile, "settings", cfg.SettingsFile, "YAML settings file (env BIA_SETTINGS)")
	pf.IntVarP(&opts.workers, "workers", "w", cfg.Workers, "Building workers, 0 = all CPUs (env BIA_WORKERS)")
	pf.StringSliceVarP(&opts.buildings, "buildings", "b", nil, "Buildings to process (default: all in zone.csv)")
	pf.BoolVar(&opts.silent, "silent", false, "Disable progress output")
	pf.BoolVar(&opts.noRunLog, "no-runlog", false, "Do not record outcomes in "+pipeline.RunLogName)

	pf.BoolVar(&opts.cropOnRoof, "crop-on-roof", false, "Override agriculture.crop_on_roof")
	pf.BoolVar(&opts.cropOnWall, "crop-on-wall", false, "Override agriculture.crop_on_wall")
	pf.Float64Var(&opts.threshold, "threshold", 0, "Override agriculture.annual_radiation_threshold (kWh/m2/year)")
	pf.StringSliceVar(&opts.crops, "crops", nil, "Override crop_profile.types_crop")
	pf.StringVar(&opts.objective, "objective", "", "Override crop_profile.bia_assessment_metric_objective")
	pf.StringVar(&opts.calendarMode, "calendar-mode", "", "Override crop_profile.calendar_mode (first_day, all_days)")
	pf.StringVar(&opts.format, "format", "", "Override output_format (csv, csv.gz, parquet)")

	rootCmd.AddCommand(stageCmd(opts, "dli", "Filter sensors, compute daily DLI and classify floors/wall zones",
		pipeline.StageDLI))
	rootCmd.AddCommand(stageCmd(opts, "crop-profile", "Rank crops per surface and build the crop calendar",
		pipeline.StageCropProfile))
	rootCmd.AddCommand(stageCmd(opts, "run", "Run the dli and crop-profile stages in sequence",
		pipeline.StageDLI, pipeline.StageCropProfile))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func stageCmd(opts *options, use, short string, stages ...pipeline.Stage) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := bia.LoadSettings(opts.settingsFile)
			if err != nil {
				return err
			}
			applyOverrides(cmd, opts, &settings)
			if err := settings.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), opts, settings, stages)
		},
	}
}

// applyOverrides copies explicitly set flags onto settings.
func applyOverrides(cmd *cobra.Command, opts *options, s *bia.Settings) {
	flags := cmd.Flags()
	if flags.Changed("crop-on-roof") {
		s.CropOnRoof = opts.cropOnRoof
	}
	if flags.Changed("crop-on-wall") {
		s.CropOnWall = opts.cropOnWall
	}
	if flags.Changed("threshold") {
		s.AnnualRadiationThreshold = opts.threshold
	}
	if flags.Changed("crops") {
		s.CropTypes = opts.crops
	}
	if flags.Changed("objective") {
		s.Objective = bia.Objective(opts.objective)
	}
	if flags.Changed("calendar-mode") {
		s.CalendarMode = bia.CalendarMode(opts.calendarMode)
	}
	if flags.Changed("format") {
		s.OutputFormat = bia.OutputFormat(opts.format)
	}
}

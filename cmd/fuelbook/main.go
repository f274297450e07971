// Package main provides the CLI entrypoint for fuelbook.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/fuelbook/internal/config"
	"github.com/verte-zerg/fuelbook/internal/fills"
	"github.com/verte-zerg/fuelbook/internal/importer"
	"github.com/verte-zerg/fuelbook/internal/logging"
	"github.com/verte-zerg/fuelbook/internal/model"
	"github.com/verte-zerg/fuelbook/internal/stats"
	"github.com/verte-zerg/fuelbook/internal/store"
	"github.com/verte-zerg/fuelbook/internal/units"
)

const (
	defaultCurveWindow = 1
	defaultPeriod      = stats.PeriodAll
	defaultSeedCount   = 40
	defaultTop         = 3
)

var (
	dbPath     string
	configPath string
	logLevel   string
	unitSystem string

	fileCfg config.FileConfig
	metric  = true
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "fuelbook",
		Short:             "Fuel log with tank-cycle consumption stats",
		SilenceUsage:      true,
		SilenceErrors:     false,
		PersistentPreRunE: setupGlobals,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: $FUELBOOK_DB or XDG data dir)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&unitSystem, "units", config.SystemMetric, "display units (metric or imperial)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVehicleCmd())
	rootCmd.AddCommand(newFillCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newSeedCmd())

	return rootCmd
}

// setupGlobals loads the config file, installs the logger and resolves the
// display unit system. The config command skips the file so a broken config
// can still be opened for editing.
func setupGlobals(cmd *cobra.Command, _ []string) error {
	fileCfg = config.FileConfig{}
	if cmd.Name() != "config" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		fileCfg = cfg
	}
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	if _, err := logging.Setup(logLevel); err != nil {
		return err
	}
	applyStringConfig(cmd, "units", &unitSystem, fileCfg.Units.System)
	m, err := config.ParseSystem(unitSystem)
	if err != nil {
		return err
	}
	metric = m
	slog.Debug("config resolved", "config", configPath, "units", unitSystem, "db", resolveDBPath())
	return nil
}

func classifierConfig() model.ClassifierConfig {
	var cls model.ClassifierConfig
	if fileCfg.Classifier.MinSamples != nil {
		cls.MinSamples = *fileCfg.Classifier.MinSamples
	}
	if fileCfg.Classifier.PartialRatio != nil {
		cls.PartialRatio = *fileCfg.Classifier.PartialRatio
	}
	return cls
}

func resolveDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return config.DefaultDBPath()
}

func openStore() (*store.Store, error) {
	st, err := store.Open(resolveDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		slog.Warn("failed to close db", "err", cerr)
	}
}

// vehicleRef returns the --vehicle flag, falling back to [stats] vehicle.
func vehicleRef(cmd *cobra.Command, ref *string) (string, error) {
	applyStringConfig(cmd, "vehicle", ref, fileCfg.Stats.Vehicle)
	if strings.TrimSpace(*ref) == "" {
		return "", fmt.Errorf("--vehicle is required (or set [stats] vehicle in the config)")
	}
	return *ref, nil
}

func loadVehicle(ctx context.Context, st *store.Store, cmd *cobra.Command, ref *string) (model.Vehicle, error) {
	name, err := vehicleRef(cmd, ref)
	if err != nil {
		return model.Vehicle{}, err
	}
	return st.FindVehicle(ctx, name)
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := configPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		slog.Info("wrote default config", "path", path)
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newVehicleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vehicle",
		Short: "Manage vehicles",
	}
	cmd.AddCommand(newVehicleAddCmd())
	cmd.AddCommand(newVehicleListCmd())
	return cmd
}

var (
	vehicleName     string
	vehicleFuel     string
	vehicleBaseline float64
)

func newVehicleAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a vehicle",
		Args:  cobra.NoArgs,
		RunE:  runVehicleAddCmd,
	}
	cmd.Flags().StringVar(&vehicleName, "name", "", "vehicle name")
	cmd.Flags().StringVar(&vehicleFuel, "fuel", string(model.FuelLiquid), "fuel type (liquid, electric, hydrogen)")
	cmd.Flags().Float64Var(&vehicleBaseline, "baseline", 0, "odometer reading before the first fill (display units)")
	return cmd
}

func runVehicleAddCmd(cmd *cobra.Command, _ []string) error {
	fuel, err := model.ParseFuelType(vehicleFuel)
	if err != nil {
		return err
	}
	v := model.Vehicle{Name: strings.TrimSpace(vehicleName), FuelType: fuel}
	if cmd.Flags().Changed("baseline") {
		km, err := toKm("baseline", vehicleBaseline)
		if err != nil {
			return err
		}
		v.BaselineOdometer = model.Odo(km)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	created, err := st.CreateVehicle(cmd.Context(), v)
	if err != nil {
		return err
	}
	slog.Info("vehicle added", "id", created.ID, "name", created.Name)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added vehicle %s (%s, %s)\n", created.Name, created.FuelType, created.ID)
	return err
}

func newVehicleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List vehicles",
		Args:  cobra.NoArgs,
		RunE:  runVehicleListCmd,
	}
}

func runVehicleListCmd(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	vehicles, err := st.ListVehicles(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(vehicles) == 0 {
		_, err := fmt.Fprintln(out, "No vehicles found. Add one with: fuelbook vehicle add --name <name>")
		return err
	}
	labels := units.LabelsFor(model.FuelLiquid, metric)
	rows := make([][]string, 0, len(vehicles))
	for _, v := range vehicles {
		baseline := "-"
		if v.BaselineOdometer != nil {
			baseline = fmt.Sprintf("%.0f", units.Distance(float64(*v.BaselineOdometer), metric))
		}
		rows = append(rows, []string{v.Name, string(v.FuelType), baseline, v.ID})
	}
	headers := []string{"Name", "Fuel", "Baseline (" + labels.Distance + ")", "ID"}
	for _, line := range stats.FormatTable(headers, rows, map[int]bool{2: true}) {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Lookup(name) == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Lookup(name) == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

// toKm converts the display distance given in flag name to stored whole
// kilometres.
func toKm(name string, display float64) (int64, error) {
	return importer.OdometerKm("--"+name, display, metric)
}

// parseTimeFlag parses a date flag in local time. Empty input yields nil.
func parseTimeFlag(name, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := importer.ParseDate(value, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s value: %w", name, err)
	}
	return &t, nil
}

// suggestPartial asks the classifier about a volume in storage units. The
// second result reports whether a suggestion was made.
func suggestPartial(history []model.FillRecord, vehicle model.Vehicle, volume float64) (bool, bool) {
	cls := fills.NewClassifier(history, fills.WithConfig(classifierConfig()))
	partial, ok := cls.Suggest(volume)
	if !ok {
		slog.Debug("partial suggestion unavailable", "vehicle", vehicle.Name, "samples", cls.Samples(), "required", cls.Required())
	}
	return partial, ok
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# fuelbook configuration
# Uncomment a value to enable it. CLI flags override config values.

[units]
# system = %q        # metric (km, L) or imperial (mi, gal)

[classifier]
# min-samples = %d          # Full fills needed before partial fills are suggested
# partial-ratio = %.2f      # Fills below this share of the average refill look partial

[stats]
# period = %q            # all, 30d, 90d, year or month
# curve-window = %d          # Moving average window for curves
# vehicle = ""              # Default vehicle name or id

[log]
# level = "warn"            # debug, info, warn or error
`,
		config.SystemMetric,
		fills.MinSamples,
		fills.DefaultPartialRatio,
		defaultPeriod,
		defaultCurveWindow,
	)
}

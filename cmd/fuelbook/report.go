package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/fuelbook/internal/config"
	"github.com/verte-zerg/fuelbook/internal/export"
	"github.com/verte-zerg/fuelbook/internal/generator"
	"github.com/verte-zerg/fuelbook/internal/importer"
	"github.com/verte-zerg/fuelbook/internal/model"
	"github.com/verte-zerg/fuelbook/internal/stats"
	"github.com/verte-zerg/fuelbook/internal/statsui"
)

var (
	statsVehicle     string
	statsPeriod      string
	statsSince       string
	statsUntil       string
	statsCurveWindow int
	statsTop         int
	statsTUI         bool

	importVehicle string

	exportFormat string
	exportOut    string

	seedVehicle string
	seedCount   int
	seedRandom  int64
)

func addWindowFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&statsVehicle, "vehicle", "", "vehicle name or id")
	cmd.Flags().StringVar(&statsPeriod, "period", defaultPeriod, "reporting period ("+strings.Join(stats.Periods, ", ")+")")
	cmd.Flags().StringVar(&statsSince, "since", "", "window start (YYYY-MM-DD), overrides --period")
	cmd.Flags().StringVar(&statsUntil, "until", "", "window end, exclusive (YYYY-MM-DD)")
}

// statsConfig resolves the window flags against the config file.
func statsConfig(cmd *cobra.Command) (model.StatsConfig, error) {
	vehicle, err := vehicleRef(cmd, &statsVehicle)
	if err != nil {
		return model.StatsConfig{}, err
	}
	applyStringConfig(cmd, "period", &statsPeriod, fileCfg.Stats.Period)
	applyIntConfig(cmd, "curve-window", &statsCurveWindow, fileCfg.Stats.CurveWindow)

	since, err := parseTimeFlag("since", statsSince)
	if err != nil {
		return model.StatsConfig{}, err
	}
	until, err := parseTimeFlag("until", statsUntil)
	if err != nil {
		return model.StatsConfig{}, err
	}
	if statsCurveWindow < 1 {
		statsCurveWindow = defaultCurveWindow
	}
	cfg := model.StatsConfig{
		VehicleID:   vehicle,
		Since:       since,
		Until:       until,
		Period:      statsPeriod,
		Metric:      metric,
		CurveWindow: statsCurveWindow,
	}
	if _, err := stats.ResolveWindow(cfg, time.Now()); err != nil {
		return model.StatsConfig{}, err
	}
	return cfg, nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show consumption stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	addWindowFlags(cmd)
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().IntVar(&statsTop, "top", defaultTop, "number of best and worst cycles to list (0 to hide)")
	cmd.Flags().BoolVar(&statsTUI, "tui", false, "open the interactive dashboard")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := statsConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	if statsTUI {
		ui := statsui.NewModel(st, cfg, classifierConfig())
		program := tea.NewProgram(ui, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run stats TUI: %w", err)
		}
		return nil
	}

	rep, err := stats.BuildReport(cmd.Context(), st, cfg, classifierConfig())
	if err != nil {
		return err
	}
	slog.Debug("report built", "vehicle", rep.Vehicle.Name, "window", rep.Window.Window.String(), "fills", rep.Window.Fills)
	return renderReport(cmd.OutOrStdout(), rep, cfg.CurveWindow, statsTop)
}

func renderReport(out io.Writer, rep stats.Report, window, top int) error {
	if _, err := fmt.Fprintf(out, "Vehicle: %s (%s)\n\n", rep.Vehicle.Name, rep.Vehicle.FuelType); err != nil {
		return err
	}
	if err := stats.RenderSummary(out, rep.Window, rep.Labels, rep.AvgRefill); err != nil {
		return err
	}
	if rep.Window.Fills == 0 {
		return nil
	}
	if err := stats.RenderCycleTable(out, rep.Window.Cycles, rep.Labels); err != nil {
		return err
	}
	if top > 0 {
		best := stats.RankCycles(rep.Window.Cycles, rep.Vehicle.FuelType, top)
		worst := stats.WorstCycles(rep.Window.Cycles, rep.Vehicle.FuelType, top)
		if err := renderRanked(out, "Best cycles", best, rep); err != nil {
			return err
		}
		if err := renderRanked(out, "Worst cycles", worst, rep); err != nil {
			return err
		}
	}
	return stats.RenderCurves(out, rep.Consumption, rep.UnitPrice, rep.Labels, window)
}

func renderRanked(out io.Writer, title string, ranked []stats.Cycle, rep stats.Report) error {
	if len(ranked) == 0 {
		return nil
	}
	// CycleRows lists newest first, so feed it the ranking reversed.
	reversed := make([]stats.Cycle, len(ranked))
	for i, c := range ranked {
		reversed[len(ranked)-1-i] = c
	}
	if _, err := fmt.Fprintln(out, title); err != nil {
		return err
	}
	rightAlign := map[int]bool{1: true, 3: true, 4: true, 5: true, 6: true}
	for _, line := range stats.FormatTable(stats.CycleHeaders(rep.Labels), stats.CycleRows(reversed), rightAlign) {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(out, "")
	return err
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE.csv",
		Short: "Import fills from CSV (" + strings.Join(importer.Header, ",") + ")",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
	cmd.Flags().StringVar(&importVehicle, "vehicle", "", "vehicle name or id")
	return cmd
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	vehicle, err := loadVehicle(ctx, st, cmd, &importVehicle)
	if err != nil {
		return err
	}
	recs, err := importer.LoadFile(args[0], importer.Options{
		VehicleID: vehicle.ID,
		Fuel:      vehicle.FuelType,
		Metric:    metric,
		Location:  time.Local,
	})
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", args[0], err)
	}
	saved, err := st.InsertFills(ctx, recs)
	if err != nil {
		return err
	}
	slog.Info("fills imported", "vehicle", vehicle.Name, "count", len(saved), "file", args[0])
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d fills into %s\n", len(saved), vehicle.Name)
	return err
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a stats report as XLSX or PDF",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	addWindowFlags(cmd)
	cmd.Flags().StringVar(&exportFormat, "format", export.FormatXLSX, "output format (xlsx or pdf)")
	cmd.Flags().StringVar(&exportOut, "out", "", "output file (default: XDG data dir)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := statsConfig(cmd)
	if err != nil {
		return err
	}
	format := strings.ToLower(strings.TrimSpace(exportFormat))
	if format != export.FormatXLSX && format != export.FormatPDF {
		return fmt.Errorf("--format must be xlsx or pdf")
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	rep, err := stats.BuildReport(cmd.Context(), st, cfg, classifierConfig())
	if err != nil {
		return err
	}
	path := exportOut
	if path == "" {
		path = filepath.Join(config.DefaultExportDir(), export.FileName(rep, format, time.Now()))
	}
	if err := export.WriteFile(path, rep, format); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	slog.Info("report exported", "vehicle", rep.Vehicle.Name, "format", format, "path", path)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return err
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a synthetic fill history for a vehicle",
		Args:  cobra.NoArgs,
		RunE:  runSeedCmd,
	}
	cmd.Flags().StringVar(&seedVehicle, "vehicle", "", "vehicle name or id")
	cmd.Flags().IntVar(&seedCount, "count", defaultSeedCount, "number of fills")
	cmd.Flags().Int64Var(&seedRandom, "seed", 0, "random seed (0 picks one)")
	return cmd
}

func runSeedCmd(cmd *cobra.Command, _ []string) error {
	if seedCount <= 0 {
		return fmt.Errorf("--count must be > 0")
	}
	ctx := cmd.Context()
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	vehicle, err := loadVehicle(ctx, st, cmd, &seedVehicle)
	if err != nil {
		return err
	}
	opts := seedOptions(vehicle, seedCount, time.Now())
	gen := generator.New()
	if seedRandom != 0 {
		gen = generator.NewSeeded(seedRandom)
	}
	saved, err := st.InsertFills(ctx, gen.History(opts))
	if err != nil {
		return err
	}
	slog.Info("history seeded", "vehicle", vehicle.Name, "count", len(saved))
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d fills for %s\n", len(saved), vehicle.Name)
	return err
}

// seedOptions shapes a history that ends around now and starts at the
// vehicle baseline.
func seedOptions(vehicle model.Vehicle, count int, now time.Time) generator.Options {
	opts := generator.DefaultOptions()
	opts.Count = count
	opts.VehicleID = vehicle.ID
	switch vehicle.FuelType {
	case model.FuelElectric:
		opts.TankSize, opts.Efficiency, opts.UnitPrice = 60, 6, 0.35
	case model.FuelHydrogen:
		opts.TankSize, opts.Efficiency, opts.UnitPrice = 6, 100, 13
	}
	if vehicle.BaselineOdometer != nil {
		opts.Baseline = *vehicle.BaselineOdometer
	}
	// Fills land on average half of MaxDaysApart apart.
	days := count * opts.MaxDaysApart / 2
	opts.Start = now.AddDate(0, 0, -days).Truncate(time.Hour)
	return opts
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/fuelbook/internal/fills"
	"github.com/verte-zerg/fuelbook/internal/model"
	"github.com/verte-zerg/fuelbook/internal/stats"
	"github.com/verte-zerg/fuelbook/internal/store"
	"github.com/verte-zerg/fuelbook/internal/tui"
	"github.com/verte-zerg/fuelbook/internal/units"
)

var (
	fillVehicle       string
	fillVolume        float64
	fillCost          float64
	fillOdometer      float64
	fillClearOdometer bool
	fillPartial       bool
	fillAt            string
	fillNote          string
)

func newFillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Record and inspect fills",
	}
	cmd.AddCommand(newFillAddCmd())
	cmd.AddCommand(newFillEditCmd())
	cmd.AddCommand(newFillDeleteCmd())
	cmd.AddCommand(newFillShowCmd())
	cmd.AddCommand(newFillListCmd())
	return cmd
}

func addFillValueFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&fillVolume, "volume", 0, "volume added (display units)")
	cmd.Flags().Float64Var(&fillCost, "cost", 0, "total cost")
	cmd.Flags().Float64Var(&fillOdometer, "odometer", 0, "odometer reading (display units)")
	cmd.Flags().BoolVar(&fillPartial, "partial", false, "tank was not filled to the usual level")
	cmd.Flags().StringVar(&fillAt, "at", "", "fill time (YYYY-MM-DD[ HH:MM], default now)")
	cmd.Flags().StringVar(&fillNote, "note", "", "free text note")
}

func newFillAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a fill (opens a form when --volume is missing)",
		Args:  cobra.NoArgs,
		RunE:  runFillAddCmd,
	}
	cmd.Flags().StringVar(&fillVehicle, "vehicle", "", "vehicle name or id")
	addFillValueFlags(cmd)
	return cmd
}

func runFillAddCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	vehicle, err := loadVehicle(ctx, st, cmd, &fillVehicle)
	if err != nil {
		return err
	}
	history, err := st.ListFills(ctx, vehicle.ID)
	if err != nil {
		return err
	}

	if !cmd.Flags().Changed("volume") {
		return runFillForm(cmd, st, vehicle, history)
	}

	if err := validateFillFlags(); err != nil {
		return err
	}
	at := time.Now()
	if parsed, err := parseTimeFlag("at", fillAt); err != nil {
		return err
	} else if parsed != nil {
		at = *parsed
	}
	rec := model.FillRecord{
		VehicleID: vehicle.ID,
		FilledAt:  at,
		Volume:    units.VolumeFromDisplay(fillVolume, vehicle.FuelType, metric),
		Cost:      fillCost,
		Partial:   fillPartial,
		Note:      strings.TrimSpace(fillNote),
	}
	if cmd.Flags().Changed("odometer") {
		km, err := toKm("odometer", fillOdometer)
		if err != nil {
			return err
		}
		rec.Odometer = model.Odo(km)
	}
	out := cmd.OutOrStdout()
	if !cmd.Flags().Changed("partial") {
		if partial, ok := suggestPartial(history, vehicle, rec.Volume); ok && partial {
			rec.Partial = true
			if _, err := fmt.Fprintln(out, "Marked as partial: volume is below the usual refill (pass --partial=false to override)."); err != nil {
				return err
			}
		}
	}

	saved, err := st.InsertFill(ctx, rec)
	if err != nil {
		return err
	}
	slog.Info("fill added", "id", saved.ID, "vehicle", vehicle.Name, "partial", saved.Partial)
	if _, err := fmt.Fprintf(out, "Added fill %s\n", saved.ID); err != nil {
		return err
	}
	return printFillGroup(ctx, out, st, vehicle, saved.ID)
}

func runFillForm(cmd *cobra.Command, st *store.Store, vehicle model.Vehicle, history []model.FillRecord) error {
	form := tui.NewModel(tui.Options{
		Vehicle:    vehicle,
		History:    history,
		Metric:     metric,
		Classifier: classifierConfig(),
		Save:       st.InsertFill,
	})
	program := tea.NewProgram(form)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run form: %w", err)
	}
	saved, ok := form.Saved()
	if !ok {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return err
	}
	slog.Info("fill added", "id", saved.ID, "vehicle", vehicle.Name, "partial", saved.Partial)
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Added fill %s\n", saved.ID); err != nil {
		return err
	}
	return printFillGroup(cmd.Context(), cmd.OutOrStdout(), st, vehicle, saved.ID)
}

func newFillEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit a fill",
		Args:  cobra.ExactArgs(1),
		RunE:  runFillEditCmd,
	}
	addFillValueFlags(cmd)
	cmd.Flags().BoolVar(&fillClearOdometer, "clear-odometer", false, "forget the odometer reading")
	return cmd
}

func runFillEditCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	rec, err := st.GetFill(ctx, args[0])
	if err != nil {
		return err
	}
	vehicle, err := st.GetVehicle(ctx, rec.VehicleID)
	if err != nil {
		return err
	}
	if err := validateFillFlags(); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("volume") {
		rec.Volume = units.VolumeFromDisplay(fillVolume, vehicle.FuelType, metric)
	}
	if flags.Changed("cost") {
		rec.Cost = fillCost
	}
	if flags.Changed("odometer") {
		km, err := toKm("odometer", fillOdometer)
		if err != nil {
			return err
		}
		rec.Odometer = model.Odo(km)
	}
	if fillClearOdometer {
		rec.Odometer = nil
	}
	if flags.Changed("at") {
		at, err := parseTimeFlag("at", fillAt)
		if err != nil {
			return err
		}
		if at == nil {
			return fmt.Errorf("--at must not be empty")
		}
		rec.FilledAt = *at
	}
	if flags.Changed("note") {
		rec.Note = strings.TrimSpace(fillNote)
	}

	out := cmd.OutOrStdout()
	switch {
	case flags.Changed("partial"):
		rec.Partial = fillPartial
	case flags.Changed("volume"):
		history, err := st.ListFills(ctx, vehicle.ID)
		if err != nil {
			return err
		}
		if partial, ok := suggestPartial(fills.Without(history, rec.ID), vehicle, rec.Volume); ok && partial != rec.Partial {
			if _, err := fmt.Fprintf(out, "Note: the new volume looks like a %s fill; pass --partial to change it.\n", fillKind(partial)); err != nil {
				return err
			}
		}
	}

	if err := st.UpdateFill(ctx, rec); err != nil {
		return err
	}
	slog.Info("fill updated", "id", rec.ID)
	if _, err := fmt.Fprintf(out, "Updated fill %s\n", rec.ID); err != nil {
		return err
	}
	return printFillGroup(ctx, out, st, vehicle, rec.ID)
}

func newFillDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a fill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore(st)
			if err := st.DeleteFill(cmd.Context(), args[0]); err != nil {
				return err
			}
			slog.Info("fill deleted", "id", args[0])
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted fill %s\n", args[0])
			return err
		},
	}
}

func newFillShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a fill and the tank cycle it belongs to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore(st)
			rec, err := st.GetFill(ctx, args[0])
			if err != nil {
				return err
			}
			vehicle, err := st.GetVehicle(ctx, rec.VehicleID)
			if err != nil {
				return err
			}
			return printFillGroup(ctx, cmd.OutOrStdout(), st, vehicle, rec.ID)
		},
	}
}

func newFillListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List fills grouped by tank cycle",
		Args:  cobra.NoArgs,
		RunE:  runFillListCmd,
	}
	cmd.Flags().StringVar(&fillVehicle, "vehicle", "", "vehicle name or id")
	return cmd
}

func runFillListCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	vehicle, err := loadVehicle(ctx, st, cmd, &fillVehicle)
	if err != nil {
		return err
	}
	records, err := st.ListFills(ctx, vehicle.ID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		_, err := fmt.Fprintln(out, "No fills found.")
		return err
	}
	cycles := stats.Cycles(fills.GroupFills(records), vehicle.BaselineOdometer, vehicle.FuelType, metric)
	labels := units.LabelsFor(vehicle.FuelType, metric)
	rows := make([][]string, 0, len(records))
	for i, c := range cycles {
		rows = append(rows, entryRows(i+1, c, vehicle.FuelType, "")...)
	}
	return writeTable(out, entryHeaders(labels), rows)
}

func printFillGroup(ctx context.Context, out io.Writer, st *store.Store, vehicle model.Vehicle, id string) error {
	records, err := st.ListFills(ctx, vehicle.ID)
	if err != nil {
		return err
	}
	gr := fills.GroupFills(records)
	idx, ok := gr.IndexOf(id)
	if !ok {
		return fmt.Errorf("fill %q: %w", id, store.ErrNotFound)
	}
	cycles := stats.Cycles(gr, vehicle.BaselineOdometer, vehicle.FuelType, metric)
	c := cycles[idx]
	labels := units.LabelsFor(vehicle.FuelType, metric)

	state := "open"
	if c.Group.Closed() {
		state = "closed"
	}
	lines := []string{
		fmt.Sprintf("Vehicle: %s", vehicle.Name),
		fmt.Sprintf("Cycle %d of %d (%s, %d fills)", idx+1, len(cycles), state, len(c.Group.Entries)),
		fmt.Sprintf("Volume: %.2f %s  Cost: %.2f", c.Stats.TotalVolume, labels.Volume, c.Stats.TotalCost),
		fmt.Sprintf("Distance: %s  Consumption: %s",
			stats.FormatOptional(c.Stats.Distance, "%.0f "+labels.Distance),
			stats.FormatOptional(c.Stats.Consumption, "%.2f "+labels.Consumption)),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return writeTable(out, entryHeaders(labels), entryRows(idx+1, c, vehicle.FuelType, id))
}

func entryHeaders(labels units.Labels) []string {
	return []string{"", "Cycle", "Date", "Odometer (" + labels.Distance + ")", "Volume (" + labels.Volume + ")", "Cost", "Kind", labels.Consumption, "ID"}
}

// entryRows lists the entries of a cycle. The cycle consumption is shown on
// its closing entry and the highlighted entry is marked with an asterisk.
func entryRows(number int, c stats.Cycle, fuel model.FuelType, highlight string) [][]string {
	rows := make([][]string, 0, len(c.Group.Entries))
	last := len(c.Group.Entries) - 1
	for i, e := range c.Group.Entries {
		mark := ""
		if e.ID == highlight {
			mark = "*"
		}
		odo := "-"
		if e.Odometer != nil {
			odo = fmt.Sprintf("%.0f", units.Distance(float64(*e.Odometer), metric))
		}
		consumption := ""
		if i == last {
			consumption = stats.FormatOptional(c.Stats.Consumption, "%.2f")
		}
		rows = append(rows, []string{
			mark,
			fmt.Sprintf("%d", number),
			e.FilledAt.Local().Format("2006-01-02 15:04"),
			odo,
			fmt.Sprintf("%.2f", units.Volume(e.Volume, fuel, metric)),
			fmt.Sprintf("%.2f", e.Cost),
			fillKind(e.Partial),
			consumption,
			e.ID,
		})
	}
	return rows
}

func fillKind(partial bool) string {
	if partial {
		return "partial"
	}
	return "full"
}

func writeTable(out io.Writer, headers []string, rows [][]string) error {
	rightAlign := map[int]bool{1: true, 3: true, 4: true, 5: true, 7: true}
	for _, line := range stats.FormatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func validateFillFlags() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"volume", fillVolume},
		{"cost", fillCost},
		{"odometer", fillOdometer},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("--%s must be a finite number", f.name)
		}
		if f.value < 0 {
			return fmt.Errorf("--%s must be >= 0", f.name)
		}
	}
	return nil
}

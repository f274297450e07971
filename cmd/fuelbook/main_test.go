package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/fuelbook/internal/model"
)

type cli struct {
	t      *testing.T
	dir    string
	db     string
	config string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	return &cli{
		t:      t,
		dir:    dir,
		db:     filepath.Join(dir, "fuelbook.db"),
		config: filepath.Join(dir, "config.toml"),
	}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--db", c.db, "--config", c.config}, args...))
	err := root.Execute()
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("fuelbook %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestFillWorkflow(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun("vehicle", "add", "--name", "golf", "--baseline", "1000")
	if !strings.Contains(out, "Added vehicle golf (liquid") {
		t.Fatalf("unexpected output: %q", out)
	}

	for i, odo := range []string{"1500", "2000", "2500"} {
		at := time.Date(2024, 1, 5+10*i, 9, 0, 0, 0, time.Local).Format("2006-01-02 15:04")
		out := c.mustRun("fill", "add", "--vehicle", "golf", "--volume", "40", "--cost", "70", "--odometer", odo, "--at", at)
		if strings.Contains(out, "Marked as partial") {
			t.Fatalf("full fill %d flagged partial:\n%s", i, out)
		}
	}

	out = c.mustRun("fill", "add", "--vehicle", "golf", "--volume", "10", "--cost", "18", "--odometer", "2600", "--at", "2024-02-05 09:00")
	if !strings.Contains(out, "Marked as partial") {
		t.Fatalf("expected partial suggestion:\n%s", out)
	}
	if !strings.Contains(out, "Cycle 4 of 4 (open, 1 fills)") {
		t.Fatalf("expected open trailing cycle:\n%s", out)
	}

	out = c.mustRun("fill", "add", "--vehicle", "golf", "--volume", "12", "--partial=false", "--odometer", "2700", "--at", "2024-02-06 09:00")
	if strings.Contains(out, "Marked as partial") {
		t.Fatalf("explicit --partial=false must win:\n%s", out)
	}
	if !strings.Contains(out, "Cycle 4 of 4 (closed, 2 fills)") || !strings.Contains(out, "Consumption: 9.09 km/L") {
		t.Fatalf("expected merged cycle 200 km / 22 L:\n%s", out)
	}

	out = c.mustRun("fill", "list", "--vehicle", "golf")
	if strings.Count(out, "partial") != 1 || strings.Count(out, "full") != 4 {
		t.Fatalf("unexpected fill list:\n%s", out)
	}

	out = c.mustRun("stats", "--vehicle", "golf", "--top", "1")
	for _, want := range []string{"Vehicle: golf (liquid)", "Summary", "Avg consumption:", "Tank Cycles", "Best cycles", "Worst cycles", "9.09"} {
		if !strings.Contains(out, want) {
			t.Fatalf("stats missing %q:\n%s", want, out)
		}
	}

	out = c.mustRun("stats", "--vehicle", "golf", "--since", "2025-01-01")
	if !strings.Contains(out, "No fills found.") {
		t.Fatalf("expected empty window:\n%s", out)
	}

	if _, err := c.run("stats", "--vehicle", "golf", "--since", "2024-03-01", "--until", "2024-02-01"); err == nil {
		t.Fatalf("expected inverted window to fail")
	}
	if _, err := c.run("stats", "--vehicle", "nope"); err == nil {
		t.Fatalf("expected unknown vehicle to fail")
	}
}

func TestEditShowDelete(t *testing.T) {
	c := newCLI(t)
	c.mustRun("vehicle", "add", "--name", "golf", "--baseline", "1000")
	out := c.mustRun("fill", "add", "--vehicle", "golf", "--volume", "40", "--cost", "70", "--odometer", "1500", "--at", "2024-01-05")
	id := addedID(t, out)

	out = c.mustRun("fill", "edit", id, "--odometer", "1600", "--note", "motorway")
	if !strings.Contains(out, "Distance: 600 km") {
		t.Fatalf("edit not reflected:\n%s", out)
	}
	out = c.mustRun("fill", "show", id)
	if !strings.Contains(out, "* ") && !strings.Contains(out, "*") {
		t.Fatalf("expected highlighted entry:\n%s", out)
	}
	if !strings.Contains(out, "15.00") {
		t.Fatalf("expected consumption 600/40:\n%s", out)
	}

	c.mustRun("fill", "edit", id, "--clear-odometer")
	out = c.mustRun("fill", "show", id)
	if !strings.Contains(out, "Distance: -") {
		t.Fatalf("expected unknown distance after clearing odometer:\n%s", out)
	}

	c.mustRun("fill", "delete", id)
	if _, err := c.run("fill", "show", id); err == nil {
		t.Fatalf("expected deleted fill to be gone")
	}
}

func TestRejectsNonFiniteValues(t *testing.T) {
	c := newCLI(t)
	c.mustRun("vehicle", "add", "--name", "golf", "--baseline", "1000")
	out := c.mustRun("fill", "add", "--vehicle", "golf", "--volume", "40", "--odometer", "1500", "--at", "2024-01-05")
	id := addedID(t, out)

	for _, args := range [][]string{
		{"fill", "add", "--vehicle", "golf", "--volume", "Inf", "--odometer", "2000"},
		{"fill", "add", "--vehicle", "golf", "--volume", "NaN"},
		{"fill", "add", "--vehicle", "golf", "--volume", "10", "--cost", "-Inf"},
		{"fill", "add", "--vehicle", "golf", "--volume", "10", "--odometer", "1e300"},
		{"fill", "edit", id, "--volume", "+Inf"},
		{"vehicle", "add", "--name", "far", "--baseline", "Inf"},
	} {
		if _, err := c.run(args...); err == nil {
			t.Fatalf("fuelbook %s: expected error", strings.Join(args, " "))
		}
	}

	out = c.mustRun("fill", "list", "--vehicle", "golf")
	if strings.Count(out, "full") != 1 || strings.Contains(out, "Inf") {
		t.Fatalf("rejected fills must not be stored:\n%s", out)
	}
	out = c.mustRun("vehicle", "list")
	if strings.Contains(out, "far") {
		t.Fatalf("rejected vehicle must not be stored:\n%s", out)
	}
}

func TestImportExportSeed(t *testing.T) {
	c := newCLI(t)
	c.mustRun("vehicle", "add", "--name", "golf", "--baseline", "900")

	csvPath := filepath.Join(c.dir, "fills.csv")
	csv := "date,odometer,volume,cost,partial,note\n" +
		"2024-01-01,1000,10,18,true,\n" +
		"2024-01-02,1100,30,54,false,topped up\n"
	if err := os.WriteFile(csvPath, []byte(csv), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	out := c.mustRun("import", "--vehicle", "golf", csvPath)
	if !strings.Contains(out, "Imported 2 fills into golf") {
		t.Fatalf("unexpected import output: %q", out)
	}
	out = c.mustRun("stats", "--vehicle", "golf", "--top", "0")
	if !strings.Contains(out, "5.00 km/L") {
		t.Fatalf("expected 200 km over 40 L:\n%s", out)
	}

	for _, format := range []string{"xlsx", "pdf"} {
		path := filepath.Join(c.dir, "report."+format)
		c.mustRun("export", "--vehicle", "golf", "--format", format, "--out", path)
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			t.Fatalf("expected %s export at %s: %v", format, path, err)
		}
	}
	if _, err := c.run("export", "--vehicle", "golf", "--format", "csv"); err == nil {
		t.Fatalf("expected unknown format to fail")
	}

	c.mustRun("vehicle", "add", "--name", "ioniq", "--fuel", "electric")
	out = c.mustRun("seed", "--vehicle", "ioniq", "--count", "12", "--seed", "7")
	if !strings.Contains(out, "Seeded 12 fills for ioniq") {
		t.Fatalf("unexpected seed output: %q", out)
	}
	out = c.mustRun("vehicle", "list")
	if !strings.Contains(out, "golf") || !strings.Contains(out, "ioniq") || !strings.Contains(out, "electric") {
		t.Fatalf("unexpected vehicle list:\n%s", out)
	}
}

func TestConfigDefaults(t *testing.T) {
	c := newCLI(t)
	body := "[units]\nsystem = \"imperial\"\n[stats]\nvehicle = \"golf\"\n"
	if err := os.WriteFile(c.config, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	c.mustRun("vehicle", "add", "--name", "golf")
	out := c.mustRun("fill", "add", "--volume", "10", "--at", "2024-01-01")
	if !strings.Contains(out, "Vehicle: golf") || !strings.Contains(out, "10.00 gal") {
		t.Fatalf("expected config vehicle and imperial units:\n%s", out)
	}
	out = c.mustRun("--units", "metric", "fill", "list")
	if !strings.Contains(out, "37.85") {
		t.Fatalf("expected --units to override config:\n%s", out)
	}

	if err := os.WriteFile(c.config, []byte("[units]\nsystem = \"parsecs\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := c.run("vehicle", "list"); err == nil {
		t.Fatalf("expected invalid config to fail")
	}
}

func TestSeedOptions(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	opts := seedOptions(model.Vehicle{ID: "v", FuelType: model.FuelElectric, BaselineOdometer: model.Odo(5000)}, 10, now)
	if opts.Baseline != 5000 || opts.VehicleID != "v" || opts.Count != 10 {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if opts.TankSize != 60 {
		t.Fatalf("expected electric tank size, got %v", opts.TankSize)
	}
	if !opts.Start.Before(now) {
		t.Fatalf("expected history to start before now: %s", opts.Start)
	}
}

func addedID(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if id, ok := strings.CutPrefix(line, "Added fill "); ok {
			return strings.TrimSpace(id)
		}
	}
	t.Fatalf("no fill id in output:\n%s", out)
	return ""
}

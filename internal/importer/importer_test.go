package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/fuelbook/internal/model"
)

func TestReadMetric(t *testing.T) {
	in := `date,odometer,volume,cost,partial,note
# exported from the old spreadsheet
2024-01-05,12000,41.5,75.20,no,
2024-01-12 18:30,12310,"12,5",22.1,yes,"top up, motorway"
2024-01-20T08:00:00Z,,38,70,,
`
	recs, err := Read(strings.NewReader(in), Options{VehicleID: "v1", Fuel: model.FuelLiquid, Metric: true, Location: time.UTC})
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "v1", recs[0].VehicleID)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), recs[0].FilledAt)
	require.NotNil(t, recs[0].Odometer)
	assert.Equal(t, int64(12000), *recs[0].Odometer)
	assert.Equal(t, 41.5, recs[0].Volume)
	assert.False(t, recs[0].Partial)

	assert.Equal(t, 12.5, recs[1].Volume)
	assert.True(t, recs[1].Partial)
	assert.Equal(t, "top up, motorway", recs[1].Note)
	assert.Equal(t, time.Date(2024, 1, 12, 18, 30, 0, 0, time.UTC), recs[1].FilledAt)

	assert.Nil(t, recs[2].Odometer)
	assert.Equal(t, 70.0, recs[2].Cost)
}

func TestReadImperialConvertsToStorageUnits(t *testing.T) {
	in := "date,volume,odometer\n2024-02-01,10,1000\n"
	recs, err := Read(strings.NewReader(in), Options{Fuel: model.FuelLiquid, Location: time.UTC})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.InDelta(t, 37.854, recs[0].Volume, 1e-3)
	require.NotNil(t, recs[0].Odometer)
	assert.Equal(t, int64(1609), *recs[0].Odometer)

	electric, err := Read(strings.NewReader(in), Options{Fuel: model.FuelElectric, Location: time.UTC})
	require.NoError(t, err)
	assert.Equal(t, 10.0, electric[0].Volume)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: "empty"},
		{name: "no rows", in: "date,volume\n", want: "no fills"},
		{name: "unknown column", in: "date,volume,mileage\n", want: "unknown column"},
		{name: "missing volume", in: "date,cost\n", want: "missing required column"},
		{name: "duplicate", in: "date,volume,date\n", want: "duplicate"},
		{name: "bad date", in: "date,volume\n05/01/2024,3\n", want: "line 2"},
		{name: "negative", in: "date,volume\n2024-01-01,-3\n", want: "negative"},
		{name: "bad partial", in: "date,volume,partial\n2024-01-01,3,maybe\n", want: "partial"},
		{name: "empty volume", in: "date,volume\n2024-01-01,\n", want: "volume is empty"},
		{name: "infinite volume", in: "date,volume\n2024-01-01,Inf\n", want: "not a number"},
		{name: "odometer overflow", in: "date,volume,odometer\n2024-01-01,3,1e300\n", want: "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.in), Options{Metric: true})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fills.csv")
	require.NoError(t, os.WriteFile(path, []byte("\ufeffdate,volume\n2024-01-01,30\n"), 0o644))
	recs, err := LoadFile(path, Options{Metric: true})
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	assert.Error(t, err)
}

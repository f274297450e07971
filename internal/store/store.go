// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/fuelbook/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when a vehicle or fill does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps SQLite access for vehicles and fills.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vehicles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			fuel_type TEXT NOT NULL,
			baseline_odometer INTEGER,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS fills (
			id TEXT PRIMARY KEY,
			vehicle_id TEXT NOT NULL REFERENCES vehicles(id) ON DELETE CASCADE,
			filled_at TEXT NOT NULL,
			volume REAL NOT NULL,
			cost REAL NOT NULL,
			odometer INTEGER,
			partial INTEGER NOT NULL,
			note TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_fills_vehicle_filled_at ON fills(vehicle_id, filled_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}

// CreateVehicle stores a new vehicle and returns it with its ID set.
func (s *Store) CreateVehicle(ctx context.Context, v model.Vehicle) (model.Vehicle, error) {
	if strings.TrimSpace(v.Name) == "" {
		return model.Vehicle{}, fmt.Errorf("vehicle name is empty")
	}
	if v.FuelType == "" {
		v.FuelType = model.FuelLiquid
	}
	id, err := newID()
	if err != nil {
		return model.Vehicle{}, err
	}
	v.ID = id
	if v.CreatedAt.IsZero() {
		v.CreatedAt = s.now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO vehicles (id, name, fuel_type, baseline_odometer, created_at) VALUES (?, ?, ?, ?, ?)`,
		v.ID, v.Name, string(v.FuelType), nullInt(v.BaselineOdometer), v.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return model.Vehicle{}, fmt.Errorf("insert vehicle: %w", err)
	}
	return v, nil
}

// GetVehicle loads a vehicle by ID.
func (s *Store) GetVehicle(ctx context.Context, id string) (model.Vehicle, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, fuel_type, baseline_odometer, created_at FROM vehicles WHERE id = ?`, id)
	return scanVehicle(row)
}

// FindVehicle loads a vehicle by ID or name.
func (s *Store) FindVehicle(ctx context.Context, ref string) (model.Vehicle, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, fuel_type, baseline_odometer, created_at FROM vehicles
		 WHERE id = ? OR name = ? ORDER BY id = ? DESC LIMIT 1`, ref, ref, ref)
	v, err := scanVehicle(row)
	if err != nil {
		return model.Vehicle{}, fmt.Errorf("vehicle %q: %w", ref, err)
	}
	return v, nil
}

// ListVehicles returns all vehicles ordered by name.
func (s *Store) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, fuel_type, baseline_odometer, created_at FROM vehicles ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []model.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// InsertFill stores a new fill and returns it with its ID set.
func (s *Store) InsertFill(ctx context.Context, rec model.FillRecord) (model.FillRecord, error) {
	if err := validateFill(rec); err != nil {
		return model.FillRecord{}, err
	}
	id, err := newID()
	if err != nil {
		return model.FillRecord{}, err
	}
	rec.ID = id
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO fills (id, vehicle_id, filled_at, volume, cost, odometer, partial, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.VehicleID, formatTime(rec.FilledAt), rec.Volume, rec.Cost,
		nullInt(rec.Odometer), boolInt(rec.Partial), rec.Note,
	)
	if err != nil {
		return model.FillRecord{}, fmt.Errorf("insert fill: %w", err)
	}
	return rec, nil
}

// InsertFills stores a batch of fills in one transaction.
func (s *Store) InsertFills(ctx context.Context, recs []model.FillRecord) (out []model.FillRecord, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO fills (id, vehicle_id, filled_at, volume, cost, odometer, partial, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()

	out = make([]model.FillRecord, 0, len(recs))
	for i, rec := range recs {
		if err = validateFill(rec); err != nil {
			return nil, fmt.Errorf("fill %d: %w", i+1, err)
		}
		if rec.ID, err = newID(); err != nil {
			return nil, err
		}
		if _, err = stmt.ExecContext(ctx, rec.ID, rec.VehicleID, formatTime(rec.FilledAt), rec.Volume, rec.Cost,
			nullInt(rec.Odometer), boolInt(rec.Partial), rec.Note); err != nil {
			return nil, fmt.Errorf("insert fill %d: %w", i+1, err)
		}
		out = append(out, rec)
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateFill overwrites an existing fill.
func (s *Store) UpdateFill(ctx context.Context, rec model.FillRecord) error {
	if err := validateFill(rec); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE fills SET filled_at = ?, volume = ?, cost = ?, odometer = ?, partial = ?, note = ?
		 WHERE id = ?`,
		formatTime(rec.FilledAt), rec.Volume, rec.Cost, nullInt(rec.Odometer), boolInt(rec.Partial), rec.Note, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update fill: %w", err)
	}
	return expectOne(res, rec.ID)
}

// DeleteFill removes a fill.
func (s *Store) DeleteFill(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM fills WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete fill: %w", err)
	}
	return expectOne(res, id)
}

// GetFill loads a fill by ID.
func (s *Store) GetFill(ctx context.Context, id string) (model.FillRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, vehicle_id, filled_at, volume, cost, odometer, partial, note FROM fills WHERE id = ?`, id)
	rec, err := scanFill(row)
	if err != nil {
		return model.FillRecord{}, fmt.Errorf("fill %q: %w", id, err)
	}
	return rec, nil
}

// ListFills returns every fill of a vehicle in chronological order. The engine
// sorts again, so the order here is only a convenience for callers.
func (s *Store) ListFills(ctx context.Context, vehicleID string) ([]model.FillRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, vehicle_id, filled_at, volume, cost, odometer, partial, note
		 FROM fills WHERE vehicle_id = ? ORDER BY filled_at ASC, id ASC`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []model.FillRecord
	for rows.Next() {
		rec, err := scanFill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row scanner) (model.Vehicle, error) {
	var v model.Vehicle
	var fuel, createdAt string
	var baseline sql.NullInt64
	if err := row.Scan(&v.ID, &v.Name, &fuel, &baseline, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Vehicle{}, ErrNotFound
		}
		return model.Vehicle{}, err
	}
	v.FuelType = model.FuelType(fuel)
	if baseline.Valid {
		v.BaselineOdometer = model.Odo(baseline.Int64)
	}
	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return model.Vehicle{}, err
	}
	v.CreatedAt = parsed
	return v, nil
}

func scanFill(row scanner) (model.FillRecord, error) {
	var rec model.FillRecord
	var filledAt string
	var odo sql.NullInt64
	var partial int
	if err := row.Scan(&rec.ID, &rec.VehicleID, &filledAt, &rec.Volume, &rec.Cost, &odo, &partial, &rec.Note); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.FillRecord{}, ErrNotFound
		}
		return model.FillRecord{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, filledAt)
	if err != nil {
		return model.FillRecord{}, err
	}
	rec.FilledAt = parsed
	if odo.Valid {
		rec.Odometer = model.Odo(odo.Int64)
	}
	rec.Partial = partial != 0
	return rec, nil
}

func validateFill(rec model.FillRecord) error {
	switch {
	case rec.VehicleID == "":
		return fmt.Errorf("fill has no vehicle")
	case rec.FilledAt.IsZero():
		return fmt.Errorf("fill has no timestamp")
	case !finite(rec.Volume):
		return fmt.Errorf("fill volume %v is not a number", rec.Volume)
	case !finite(rec.Cost):
		return fmt.Errorf("fill cost %v is not a number", rec.Cost)
	case rec.Volume < 0:
		return fmt.Errorf("fill volume %.2f is negative", rec.Volume)
	case rec.Cost < 0:
		return fmt.Errorf("fill cost %.2f is negative", rec.Cost)
	case rec.Odometer != nil && *rec.Odometer < 0:
		return fmt.Errorf("fill odometer %d is negative", *rec.Odometer)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("fill %q: %w", id, ErrNotFound)
	}
	return nil
}

// formatTime keeps a fixed-width UTC layout so text ordering in SQL matches
// time ordering.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

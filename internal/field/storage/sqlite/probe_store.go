// Package sqlite persists field-probe results for later comparison across
// configurations and checkpoints.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/lumen-data/radiance.field/internal/timeutil"
)

// ProbeRun is one persisted probe execution: the field configuration that
// was evaluated and summary statistics of the probed densities.
type ProbeRun struct {
	RunID          string          `json:"run_id"`
	Backend        string          `json:"backend"`
	WavelengthMode string          `json:"wavelength_mode"`
	ConfigJSON     json.RawMessage `json:"config_json,omitempty"`
	Samples        int             `json:"samples"`
	MinDensity     float64         `json:"min_density"`
	MaxDensity     float64         `json:"max_density"`
	MeanDensity    float64         `json:"mean_density"`
	CreatedAt      int64           `json:"created_at"`
}

// ProbeStore provides persistence for probe runs.
type ProbeStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

const probeSchema = `
CREATE TABLE IF NOT EXISTS field_probe_runs (
	run_id          TEXT PRIMARY KEY,
	backend         TEXT NOT NULL,
	wavelength_mode TEXT NOT NULL,
	config_json     TEXT,
	samples         INTEGER NOT NULL,
	min_density     REAL NOT NULL,
	max_density     REAL NOT NULL,
	mean_density    REAL NOT NULL,
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_probe_runs_created ON field_probe_runs(created_at);`

// Open opens (creating if necessary) a probe store at path.
func Open(path string) (*ProbeStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open probe store: %w", err)
	}
	store, err := NewProbeStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewProbeStore wraps an existing database handle, ensuring the schema.
func NewProbeStore(db *sql.DB) (*ProbeStore, error) {
	if _, err := db.Exec(probeSchema); err != nil {
		return nil, fmt.Errorf("ensure probe schema: %w", err)
	}
	return &ProbeStore{db: db, clock: timeutil.RealClock{}}, nil
}

// SetClock replaces the clock used to stamp inserted runs.
func (s *ProbeStore) SetClock(c timeutil.Clock) { s.clock = c }

// Insert persists a probe run. If RunID is empty, a UUID is generated.
func (s *ProbeStore) Insert(run *ProbeRun) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = s.clock.Now().UnixNano()
	}
	var configStr interface{}
	if len(run.ConfigJSON) > 0 {
		configStr = string(run.ConfigJSON)
	}
	_, err := s.db.Exec(`
		INSERT INTO field_probe_runs (
			run_id, backend, wavelength_mode, config_json,
			samples, min_density, max_density, mean_density, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Backend, run.WavelengthMode, configStr,
		run.Samples, run.MinDensity, run.MaxDensity, run.MeanDensity, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert probe run: %w", err)
	}
	return nil
}

// ListRecent returns up to limit probe runs, newest first.
func (s *ProbeStore) ListRecent(limit int) ([]*ProbeRun, error) {
	rows, err := s.db.Query(`
		SELECT run_id, backend, wavelength_mode, config_json,
		       samples, min_density, max_density, mean_density, created_at
		FROM field_probe_runs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query probe runs: %w", err)
	}
	defer rows.Close()

	var runs []*ProbeRun
	for rows.Next() {
		run := &ProbeRun{}
		var configStr sql.NullString
		if err := rows.Scan(
			&run.RunID, &run.Backend, &run.WavelengthMode, &configStr,
			&run.Samples, &run.MinDensity, &run.MaxDensity, &run.MeanDensity, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan probe run: %w", err)
		}
		if configStr.Valid {
			run.ConfigJSON = json.RawMessage(configStr.String)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close closes the underlying database handle.
func (s *ProbeStore) Close() error { return s.db.Close() }

// Package persistence provides SQLite-based run storage: run headers,
// per-step metric rows, and the final state snapshot of each run. The
// organism itself never touches this layer; callers save and load around
// it, and loaded states re-enter through repair plus checksum validation.
// See design doc Section 11.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/animus/internal/immune"
	"github.com/talgya/animus/internal/monitor"
	"github.com/talgya/animus/internal/organism"
	"github.com/talgya/animus/internal/state"
)

// DB wraps a SQLite connection for run persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		steps INTEGER NOT NULL,
		config_json TEXT NOT NULL,
		summary_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS step_metrics (
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		novelty REAL NOT NULL,
		coherence REAL NOT NULL,
		stress REAL NOT NULL,
		energy REAL NOT NULL,
		gradient_norm REAL NOT NULL,
		recovery INTEGER NOT NULL,
		mode INTEGER NOT NULL,
		severity INTEGER NOT NULL,
		duration_us INTEGER NOT NULL,
		PRIMARY KEY (run_id, step)
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		run_id TEXT PRIMARY KEY,
		step INTEGER NOT NULL,
		texture_json TEXT NOT NULL,
		themes_json TEXT NOT NULL,
		direction_json TEXT NOT NULL,
		vitals_json TEXT NOT NULL,
		checksum BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_metrics_run ON step_metrics(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// RunHeader is the stored identity of one run.
type RunHeader struct {
	ID        string `db:"id" json:"id"`
	Seed      int64  `db:"seed" json:"seed"`
	Steps     uint64 `db:"steps" json:"steps"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

// MetricRow is one stored per-step record.
type MetricRow struct {
	Step         uint64           `db:"step" json:"step"`
	Novelty      float64          `db:"novelty" json:"novelty"`
	Coherence    float64          `db:"coherence" json:"coherence"`
	Stress       float64          `db:"stress" json:"stress"`
	Energy       float64          `db:"energy" json:"energy"`
	GradientNorm float64          `db:"gradient_norm" json:"gradient_norm"`
	Recovery     immune.Mode      `db:"recovery" json:"recovery"`
	Mode         monitor.Mode     `db:"mode" json:"mode"`
	Severity     monitor.Severity `db:"severity" json:"severity"`
	DurationUs   int64            `db:"duration_us" json:"duration_us"`
}

// StoredRun is a fully rehydrated run: header, config, summary, and the
// final validated state pair.
type StoredRun struct {
	ID        string
	Seed      int64
	Steps     uint64
	CreatedAt time.Time
	Config    organism.Config
	Summary   organism.Summary
	Creative  state.Creative
	Vitals    state.Vitals
}

// SaveRun stores the organism's run so far: header, full metric history,
// and a checksummed snapshot of the final states. Returns the new run id.
func (db *DB) SaveRun(o *organism.Organism) (string, error) {
	id := uuid.NewString()
	cfg := o.Config()

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	summaryJSON, err := json.Marshal(o.Metrics())
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs (id, seed, steps, config_json, summary_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, cfg.Seed, o.StepCount(), string(configJSON), string(summaryJSON),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Preparex(`INSERT INTO step_metrics
		(run_id, step, novelty, coherence, stress, energy, gradient_norm,
		 recovery, mode, severity, duration_us)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for _, m := range o.History() {
		_, err := stmt.Exec(
			id, m.Step, m.Novelty, m.Coherence, m.Stress, m.Energy,
			m.GradientNorm, m.Recovery, m.Mode, m.Severity,
			m.Duration.Microseconds(),
		)
		if err != nil {
			return "", fmt.Errorf("insert metrics step %d: %w", m.Step, err)
		}
	}

	if err := insertSnapshot(tx, id, o); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	slog.Info("run saved", "id", id, "seed", cfg.Seed, "steps", o.StepCount())
	return id, nil
}

func insertSnapshot(tx *sqlx.Tx, id string, o *organism.Organism) error {
	creative := o.Creative()
	textureJSON, _ := json.Marshal(creative.Texture)
	themesJSON, _ := json.Marshal(creative.Themes)
	directionJSON, _ := json.Marshal(creative.Direction)
	vitalsJSON, _ := json.Marshal(o.Vitals())

	sum := state.Checksum(state.Compress(creative.Vector()))
	_, err := tx.Exec(`INSERT INTO snapshots
		(run_id, step, texture_json, themes_json, direction_json, vitals_json, checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, o.StepCount(), string(textureJSON), string(themesJSON),
		string(directionJSON), string(vitalsJSON), sum[:])
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// LoadRun rehydrates a stored run. The snapshot re-enters through checksum
// validation and explicit repair, so a loaded state carries the same
// guarantees as a live one; corrupted snapshots are refused.
func (db *DB) LoadRun(id string) (*StoredRun, error) {
	var row struct {
		RunHeader
		ConfigJSON  string `db:"config_json"`
		SummaryJSON string `db:"summary_json"`
	}
	err := db.conn.Get(&row,
		"SELECT id, seed, steps, config_json, summary_json, created_at FROM runs WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", id, err)
	}

	run := &StoredRun{ID: row.ID, Seed: row.Seed, Steps: row.Steps}
	run.CreatedAt, _ = time.Parse(time.RFC3339, row.CreatedAt)
	if err := json.Unmarshal([]byte(row.ConfigJSON), &run.Config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := json.Unmarshal([]byte(row.SummaryJSON), &run.Summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}

	var snap struct {
		Step          uint64 `db:"step"`
		TextureJSON   string `db:"texture_json"`
		ThemesJSON    string `db:"themes_json"`
		DirectionJSON string `db:"direction_json"`
		VitalsJSON    string `db:"vitals_json"`
		Checksum      []byte `db:"checksum"`
	}
	err = db.conn.Get(&snap,
		"SELECT step, texture_json, themes_json, direction_json, vitals_json, checksum FROM snapshots WHERE run_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}

	var raw state.Creative
	if err := json.Unmarshal([]byte(snap.TextureJSON), &raw.Texture); err != nil {
		return nil, fmt.Errorf("decode texture: %w", err)
	}
	if err := json.Unmarshal([]byte(snap.ThemesJSON), &raw.Themes); err != nil {
		return nil, fmt.Errorf("decode themes: %w", err)
	}
	if err := json.Unmarshal([]byte(snap.DirectionJSON), &raw.Direction); err != nil {
		return nil, fmt.Errorf("decode direction: %w", err)
	}
	var rawVitals state.Vitals
	if err := json.Unmarshal([]byte(snap.VitalsJSON), &rawVitals); err != nil {
		return nil, fmt.Errorf("decode vitals: %w", err)
	}

	val := immune.NewValidator(run.Config.Dims)
	if rep := val.CheckStored(state.Compress(raw.Vector()), snap.Checksum); !rep.OK {
		return nil, fmt.Errorf("snapshot %s failed validation: %+v", id, rep.Issues)
	}

	run.Creative = state.RepairCreative(raw, run.Config.Dims)
	run.Vitals = state.RepairVitals(rawVitals)
	if err := run.Creative.Check(run.Config.Dims); err != nil {
		return nil, fmt.Errorf("snapshot %s unrepairable: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the stored run headers, newest first.
func (db *DB) ListRuns() ([]RunHeader, error) {
	var runs []RunHeader
	err := db.conn.Select(&runs,
		"SELECT id, seed, steps, created_at FROM runs ORDER BY created_at DESC, id")
	return runs, err
}

// RunMetrics returns the most recent stored metric rows of a run, newest
// first.
func (db *DB) RunMetrics(id string, limit int) ([]MetricRow, error) {
	var rows []MetricRow
	err := db.conn.Select(&rows,
		`SELECT step, novelty, coherence, stress, energy, gradient_norm,
		        recovery, mode, severity, duration_us
		 FROM step_metrics WHERE run_id = ? ORDER BY step DESC LIMIT ?`,
		id, limit)
	return rows, err
}

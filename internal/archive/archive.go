// Package archive records evolution runs in a SQLite database: one row per run, one per
// evaluated generation and the winning genome.
package archive

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/baldhumanity/nnest/neat"
)

// ErrNotFound is returned when a run has no stored winner.
var ErrNotFound = errors.New("archive: not found")

// Run identifies one evolution run.
type Run struct {
	ID         uuid.UUID
	StartedAt  time.Time
	ConfigPath string
	Seed       int64
}

// Generation is the summary stored for one evaluated generation.
type Generation struct {
	Generation  int
	Best        float64
	Mean        float64
	Stdev       float64
	Species     int
	Evaluations int
}

// timeLayout is fixed-width so that start times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Archive is a SQLite-backed run store. It is safe for concurrent use.
type Archive struct {
	mu sync.Mutex
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	config_path TEXT NOT NULL,
	seed INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS generations (
	run_id TEXT NOT NULL REFERENCES runs(id),
	generation INTEGER NOT NULL,
	best REAL NOT NULL,
	mean REAL NOT NULL,
	stdev REAL NOT NULL,
	species INTEGER NOT NULL,
	evaluations INTEGER NOT NULL,
	PRIMARY KEY (run_id, generation)
);
CREATE TABLE IF NOT EXISTS winners (
	run_id TEXT PRIMARY KEY REFERENCES runs(id),
	genome_key INTEGER NOT NULL,
	fitness REAL NOT NULL,
	payload BLOB NOT NULL
);`

// Open opens or creates the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*Archive, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// BeginRun inserts a new run and returns it.
func (a *Archive) BeginRun(ctx context.Context, configPath string, seed int64) (Run, error) {
	run := Run{
		ID:         uuid.New(),
		StartedAt:  time.Now().UTC(),
		ConfigPath: configPath,
		Seed:       seed,
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, config_path, seed) VALUES (?, ?, ?, ?)`,
		run.ID.String(), run.StartedAt.Format(timeLayout), run.ConfigPath, run.Seed)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Runs lists every run, oldest first.
func (a *Archive) Runs(ctx context.Context) ([]Run, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rows, err := a.db.QueryContext(ctx, `SELECT id, started_at, config_path, seed FROM runs ORDER BY started_at, id`)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			id, started string
			r           Run
		)
		if err := rows.Scan(&id, &started, &r.ConfigPath, &r.Seed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse run id %q: %w", id, err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parse start time of run %s: %w", id, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RecordGeneration stores or replaces the summary of one generation.
func (a *Archive) RecordGeneration(ctx context.Context, runID uuid.UUID, g Generation) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO generations (run_id, generation, best, mean, stdev, species, evaluations)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			best = excluded.best,
			mean = excluded.mean,
			stdev = excluded.stdev,
			species = excluded.species,
			evaluations = excluded.evaluations
	`, runID.String(), g.Generation, g.Best, g.Mean, g.Stdev, g.Species, g.Evaluations)
	if err != nil {
		return fmt.Errorf("insert generation %d: %w", g.Generation, err)
	}
	return nil
}

// Generations returns the stored generations of a run in order.
func (a *Archive) Generations(ctx context.Context, runID uuid.UUID) ([]Generation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rows, err := a.db.QueryContext(ctx, `
		SELECT generation, best, mean, stdev, species, evaluations
		FROM generations WHERE run_id = ? ORDER BY generation`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("select generations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Generation
	for rows.Next() {
		var g Generation
		if err := rows.Scan(&g.Generation, &g.Best, &g.Mean, &g.Stdev, &g.Species, &g.Evaluations); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// SaveWinner stores the winning genome of a run, replacing an earlier one.
func (a *Archive) SaveWinner(ctx context.Context, runID uuid.UUID, g *neat.Genome) error {
	var buf bytes.Buffer
	if err := neat.EncodeGenome(&buf, g); err != nil {
		return fmt.Errorf("encode genome %d: %w", g.Key, err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO winners (run_id, genome_key, fitness, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			genome_key = excluded.genome_key,
			fitness = excluded.fitness,
			payload = excluded.payload
	`, runID.String(), g.Key, g.Fitness, buf.Bytes())
	if err != nil {
		return fmt.Errorf("insert winner: %w", err)
	}
	return nil
}

// Winner loads the winning genome of a run and attaches it to config.
func (a *Archive) Winner(ctx context.Context, runID uuid.UUID, config *neat.GenomeConfig) (*neat.Genome, error) {
	a.mu.Lock()
	var payload []byte
	err := a.db.QueryRowContext(ctx, `SELECT payload FROM winners WHERE run_id = ?`, runID.String()).Scan(&payload)
	a.mu.Unlock()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("winner of run %s: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("select winner: %w", err)
	}
	g, err := neat.DecodeGenome(bytes.NewReader(payload), config)
	if err != nil {
		return nil, fmt.Errorf("decode winner of run %s: %w", runID, err)
	}
	return g, nil
}

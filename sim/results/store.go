// Package results persists run summaries and projected time series in SQL.
// Two drivers are supported: sqlite (pure Go, file-backed) and postgres (pgx).
package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/inference-sim/household-sim/sim"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultSQLitePath = "household-sim.db"
)

// Store writes runs to a SQL database.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to dsn with the named driver and creates the schema if
// needed. An empty sqlite dsn uses household-sim.db in the working directory.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var sqlDriver string
	switch driver {
	case DriverSQLite, "":
		driver, sqlDriver = DriverSQLite, "sqlite"
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	case DriverPostgres:
		sqlDriver = "pgx"
		if dsn == "" {
			return nil, fmt.Errorf("postgres results store needs a DSN")
		}
	default:
		return nil, fmt.Errorf("unknown results driver %q; valid: sqlite, postgres", driver)
	}
	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	s := &Store{db: db, driver: driver}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema(ctx context.Context) error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id ` + idColumn + `,
			created_at TEXT NOT NULL,
			horizon DOUBLE PRECISION NOT NULL,
			final_time DOUBLE PRECISION NOT NULL,
			num_states INTEGER NOT NULL,
			accepted_steps INTEGER NOT NULL,
			rejected_steps INTEGER NOT NULL,
			evaluations INTEGER NOT NULL,
			params TEXT NOT NULL,
			error TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS series (
			run_id BIGINT NOT NULL REFERENCES runs(id),
			step INTEGER NOT NULL,
			t DOUBLE PRECISION NOT NULL,
			compartment TEXT NOT NULL,
			class INTEGER NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, compartment, class, step)
		)`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Run summarizes one simulation.
type Run struct {
	ID            int64
	CreatedAt     time.Time
	Horizon       float64
	FinalTime     float64
	States        int
	AcceptedSteps int
	RejectedSteps int
	Evaluations   int
	Params        *sim.Params
	Error         string // empty for a completed run
}

// Point is one value of a projected series: the expected number of class
// members in a compartment at a recorded time.
type Point struct {
	Step        int
	Time        float64
	Compartment sim.Compartment
	Class       int
	Value       float64
}

// NewRun summarizes a solution. runErr is the error returned with it, if any.
func NewRun(pop *sim.Population, p *sim.Params, horizon float64, sol *sim.Solution, runErr error) Run {
	r := Run{
		CreatedAt: time.Now().UTC(),
		Horizon:   horizon,
		States:    pop.Size(),
		Params:    p,
	}
	if sol != nil {
		r.FinalTime = sol.Stats.CurrentTime
		r.AcceptedSteps = sol.Stats.StepCount
		r.RejectedSteps = sol.Stats.RejectedCount
		r.Evaluations = sol.Stats.EvaluationCount
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	return r
}

// SeriesFromSolution projects every recorded state onto the given compartments.
func SeriesFromSolution(sol *sim.Solution, compartments ...sim.Compartment) []Point {
	var out []Point
	for _, c := range compartments {
		proj := sol.Project(c)
		if proj.IsEmpty() {
			continue
		}
		rows, classes := proj.Dims()
		for i := 0; i < rows; i++ {
			for k := 0; k < classes; k++ {
				out = append(out, Point{Step: i, Time: sol.Times[i], Compartment: c, Class: k, Value: proj.At(i, k)})
			}
		}
	}
	return out
}

// SaveRun writes run and its series in one transaction and returns the run ID.
func (s *Store) SaveRun(ctx context.Context, run Run, series []Point) (id int64, retErr error) {
	params, err := yaml.Marshal(run.Params)
	if err != nil {
		return 0, fmt.Errorf("encoding params: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	err = tx.QueryRowContext(ctx, s.rebind(`INSERT INTO runs
		(created_at, horizon, final_time, num_states, accepted_steps, rejected_steps, evaluations, params, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		run.CreatedAt.Format(time.RFC3339Nano), run.Horizon, run.FinalTime, run.States,
		run.AcceptedSteps, run.RejectedSteps, run.Evaluations, string(params), run.Error,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO series
		(run_id, step, t, compartment, class, value) VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, fmt.Errorf("prepare series insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for _, p := range series {
		if _, err := stmt.ExecContext(ctx, id, p.Step, p.Time, p.Compartment.String(), p.Class, p.Value); err != nil {
			return 0, fmt.Errorf("insert series point: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	logrus.Infof("Saved run %d with %d series points to %s", id, len(series), s.driver)
	return id, nil
}

// LoadRun reads a run summary.
func (s *Store) LoadRun(ctx context.Context, id int64) (Run, error) {
	var (
		run       Run
		createdAt string
		params    string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, created_at, horizon, final_time, num_states,
		accepted_steps, rejected_steps, evaluations, params, error FROM runs WHERE id = ?`), id).
		Scan(&run.ID, &createdAt, &run.Horizon, &run.FinalTime, &run.States,
			&run.AcceptedSteps, &run.RejectedSteps, &run.Evaluations, &params, &run.Error)
	if err != nil {
		return Run{}, fmt.Errorf("select run %d: %w", id, err)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Run{}, fmt.Errorf("run %d created_at: %w", id, err)
	}
	run.Params = &sim.Params{}
	if err := yaml.Unmarshal([]byte(params), run.Params); err != nil {
		return Run{}, fmt.Errorf("run %d params: %w", id, err)
	}
	return run, nil
}

// LoadSeries reads the series of one compartment of a run, ordered by step then class.
func (s *Store) LoadSeries(ctx context.Context, runID int64, c sim.Compartment) ([]Point, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT step, t, class, value FROM series
		WHERE run_id = ? AND compartment = ? ORDER BY step, class`), runID, c.String())
	if err != nil {
		return nil, fmt.Errorf("select series: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Point
	for rows.Next() {
		p := Point{Compartment: c}
		if err := rows.Scan(&p.Step, &p.Time, &p.Class, &p.Value); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Package sqlite stores normalized records in a SQLite database, one row
// per record, grouped by run.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/crimson-sun/mailsift/internal/model"
	"github.com/crimson-sun/mailsift/internal/output"
)

// Row is one stored record.
type Row struct {
	RunID    string `db:"run_id"`
	Seq      int    `db:"seq"`
	File     string `db:"file"`
	XFolder  string `db:"x_folder"`
	Headers  string `db:"headers"`
	Fields   string `db:"fields"` // JSON object of selected key → value
	Subject  string `db:"subject"`
	Body     string `db:"body"`
	Entities string `db:"pii_entities"`
}

// Output writes records into a SQLite database. Each Output is a run,
// identified by a random UUID.
type Output struct {
	mu     sync.Mutex
	db     *sqlx.DB
	runID  string
	layout output.Layout
	seq    int
}

// New opens (or creates) the database at dbPath, runs pending
// migrations and registers a new run.
func New(dbPath string, layout output.Layout) (*Output, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite output: opening db: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and
	// serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite output: enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite output: enabling foreign keys: %w", err)
	}

	o := &Output{db: db, runID: uuid.NewString(), layout: layout}
	if err := o.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite output: running migrations: %w", err)
	}

	cols, err := json.Marshal(layout.Columns())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite output: %w", err)
	}
	if _, err := db.Exec("INSERT INTO runs (id, columns) VALUES (?, ?)", o.runID, string(cols)); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite output: registering run: %w", err)
	}
	return o, nil
}

// RunID returns the UUID tagging every row this Output writes.
func (o *Output) RunID() string {
	return o.runID
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (o *Output) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := o.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}
	if tableCount > 0 {
		err = o.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := o.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// Write inserts rec as the next row of the run.
func (o *Output) Write(ctx context.Context, rec model.NormalizedRecord) error {
	fields := make(map[string]string, len(rec.Fields))
	for _, f := range rec.Fields {
		fields[f.Key] = f.Value
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("sqlite output: encode fields: %w", err)
	}
	entities := rec.Entities
	if entities == nil {
		entities = []model.Entity{}
	}
	entitiesJSON, err := json.Marshal(entities)
	if err != nil {
		return fmt.Errorf("sqlite output: encode entities: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	const query = `
		INSERT INTO records (
			run_id, seq, file, x_folder, headers, fields,
			subject, body, pii_entities
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = o.db.ExecContext(ctx, query,
		o.runID, o.seq, rec.File, rec.Fields.Get("X-Folder"), rec.Headers, string(fieldsJSON),
		rec.Subject, rec.Body, string(entitiesJSON),
	)
	if err != nil {
		return fmt.Errorf("sqlite output: insert %s: %w", rec.File, err)
	}
	o.seq++
	return nil
}

// Records returns the rows of runID in write order.
func (o *Output) Records(ctx context.Context, runID string) ([]Row, error) {
	var rows []Row
	err := o.db.SelectContext(ctx, &rows,
		"SELECT run_id, seq, file, x_folder, headers, fields, subject, body, pii_entities FROM records WHERE run_id = ? ORDER BY seq",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite output: query records: %w", err)
	}
	return rows, nil
}

// Close closes the underlying database connection.
func (o *Output) Close() error {
	return o.db.Close()
}

// Package sqlite opens a local SQLite copy of the LIMS sample table, used for
// offline exports and as a realistic backend in tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Memory is the DSN for a private in-memory database.
const Memory = ":memory:"

const sampleDDL = `CREATE TABLE IF NOT EXISTS sample (
	ID_NUMERIC INTEGER PRIMARY KEY,
	ID_TEXT TEXT NOT NULL,
	SAMPLE_NAME TEXT NOT NULL DEFAULT '',
	ITK_PLATE_ID TEXT NOT NULL DEFAULT '',
	ENTITY_TEMPLATE_ID TEXT NOT NULL,
	CUSTOMER_PLATE_WELL TEXT NOT NULL DEFAULT '',
	JOB_NAME TEXT NOT NULL
)`

// Sample is one row of the sample table.
type Sample struct {
	IDNumeric         int64
	IDText            string
	SampleName        string
	ITKPlateID        string
	EntityTemplateID  string
	CustomerPlateWell string
	JobName           string
}

// Open opens (creating if needed) the database at path and ensures the sample
// table exists. The pool is limited to one connection so in-memory databases
// are shared by every query.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		path = "lims.db"
	}
	if path != Memory && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sampleDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sample table: %w", err)
	}
	return db, nil
}

// InsertSamples loads rows into the sample table inside one transaction.
func InsertSamples(ctx context.Context, db *sql.DB, rows ...Sample) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sample(ID_NUMERIC, ID_TEXT, SAMPLE_NAME, ITK_PLATE_ID, ENTITY_TEMPLATE_ID, CUSTOMER_PLATE_WELL, JOB_NAME) VALUES(?,?,?,?,?,?,?)`,
			r.IDNumeric, r.IDText, r.SampleName, r.ITKPlateID, r.EntityTemplateID, r.CustomerPlateWell, r.JobName,
		); err != nil {
			return fmt.Errorf("insert sample %s: %w", r.IDText, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

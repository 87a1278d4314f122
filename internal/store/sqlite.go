package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/seantiz/montecarlo/internal/model"

	_ "modernc.org/sqlite"
)

const createCheckpointsTable = `
CREATE TABLE IF NOT EXISTS checkpoints (
    group_name           TEXT NOT NULL,
    name                 TEXT NOT NULL,
    run_id               TEXT NOT NULL,
    current_cycle_number INTEGER NOT NULL,
    nmeasures            INTEGER NOT NULL,
    sign_real            REAL NOT NULL,
    sign_imag            REAL NOT NULL,
    created_at           DATETIME NOT NULL,
    PRIMARY KEY (group_name, name)
)`

const createMovesTable = `
CREATE TABLE IF NOT EXISTS checkpoint_moves (
    group_name      TEXT NOT NULL,
    name            TEXT NOT NULL,
    position        INTEGER NOT NULL,
    move_name       TEXT NOT NULL,
    weight          REAL NOT NULL,
    accepted        INTEGER NOT NULL,
    rejected        INTEGER NOT NULL,
    collected       INTEGER NOT NULL,
    global_accepted INTEGER NOT NULL,
    global_rejected INTEGER NOT NULL,
    state           BLOB,
    PRIMARY KEY (group_name, name, position)
)`

const createMeasuresTable = `
CREATE TABLE IF NOT EXISTS checkpoint_measures (
    group_name      TEXT NOT NULL,
    name            TEXT NOT NULL,
    position        INTEGER NOT NULL,
    measure_name    TEXT NOT NULL,
    count           INTEGER NOT NULL,
    elapsed_seconds REAL NOT NULL,
    state           BLOB,
    PRIMARY KEY (group_name, name, position)
)`

// ErrNotFound is returned when a checkpoint is not found.
var ErrNotFound = errors.New("checkpoint not found")

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// connPragmas are applied by the driver to every pooled connection. Ranks
// write checkpoints concurrently, so each connection needs the busy timeout,
// and transactions take the write lock at BEGIN instead of on first write.
const connPragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

// dsn appends connPragmas to a file database path.
func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + connPragmas
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == ":memory:" {
		return openMemory()
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return migrate(db)
}

// openMemory opens a private in-memory database on a single connection,
// since every connection would get its own empty database.
func openMemory() (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return migrate(db)
}

func migrate(db *sql.DB) (*SQLiteStore, error) {
	for _, stmt := range []string{createCheckpointsTable, createMovesTable, createMeasuresTable} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create tables: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveCheckpoint writes cp, replacing any checkpoint with the same group and
// name.
func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, cp *model.Checkpoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := deleteCheckpoint(ctx, tx, cp.Group, cp.Name); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO checkpoints (
			group_name, name, run_id, current_cycle_number, nmeasures,
			sign_real, sign_imag, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cp.Group, cp.Name, cp.RunID, int64(cp.CurrentCycleNumber), int64(cp.NMeasures),
		cp.SignReal, cp.SignImag, cp.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("insert checkpoint: %w", err)
	}

	for i, m := range cp.Moves {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO checkpoint_moves (
				group_name, name, position, move_name, weight, accepted, rejected,
				collected, global_accepted, global_rejected, state
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			cp.Group, cp.Name, i, m.Name, m.Weight, int64(m.Accepted), int64(m.Rejected),
			boolToInt(m.Collected), int64(m.GlobalAccepted), int64(m.GlobalRejected), m.State,
		); err != nil {
			return fmt.Errorf("insert move %q: %w", m.Name, err)
		}
	}

	for i, m := range cp.Measures {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO checkpoint_measures (
				group_name, name, position, measure_name, count, elapsed_seconds, state
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			cp.Group, cp.Name, i, m.Name, int64(m.Count), m.ElapsedSeconds, m.State,
		); err != nil {
			return fmt.Errorf("insert measure %q: %w", m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

// GetCheckpoint retrieves a checkpoint with its move and measure rows.
func (s *SQLiteStore) GetCheckpoint(ctx context.Context, group, name string) (*model.Checkpoint, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	cp := &model.Checkpoint{}
	err = tx.QueryRowContext(ctx,
		`SELECT group_name, name, run_id, current_cycle_number, nmeasures,
			sign_real, sign_imag, created_at
		FROM checkpoints WHERE group_name = ? AND name = ?`, group, name,
	).Scan(
		&cp.Group, &cp.Name, &cp.RunID, &cp.CurrentCycleNumber, &cp.NMeasures,
		&cp.SignReal, &cp.SignImag, &cp.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}

	if cp.Moves, err = getMoves(ctx, tx, group, name); err != nil {
		return nil, err
	}
	if cp.Measures, err = getMeasures(ctx, tx, group, name); err != nil {
		return nil, err
	}
	return cp, nil
}

func getMoves(ctx context.Context, tx *sql.Tx, group, name string) ([]model.MoveStats, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT move_name, weight, accepted, rejected, collected,
			global_accepted, global_rejected, state
		FROM checkpoint_moves WHERE group_name = ? AND name = ? ORDER BY position`, group, name,
	)
	if err != nil {
		return nil, fmt.Errorf("get moves: %w", err)
	}
	defer rows.Close()

	var moves []model.MoveStats
	for rows.Next() {
		var m model.MoveStats
		if err := rows.Scan(
			&m.Name, &m.Weight, &m.Accepted, &m.Rejected, &m.Collected,
			&m.GlobalAccepted, &m.GlobalRejected, &m.State,
		); err != nil {
			return nil, fmt.Errorf("scan move: %w", err)
		}
		moves = append(moves, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moves: %w", err)
	}
	return moves, nil
}

func getMeasures(ctx context.Context, tx *sql.Tx, group, name string) ([]model.MeasureStats, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT measure_name, count, elapsed_seconds, state
		FROM checkpoint_measures WHERE group_name = ? AND name = ? ORDER BY position`, group, name,
	)
	if err != nil {
		return nil, fmt.Errorf("get measures: %w", err)
	}
	defer rows.Close()

	var measures []model.MeasureStats
	for rows.Next() {
		var m model.MeasureStats
		if err := rows.Scan(&m.Name, &m.Count, &m.ElapsedSeconds, &m.State); err != nil {
			return nil, fmt.Errorf("scan measure: %w", err)
		}
		measures = append(measures, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate measures: %w", err)
	}
	return measures, nil
}

// ListCheckpoints returns checkpoint headers ordered by created_at DESC. An
// empty group lists every group. Moves and Measures are not loaded.
func (s *SQLiteStore) ListCheckpoints(ctx context.Context, group string) ([]*model.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_name, name, run_id, current_cycle_number, nmeasures,
			sign_real, sign_imag, created_at
		FROM checkpoints WHERE ? = '' OR group_name = ?
		ORDER BY created_at DESC, group_name, name`, group, group,
	)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []*model.Checkpoint
	for rows.Next() {
		cp := &model.Checkpoint{}
		if err := rows.Scan(
			&cp.Group, &cp.Name, &cp.RunID, &cp.CurrentCycleNumber, &cp.NMeasures,
			&cp.SignReal, &cp.SignImag, &cp.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return out, nil
}

// DeleteCheckpoint removes a checkpoint and its rows.
func (s *SQLiteStore) DeleteCheckpoint(ctx context.Context, group, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT 1 FROM checkpoints WHERE group_name = ? AND name = ?", group, name,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find checkpoint: %w", err)
	}

	if err := deleteCheckpoint(ctx, tx, group, name); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func deleteCheckpoint(ctx context.Context, tx *sql.Tx, group, name string) error {
	for _, table := range []string{"checkpoints", "checkpoint_moves", "checkpoint_measures"} {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE group_name = ? AND name = ?", group, name,
		); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

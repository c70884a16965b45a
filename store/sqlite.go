// Package store persists training results in SQLite.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/YuminosukeSato/autotrain/pkg/errors"
	"github.com/YuminosukeSato/autotrain/pkg/log"
	"github.com/YuminosukeSato/autotrain/training"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("result not found")

// Record is one persisted training run.
type Record struct {
	ID        string
	ModelName string
	Tier      training.Tier
	Flag      bool
	Owner     string
	CreatedAt time.Time
	Result    training.Result
}

// SQLiteStore saves Result envelopes into a runs table.
type SQLiteStore struct {
	db     *sql.DB
	owned  bool
	logger log.Logger
	now    func() time.Time
}

// Open opens (or creates) the database file at path and migrates it. The
// returned store owns the connection and closes it in Close.
func Open(path string, logger log.Logger) (*SQLiteStore, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	s, err := New(db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.owned = true
	log.OrDefault(logger, "store").Info("result store initialized", "db_path", path)
	return s, nil
}

// New wraps an existing connection. The caller keeps ownership of db.
func New(db *sql.DB, logger log.Logger) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, logger: log.OrDefault(logger, "store"), now: time.Now}
	if err := s.migrate(); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		model_name TEXT NOT NULL,
		tier TEXT NOT NULL,
		flag BOOLEAN NOT NULL,
		payload TEXT NOT NULL,
		error TEXT,
		owner TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_owner ON runs(owner);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save stores r under its run id for owner.
func (s *SQLiteStore) Save(ctx context.Context, owner string, r training.Result) (Record, error) {
	if r == nil {
		return Record{}, errors.NewValueError("SQLiteStore.Save", "nil result")
	}
	payload, err := training.MarshalResult(r)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:        training.RunIDOf(r),
		ModelName: r.Model(),
		Flag:      r.Flag(),
		Owner:     owner,
		CreatedAt: s.now().UTC(),
		Result:    r,
	}
	var errText sql.NullString
	switch v := r.(type) {
	case training.Success:
		rec.Tier = v.Envelope.Tier
	case training.Failure:
		rec.Tier = v.Tier
		errText = sql.NullString{String: v.Message, Valid: true}
	}
	if rec.ID == "" {
		return Record{}, errors.NewValueError("SQLiteStore.Save", "result has no run id")
	}

	query := `
		INSERT INTO runs (id, model_name, tier, flag, payload, error, owner, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.ModelName, string(rec.Tier), rec.Flag, string(payload), errText, rec.Owner, rec.CreatedAt.UnixNano(),
	); err != nil {
		return Record{}, errors.Wrap(err, "failed to save result")
	}

	s.logger.Debug("result saved", log.RunIDKey, rec.ID, log.ModelNameKey, rec.ModelName)
	return rec, nil
}

// Get loads one run by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, model_name, tier, flag, payload, owner, created_at
		FROM runs WHERE id = ?
	`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, errors.Wrapf(ErrNotFound, "id %s", id)
	}
	return rec, err
}

// List returns the runs of owner, newest first. An empty owner lists all.
func (s *SQLiteStore) List(ctx context.Context, owner string) ([]Record, error) {
	query := `
		SELECT id, model_name, tier, flag, payload, owner, created_at
		FROM runs
		WHERE ? = '' OR owner = ?
		ORDER BY created_at DESC, id
	`
	rows, err := s.db.QueryContext(ctx, query, owner, owner)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query results")
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate results")
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		rec     Record
		tier    string
		payload string
		created int64
	)
	if err := sc.Scan(&rec.ID, &rec.ModelName, &tier, &rec.Flag, &payload, &rec.Owner, &created); err != nil {
		return Record{}, err
	}
	res, err := training.UnmarshalResult([]byte(payload))
	if err != nil {
		return Record{}, errors.Wrapf(err, "decode run %s", rec.ID)
	}
	rec.Tier = training.Tier(tier)
	rec.CreatedAt = time.Unix(0, created).UTC()
	rec.Result = res
	return rec, nil
}

// Close releases the connection if the store opened it.
func (s *SQLiteStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

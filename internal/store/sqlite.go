package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/PolarWolf314/stash/internal/secrets"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS secrets (
	description TEXT PRIMARY KEY,
	blob        BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

type sqliteStore struct {
	db *sql.DB
}

func openSQLite(path string, timeout time.Duration) (*sqliteStore, error) {
	// EXCLUSIVE locking mode keeps the write lock taken by the schema
	// transaction until Close, so a second opener blocks on busy_timeout.
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", timeout.Milliseconds()))
	params.Add("_pragma", "locking_mode(EXCLUSIVE)")
	params.Add("_txlock", "immediate")

	db, err := sql.Open("sqlite", "file:"+path+"?"+params.Encode())
	if err != nil {
		return nil, serrors.IO("failed to open database", err)
	}
	db.SetMaxOpenConns(1)

	s := &sqliteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		if isBusy(err) {
			return nil, serrors.ErrStoreLocked
		}
		return nil, serrors.IO("failed to create database schema", err)
	}
	return s, nil
}

func (s *sqliteStore) migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(sqliteSchema); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isBusy(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code() & 0xff
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	return false
}

func (s *sqliteStore) Backend() string { return BackendSQLite }

func (s *sqliteStore) Put(ctx context.Context, description string, secret *secrets.Secret) error {
	if err := checkDescription(description); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO secrets (description, blob) VALUES (?, ?)
		 ON CONFLICT(description) DO UPDATE SET blob = excluded.blob`,
		description, secret.Bytes())
	if err != nil {
		return serrors.IO(fmt.Sprintf("failed to add secret for %s to database", description), err)
	}
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, description string) (*secrets.Secret, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT blob FROM secrets WHERE description = ?`, description).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", description, serrors.ErrSecretNotFound)
	}
	if err != nil {
		return nil, serrors.IO(fmt.Sprintf("failed to read secret for %s", description), err)
	}
	return loadSecret(description, raw)
}

func (s *sqliteStore) Remove(ctx context.Context, description string) error {
	if err := checkDescription(description); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM secrets WHERE description = ?`, description); err != nil {
		return serrors.IO(fmt.Sprintf("failed to remove secret for %s from database", description), err)
	}
	return nil
}

func (s *sqliteStore) IsEmpty(ctx context.Context) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM secrets)`).Scan(&exists)
	if err != nil {
		return false, serrors.IO("failed to read database", err)
	}
	return exists == 0, nil
}

func (s *sqliteStore) Descriptions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT description FROM secrets ORDER BY description`)
	if err != nil {
		return nil, serrors.IO("failed to read database", err)
	}
	defer rows.Close()

	var descriptions []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, serrors.IO("failed to read database", err)
		}
		descriptions = append(descriptions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, serrors.IO("failed to read database", err)
	}
	return descriptions, nil
}

func (s *sqliteStore) Meta(ctx context.Context) (*Meta, error) {
	return readSQLiteMeta(ctx, s.db)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func readSQLiteMeta(ctx context.Context, q queryer) (*Meta, error) {
	rows, err := q.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, serrors.IO("failed to read vault metadata", err)
	}
	defer rows.Close()

	values := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, serrors.IO("failed to read vault metadata", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, serrors.IO("failed to read vault metadata", err)
	}

	id, ok := values[string(metaKeyID)]
	if !ok {
		return nil, fmt.Errorf("vault metadata: %w", serrors.ErrNotFound)
	}

	meta := &Meta{ID: id, Cipher: values[string(metaKeyCipher)]}
	if raw, ok := values[string(metaKeyCreatedAt)]; ok {
		createdAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parsing vault creation time: %w", err)
		}
		meta.CreatedAt = createdAt
	}
	return meta, nil
}

func (s *sqliteStore) InitMeta(ctx context.Context, meta Meta) (*Meta, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, serrors.IO("failed to write vault metadata", err)
	}
	defer tx.Rollback()

	existing, err := readSQLiteMeta(ctx, tx)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, serrors.ErrNotFound) {
		return nil, err
	}

	pairs := [][2]string{
		{string(metaKeyID), meta.ID},
		{string(metaKeyCipher), meta.Cipher},
		{string(metaKeyCreatedAt), meta.CreatedAt.UTC().Format(time.RFC3339Nano)},
	}
	for _, p := range pairs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, p[0], p[1]); err != nil {
			return nil, serrors.IO("failed to write vault metadata", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, serrors.IO("failed to write vault metadata", err)
	}
	return &meta, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

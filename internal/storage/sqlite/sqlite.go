// internal/storage/sqlite/sqlite.go
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
	"github.com/rovshanmuradov/launchpad/internal/storage"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS counters (
		name  TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS assets (
		id   INTEGER PRIMARY KEY,
		body TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS balances (
		asset_id INTEGER NOT NULL,
		holder   TEXT NOT NULL,
		amount   TEXT NOT NULL,
		PRIMARY KEY (asset_id, holder)
	)`,
	`CREATE TABLE IF NOT EXISTS treasury (
		id   INTEGER PRIMARY KEY CHECK (id = 1),
		body TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trades (
		asset_id INTEGER NOT NULL,
		seq      INTEGER NOT NULL,
		body     TEXT NOT NULL,
		PRIMARY KEY (asset_id, seq)
	)`,
}

// Store keeps the catalog in a single SQLite file. One connection is used so
// every Update is a serialized SQL transaction.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ storage.Store = (*Store)(nil)

// Open opens the database file at path, creating it and its schema if needed.
func Open(path string, logger *zap.Logger) (*Store, error) {
	logger = logger.Named("sqlite")

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite at %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", "PRAGMA synchronous=FULL"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &Store{db: db, logger: logger}
	if err := s.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite store opened", zap.String("path", path))
	return s, nil
}

// RunMigrations creates missing tables.
func (s *Store) RunMigrations() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn func(tx storage.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer sqlTx.Rollback()
	return fn(&tx{ctx: ctx, tx: sqlTx})
}

func (s *Store) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(&tx{ctx: ctx, tx: sqlTx, writable: true}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			s.logger.Error("Rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.logger.Info("Closing sqlite store")
	return s.db.Close()
}

type tx struct {
	ctx      context.Context
	tx       *sql.Tx
	writable bool
}

func (t *tx) exec(query string, args ...any) error {
	if !t.writable {
		return domain.ErrReadOnly
	}
	_, err := t.tx.ExecContext(t.ctx, query, args...)
	return err
}

func (t *tx) bump(name string) (uint64, error) {
	if !t.writable {
		return 0, domain.ErrReadOnly
	}
	var n uint64
	err := t.tx.QueryRowContext(t.ctx,
		`INSERT INTO counters (name, value) VALUES (?, 1)
		 ON CONFLICT(name) DO UPDATE SET value = value + 1
		 RETURNING value`, name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("bump counter %s: %w", name, err)
	}
	return n, nil
}

func (t *tx) NextAssetID() (domain.AssetID, error) {
	n, err := t.bump("asset_id")
	return domain.AssetID(n), err
}

func (t *tx) GetAsset(id domain.AssetID) (*domain.Asset, error) {
	var body string
	err := t.tx.QueryRowContext(t.ctx, `SELECT body FROM assets WHERE id = ?`, int64(id)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset %d: %w", id, err)
	}
	var a domain.Asset
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		return nil, fmt.Errorf("decode asset %d: %w", id, err)
	}
	return &a, nil
}

func (t *tx) PutAsset(asset *domain.Asset) error {
	raw, err := json.Marshal(asset)
	if err != nil {
		return fmt.Errorf("encode asset %d: %w", asset.ID, err)
	}
	return t.exec(
		`INSERT INTO assets (id, body) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET body = excluded.body`,
		int64(asset.ID), string(raw))
}

func (t *tx) ListAssets() ([]*domain.Asset, error) {
	rows, err := t.tx.QueryContext(t.ctx, `SELECT body FROM assets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []*domain.Asset
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var a domain.Asset
		if err := json.Unmarshal([]byte(body), &a); err != nil {
			return nil, fmt.Errorf("decode asset: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (t *tx) Balance(id domain.AssetID, holder solana.PublicKey) (fixedpoint.Amount, error) {
	var raw string
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT amount FROM balances WHERE asset_id = ? AND holder = ?`,
		int64(id), holder.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fixedpoint.Zero(), nil
	}
	if err != nil {
		return fixedpoint.Zero(), fmt.Errorf("get balance: %w", err)
	}
	return fixedpoint.Parse(raw)
}

func (t *tx) SetBalance(id domain.AssetID, holder solana.PublicKey, amount fixedpoint.Amount) error {
	return t.exec(
		`INSERT INTO balances (asset_id, holder, amount) VALUES (?, ?, ?)
		 ON CONFLICT(asset_id, holder) DO UPDATE SET amount = excluded.amount`,
		int64(id), holder.String(), amount.String())
}

func (t *tx) Treasury() (domain.Treasury, error) {
	var tr domain.Treasury
	var body string
	err := t.tx.QueryRowContext(t.ctx, `SELECT body FROM treasury WHERE id = 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return tr, nil
	}
	if err != nil {
		return tr, fmt.Errorf("get treasury: %w", err)
	}
	if err := json.Unmarshal([]byte(body), &tr); err != nil {
		return tr, fmt.Errorf("decode treasury: %w", err)
	}
	return tr, nil
}

func (t *tx) PutTreasury(tr domain.Treasury) error {
	raw, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("encode treasury: %w", err)
	}
	return t.exec(
		`INSERT INTO treasury (id, body) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET body = excluded.body`, string(raw))
}

func (t *tx) AppendTrade(r *domain.Receipt) error {
	seq, err := t.bump(fmt.Sprintf("trade_seq/%d", r.AssetID))
	if err != nil {
		return err
	}
	r.Seq = seq
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode trade: %w", err)
	}
	return t.exec(`INSERT INTO trades (asset_id, seq, body) VALUES (?, ?, ?)`,
		int64(r.AssetID), int64(seq), string(raw))
}

func (t *tx) ListTrades(id domain.AssetID) ([]*domain.Receipt, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT body FROM trades WHERE asset_id = ? ORDER BY seq`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	var out []*domain.Receipt
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var r domain.Receipt
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, fmt.Errorf("decode trade: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

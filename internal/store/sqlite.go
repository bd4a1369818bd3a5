package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"MarketTimeMachine/internal/model"
)

// SQLiteStore persists datasets to a SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
	mu sync.Mutex
}

type scenarioRow struct {
	ID         string `db:"id"`
	Timestamps string `db:"timestamps"`
	FetchedAt  int64  `db:"fetched_at"`
}

type priceRow struct {
	Ticker string  `db:"ticker"`
	Idx    int     `db:"idx"`
	Price  float64 `db:"price"`
}

type eventRow struct {
	Date        string `db:"date"`
	Title       string `db:"title"`
	Description string `db:"description"`
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: SQLite has a single writer and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scenarios (
			id          TEXT PRIMARY KEY,
			timestamps  TEXT NOT NULL,
			fetched_at  INTEGER NOT NULL,
			updated_at  INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS prices (
			scenario_id TEXT NOT NULL REFERENCES scenarios(id) ON DELETE CASCADE,
			ticker      TEXT NOT NULL,
			idx         INTEGER NOT NULL,
			price       REAL NOT NULL,
			PRIMARY KEY (scenario_id, ticker, idx)
		)`,

		`CREATE TABLE IF NOT EXISTS events (
			scenario_id TEXT NOT NULL REFERENCES scenarios(id) ON DELETE CASCADE,
			seq         INTEGER NOT NULL,
			date        TEXT NOT NULL,
			title       TEXT,
			description TEXT,
			PRIMARY KEY (scenario_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_date ON events(scenario_id, date)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Save replaces the stored copy of ds in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, ds *model.Dataset) (err error) {
	if ds.Scenario == "" {
		return fmt.Errorf("save dataset: empty scenario id")
	}
	ts, err := json.Marshal(ds.MarketData.Timestamps)
	if err != nil {
		return fmt.Errorf("marshal timestamps: %w", err)
	}
	fetchedAt := ds.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, table := range []string{"prices", "events"} {
		if _, err = tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE scenario_id = ?`, ds.Scenario); err != nil {
			return fmt.Errorf("delete old %s: %w", table, err)
		}
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM scenarios WHERE id = ?`, ds.Scenario); err != nil {
		return fmt.Errorf("delete old scenario: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO scenarios (id, timestamps, fetched_at, updated_at) VALUES (?,?,?,?)`,
		ds.Scenario, string(ts), fetchedAt.Unix(), time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("insert scenario: %w", err)
	}

	priceStmt, err := tx.PreparexContext(ctx, `INSERT INTO prices (scenario_id, ticker, idx, price) VALUES (?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare prices: %w", err)
	}
	defer priceStmt.Close()
	for ticker, series := range ds.MarketData.Prices {
		for i, p := range series {
			if _, err = priceStmt.ExecContext(ctx, ds.Scenario, ticker, i, p); err != nil {
				return fmt.Errorf("insert price %s[%d]: %w", ticker, i, err)
			}
		}
	}

	for i, e := range ds.Events {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO events (scenario_id, seq, date, title, description) VALUES (?,?,?,?,?)`,
			ds.Scenario, i, e.Date, e.Title, e.Description,
		); err != nil {
			return fmt.Errorf("insert event %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, scenario string) (*model.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row scenarioRow
	err := s.db.GetContext(ctx, &row, `SELECT id, timestamps, fetched_at FROM scenarios WHERE id = ?`, scenario)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %q: %w", scenario, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", scenario, err)
	}

	ds := &model.Dataset{
		Scenario:   row.ID,
		FetchedAt:  time.Unix(row.FetchedAt, 0),
		MarketData: model.MarketData{Prices: make(map[string][]float64)},
	}
	if err := json.Unmarshal([]byte(row.Timestamps), &ds.MarketData.Timestamps); err != nil {
		return nil, fmt.Errorf("decode timestamps: %w", err)
	}

	var prices []priceRow
	if err := s.db.SelectContext(ctx, &prices,
		`SELECT ticker, idx, price FROM prices WHERE scenario_id = ? ORDER BY ticker, idx`, scenario); err != nil {
		return nil, fmt.Errorf("select prices: %w", err)
	}
	for _, p := range prices {
		ds.MarketData.Prices[p.Ticker] = append(ds.MarketData.Prices[p.Ticker], p.Price)
	}

	var events []eventRow
	if err := s.db.SelectContext(ctx, &events,
		`SELECT date, title, description FROM events WHERE scenario_id = ? ORDER BY seq`, scenario); err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	for _, e := range events {
		ds.Events = append(ds.Events, model.MarketEvent{Date: e.Date, Title: e.Title, Description: e.Description})
	}
	return ds, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM scenarios ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) Close() error {
	log.Info().Msg("closing sqlite store")
	return s.db.Close()
}

// Package history indexes committed engine events in sqlite so clients
// can page through past swaps and liquidity changes. The index is a
// convenience surface, not consensus state: it can be rebuilt from a
// replay and the engine never reads it.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/TopCodeBeast/subswap/internal/core/asset"
	"github.com/TopCodeBeast/subswap/internal/core/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	block_time INTEGER NOT NULL,
	kind       TEXT    NOT NULL,
	account    TEXT    NOT NULL,
	asset_a    INTEGER NOT NULL,
	asset_b    INTEGER NOT NULL,
	payload    TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS events_by_pair    ON events (asset_a, asset_b, seq);
CREATE INDEX IF NOT EXISTS events_by_account ON events (account, seq);
`

// Entry is one indexed event.
type Entry struct {
	Seq       int64        `json:"seq"`
	BlockTime uint64       `json:"block_time"`
	Event     engine.Event `json:"event"`
}

// Index is the sqlite-backed event log.
type Index struct {
	db *sql.DB
}

// Open opens or creates the index at path. Use ":memory:" for an
// ephemeral index.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history at %s: %w", path, err)
	}
	// modernc sqlite serializes access; one connection avoids table locks.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Record appends one event at the given block time.
func (ix *Index) Record(ctx context.Context, blockTime uint64, ev engine.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = ix.db.ExecContext(ctx,
		`INSERT INTO events (block_time, kind, account, asset_a, asset_b, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		int64(blockTime), string(ev.Kind), ev.Account.String(),
		int64(ev.AssetA), int64(ev.AssetB), string(payload))
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// RecentByPair returns the newest events of a pair, newest first. The
// pair is matched in canonical order.
func (ix *Index) RecentByPair(ctx context.Context, a, b asset.ID, limit int) ([]Entry, error) {
	if a > b {
		a, b = b, a
	}
	return ix.query(ctx,
		`SELECT seq, block_time, payload FROM events
		 WHERE asset_a = ? AND asset_b = ? ORDER BY seq DESC LIMIT ?`,
		int64(a), int64(b), limit)
}

// RecentByAccount returns the newest events of an account, newest first.
func (ix *Index) RecentByAccount(ctx context.Context, account asset.AccountID, limit int) ([]Entry, error) {
	return ix.query(ctx,
		`SELECT seq, block_time, payload FROM events
		 WHERE account = ? ORDER BY seq DESC LIMIT ?`,
		account.String(), limit)
}

// Recent returns the newest events overall, newest first.
func (ix *Index) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return ix.query(ctx,
		`SELECT seq, block_time, payload FROM events ORDER BY seq DESC LIMIT ?`, limit)
}

func (ix *Index) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := ix.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			blockTime int64
			payload   string
		)
		if err := rows.Scan(&e.Seq, &blockTime, &payload); err != nil {
			return nil, err
		}
		e.BlockTime = uint64(blockTime)
		if err := json.Unmarshal([]byte(payload), &e.Event); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", e.Seq, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the index.
func (ix *Index) Close() error {
	return ix.db.Close()
}

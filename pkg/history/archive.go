// Package history archives issued quotes, estimates and workshop costings.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/hallmark-app/hallmark/pkg/models"
	"github.com/hallmark-app/hallmark/pkg/pricing"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("history entry not found")

// Archive writes and queries history entries.
type Archive struct {
	db    *sql.DB
	owned bool
	now   func() time.Time
}

// QueryOpts filters Query. Zero values match everything.
type QueryOpts struct {
	Kind     models.EntryKind
	Customer string
	Since    time.Time
	Limit    int
}

// KindStat is the number and value of entries of one kind on one day.
type KindStat struct {
	Kind     models.EntryKind `json:"kind"`
	Day      string           `json:"day"`
	Count    int64            `json:"count"`
	TotalGBP decimal.Decimal  `json:"total_gbp"`
}

// New opens (or creates) the database at dbPath.
func New(dbPath string) (*Archive, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	a, err := NewFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.owned = true
	return a, nil
}

// NewFromDB uses an already open database. Close leaves db open.
func NewFromDB(db *sql.DB) (*Archive, error) {
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Archive{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS history (
		id         TEXT PRIMARY KEY,
		kind       TEXT NOT NULL DEFAULT 'quote',
		customer   TEXT NOT NULL DEFAULT '',
		total_gbp  TEXT NOT NULL,
		breakdown  TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_history_created ON history(created_at)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_history_kind ON history(kind)`)
	return err
}

// NewEntry builds an entry whose breakdown is the JSON encoding of v.
func NewEntry(kind models.EntryKind, customer string, total decimal.Decimal, v any) (models.HistoryEntry, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("encode %s breakdown: %w", kind, err)
	}
	return models.HistoryEntry{Kind: kind, Customer: customer, TotalGBP: total, Breakdown: data}, nil
}

// Record stores e and returns it as archived: with an id and creation time
// when missing and the total rounded to pence.
func (a *Archive) Record(ctx context.Context, e models.HistoryEntry) (models.HistoryEntry, error) {
	switch e.Kind {
	case models.KindQuote, models.KindEstimate, models.KindWorkshop:
	case "":
		e.Kind = models.KindQuote
	default:
		return models.HistoryEntry{}, fmt.Errorf("record history: unknown kind %q", e.Kind)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = a.now()
	}
	if len(e.Breakdown) == 0 {
		e.Breakdown = json.RawMessage("{}")
	}
	e.TotalGBP = pricing.RoundGBP(e.TotalGBP)

	_, err := a.db.ExecContext(ctx,
		`INSERT INTO history (id, kind, customer, total_gbp, breakdown, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Kind), e.Customer, e.TotalGBP.StringFixed(2), string(e.Breakdown), e.CreatedAt.UTC(),
	)
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("record history: %w", err)
	}
	return e, nil
}

// Get returns one entry by id.
func (a *Archive) Get(ctx context.Context, id string) (models.HistoryEntry, error) {
	entries, err := a.query(ctx, `SELECT id, kind, customer, total_gbp, breakdown, created_at
		FROM history WHERE id = ?`, id)
	if err != nil {
		return models.HistoryEntry{}, err
	}
	if len(entries) == 0 {
		return models.HistoryEntry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entries[0], nil
}

// Recent returns the newest entries first.
func (a *Archive) Recent(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	return a.Query(ctx, QueryOpts{Limit: limit})
}

// Query returns entries matching opts, newest first. Limit defaults to 50.
func (a *Archive) Query(ctx context.Context, opts QueryOpts) ([]models.HistoryEntry, error) {
	q := `SELECT id, kind, customer, total_gbp, breakdown, created_at FROM history WHERE 1=1`
	var args []any

	if opts.Kind != "" {
		q += " AND kind = ?"
		args = append(args, string(opts.Kind))
	}
	if opts.Customer != "" {
		q += " AND customer = ?"
		args = append(args, opts.Customer)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since.UTC())
	}

	q += " ORDER BY created_at DESC, id"

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	q += " LIMIT ?"
	args = append(args, limit)

	return a.query(ctx, q, args...)
}

func (a *Archive) query(ctx context.Context, q string, args ...any) ([]models.HistoryEntry, error) {
	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		var kind, total, breakdown string
		if err := rows.Scan(&e.ID, &kind, &e.Customer, &total, &breakdown, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		d, err := decimal.NewFromString(total)
		if err != nil {
			return nil, fmt.Errorf("parse history total %q: %w", total, err)
		}
		e.Kind = models.EntryKind(kind)
		e.TotalGBP = d
		e.Breakdown = json.RawMessage(breakdown)
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns counts and totals grouped by kind and day.
func (a *Archive) Stats(ctx context.Context) ([]KindStat, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT kind, substr(created_at, 1, 10) AS day, total_gbp FROM history ORDER BY day DESC, kind`)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	var stats []KindStat
	index := make(map[string]int)
	for rows.Next() {
		var kind, day, total string
		if err := rows.Scan(&kind, &day, &total); err != nil {
			return nil, fmt.Errorf("scan history stat: %w", err)
		}
		d, err := decimal.NewFromString(total)
		if err != nil {
			return nil, fmt.Errorf("parse history total %q: %w", total, err)
		}
		k := kind + "|" + day
		i, ok := index[k]
		if !ok {
			i = len(stats)
			index[k] = i
			stats = append(stats, KindStat{Kind: models.EntryKind(kind), Day: day})
		}
		stats[i].Count++
		stats[i].TotalGBP = stats[i].TotalGBP.Add(d)
	}
	return stats, rows.Err()
}

// Close releases the database connection if New opened it.
func (a *Archive) Close() error {
	if !a.owned {
		return nil
	}
	return a.db.Close()
}

// Package sqlite stores cached spot prices in the user's SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/hallmark-app/hallmark/pkg/models"
)

// Store keeps one row per symbol in the spot_prices table.
type Store struct {
	db    *sql.DB
	owned bool
}

const createPriceTable = `
CREATE TABLE IF NOT EXISTS spot_prices (
	symbol TEXT PRIMARY KEY,
	price_gbp_per_oz TEXT NOT NULL,
	fetched_at DATETIME NOT NULL,
	provider TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL
);
`

// New opens (or creates) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open price db: %w", err)
	}
	s, err := NewFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewFromDB uses an already open database. Close leaves db open.
func NewFromDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(createPriceTable); err != nil {
		return nil, fmt.Errorf("migrate price db: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the record for symbol, if any.
func (s *Store) Get(ctx context.Context, symbol models.Symbol) (models.PriceRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT symbol, price_gbp_per_oz, fetched_at, provider, updated_at FROM spot_prices WHERE symbol = ?`,
		string(symbol),
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PriceRecord{}, false, nil
	}
	if err != nil {
		return models.PriceRecord{}, false, fmt.Errorf("get price %s: %w", symbol, err)
	}
	return rec, true, nil
}

// Put inserts or overwrites the record for rec.Symbol.
func (s *Store) Put(ctx context.Context, rec models.PriceRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO spot_prices (symbol, price_gbp_per_oz, fetched_at, provider, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(symbol) DO UPDATE SET
			price_gbp_per_oz = excluded.price_gbp_per_oz,
			fetched_at = excluded.fetched_at,
			provider = excluded.provider,
			updated_at = excluded.updated_at`,
		string(rec.Symbol), rec.Price.PricePerOzGBP.String(), rec.Price.FetchedAt.UTC(), rec.Price.Provider, rec.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("put price %s: %w", rec.Symbol, err)
	}
	return nil
}

// List returns every record ordered by symbol.
func (s *Store) List(ctx context.Context) ([]models.PriceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, price_gbp_per_oz, fetched_at, provider, updated_at FROM spot_prices ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	defer rows.Close()

	var recs []models.PriceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Close releases the database connection if New opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (models.PriceRecord, error) {
	var (
		symbol, price, provider string
		fetchedAt, updatedAt    time.Time
	)
	if err := sc.Scan(&symbol, &price, &fetchedAt, &provider, &updatedAt); err != nil {
		return models.PriceRecord{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return models.PriceRecord{}, fmt.Errorf("parse stored price %q: %w", price, err)
	}
	sym := models.Symbol(symbol)
	return models.PriceRecord{
		Symbol: sym,
		Price: models.SpotPrice{
			Symbol:        sym,
			PricePerOzGBP: d,
			FetchedAt:     fetchedAt.UTC(),
			Origin:        models.OriginLive,
			Provider:      provider,
		},
		UpdatedAt: updatedAt.UTC(),
	}, nil
}

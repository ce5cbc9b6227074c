// Package settings persists a user's business parameters as key/value rows.
package settings

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/hallmark-app/hallmark/pkg/models"
)

const createSettingsTable = `
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// field binds one settings key to a Settings struct field.
type field struct {
	key    string
	format func(models.Settings) string
	parse  func(*models.Settings, string) error
}

func decimalField(key string, ptr func(*models.Settings) *decimal.Decimal) field {
	return field{
		key:    key,
		format: func(s models.Settings) string { return ptr(&s).String() },
		parse: func(s *models.Settings, v string) error {
			d, err := decimal.NewFromString(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%q is not a number", v)
			}
			*ptr(s) = d
			return nil
		},
	}
}

// maxIntSetting keeps whole-number settings inside int32.
var maxIntSetting = decimal.NewFromInt(math.MaxInt32)

func intField(key string, ptr func(*models.Settings) *int) field {
	return field{
		key:    key,
		format: func(s models.Settings) string { return strconv.Itoa(*ptr(&s)) },
		parse: func(s *models.Settings, v string) error {
			d, err := decimal.NewFromString(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%q is not a number", v)
			}
			if !d.IsInteger() || d.Abs().GreaterThan(maxIntSetting) {
				return fmt.Errorf("%q is not a whole number", v)
			}
			*ptr(s) = int(d.IntPart())
			return nil
		},
	}
}

var fields = []field{
	decimalField("labour_rate_gbp_per_hr", func(s *models.Settings) *decimal.Decimal { return &s.LabourRatePerHour }),
	{
		key: "vat_enabled",
		format: func(s models.Settings) string {
			if s.VATEnabled {
				return "1"
			}
			return "0"
		},
		parse: func(s *models.Settings, v string) error {
			b, err := parseBool(v)
			if err != nil {
				return err
			}
			s.VATEnabled = b
			return nil
		},
	},
	decimalField("vat_rate_pct", func(s *models.Settings) *decimal.Decimal { return &s.VATRatePct }),
	decimalField("commission_deposit_pct", func(s *models.Settings) *decimal.Decimal { return &s.DepositPct }),
	decimalField("estimate_variance_pct", func(s *models.Settings) *decimal.Decimal { return &s.EstimateVariancePct }),
	intField("estimate_valid_days", func(s *models.Settings) *int { return &s.EstimateValidDays }),
	decimalField("metal_waste_pct", func(s *models.Settings) *decimal.Decimal { return &s.WastePct }),
	decimalField("overhead_pct", func(s *models.Settings) *decimal.Decimal { return &s.OverheadPct }),
	decimalField("target_profit_margin_pct", func(s *models.Settings) *decimal.Decimal { return &s.ProfitMarginPct }),
	decimalField("troy_oz_to_grams", func(s *models.Settings) *decimal.Decimal { return &s.TroyOunceGrams }),
	intField("price_cache_ttl_minutes", func(s *models.Settings) *int { return &s.CacheTTLMinutes }),
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a boolean", v)
}

func lookup(key string) (field, bool) {
	for _, f := range fields {
		if f.key == key {
			return f, true
		}
	}
	return field{}, false
}

// Keys returns every settings key in display order.
func Keys() []string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.key
	}
	return keys
}

// Values renders s as key/value strings in the stored format.
func Values(s models.Settings) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.key] = f.format(s)
	}
	return out
}

// Store reads and writes settings rows.
type Store struct {
	db     *sql.DB
	owned  bool
	logger *slog.Logger
}

// New opens (or creates) the database at dbPath and seeds defaults.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	s, err := NewFromDB(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewFromDB uses an already open database. Close leaves db open.
func NewFromDB(db *sql.DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := db.Exec(createSettingsTable); err != nil {
		return nil, fmt.Errorf("migrate settings db: %w", err)
	}

	now := time.Now().UTC()
	for k, v := range Values(models.DefaultSettings()) {
		if _, err := db.Exec(`INSERT OR IGNORE INTO settings (key, value, updated_at) VALUES (?, ?, ?)`, k, v, now); err != nil {
			return nil, fmt.Errorf("seed settings: %w", err)
		}
	}

	return &Store{db: db, logger: logger}, nil
}

// Get returns the current settings. Stored values that no longer parse are
// replaced by their defaults.
func (s *Store) Get(ctx context.Context) (models.Settings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return models.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	out := models.DefaultSettings()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.Settings{}, fmt.Errorf("scan setting: %w", err)
		}
		f, ok := lookup(key)
		if !ok {
			continue
		}
		if err := f.parse(&out, value); err != nil {
			s.logger.Warn("ignoring unparsable setting", "key", key, "err", err)
		}
	}
	if err := rows.Err(); err != nil {
		return models.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return out, nil
}

// Save validates and writes every key.
func (s *Store) Save(ctx context.Context, st models.Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, f := range fields {
		if err := upsert(ctx, tx, f.key, f.format(st), now); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Set parses value for key, validates the resulting settings and stores it.
func (s *Store) Set(ctx context.Context, key, value string) (models.Settings, error) {
	f, ok := lookup(key)
	if !ok {
		return models.Settings{}, fmt.Errorf("%w: unknown key %q", models.ErrInvalidSettings, key)
	}

	current, err := s.Get(ctx)
	if err != nil {
		return models.Settings{}, err
	}
	if err := f.parse(&current, value); err != nil {
		return models.Settings{}, fmt.Errorf("%w: %s: %v", models.ErrInvalidSettings, key, err)
	}
	if err := current.Validate(); err != nil {
		return models.Settings{}, err
	}

	if err := upsert(ctx, s.db, key, f.format(current), time.Now().UTC()); err != nil {
		return models.Settings{}, err
	}
	return current, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, key, value string, now time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now,
	)
	if err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}

// Close releases the database connection if New opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

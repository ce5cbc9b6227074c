// Package workspace opens everything one user session needs from a config.
package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/hallmark-app/hallmark/pkg/config"
	"github.com/hallmark-app/hallmark/pkg/history"
	"github.com/hallmark-app/hallmark/pkg/pricecache"
	"github.com/hallmark-app/hallmark/pkg/pricecache/redis"
	"github.com/hallmark-app/hallmark/pkg/pricecache/sqlite"
	"github.com/hallmark-app/hallmark/pkg/provider"
	"github.com/hallmark-app/hallmark/pkg/settings"
)

var validUser = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Workspace holds one user's stores and the price cache built on them.
type Workspace struct {
	User     string
	Settings *settings.Store
	Prices   *pricecache.Cache
	History  *history.Archive
	Provider *provider.Client

	db *sql.DB
}

// DBPath returns the SQLite file for user under cfg.DataDir.
func DBPath(cfg *config.Config, user string) string {
	return filepath.Join(cfg.DataDir, user+".db")
}

// Open opens user's store and wires settings, prices, provider and history.
// An empty user means cfg.User.
func Open(ctx context.Context, cfg *config.Config, user string, logger *slog.Logger) (*Workspace, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if user == "" {
		user = cfg.User
	}
	if !validUser.MatchString(user) {
		return nil, fmt.Errorf("invalid user name %q", user)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", DBPath(cfg, user)+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open user db: %w", err)
	}

	ws, err := build(ctx, cfg, user, db, logger.With("user", user))
	if err != nil {
		db.Close()
		return nil, err
	}
	return ws, nil
}

func build(ctx context.Context, cfg *config.Config, user string, db *sql.DB, logger *slog.Logger) (*Workspace, error) {
	st, err := settings.NewFromDB(db, logger)
	if err != nil {
		return nil, err
	}
	hist, err := history.NewFromDB(db)
	if err != nil {
		return nil, err
	}

	var store pricecache.Store
	switch cfg.Store.Backend {
	case "", "sqlite":
		store, err = sqlite.NewFromDB(db)
	case "redis":
		r := cfg.Store.Redis
		store, err = redis.New(ctx, r.Addr, r.Password, r.DB, user)
	default:
		err = fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, err
	}

	client, err := provider.NewFromConfig(cfg.Providers, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Workspace{
		User:     user,
		Settings: st,
		Prices:   pricecache.New(store, client, pricecache.WithLogger(logger)),
		History:  hist,
		Provider: client,
		db:       db,
	}, nil
}

// Close releases the price store and the user database.
func (w *Workspace) Close() error {
	return errors.Join(w.Prices.Close(), w.db.Close())
}

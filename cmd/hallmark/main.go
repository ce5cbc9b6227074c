package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/hallmark-app/hallmark/pkg/config"
	"github.com/hallmark-app/hallmark/pkg/workspace"
)

var version = "dev"

const defaultConfigPath = "hallmark.yaml"

// globals are the flags shared by every subcommand.
type globals struct {
	configPath string
	user       string
}

func main() {
	g := &globals{}
	root := &cobra.Command{
		Use:           "hallmark",
		Short:         "Hallmark: metal spot prices and quotes for jewellers",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", defaultConfigPath, "path to config file")
	root.PersistentFlags().StringVarP(&g.user, "user", "u", "", "user whose settings and prices to use (default from config)")

	root.AddCommand(
		newPricesCmd(g),
		newQuoteCmd(g),
		newWorkshopCmd(g),
		newSettingsCmd(g),
		newHistoryCmd(g),
		newRingCmd(),
		newMCPCmd(g),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file. A missing default file means defaults.
func (g *globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if errors.Is(err, fs.ErrNotExist) && g.configPath == defaultConfigPath {
		return config.Default(), nil
	}
	return cfg, err
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// open loads config and opens the selected user's workspace.
func (g *globals) open(ctx context.Context) (*workspace.Workspace, *slog.Logger, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg)
	ws, err := workspace.Open(ctx, cfg, g.user, logger)
	if err != nil {
		return nil, nil, err
	}
	return ws, logger, nil
}

func parseDecimal(flag, v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: %q is not a number", flag, v)
	}
	return d, nil
}

package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"thinkpad-price-tracker/internal/config"
	"thinkpad-price-tracker/internal/scheduler"
	"thinkpad-price-tracker/internal/source"
	"thinkpad-price-tracker/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newSource() source.ListingSource {
	return source.NewBrowseClient(source.BrowseOptions{
		BaseURL:      a.Config.Ebay.BaseURL,
		AuthURL:      a.Config.Ebay.AuthURL,
		ClientID:     a.Config.Ebay.ClientID,
		ClientSecret: a.Config.Ebay.ClientSecret,
		CampaignID:   a.Config.Ebay.CampaignID,
		CategoryID:   a.Config.Ebay.CategoryID,
		Timeout:      a.Config.Ebay.RequestTimeout,
	}, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, errors.New("database.dsn not configured")
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running scheduled sync service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	src := a.newSource()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	a.Logger.Info().Msg("starting sync service")
	err = sched.Run(ctx, func(ctx context.Context, _ time.Time) error {
		return a.syncPass(ctx, store, src)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("sync service terminated with error")
		return err
	}

	a.Logger.Info().Msg("sync service stopped")
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting price history.
type ExportOptions struct {
	Slug      string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// RepairOptions configure the repair pass.
type RepairOptions struct {
	DryRun bool
}

// CleanupOptions configure the cleanup pass.
type CleanupOptions struct {
	DryRun bool
}

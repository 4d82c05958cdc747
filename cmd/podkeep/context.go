package main

import (
	"log/slog"
	"os"

	"podkeep/internal/config"
	"podkeep/internal/database"
	"podkeep/internal/directory"
	"podkeep/internal/feed"
	"podkeep/internal/logging"
	"podkeep/internal/progress"
	"podkeep/internal/reconcile"
)

// appContext lazily wires config, logger and store for the command that
// actually runs. Construction order is the composition root: nothing
// below cmd holds a global handle.
type appContext struct {
	configFlag *string

	cfg    *config.Config
	db     *database.DB
	logger *slog.Logger
}

func newAppContext(configFlag *string) *appContext {
	return &appContext{configFlag: configFlag}
}

func (a *appContext) ensure() error {
	if a.cfg != nil {
		return nil
	}

	path := *a.configFlag
	if path == "" {
		path = config.DefaultConfigPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		a.cfg = config.Default()
	} else {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	logger, err := logging.New(os.Stderr, logging.Options{
		Level:  a.cfg.Log.Level,
		Format: a.cfg.Log.Format,
	})
	if err != nil {
		return err
	}
	a.logger = logger

	db, err := database.New(a.cfg.Database.Path)
	if err != nil {
		return err
	}
	a.db = db
	return nil
}

func (a *appContext) close() {
	if a.db != nil {
		a.db.Close()
	}
}

// configPath returns the path used for loading and for saving back.
func (a *appContext) configPath() string {
	if *a.configFlag != "" {
		return *a.configFlag
	}
	return config.DefaultConfigPath()
}

func (a *appContext) reconciler() (*reconcile.Reconciler, error) {
	timeout, err := a.cfg.Feeds.GetHTTPTimeout()
	if err != nil {
		return nil, err
	}
	return reconcile.New(
		a.db,
		feed.NewFetcher(timeout),
		feed.NewParser(),
		feed.NewSanitizer(a.cfg.Feeds.DescriptionMaxLen),
		a.logger,
	), nil
}

func (a *appContext) directory() *directory.Client {
	return directory.NewClient(a.cfg.Directory.SearchURL, a.cfg.Directory.LookupURL, a.cfg.Directory.TopURL)
}

func (a *appContext) tracker() *progress.Tracker {
	return progress.NewTracker(a.db)
}

package server

import (
	"context"
	"fmt"
	"path/filepath"

	"posrecon/internal/config"
	"posrecon/internal/customer"
	"posrecon/internal/importer"
	"posrecon/internal/service/reconciler"
	"posrecon/internal/sheets"
	"posrecon/internal/source"
	"posrecon/internal/store"
)

// App the wired components shared by the HTTP server and the CLI commands.
type App struct {
	Config      *config.AppConfig
	DataDir     string
	Store       *store.Store
	Coordinator *importer.Coordinator
	Reconciler  *reconciler.Service
}

// NewApp opens the database and wires the run coordinator and the reconciler.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("prepare data dir: %w", err)
	}

	st, err := store.New(config.DBPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	directory, err := DirectoryLoader(ctx, cfg.Directory)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	src := source.NewDirSource(config.ReportDir(cfg))
	return &App{
		Config:      cfg,
		DataDir:     dataDir,
		Store:       st,
		Coordinator: importer.NewCoordinator(st, src, directory, cfg),
		Reconciler:  reconciler.New(st, cfg.Business, filepath.Join(dataDir, "uploads")),
	}, nil
}

// ExportDir where streamed exports wait for download.
func (a *App) ExportDir() string {
	return filepath.Join(a.DataDir, "exports")
}

// Close releases the database.
func (a *App) Close() error {
	return a.Store.Close()
}

// DirectoryLoader picks the customer directory source: a spreadsheet when an id is configured,
// otherwise a local workbook. Nil means no directory is configured.
func DirectoryLoader(ctx context.Context, cfg config.DirectoryConfig) (customer.Loader, error) {
	switch {
	case cfg.SpreadsheetID != "":
		client, err := sheets.NewClient(ctx, cfg.CredentialsFile, cfg.SpreadsheetID)
		if err != nil {
			return nil, fmt.Errorf("connect customer directory: %w", err)
		}
		return sheets.DirectoryLoader{Client: client, Sheet: cfg.SheetName}, nil
	case cfg.XLSXPath != "":
		return customer.XLSXLoader{Path: cfg.XLSXPath, Sheet: cfg.SheetName}, nil
	}
	return nil, nil
}

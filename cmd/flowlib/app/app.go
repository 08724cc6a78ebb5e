// Package app wires configuration, storage and the import service behind the
// flowlib command line.
package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rpattn/flowlib/internal/catalog"
	"github.com/rpattn/flowlib/internal/config"
	"github.com/rpattn/flowlib/internal/db"
	"github.com/rpattn/flowlib/internal/export"
	"github.com/rpattn/flowlib/internal/ingestion"
	"github.com/rpattn/flowlib/internal/logger"
	"github.com/rpattn/flowlib/internal/repository"
)

// App holds state shared by every subcommand.
type App struct {
	version    string
	configPath string
	cfg        config.Config
	logger     *zap.Logger
}

// New creates the application.
func New(version string) *App {
	return &App{version: version, logger: zap.NewNop()}
}

// Execute runs the CLI with args.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	defer func() { _ = a.logger.Sync() }()
	return rootCmd.ExecuteContext(ctx)
}

func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "flowlib",
		Short:   "FlowLib catalog import service",
		Version: a.version,
		Long: `flowlib bulk imports marketplace catalog data (templates, platforms,
categories, tools and agents) from CSV or XLSX files, with a dry run preview
before anything is written.`,
		PersistentPreRunE: a.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", ".", "directory containing config.yaml and .env")

	rootCmd.AddCommand(a.newServeCommand())
	rootCmd.AddCommand(a.newMigrateCommand())
	rootCmd.AddCommand(a.newImportCommand())
	rootCmd.AddCommand(a.newExportCommand())
	return rootCmd
}

func (a *App) setup(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = log
	return nil
}

// backend is the storage the service runs on.
type backend struct {
	service  *ingestion.Service
	exporter *export.Service
	ping     func(context.Context) error
	close    func()
}

func (a *App) openBackend(ctx context.Context) (*backend, error) {
	registryOpts := []catalog.Option{catalog.WithPlatforms(a.cfg.Import.Platforms)}
	serviceOpts := []ingestion.Option{
		ingestion.WithLogger(a.logger),
		ingestion.WithSheetFetcher(ingestion.NewSheetFetcher(
			ingestion.WithSheetTimeout(a.cfg.Import.SheetFetchTimeout),
			ingestion.WithSheetMaxBytes(a.cfg.Import.MaxSheetBytes),
		)),
	}

	if a.cfg.Database.Driver == config.DriverMemory {
		a.logger.Warn("using in-memory store; imported data is lost on exit")
		registry, err := catalog.NewStandardRegistry(repository.MemoryStores(), registryOpts...)
		if err != nil {
			return nil, err
		}
		serviceOpts = append(serviceOpts, ingestion.WithImportLog(repository.NewMemoryImportLog()))
		return &backend{
			service:  ingestion.NewService(registry, serviceOpts...),
			exporter: export.NewService(registry),
			ping:     func(context.Context) error { return nil },
			close:    func() {},
		}, nil
	}

	conn, err := db.NewConnection(ctx, a.cfg.Database.DB())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	registry, err := catalog.NewStandardRegistry(repository.PostgresStores(conn.Pool), registryOpts...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	serviceOpts = append(serviceOpts, ingestion.WithImportLog(repository.NewImportLogRepository(conn.Pool)))
	return &backend{
		service:  ingestion.NewService(registry, serviceOpts...),
		exporter: export.NewService(registry),
		ping:     conn.Ping,
		close:    conn.Close,
	}, nil
}

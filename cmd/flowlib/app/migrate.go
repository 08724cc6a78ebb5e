package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rpattn/flowlib/internal/config"
	"github.com/rpattn/flowlib/internal/db"
)

func (a *App) newMigrateCommand() *cobra.Command {
	var down int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Database.Driver != config.DriverPostgres {
				return fmt.Errorf("migrate requires database.driver %q", config.DriverPostgres)
			}
			conn, err := db.NewConnection(cmd.Context(), a.cfg.Database.DB())
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer conn.Close()

			var version uint
			if down > 0 {
				version, err = db.RollbackMigrations(conn.Pool, down)
			} else {
				version, err = db.RunMigrations(conn.Pool)
			}
			if err != nil {
				return err
			}
			a.logger.Info("migrations applied", zap.Uint("version", version))
			return nil
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "roll back this many migrations instead of applying")
	return cmd
}

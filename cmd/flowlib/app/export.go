package app

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rpattn/flowlib/internal/domain"
)

func (a *App) newExportCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:       "export <kind>",
		Short:     "Write stored records of a kind as an importable CSV",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kindNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := domain.ParseKind(args[0])
			if !ok {
				return fmt.Errorf("unknown kind %q", args[0])
			}
			be, err := a.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer be.close()

			var out io.Writer = cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer file.Close()
				out = file
			}

			rows, err := be.exporter.WriteCSV(cmd.Context(), kind, out)
			if err != nil {
				return err
			}
			a.logger.Info("catalog exported", zap.String("kind", kind.String()), zap.Int("rows", rows))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

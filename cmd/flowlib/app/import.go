package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpattn/flowlib/internal/domain"
	"github.com/rpattn/flowlib/internal/ingestion"
)

func (a *App) newImportCommand() *cobra.Command {
	var commit bool
	cmd := &cobra.Command{
		Use:   "import <kind> <file>",
		Short: "Preview or commit a local CSV/XLSX file",
		Example: `  flowlib import templates templates.csv           # dry run preview
  flowlib import templates templates.xlsx --commit # apply changes`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: kindNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := domain.ParseKind(args[0])
			if !ok {
				return fmt.Errorf("unknown kind %q (expected one of %s)", args[0], strings.Join(kindNames(), ", "))
			}
			be, err := a.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer be.close()
			return runImport(cmd.Context(), be.service, kind, args[1], commit, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&commit, "commit", false, "apply the changes instead of previewing them")
	return cmd
}

func runImport(ctx context.Context, service *ingestion.Service, kind domain.Kind, path string, commit bool, out io.Writer) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	req := ingestion.Request{Kind: kind, FileName: filepath.Base(path), Data: file}

	var result any
	if commit {
		result, err = service.Commit(ctx, req)
	} else {
		result, err = service.Preview(ctx, req)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func kindNames() []string {
	kinds := domain.AllKinds()
	names := make([]string, len(kinds))
	for i, kind := range kinds {
		names[i] = kind.String()
	}
	return names
}

package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"finanzen/internal/importer"
	"finanzen/internal/services"
)

func newImportCommand(a *app) *cobra.Command {
	var (
		format       string
		noCategorize bool
	)

	cmd := &cobra.Command{
		Use:   "import <file.csv>...",
		Short: "Import Volksbank or ING CSV exports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			publisher, cleanup := a.factory().Publisher(a.cfg)
			defer cleanup()

			imports := services.NewImportService(a.repo, importer.DefaultRegistry(), publisher)
			categorizer := services.NewCategorizationService(a.repo)
			out := cmd.OutOrStdout()

			for _, path := range args {
				if err := importer.CheckFilename(path); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				raw, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}
				if int64(len(raw)) > a.cfg.MaxUploadBytes {
					return fmt.Errorf("%s: file exceeds %d bytes", path, a.cfg.MaxUploadBytes)
				}
				content, err := importer.DecodeUpload(raw)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}

				imp, err := imports.Import(cmd.Context(), content, filepath.Base(path), format)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %d neu, %d Duplikate, %d Fehler (%s, Import #%d)\n",
					imp.Filename, imp.TransactionsNew, imp.TransactionsDuplicate, imp.TransactionsError, imp.Format, imp.ID)

				if noCategorize || imp.TransactionsNew == 0 {
					continue
				}
				n, err := categorizer.ApplyToAllUncategorized(cmd.Context())
				if err != nil {
					return fmt.Errorf("categorizing: %w", err)
				}
				fmt.Fprintf(out, "%d Transaktionen kategorisiert\n", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "auto", "bank format: auto, volksbank or ing")
	cmd.Flags().BoolVar(&noCategorize, "no-categorize", false, "skip applying categorization rules after import")
	return cmd
}

func newImportsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "imports",
		Short: "List the most recent imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := services.NewImportService(a.repo, nil, nil).History(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, imp := range history {
				exported := "-"
				if imp.ExportedAt != nil {
					exported = imp.ExportedAt.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(out, "#%d\t%s\t%s\t%s\t%d/%d neu\t%s\texportiert: %s\n",
					imp.ID, imp.ImportDate.Format("2006-01-02 15:04"), imp.Format, imp.Filename,
					imp.TransactionsNew, imp.TransactionsTotal, imp.Status, exported)
			}
			return nil
		},
	}
}

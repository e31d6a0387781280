package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"finanzen/internal/services"
	"finanzen/internal/worker"
)

func newRulesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization rules",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "apply",
		Short: "Apply the active rules to all uncategorized transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := services.NewCategorizationService(a.repo).ApplyToAllUncategorized(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d Transaktionen kategorisiert\n", n)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := services.NewCategorizationService(a.repo).ListRules(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range rules {
				state := "aktiv"
				if !r.IsActive {
					state = "inaktiv"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "#%d\t%d\t%s\t-> Kategorie %d\t%s\n",
					r.ID, r.Priority, r.Name, r.AssignCategoryID, state)
			}
			return nil
		},
	})
	return cmd
}

func newCategoriesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init-defaults",
		Short: "Create the default category tree in an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, created, err := services.NewCategoryService(a.repo).InitDefaults(cmd.Context())
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Standardkategorien erstellt (%d)\n", count)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Kategorien existieren bereits (%d)\n", count)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories by full path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := services.NewCategoryService(a.repo).Flat(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range cats {
				fmt.Fprintf(cmd.OutOrStdout(), "#%d\t%s\t%d\n", c.ID, c.FullPath, c.TransactionCount)
			}
			return nil
		},
	})
	return cmd
}

func newProfilesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage household profiles",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "ensure-admin",
		Short: "Create the admin profile and assign unowned accounts to it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, err := services.NewProfileService(a.repo).EnsureAdmin(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Admin-Profil #%d (%s)\n", admin.ID, admin.Name)
			return nil
		},
	})
	return cmd
}

func newExportCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export imported transactions to the configured spreadsheet",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "pending",
		Short: "Export every import that has not been exported yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exporter, err := a.factory().Exporter(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			if exporter == nil {
				return fmt.Errorf("no export backend configured (set EXPORT_BACKEND)")
			}
			w := worker.NewExportWorker(a.repo, exporter, a.cfg.ExportBatchSize)
			total := 0
			for {
				n, err := w.ProcessPendingImports(cmd.Context())
				if err != nil {
					return err
				}
				if n == 0 {
					break
				}
				total += n
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d Importe exportiert\n", total)
			return nil
		},
	})
	return cmd
}

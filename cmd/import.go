package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agrozem/landsync/internal/dataset"
	"github.com/agrozem/landsync/internal/store"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Migrate a legacy extraction-results file into the store",
	Long: `Convert the flat JSON results file produced by the earlier tooling into
enrichment-cache rows and ledger entries. Records already present in the
cache are skipped, so the command is safe to re-run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		report, err := dataset.ImportLegacy(ctx, importFile, st)
		if err != nil {
			return err
		}

		fmt.Printf("Import complete: %d read, %d imported, %d already present\n",
			report.Read, report.Imported, report.Duplicate)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "data/extraction_results.json", "legacy results file to import")
	rootCmd.AddCommand(importCmd)
}

package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/agrozem/landsync/internal/dataset"
	"github.com/agrozem/landsync/internal/model"
	"github.com/agrozem/landsync/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dataset and store counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ds, err := dataset.Load(cfg.Dataset.Path)
		if err != nil {
			return err
		}

		var validated, fallback, unresolved, unextracted int
		for _, o := range ds.Offers {
			switch {
			case o.Reference == nil:
				unextracted++
			case o.Reference.Kind == model.ReferenceValidated:
				validated++
			case o.Reference.Kind == model.ReferenceContextFallback:
				fallback++
			default:
				unresolved++
			}
		}

		fmt.Printf("Dataset: %d offers\n", len(ds.Offers))
		fmt.Printf("  validated:        %d\n", validated)
		fmt.Printf("  context fallback: %d\n", fallback)
		fmt.Printf("  unresolved:       %d\n", unresolved)
		fmt.Printf("  not extracted:    %d\n", unextracted)

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		processed, err := st.CountProcessed(ctx)
		if err != nil {
			return eris.Wrap(err, "status: count processed")
		}
		enrichments, err := st.CountEnrichments(ctx)
		if err != nil {
			return eris.Wrap(err, "status: count enrichments")
		}
		geometries, err := st.CountGeometries(ctx)
		if err != nil {
			return eris.Wrap(err, "status: count geometries")
		}

		fmt.Printf("Store (%s):\n", cfg.Store.Driver)
		fmt.Printf("  processed:   %d\n", processed)
		fmt.Printf("  enrichments: %d\n", enrichments)
		fmt.Printf("  geometries:  %d\n", geometries)
		if enrichments > processed {
			fmt.Printf("  note: %d cached results are not yet marked processed; the next enrich run repairs this\n",
				enrichments-processed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

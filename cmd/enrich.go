package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agrozem/landsync/internal/dataset"
	"github.com/agrozem/landsync/internal/model"
	"github.com/agrozem/landsync/internal/ocr"
	"github.com/agrozem/landsync/internal/pipeline"
	"github.com/agrozem/landsync/internal/store"
	"github.com/agrozem/landsync/pkg/euprava"
)

var (
	enrichForce   bool
	enrichLimit   int
	enrichWorkers int
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Derive structured data from offer documents",
	Long: `Incrementally enrich offers: download each unprocessed offer's attached
document, extract its text, derive parcels, price, area and buyer status,
and cache the result. Offers already processed are skipped; failures stay
unprocessed and are retried on the next run.

--force re-derives offers that already have a cached result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "enrich"))

		ds, err := dataset.Load(cfg.Dataset.Path)
		if err != nil {
			return err
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		textExtractor, err := ocr.NewExtractor(cfg.OCR)
		if err != nil {
			return err
		}

		client := euprava.New(cfg.Feed)
		source := euprava.NewDocumentSource(client, ds.Offers)
		deriver := pipeline.NewDocumentDeriver(textExtractor)

		workers := cfg.Enrich.Workers
		if enrichWorkers > 0 {
			workers = enrichWorkers
		}

		offers := ds.Offers
		if enrichLimit > 0 && enrichLimit < len(offers) {
			offers = offers[:enrichLimit]
		}

		coord := pipeline.NewCoordinator(st, source, deriver, pipeline.Options{
			Workers:     workers,
			MinInterval: cfg.Enrich.MinInterval(),
			Force:       enrichForce,
		})

		report, err := coord.Run(ctx, offers)
		if err != nil {
			return eris.Wrap(err, "enrich")
		}

		printReport(report)
		log.Info("enrich run finished", zap.String("run_id", report.ID))
		return nil
	},
}

func printReport(r *model.RunReport) {
	fmt.Printf("Run %s (%s): %d selected, %d skipped, %d succeeded, %d failed\n",
		r.ID, r.Kind, r.Selected, r.Skipped, r.Succeeded, r.Failed)
	for _, f := range r.Failures {
		fmt.Printf("  %s [%s]: %s\n", f.EntityID, f.Stage, f.Cause)
	}
}

func init() {
	enrichCmd.Flags().BoolVar(&enrichForce, "force", false, "re-derive offers that already have a cached result")
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 0, "process at most N offers (0 = all)")
	enrichCmd.Flags().IntVar(&enrichWorkers, "workers", 0, "override configured worker count")
	rootCmd.AddCommand(enrichCmd)
}

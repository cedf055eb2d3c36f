package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agrozem/landsync/internal/catalog"
	"github.com/agrozem/landsync/internal/dataset"
	"github.com/agrozem/landsync/internal/extract"
	"github.com/agrozem/landsync/internal/model"
)

var extractReextract bool

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Resolve cadastral references across the dataset",
	Long: `Run the extraction strategies over every offer in the dataset and
validate candidates against the official cadastral-municipality register.
Offers that already carry a reference are skipped unless --re-extract is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := zap.L().With(zap.String("command", "extract"))

		cat, err := catalog.LoadFile(cfg.Catalog.Path)
		if err != nil {
			return err
		}

		ds, err := dataset.Load(cfg.Dataset.Path)
		if err != nil {
			return err
		}

		extractor := extract.New(cat)

		var validated, fallback, unresolved, skipped int
		for i := range ds.Offers {
			o := &ds.Offers[i]
			if o.Reference != nil && !extractReextract {
				skipped++
				continue
			}
			ref := extractor.Extract(*o)
			o.Reference = &ref

			switch ref.Kind {
			case model.ReferenceValidated:
				validated++
			case model.ReferenceContextFallback:
				fallback++
			default:
				unresolved++
			}
		}

		if err := dataset.Save(cfg.Dataset.Path, ds); err != nil {
			return err
		}

		log.Info("extraction complete",
			zap.Int("validated", validated),
			zap.Int("fallback", fallback),
			zap.Int("unresolved", unresolved),
			zap.Int("skipped", skipped),
		)
		fmt.Printf("Extraction complete: %d validated, %d context fallback, %d unresolved, %d skipped\n",
			validated, fallback, unresolved, skipped)
		return nil
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractReextract, "re-extract", false, "re-run extraction for offers that already have a reference")
	rootCmd.AddCommand(extractCmd)
}

package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/agrozem/landsync/internal/dataset"
	"github.com/agrozem/landsync/pkg/euprava"
)

var syncOnlyNew bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch current listings into the dataset",
	Long: `Fetch the bulletin-board feed, merge agricultural land offers into the
local dataset, and scrape detail pages for offers that lack metadata.

By default every merged offer missing a document URL gets a detail fetch;
use --only-new to restrict detail fetches to newly discovered offers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "sync"))

		ds, err := dataset.Load(cfg.Dataset.Path)
		if err != nil {
			return err
		}

		client := euprava.New(cfg.Feed)
		fresh, err := client.FetchListings(ctx)
		if err != nil {
			return eris.Wrap(err, "sync: fetch listings")
		}

		known := make(map[string]bool, len(ds.Offers))
		for _, o := range ds.Offers {
			known[o.ID] = true
		}
		added := dataset.Merge(ds, fresh)

		// Detail pages are scraped politely, one per second.
		limiter := rate.NewLimiter(rate.Every(cfg.Enrich.MinInterval()), 1)
		detailed, failed := 0, 0
		for i := range ds.Offers {
			o := &ds.Offers[i]
			if syncOnlyNew && known[o.ID] {
				continue
			}
			if o.DocumentURL != "" && o.RawText != "" {
				continue
			}
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			if err := client.FetchDetail(ctx, o); err != nil {
				failed++
				log.Warn("detail fetch failed", zap.String("offer", o.ID), zap.Error(err))
				continue
			}
			detailed++
		}

		if err := dataset.Save(cfg.Dataset.Path, ds); err != nil {
			return err
		}

		fmt.Printf("Sync complete: %d offers (%d new), %d details fetched, %d failed\n",
			len(ds.Offers), added, detailed, failed)
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncOnlyNew, "only-new", false, "only fetch detail pages for newly discovered offers")
	rootCmd.AddCommand(syncCmd)
}

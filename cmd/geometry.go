package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agrozem/landsync/internal/dataset"
	"github.com/agrozem/landsync/internal/geomexport"
	"github.com/agrozem/landsync/internal/pipeline"
	"github.com/agrozem/landsync/internal/store"
	"github.com/agrozem/landsync/pkg/gurs"
)

var geometryWorkers int

var geometryCmd = &cobra.Command{
	Use:   "geometry",
	Short: "Fetch official parcel geometry for enriched offers",
	Long: `Fetch parcel polygons from the geodetic administration for every
parcel derived so far whose offer has a validated cadastral reference.
Parcels already in the geometry cache are skipped; geometry is never
re-fetched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "geometry"))

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

		workers := cfg.Geometry.Workers
		if geometryWorkers > 0 {
			workers = geometryWorkers
		}

		coord := pipeline.NewGeometryCoordinator(st, gurs.New(cfg.GURS), pipeline.Options{
			Workers:     workers,
			MinInterval: cfg.Geometry.MinInterval(),
		})

		report, err := coord.Run(ctx, ds.Offers)
		if err != nil {
			return eris.Wrap(err, "geometry")
		}

		printReport(report)
		log.Info("geometry run finished", zap.String("run_id", report.ID))
		return nil
	},
}

var geometryExportOut string

var geometryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export cached geometries as a shapefile",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		geometries, err := st.ListGeometries(ctx)
		if err != nil {
			return eris.Wrap(err, "geometry export")
		}
		if len(geometries) == 0 {
			fmt.Println("No cached geometries to export")
			return nil
		}

		written, err := geomexport.WriteShapefile(geometryExportOut, geometries)
		if err != nil {
			return err
		}

		fmt.Printf("Exported %d parcels to %s\n", written, geometryExportOut)
		return nil
	},
}

func init() {
	geometryCmd.Flags().IntVar(&geometryWorkers, "workers", 0, "override configured worker count")
	geometryExportCmd.Flags().StringVar(&geometryExportOut, "out", "data/parcels.shp", "output shapefile path")
	geometryCmd.AddCommand(geometryExportCmd)
	rootCmd.AddCommand(geometryCmd)
}

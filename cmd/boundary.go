package main

import (
	"net/http"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geoforge/mapcli/internal/boundary"
)

var (
	boundaryRegion   string
	boundaryLevel    int
	boundaryOutput   string
	boundaryDir      string
	boundaryFetchURL string
)

var boundaryCmd = &cobra.Command{
	Use:   "boundary",
	Short: "Extract an administrative boundary as GeoJSON",
	Long:  "Reads boundary geometry for a region from a local shapefile pack, optionally downloading the pack first, and writes it as a GeoJSON feature.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		dir := boundaryDir
		if dir == "" {
			dir = cfg.Boundary.Dir
		}

		if boundaryFetchURL != "" {
			extracted, err := boundary.Download(ctx, http.DefaultClient, boundaryFetchURL, dir)
			if err != nil {
				return err
			}
			dir = extracted
			zap.L().Info("downloaded boundary pack", zap.String("dir", dir))
		}

		src := boundary.NewShapefileSource(dir,
			boundary.WithIDField(cfg.Boundary.IDField),
			boundary.WithNameField(cfg.Boundary.NameField),
		)

		geometry, err := src.Boundary(ctx, boundaryRegion, boundaryLevel)
		if err != nil {
			if eris.Is(err, boundary.ErrNotFound) {
				return eris.Errorf("region %q not found at level %d in %s", boundaryRegion, boundaryLevel, dir)
			}
			return err
		}

		geojson, err := geometry.GeoJSON()
		if err != nil {
			return err
		}
		if err := os.WriteFile(boundaryOutput, append(geojson, '\n'), 0o644); err != nil {
			return eris.Wrap(err, "write geojson")
		}

		zap.L().Info("boundary written",
			zap.String("region", geometry.RegionID),
			zap.String("name", geometry.Name),
			zap.String("output", boundaryOutput),
		)
		return nil
	},
}

func init() {
	boundaryCmd.Flags().StringVar(&boundaryRegion, "region", "", "region identifier, e.g. USA-IL (required)")
	boundaryCmd.Flags().IntVar(&boundaryLevel, "level", 1, "administrative level (0=country, 1=state, 2=county)")
	boundaryCmd.Flags().StringVar(&boundaryOutput, "output", "", "output GeoJSON path (required)")
	boundaryCmd.Flags().StringVar(&boundaryDir, "dir", "", "shapefile pack directory (default from config)")
	boundaryCmd.Flags().StringVar(&boundaryFetchURL, "fetch", "", "download and extract a zipped shapefile pack from this URL first")
	_ = boundaryCmd.MarkFlagRequired("region")
	_ = boundaryCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(boundaryCmd)
}

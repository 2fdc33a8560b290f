package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geoforge/mapcli/internal/basemap"
	"github.com/geoforge/mapcli/internal/boundary"
	"github.com/geoforge/mapcli/internal/loader"
	"github.com/geoforge/mapcli/internal/pipeline"
	"github.com/geoforge/mapcli/internal/render"
)

var (
	renderInput     string
	renderLayers    string
	renderOutput    string
	renderFormat    string
	renderBasemap   string
	renderZoom      int
	renderCenterLat float64
	renderCenterLon float64
	renderTitle     string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Load, resolve, compose, and render a map",
	Long:  "Runs the full pipeline: loads records, resolves coordinates, applies the layer definitions, and writes the rendered map.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		defs, err := pipeline.LoadLayerDefs(renderLayers)
		if err != nil {
			return err
		}

		format := renderFormat
		if format == "" {
			format = cfg.Render.Format
		}
		var renderer render.Renderer
		switch format {
		case "html":
			title := renderTitle
			if title == "" {
				title = cfg.Render.Title
			}
			renderer = render.NewLeaflet(render.WithTitle(title))
		case "json":
			renderer = render.NewJSON()
		default:
			return eris.Errorf("unknown output format %q (expected html or json)", format)
		}

		client, cleanup, err := newGeocodeClient(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		boundaries := boundary.NewShapefileSource(cfg.Boundary.Dir,
			boundary.WithIDField(cfg.Boundary.IDField),
			boundary.WithNameField(cfg.Boundary.NameField),
		)

		p := pipeline.New(
			newResolver(client),
			renderer,
			pipeline.WithBoundarySource(boundaries),
		)

		result, err := p.Run(ctx, pipeline.Request{
			Source: loader.Source{Path: renderInput},
			Basemap: basemap.Descriptor{
				Provider:  pickString(renderBasemap, cfg.Render.Basemap),
				CenterLat: pickFloat(renderCenterLat, cfg.Render.CenterLat),
				CenterLon: pickFloat(renderCenterLon, cfg.Render.CenterLon),
				Zoom:      pickInt(renderZoom, cfg.Render.Zoom),
			},
			Layers:     defs,
			OutputPath: renderOutput,
		})
		if err != nil {
			return err
		}

		if !result.Resolve.Empty() {
			zap.L().Warn("some records could not be resolved",
				zap.Int("failed_records", result.Resolve.FailedRecords),
				zap.Int("distinct_places", len(result.Resolve.Failures)),
			)
			for _, f := range result.Resolve.Failures {
				zap.L().Warn("unresolved place", zap.String("place", f.Place), zap.String("reason", f.Reason))
			}
		}
		if !result.Compose.Empty() {
			for _, ex := range result.Compose.Exclusions {
				zap.L().Warn("layer excluded records",
					zap.String("layer", ex.Layer),
					zap.Int("excluded", ex.Excluded),
				)
			}
			for _, name := range result.Compose.EmptyDensityLayers {
				zap.L().Warn("density layer rendered empty", zap.String("layer", name))
			}
		}

		zap.L().Info("render complete",
			zap.String("run_id", result.RunID),
			zap.Int("records", result.Records),
			zap.String("output", renderOutput),
		)
		return nil
	},
}

func pickString(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

func pickFloat(flag, fallback float64) float64 {
	if flag != 0 {
		return flag
	}
	return fallback
}

func pickInt(flag, fallback int) int {
	if flag != 0 {
		return flag
	}
	return fallback
}

func init() {
	renderCmd.Flags().StringVar(&renderInput, "input", "", "input data file or URL (required)")
	renderCmd.Flags().StringVar(&renderLayers, "layers", "", "layer definition YAML file (required)")
	renderCmd.Flags().StringVar(&renderOutput, "output", "", "output file path (required)")
	renderCmd.Flags().StringVar(&renderFormat, "format", "", "output format: html or json (default from config)")
	renderCmd.Flags().StringVar(&renderBasemap, "basemap", "", "basemap provider (default from config)")
	renderCmd.Flags().IntVar(&renderZoom, "zoom", 0, "initial zoom level (default from config)")
	renderCmd.Flags().Float64Var(&renderCenterLat, "center-lat", 0, "map center latitude (default from config)")
	renderCmd.Flags().Float64Var(&renderCenterLon, "center-lon", 0, "map center longitude (default from config)")
	renderCmd.Flags().StringVar(&renderTitle, "title", "", "HTML document title (default from config)")
	_ = renderCmd.MarkFlagRequired("input")
	_ = renderCmd.MarkFlagRequired("layers")
	_ = renderCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(renderCmd)
}

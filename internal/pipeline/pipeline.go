// Package pipeline chains the loader, resolver, filter, composer, and
// renderer into one run with staged timing and accumulated warnings.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geoforge/mapcli/internal/basemap"
	"github.com/geoforge/mapcli/internal/boundary"
	"github.com/geoforge/mapcli/internal/compose"
	"github.com/geoforge/mapcli/internal/filter"
	"github.com/geoforge/mapcli/internal/loader"
	"github.com/geoforge/mapcli/internal/model"
	"github.com/geoforge/mapcli/internal/render"
	"github.com/geoforge/mapcli/internal/resolve"
)

// Pipeline holds the collaborators shared across runs. Boundaries may be
// nil when no polygon layers are expected.
type Pipeline struct {
	resolver   *resolve.Resolver
	boundaries boundary.Source
	renderer   render.Renderer
	composeOpt []compose.BuilderOption
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBoundarySource supplies boundary geometry for polygon layers.
func WithBoundarySource(src boundary.Source) Option {
	return func(p *Pipeline) { p.boundaries = src }
}

// WithComposeOptions forwards options to the layer builder.
func WithComposeOptions(opts ...compose.BuilderOption) Option {
	return func(p *Pipeline) { p.composeOpt = opts }
}

// New creates a Pipeline.
func New(resolver *resolve.Resolver, renderer render.Renderer, opts ...Option) *Pipeline {
	p := &Pipeline{
		resolver: resolver,
		renderer: renderer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Request describes one pipeline run.
type Request struct {
	Source     loader.Source
	Basemap    basemap.Descriptor
	Layers     []LayerDef
	OutputPath string
}

// StageResult records one stage's outcome.
type StageResult struct {
	Name     string `json:"name"`
	Duration int64  `json:"duration_ms"`
	Status   string `json:"status"`
}

// Result is the outcome of a completed run, including the non-fatal
// warnings each stage surfaced.
type Result struct {
	RunID      string            `json:"run_id"`
	Records    int               `json:"records"`
	OutputPath string            `json:"output_path"`
	Stages     []StageResult     `json:"stages"`
	Resolve    *resolve.Warnings `json:"resolve_warnings,omitempty"`
	Compose    *compose.Warnings `json:"compose_warnings,omitempty"`
}

// Run executes load, resolve, compose, and render for one request. The
// first stage error aborts the run; warnings accumulate across stages and
// never do.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	result := &Result{
		RunID:      uuid.NewString(),
		OutputPath: req.OutputPath,
	}
	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.String("run_id", result.RunID),
	)
	log.Info("starting run", zap.String("source", req.Source.Path))

	trackStage := func(name string, fn func() error) error {
		start := time.Now()
		err := fn()
		duration := time.Since(start).Milliseconds()

		status := "ok"
		if err != nil {
			status = "failed"
			log.Error("stage failed",
				zap.String("stage", name),
				zap.Int64("duration_ms", duration),
				zap.Error(err),
			)
		} else {
			log.Info("stage complete",
				zap.String("stage", name),
				zap.Int64("duration_ms", duration),
			)
		}
		result.Stages = append(result.Stages, StageResult{Name: name, Duration: duration, Status: status})
		if err != nil {
			return eris.Wrapf(err, "pipeline: stage %s", name)
		}
		return nil
	}

	var rs *model.RecordSet
	if err := trackStage("load", func() error {
		var err error
		rs, err = loader.Load(ctx, req.Source)
		return err
	}); err != nil {
		return result, err
	}
	result.Records = rs.Len()

	if err := trackStage("resolve", func() error {
		var err error
		rs, result.Resolve, err = p.resolver.Resolve(ctx, rs)
		return err
	}); err != nil {
		return result, err
	}

	var spec *compose.MapSpec
	if err := trackStage("compose", func() error {
		var err error
		spec, result.Compose, err = p.composeLayers(ctx, req, rs)
		return err
	}); err != nil {
		return result, err
	}

	if err := trackStage("render", func() error {
		return p.renderer.Render(ctx, *spec, req.OutputPath)
	}); err != nil {
		return result, err
	}

	log.Info("run complete",
		zap.Int("records", result.Records),
		zap.String("output", req.OutputPath),
	)
	return result, nil
}

// composeLayers materializes each layer definition against the resolved
// record set and builds the MapSpec.
func (p *Pipeline) composeLayers(ctx context.Context, req Request, rs *model.RecordSet) (*compose.MapSpec, *compose.Warnings, error) {
	builder, err := compose.NewBuilder(req.Basemap, p.composeOpt...)
	if err != nil {
		return nil, nil, err
	}

	for _, def := range req.Layers {
		if err := def.Validate(); err != nil {
			return nil, nil, err
		}

		subset := rs
		if def.Filter != nil {
			pred, err := filter.Compile(*def.Filter)
			if err != nil {
				return nil, nil, eris.Wrapf(err, "pipeline: layer %s", def.Name)
			}
			subset = filter.Apply(rs, pred)
		}

		var opts []compose.LayerOption
		if def.Group != "" {
			opts = append(opts, compose.WithGroup(def.Group))
		}
		if len(def.PopupFields) > 0 {
			opts = append(opts, compose.WithPopup(compose.FieldPopup(def.PopupFields...)))
		}

		switch compose.Kind(def.Kind) {
		case compose.KindPoint:
			builder.AddPointLayer(def.Name, subset, compose.Style(def.Style), opts...)
		case compose.KindDensity:
			builder.AddDensityLayer(def.Name, subset, compose.Style(def.Style), opts...)
		case compose.KindPolygon:
			if p.boundaries == nil {
				return nil, nil, eris.Errorf("pipeline: layer %s requires a boundary source", def.Name)
			}
			geometry, err := p.boundaries.Boundary(ctx, def.Region, def.Level)
			if err != nil {
				return nil, nil, eris.Wrapf(err, "pipeline: layer %s", def.Name)
			}
			if err := builder.AddPolygonLayer(def.Name, geometry, compose.Style(def.Style), opts...); err != nil {
				return nil, nil, err
			}
		}
	}

	return builder.Build()
}

// Package resolve fills in missing record coordinates through an external
// geocoding client, deduplicating lookups by normalized place name.
package resolve

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/geoforge/mapcli/internal/model"
	"github.com/geoforge/mapcli/pkg/geocode"
)

const (
	defaultWorkers    = 4
	defaultPlaceField = "place"
)

// Options configures a resolution pass. Zero values take the defaults
// noted per field.
type Options struct {
	// LatField/LonField name the source columns holding explicit
	// coordinates. Records with non-null values in both skip geocoding.
	// Default "latitude"/"longitude".
	LatField string
	LonField string
	// PlaceField names the free-text place column used for lookup when
	// explicit coordinates are absent. Default "place".
	PlaceField string
	// Workers bounds concurrent geocoding calls. Defaults to 4.
	Workers int
}

// Failure describes one place name that could not be resolved.
type Failure struct {
	Place  string
	Reason string
}

// Warnings is the non-fatal outcome batch of a resolution pass. The run
// always continues; the caller decides what to do with unresolved rows.
type Warnings struct {
	// FailedRecords counts records left with null coordinates.
	FailedRecords int
	// Failures lists distinct failing place names with reasons.
	Failures []Failure
}

// Empty reports whether the pass completed without failures.
func (w *Warnings) Empty() bool {
	return w == nil || (w.FailedRecords == 0 && len(w.Failures) == 0)
}

// Resolver resolves record coordinates via a geocoding client.
type Resolver struct {
	client geocode.Client
	opts   Options
}

// New creates a Resolver.
func New(client geocode.Client, opts Options) *Resolver {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.LatField == "" {
		opts.LatField = model.FieldLatitude
	}
	if opts.LonField == "" {
		opts.LonField = model.FieldLongitude
	}
	if opts.PlaceField == "" {
		opts.PlaceField = defaultPlaceField
	}
	return &Resolver{client: client, opts: opts}
}

// lookupOutcome is the per-run cache entry for one normalized place name.
type lookupOutcome struct {
	result *geocode.Result
	errMsg string
}

// Resolve returns a new RecordSet where every record carries best-effort
// latitude/longitude fields, plus the accumulated warning batch. Row order
// is preserved. Only context cancellation is a fatal error; individual
// lookup failures leave null coordinates and never abort the batch.
func (r *Resolver) Resolve(ctx context.Context, rs *model.RecordSet) (*model.RecordSet, *Warnings, error) {
	log := zap.L().With(zap.String("component", "resolver"))
	warnings := &Warnings{}

	// Pass 1: classify rows and collect distinct place names needing lookup.
	type rowState struct {
		lat, lon float64
		hasCoord bool
		place    string
		key      string
	}
	states := make([]rowState, rs.Len())
	pending := make(map[string]string) // normalized key -> first-seen raw place

	for i, rec := range rs.Records {
		st := &states[i]

		lat, latOK := rec.GetFloat(r.opts.LatField)
		lon, lonOK := rec.GetFloat(r.opts.LonField)
		if latOK && lonOK {
			if err := model.ValidateCoordinate(lat, lon); err != nil {
				log.Warn("explicit coordinates out of range, treating as missing",
					zap.Int("row", rec.Index),
					zap.Float64("lat", lat),
					zap.Float64("lon", lon),
				)
			} else {
				st.lat, st.lon, st.hasCoord = lat, lon, true
				continue
			}
		}

		if r.opts.PlaceField == "" {
			continue
		}
		place := rec.GetString(r.opts.PlaceField)
		if place == "" {
			continue
		}
		st.place = place
		st.key = geocode.CacheKey(place)
		if _, seen := pending[st.key]; !seen {
			pending[st.key] = place
		}
	}

	// Pass 2: one geocoding call per distinct normalized name. Keys are
	// deduplicated before dispatch, so each cache entry is written exactly
	// once regardless of completion order.
	outcomes := make(map[string]lookupOutcome, len(pending))
	var mu sync.Mutex

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.opts.Workers)
	for key, place := range pending {
		eg.Go(func() error {
			result, err := r.client.Geocode(gCtx, place)

			out := lookupOutcome{result: result}
			if err != nil {
				out.errMsg = err.Error()
			} else if result != nil && result.Matched {
				if vErr := model.ValidateCoordinate(result.Latitude, result.Longitude); vErr != nil {
					out.result = nil
					out.errMsg = vErr.Error()
				}
			}

			mu.Lock()
			outcomes[key] = out
			mu.Unlock()
			return nil //nolint:nilerr // lookup failures are warnings, not batch errors
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	// Pass 3: assemble output in original row order.
	out := model.NewRecordSet(nil)
	out.Columns = rs.WithColumns(model.FieldLatitude, model.FieldLongitude)
	failedPlaces := make(map[string]string) // place -> reason

	for i, rec := range rs.Records {
		st := states[i]
		clone := rec.Clone()

		switch {
		case st.hasCoord:
			clone.Fields[model.FieldLatitude] = st.lat
			clone.Fields[model.FieldLongitude] = st.lon
		case st.key != "":
			o := outcomes[st.key]
			if o.errMsg == "" && o.result != nil && o.result.Matched {
				clone.Fields[model.FieldLatitude] = o.result.Latitude
				clone.Fields[model.FieldLongitude] = o.result.Longitude
			} else {
				clone.Fields[model.FieldLatitude] = nil
				clone.Fields[model.FieldLongitude] = nil
				warnings.FailedRecords++
				reason := o.errMsg
				if reason == "" {
					reason = "not found"
				}
				failedPlaces[st.place] = reason
			}
		default:
			clone.Fields[model.FieldLatitude] = nil
			clone.Fields[model.FieldLongitude] = nil
			warnings.FailedRecords++
		}

		out.Append(clone)
	}

	places := make([]string, 0, len(failedPlaces))
	for p := range failedPlaces {
		places = append(places, p)
	}
	sort.Strings(places)
	for _, p := range places {
		warnings.Failures = append(warnings.Failures, Failure{Place: p, Reason: failedPlaces[p]})
	}

	log.Info("resolution complete",
		zap.Int("records", rs.Len()),
		zap.Int("lookups", len(pending)),
		zap.Int("failed_records", warnings.FailedRecords),
	)
	return out, warnings, nil
}

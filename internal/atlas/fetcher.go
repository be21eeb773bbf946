package atlas

import (
	"context"
	"errors"
	"log"

	"github.com/DistrictAtlas/DA-Backend/internal/atlas/source"
	"github.com/paulmach/orb"
)

// ErrNotFound is the terminal per-district failure: every strategy was
// exhausted. Callers drop the district from their output; it is never
// fatal to a batch.
var ErrNotFound = errors.New("district shape not found")

const (
	// legacyBulkVintage is the newest cycle still distributed as one
	// multi-district file per state. Later cycles have per-district
	// records.
	legacyBulkVintage = 1992

	// maxPlausibleSpanDeg bounds a single district's extent in degrees
	// on either axis. A nationwide collection mislabeled as a district
	// spans well over 100 degrees of longitude and must never render
	// as one seat.
	maxPlausibleSpanDeg = 90.0
)

// GeometrySource is the upstream the fetcher pulls geometry from. The
// production implementation is source.Client; tests substitute fakes.
type GeometrySource interface {
	DistrictGeometry(ctx context.Context, vintage int, state, label string) (orb.Geometry, error)
	StateCollection(ctx context.Context, vintage int, state string) ([]source.DistrictFeature, error)
	StateOutline(ctx context.Context, state string) (orb.Geometry, error)
}

// Fetcher resolves one district code to a geometry through an ordered
// strategy chain, consulting and feeding the shared shape cache.
type Fetcher struct {
	source GeometrySource
	cache  *ShapeCache
}

func NewFetcher(src GeometrySource, cache *ShapeCache) *Fetcher {
	return &Fetcher{source: src, cache: cache}
}

// Cache exposes the fetcher's shape cache for status reporting.
func (f *Fetcher) Cache() *ShapeCache { return f.cache }

// strategy is one named step of the resolution chain. A nil shape with
// a nil error means the step does not apply to this code/vintage.
type strategy struct {
	name string
	run  func(ctx context.Context, code DistrictCode, vintage int) (*ResolvedShape, error)
}

// strategies returns the chain in resolution order. The whole-state
// fallback is not part of the chain; Resolve holds it back as the last
// resort for at-large seats and implausibility recovery.
func (f *Fetcher) strategies() []strategy {
	return []strategy{
		{name: "bulk", run: f.fromStateCollection},
		{name: "district", run: f.fromDistrictRecord},
		{name: "earlier", run: f.fromEarlierVintages},
	}
}

// Resolve returns the geometry for one district at one vintage,
// short-circuiting on the first strategy that produces a plausible
// shape. Transient upstream failures fail only their own step. The
// result is cached under the requested key and, when an older cycle
// satisfied the request, under its actual key too.
func (f *Fetcher) Resolve(ctx context.Context, code DistrictCode, vintage int) (*ResolvedShape, error) {
	if shape, ok := f.cache.Get(vintage, code); ok {
		cacheHits.Inc()
		return shape, nil
	}

	var shape *ResolvedShape
	for _, s := range f.strategies() {
		got, err := s.run(ctx, code, vintage)
		if err != nil {
			log.Printf("[Fetcher] %s strategy=%s vintage=%d failed: %v", code, s.name, vintage, err)
			continue
		}
		if got != nil {
			shape = got
			break
		}
	}

	triedOutline := false
	if shape == nil && code.IsAtLarge() {
		shape = f.fromStateOutline(ctx, code, vintage)
		triedOutline = true
	}

	if shape != nil && !plausibleExtent(shape.Geometry) {
		implausibleDiscards.Inc()
		log.Printf("[Fetcher] %s vintage=%d discarding implausibly large geometry", code, shape.Vintage)
		shape = nil
		if !triedOutline {
			shape = f.fromStateOutline(ctx, code, vintage)
			if shape != nil && !plausibleExtent(shape.Geometry) {
				implausibleDiscards.Inc()
				shape = nil
			}
		}
	}

	if shape == nil {
		shapesNotFound.Inc()
		return nil, ErrNotFound
	}

	f.cache.Put(shape.Vintage, shape.Code, shape)
	if shape.Vintage != vintage {
		f.cache.Put(vintage, code, shape)
	}
	return shape, nil
}

// fromStateCollection searches the legacy per-state bulk file for a
// feature whose embedded label matches any accepted spelling of the
// code. Only applies to vintages still distributed as bulk files.
func (f *Fetcher) fromStateCollection(ctx context.Context, code DistrictCode, vintage int) (*ResolvedShape, error) {
	if vintage > legacyBulkVintage {
		return nil, nil
	}
	fetchAttempts.WithLabelValues("bulk").Inc()

	features, err := f.source.StateCollection(ctx, vintage, code.Canonical().State)
	if err != nil {
		return nil, err
	}

	// Cache every district in the file, so the rest of the state's
	// roster resolves without refetching the collection.
	for _, df := range features {
		if !plausibleExtent(df.Geometry) {
			continue
		}
		sibling := DistrictCode{State: code.State, Label: df.Label}.Canonical()
		f.cache.Put(vintage, sibling, &ResolvedShape{Vintage: vintage, Code: sibling, Geometry: df.Geometry})
	}

	if shape, ok := f.cache.Get(vintage, code); ok {
		return shape, nil
	}
	return nil, nil
}

// fromDistrictRecord requests the individually addressed record at the
// given vintage, trying each accepted label spelling in order.
func (f *Fetcher) fromDistrictRecord(ctx context.Context, code DistrictCode, vintage int) (*ResolvedShape, error) {
	var lastErr error
	for _, label := range code.spellings() {
		fetchAttempts.WithLabelValues("district").Inc()
		geom, err := f.source.DistrictGeometry(ctx, vintage, code.Canonical().State, label)
		if err != nil {
			lastErr = err
			continue
		}
		return &ResolvedShape{Vintage: vintage, Code: code.Canonical(), Geometry: geom}, nil
	}
	return nil, lastErr
}

// fromEarlierVintages retries the per-district record against every
// known older cycle, newest first. A state's history before its oldest
// available cycle is approximated by that cycle.
func (f *Fetcher) fromEarlierVintages(ctx context.Context, code DistrictCode, vintage int) (*ResolvedShape, error) {
	for _, older := range earlierVintages(vintage) {
		shape, err := f.fromDistrictRecord(ctx, code, older)
		if err != nil {
			log.Printf("[Fetcher] %s fallback vintage=%d failed: %v", code, older, err)
			continue
		}
		if shape != nil {
			return shape, nil
		}
	}
	return nil, nil
}

// fromStateOutline requests the whole-state boundary record and uses
// it verbatim. Errors degrade to a miss; this is already the last
// resort.
func (f *Fetcher) fromStateOutline(ctx context.Context, code DistrictCode, vintage int) *ResolvedShape {
	fetchAttempts.WithLabelValues("outline").Inc()
	geom, err := f.source.StateOutline(ctx, code.Canonical().State)
	if err != nil {
		log.Printf("[Fetcher] %s state outline failed: %v", code, err)
		return nil
	}
	return &ResolvedShape{Vintage: vintage, Code: code.Canonical(), Geometry: geom}
}

// plausibleExtent rejects geometries whose bounding box is wildly
// larger than any single district: the telltale of a wrong record.
func plausibleExtent(g orb.Geometry) bool {
	if g == nil {
		return false
	}
	b := g.Bound()
	return b.Max[0]-b.Min[0] <= maxPlausibleSpanDeg &&
		b.Max[1]-b.Min[1] <= maxPlausibleSpanDeg
}

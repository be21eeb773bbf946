package atlas

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DistrictAtlas/DA-Backend/internal/roster"
	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"
)

// ErrSuperseded marks a resolution abandoned because a newer request
// started before it finished. The abandoned call publishes nothing;
// whatever it already fetched stays cached.
var ErrSuperseded = errors.New("resolution superseded by a newer request")

// DefaultBatchSize caps in-flight shape fetches. Found empirically:
// overshooting it draws resource-exhaustion errors from the mirror.
const DefaultBatchSize = 16

// Resolver turns (year, roster) into an annotated feature collection.
// It deduplicates officeholders to one per district, resolves shapes
// in bounded concurrent batches, and guards a shared latest-result
// snapshot with a generation counter so a stale call can never
// overwrite a newer one.
type Resolver struct {
	roster    roster.TermSource
	fetcher   *Fetcher
	batchSize int

	gen atomic.Int64

	mu             sync.Mutex
	published      *geojson.FeatureCollection
	publishedYear  int
	publishedCount int
}

func NewResolver(src roster.TermSource, fetcher *Fetcher, batchSize int) *Resolver {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Resolver{roster: src, fetcher: fetcher, batchSize: batchSize}
}

// ResolveAll resolves every district held in the given year, pulling
// the roster from the resolver's term source. Returns ErrSuperseded if
// a newer call started before this one could publish.
func (r *Resolver) ResolveAll(ctx context.Context, year int) (*geojson.FeatureCollection, error) {
	gen := r.gen.Add(1)
	jobID := uuid.NewString()
	start := time.Now()
	log.Printf("[Resolver] job=%s year=%d gen=%d starting", jobID, year, gen)

	terms, err := r.roster.ActiveTerms(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("roster lookup for %d: %w", year, err)
	}
	if r.superseded(gen) {
		resolvesSuperseded.Inc()
		return nil, ErrSuperseded
	}

	features := r.resolveBatches(ctx, terms, year, jobID)
	if r.superseded(gen) {
		resolvesSuperseded.Inc()
		return nil, ErrSuperseded
	}

	fc := Aggregate(features)
	r.publish(gen, year, fc)
	log.Printf("[Resolver] job=%s year=%d resolved %d/%d districts in %dms",
		jobID, year, len(features), len(terms), time.Since(start).Milliseconds())
	return fc, nil
}

// ResolveTerms resolves a caller-supplied, already year-filtered term
// list. It participates in the same generation counter as ResolveAll.
func (r *Resolver) ResolveTerms(ctx context.Context, terms []roster.Term, year int) (*geojson.FeatureCollection, error) {
	gen := r.gen.Add(1)
	jobID := uuid.NewString()

	features := r.resolveBatches(ctx, terms, year, jobID)
	if r.superseded(gen) {
		resolvesSuperseded.Inc()
		return nil, ErrSuperseded
	}

	fc := Aggregate(features)
	r.publish(gen, year, fc)
	return fc, nil
}

// Status describes the resolver's published snapshot.
type Status struct {
	Generation    int64 `json:"generation"`
	PublishedYear int   `json:"published_year"`
	Districts     int   `json:"districts"`
	CachedShapes  int   `json:"cached_shapes"`
}

// Status reports the latest published generation and snapshot size.
func (r *Resolver) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		Generation:    r.gen.Load(),
		PublishedYear: r.publishedYear,
		Districts:     r.publishedCount,
		CachedShapes:  r.fetcher.Cache().Len(),
	}
}

// Published returns the last published snapshot, if any.
func (r *Resolver) Published() (*geojson.FeatureCollection, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.published == nil {
		return nil, 0, false
	}
	return r.published, r.publishedYear, true
}

func (r *Resolver) superseded(gen int64) bool {
	return r.gen.Load() != gen
}

// publish installs a snapshot unless a newer generation exists. The
// double check under the mutex closes the window between the caller's
// staleness check and the store.
func (r *Resolver) publish(gen int64, year int, fc *geojson.FeatureCollection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen.Load() != gen {
		return
	}
	r.published = fc
	r.publishedYear = year
	r.publishedCount = len(fc.Features)
}

// resolveBatches filters to lower-chamber terms, deduplicates to one
// term per district (first occurrence wins), and resolves shapes in
// fixed-size batches. Within a batch resolution order is irrelevant;
// batches run strictly sequentially to bound pressure on the mirror.
// Districts that resolve to nothing are dropped, never fatal.
func (r *Resolver) resolveBatches(ctx context.Context, terms []roster.Term, year int, jobID string) []AnnotatedFeature {
	vintage := VintageForYear(year)

	type job struct {
		term roster.Term
		code DistrictCode
	}
	var queue []job
	seen := make(map[string]struct{})
	for _, t := range terms {
		candidates := CandidatesFor(t)
		if len(candidates) == 0 {
			continue // upper chamber: not applicable, not an error
		}
		key := candidates[0].Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		queue = append(queue, job{term: t, code: candidates[0]})
	}

	results := make([]*AnnotatedFeature, len(queue))
	for batchStart := 0; batchStart < len(queue); batchStart += r.batchSize {
		batchEnd := batchStart + r.batchSize
		if batchEnd > len(queue) {
			batchEnd = len(queue)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := batchStart; i < batchEnd; i++ {
			i := i
			g.Go(func() error {
				shape, err := r.fetcher.Resolve(gctx, queue[i].code, vintage)
				if err != nil {
					if !errors.Is(err, ErrNotFound) {
						log.Printf("[Resolver] job=%s %s: %v", jobID, queue[i].code, err)
					}
					return nil
				}
				results[i] = &AnnotatedFeature{Shape: *shape, Term: queue[i].term}
				return nil
			})
		}
		_ = g.Wait()
	}

	features := make([]AnnotatedFeature, 0, len(queue))
	for _, res := range results {
		if res != nil {
			features = append(features, *res)
		}
	}
	return features
}

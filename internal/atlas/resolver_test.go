package atlas

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/DistrictAtlas/DA-Backend/internal/atlas/source"
	"github.com/DistrictAtlas/DA-Backend/internal/roster"
	"github.com/paulmach/orb"
)

func lowerTerm(person, state string, district int) roster.Term {
	return roster.Term{
		PersonID:  person,
		FullName:  person,
		Party:     "Independent",
		Chamber:   roster.ChamberLower,
		State:     state,
		District:  district,
		StartYear: 1789,
	}
}

// TestResolveAll_DedupesAndSkipsUpperChamber verifies duplicate terms
// for one district keep the first occurrence and upper-chamber terms
// are silently excluded.
func TestResolveAll_DedupesAndSkipsUpperChamber(t *testing.T) {
	src := newFakeSource()
	src.districts[districtKey(2022, "NY", "14")] = square(-74, 40, 1)

	terms := []roster.Term{
		lowerTerm("first-rep", "NY", 14),
		lowerTerm("second-rep", "NY", 14), // duplicate district
		{PersonID: "senator", Chamber: roster.ChamberUpper, State: "NY", StartYear: 1789},
	}
	r := NewResolver(roster.NewStaticSource(terms), NewFetcher(src, NewShapeCache()), 0)

	fc, err := r.ResolveAll(context.Background(), 2024)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("got %d features, want 1", len(fc.Features))
	}
	if name := fc.Features[0].Properties["name"]; name != "first-rep" {
		t.Errorf("annotated name = %v, want first occurrence to win", name)
	}
}

// TestResolveAll_PartialFailureKeepsOtherDistricts verifies one
// unresolvable district is dropped without failing the batch.
func TestResolveAll_PartialFailureKeepsOtherDistricts(t *testing.T) {
	src := newFakeSource()
	src.districts[districtKey(2022, "NY", "14")] = square(-74, 40, 1)
	src.districts[districtKey(2022, "NY", "15")] = square(-73, 41, 1)
	// NY-16 exists at no vintage at all.

	terms := []roster.Term{
		lowerTerm("a", "NY", 14),
		lowerTerm("b", "NY", 16),
		lowerTerm("c", "NY", 15),
	}
	r := NewResolver(roster.NewStaticSource(terms), NewFetcher(src, NewShapeCache()), 0)

	fc, err := r.ResolveAll(context.Background(), 2024)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("got %d features, want 2", len(fc.Features))
	}
	for _, f := range fc.Features {
		if f.Properties["district_key"] == "NY-16" {
			t.Error("unresolvable district leaked into output")
		}
	}
}

// TestResolveAll_Year2024ResolvesVintage2022 is the end-to-end happy
// path: a 2024 roster entry for NY-14 resolves at vintage 2022 via the
// per-district record and annotates the feature accordingly.
func TestResolveAll_Year2024ResolvesVintage2022(t *testing.T) {
	src := newFakeSource()
	src.districts[districtKey(2022, "NY", "14")] = square(-74, 40, 1)

	r := NewResolver(roster.NewStaticSource([]roster.Term{lowerTerm("aoc", "NY", 14)}),
		NewFetcher(src, NewShapeCache()), 0)

	fc, err := r.ResolveAll(context.Background(), 2024)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("got %d features, want 1", len(fc.Features))
	}
	props := fc.Features[0].Properties
	if props["district_key"] != "NY-14" {
		t.Errorf("district_key = %v, want NY-14", props["district_key"])
	}
	if props["vintage"] != 2022 {
		t.Errorf("vintage = %v, want 2022", props["vintage"])
	}
	d, b, _ := src.counts()
	if d != 1 || b != 0 {
		t.Errorf("fetch counts district=%d bulk=%d, want exactly one district record attempt", d, b)
	}
}

// TestResolveAll_Year1850LegacyRecordNeverCrashes verifies a malformed
// legacy roster entry (populous state, district absent) yields either
// an oldest-vintage resolution or a clean absence, never a panic.
func TestResolveAll_Year1850LegacyRecordNeverCrashes(t *testing.T) {
	term := lowerTerm("old-timer", "NY", 0) // at-large NY: malformed but tolerated

	// No data anywhere: clean absence.
	r := NewResolver(roster.NewStaticSource([]roster.Term{term}),
		NewFetcher(newFakeSource(), NewShapeCache()), 0)
	fc, err := r.ResolveAll(context.Background(), 1850)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(fc.Features) != 0 {
		t.Fatalf("got %d features, want 0", len(fc.Features))
	}

	// Oldest vintage has a bulk file: resolves on the floor vintage.
	src := newFakeSource()
	src.bulks["1962/NY"] = []source.DistrictFeature{{Label: "0", Geometry: square(-79, 40, 5)}}
	r = NewResolver(roster.NewStaticSource([]roster.Term{term}),
		NewFetcher(src, NewShapeCache()), 0)
	fc, err = r.ResolveAll(context.Background(), 1850)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("got %d features, want 1", len(fc.Features))
	}
	if fc.Features[0].Properties["vintage"] != 1962 {
		t.Errorf("vintage = %v, want floor 1962", fc.Features[0].Properties["vintage"])
	}
}

// TestResolveAll_SupersededCallNeverPublishes verifies that when a
// second ResolveAll starts before the first finishes, only the second
// publishes — even though the first completes later.
func TestResolveAll_SupersededCallNeverPublishes(t *testing.T) {
	src := newFakeSource()
	src.districts[districtKey(2022, "NY", "14")] = square(-74, 40, 1)
	src.districts[districtKey(2012, "TX", "1")] = square(-95, 31, 1)

	gate := &gatedSource{inner: src, started: make(chan struct{}), release: make(chan struct{})}
	slowTX := lowerTerm("slow", "TX", 1)
	slowTX.EndYear = 2020 // not active for the 2024 query
	terms := []roster.Term{slowTX, lowerTerm("fast", "NY", 14)}
	r := NewResolver(roster.NewStaticSource(terms), NewFetcher(gate, NewShapeCache()), 0)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = r.ResolveAll(context.Background(), 2015) // vintage 2012: only TX-1 resolvable, blocks
	}()

	<-gate.started
	fc, err := r.ResolveAll(context.Background(), 2024) // vintage 2022: NY-14, fast
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if len(fc.Features) != 1 || fc.Features[0].Properties["district_key"] != "NY-14" {
		t.Fatalf("second resolve returned unexpected features: %v", fc.Features)
	}

	close(gate.release)
	wg.Wait()

	if !errors.Is(firstErr, ErrSuperseded) {
		t.Fatalf("first resolve err = %v, want ErrSuperseded", firstErr)
	}
	published, year, ok := r.Published()
	if !ok {
		t.Fatal("expected a published snapshot")
	}
	if year != 2024 {
		t.Errorf("published year = %d, want 2024 only", year)
	}
	if len(published.Features) != 1 || published.Features[0].Properties["district_key"] != "NY-14" {
		t.Error("stale results overwrote the newer snapshot")
	}
}

// TestResolveTerms_BoundsInFlightFetches verifies the batch cap holds:
// with 40 districts and a batch size of 8, no more than 8 fetches are
// ever in flight together.
func TestResolveTerms_BoundsInFlightFetches(t *testing.T) {
	src := newFakeSource()
	var terms []roster.Term
	for i := 1; i <= 40; i++ {
		src.districts[districtKey(2022, "CA", strconv.Itoa(i))] = square(-120, 35, 1)
		terms = append(terms, lowerTerm("rep", "CA", i))
	}
	meter := &concurrencyMeter{inner: src}
	r := NewResolver(roster.NewStaticSource(terms), NewFetcher(meter, NewShapeCache()), 8)

	fc, err := r.ResolveTerms(context.Background(), terms, 2024)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(fc.Features) != 40 {
		t.Fatalf("got %d features, want 40", len(fc.Features))
	}
	if peak := meter.max(); peak > 8 {
		t.Errorf("observed %d concurrent fetches, cap is 8", peak)
	}
}

// --- test doubles ------------------------------------------------------

// gatedSource blocks TX district fetches until released, passing
// everything else straight through.
type gatedSource struct {
	inner     *fakeSource
	startOnce sync.Once
	started   chan struct{}
	release   chan struct{}
}

func (g *gatedSource) DistrictGeometry(ctx context.Context, vintage int, state, label string) (orb.Geometry, error) {
	if state == "TX" {
		g.startOnce.Do(func() { close(g.started) })
		<-g.release
	}
	return g.inner.DistrictGeometry(ctx, vintage, state, label)
}

func (g *gatedSource) StateCollection(ctx context.Context, vintage int, state string) ([]source.DistrictFeature, error) {
	return g.inner.StateCollection(ctx, vintage, state)
}

func (g *gatedSource) StateOutline(ctx context.Context, state string) (orb.Geometry, error) {
	return g.inner.StateOutline(ctx, state)
}

// concurrencyMeter records the peak number of concurrent district
// fetches passing through it.
type concurrencyMeter struct {
	inner    *fakeSource
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (m *concurrencyMeter) enter() {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.peak {
		m.peak = m.inFlight
	}
	m.mu.Unlock()
	time.Sleep(2 * time.Millisecond) // force overlap within a batch
}

func (m *concurrencyMeter) exit() {
	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()
}

func (m *concurrencyMeter) max() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}

func (m *concurrencyMeter) DistrictGeometry(ctx context.Context, vintage int, state, label string) (orb.Geometry, error) {
	m.enter()
	defer m.exit()
	return m.inner.DistrictGeometry(ctx, vintage, state, label)
}

func (m *concurrencyMeter) StateCollection(ctx context.Context, vintage int, state string) ([]source.DistrictFeature, error) {
	m.enter()
	defer m.exit()
	return m.inner.StateCollection(ctx, vintage, state)
}

func (m *concurrencyMeter) StateOutline(ctx context.Context, state string) (orb.Geometry, error) {
	m.enter()
	defer m.exit()
	return m.inner.StateOutline(ctx, state)
}

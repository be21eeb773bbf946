package atlas

// eraThresholds maps calendar years onto redistricting cycles. Each
// cycle's maps first apply to the election two years after the census,
// so the 2022 cycle covers 2023 onward. Ordered newest first; the
// lookup takes the first threshold the year clears.
var eraThresholds = []struct {
	FromYear int
	Vintage  int
}{
	{2023, 2022},
	{2013, 2012},
	{2003, 2002},
	{1993, 1992},
	{1983, 1982},
	{1973, 1972},
}

// EarliestVintage is the oldest cycle with usable shape data. Years
// before it are approximated by it; congressional history predating
// available geometry renders on these boundaries.
const EarliestVintage = 1962

// KnownVintages lists every cycle with shape data, newest first. The
// fetcher walks this list when a district is missing from its
// requested vintage.
var KnownVintages = []int{2022, 2012, 2002, 1992, 1982, 1972, 1962}

// VintageForYear maps any calendar year to the single boundary vintage
// in effect. Total: every year maps to exactly one vintage.
func VintageForYear(year int) int {
	for _, e := range eraThresholds {
		if year >= e.FromYear {
			return e.Vintage
		}
	}
	return EarliestVintage
}

// earlierVintages returns the known vintages strictly older than v,
// newest first.
func earlierVintages(v int) []int {
	var out []int
	for _, kv := range KnownVintages {
		if kv < v {
			out = append(out, kv)
		}
	}
	return out
}

package atlas

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/DistrictAtlas/DA-Backend/internal/roster"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// AtLargeLabel is the canonical spelling for a state's single at-large
// seat. Upstream datasets are split between this and the numeric "0";
// both spellings normalize to one identity.
const AtLargeLabel = "AL"

// DistrictCode identifies one House district as (state, label). The
// label is either a positive district number or an at-large spelling.
type DistrictCode struct {
	State string
	Label string
}

// NewDistrictCode builds a code from a 2-letter state and a district
// number. Zero (or negative) numbers mean at-large.
func NewDistrictCode(state string, district int) DistrictCode {
	if district <= 0 {
		return DistrictCode{State: strings.ToUpper(state), Label: AtLargeLabel}
	}
	return DistrictCode{State: strings.ToUpper(state), Label: strconv.Itoa(district)}
}

// IsAtLarge reports whether the code names an at-large seat under any
// of its accepted spellings.
func (c DistrictCode) IsAtLarge() bool {
	switch strings.TrimLeft(c.Label, "0") {
	case "":
		return true
	}
	return strings.EqualFold(c.Label, AtLargeLabel)
}

// Canonical collapses the equivalent at-large spellings ("0", "", "AL")
// into one identity and strips leading zeros from numbered labels.
// Dedup and cache keys must always go through Canonical.
func (c DistrictCode) Canonical() DistrictCode {
	state := strings.ToUpper(c.State)
	if c.IsAtLarge() {
		return DistrictCode{State: state, Label: AtLargeLabel}
	}
	label := strings.TrimLeft(c.Label, "0")
	return DistrictCode{State: state, Label: label}
}

// Key renders the canonical code as "NY-14" / "AK-AL".
func (c DistrictCode) Key() string {
	canon := c.Canonical()
	return canon.State + "-" + canon.Label
}

func (c DistrictCode) String() string { return c.Key() }

// spellings returns the ordered request spellings to try upstream.
// Numbered districts have exactly one; at-large seats have two because
// source datasets disagree on the sentinel.
func (c DistrictCode) spellings() []string {
	if c.IsAtLarge() {
		return []string{"0", AtLargeLabel}
	}
	return []string{c.Canonical().Label}
}

// ResolvedShape is one cached district geometry. Vintage records the
// boundary cycle the geometry actually came from, which can be older
// than the vintage it was requested for.
type ResolvedShape struct {
	Vintage  int
	Code     DistrictCode
	Geometry orb.Geometry
}

// AnnotatedFeature pairs a resolved geometry with the officeholder
// active in the queried year. Geometry is shared with the cache;
// officeholder metadata is attached fresh per query.
type AnnotatedFeature struct {
	Shape ResolvedShape
	Term  roster.Term
}

// GeoJSON renders the feature with the flat property bag the rendering
// layer draws and tooltips from.
func (af AnnotatedFeature) GeoJSON() *geojson.Feature {
	f := geojson.NewFeature(af.Shape.Geometry)
	f.Properties = geojson.Properties{
		"district_key": af.Shape.Code.Key(),
		"state":        af.Shape.Code.Canonical().State,
		"district":     af.Shape.Code.Canonical().Label,
		"party":        af.Term.Party,
		"person_id":    af.Term.PersonID,
		"name":         af.Term.FullName,
		"external_ref": af.Term.ExternalRef,
		"vintage":      af.Shape.Vintage,
	}
	f.ID = fmt.Sprintf("%s@%d", af.Shape.Code.Key(), af.Shape.Vintage)
	return f
}

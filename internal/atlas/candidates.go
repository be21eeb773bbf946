package atlas

import "github.com/DistrictAtlas/DA-Backend/internal/roster"

// CandidatesFor returns the ordered district codes to try when
// resolving geometry for a term. Numbered districts yield exactly one
// candidate. At-large seats yield both accepted spellings, numeric
// sentinel first, because upstream datasets disagree on which one they
// key by — a caller must try both before declaring failure.
//
// Upper-chamber terms return an empty list: there is no per-district
// geometry concept for them, which is "not applicable", not a failure.
func CandidatesFor(term roster.Term) []DistrictCode {
	if term.Chamber == roster.ChamberUpper {
		return nil
	}
	if term.District <= 0 {
		return []DistrictCode{
			{State: term.State, Label: "0"},
			{State: term.State, Label: AtLargeLabel},
		}
	}
	return []DistrictCode{NewDistrictCode(term.State, term.District)}
}

package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Chamber distinguishes district-based lower houses from state-wide
// upper houses. Upper-chamber terms have no per-district geometry.
type Chamber string

const (
	ChamberLower Chamber = "lower"
	ChamberUpper Chamber = "upper"
)

// Term is one contiguous span of a person holding one seat. Terms are
// loaded and year-filtered upstream; the resolver only reads them.
type Term struct {
	PersonID    string  `json:"person_id"`
	FullName    string  `json:"full_name"`
	Party       string  `json:"party"`
	Chamber     Chamber `json:"chamber"`
	State       string  `json:"state"`
	District    int     `json:"district"` // 0 or absent = at-large
	StartYear   int     `json:"start_year"`
	EndYear     int     `json:"end_year,omitempty"` // 0 = currently serving
	ExternalRef string  `json:"external_ref,omitempty"`
}

// Active reports whether the term covers the given calendar year.
func (t Term) Active(year int) bool {
	if year < t.StartYear {
		return false
	}
	return t.EndYear == 0 || year <= t.EndYear
}

// TermSource supplies the officeholder terms active in a given year.
// Implementations own year filtering; consumers assume the returned
// list is already restricted to the requested year.
type TermSource interface {
	ActiveTerms(ctx context.Context, year int) ([]Term, error)
}

// StaticSource serves terms from an in-memory list, filtering by year.
// It backs tests and file-based deployments.
type StaticSource struct {
	terms []Term
}

func NewStaticSource(terms []Term) *StaticSource {
	return &StaticSource{terms: terms}
}

func (s *StaticSource) ActiveTerms(_ context.Context, year int) ([]Term, error) {
	var active []Term
	for _, t := range s.terms {
		if t.Active(year) {
			active = append(active, t)
		}
	}
	return active, nil
}

// LoadFile reads a flat JSON array of terms from disk.
func LoadFile(path string) (*StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster file: %w", err)
	}
	var terms []Term
	if err := json.Unmarshal(data, &terms); err != nil {
		return nil, fmt.Errorf("decode roster file %s: %w", path, err)
	}
	return NewStaticSource(terms), nil
}

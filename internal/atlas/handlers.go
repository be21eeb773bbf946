package atlas

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/DistrictAtlas/DA-Backend/internal/roster"
	"github.com/go-chi/chi/v5"
)

// Handlers exposes the resolver to the rendering layer over HTTP.
type Handlers struct {
	resolver *Resolver
}

func NewHandlers(r *Resolver) *Handlers {
	return &Handlers{resolver: r}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func addServerTiming(w http.ResponseWriter, name string, d time.Duration) {
	w.Header().Add("Server-Timing", fmt.Sprintf("%s;dur=%d", name, d.Milliseconds()))
}

func yearParam(r *http.Request) (int, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return 0, fmt.Errorf("invalid year: %w", err)
	}
	// Congress first convened in 1789; reject obvious garbage while
	// still accepting any plausible historical or near-future year.
	if year < 1789 || year > 2100 {
		return 0, fmt.Errorf("year %d out of range", year)
	}
	return year, nil
}

// GetDistrictsByYear handles GET /districts/{year}: resolve the year's
// roster from the server's term source and return the annotated
// feature collection.
func (h *Handlers) GetDistrictsByYear(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t0 := time.Now()
	fc, err := h.resolver.ResolveAll(r.Context(), year)
	if errors.Is(err, ErrSuperseded) {
		writeJSONStatus(w, http.StatusConflict, map[string]string{"status": "superseded"})
		return
	}
	if err != nil {
		log.Printf("[Districts] year=%d err=%v", year, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	addServerTiming(w, "resolve", time.Since(t0))
	writeJSON(w, fc)
}

// ResolveRoster handles POST /districts/{year}: resolve a
// caller-supplied, already year-filtered term list.
func (h *Handlers) ResolveRoster(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var terms []roster.Term
	if err := json.NewDecoder(r.Body).Decode(&terms); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(terms) == 0 {
		http.Error(w, "At least one term is required", http.StatusBadRequest)
		return
	}

	t0 := time.Now()
	fc, err := h.resolver.ResolveTerms(r.Context(), terms, year)
	if errors.Is(err, ErrSuperseded) {
		writeJSONStatus(w, http.StatusConflict, map[string]string{"status": "superseded"})
		return
	}
	if err != nil {
		log.Printf("[Districts] year=%d err=%v", year, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	addServerTiming(w, "resolve", time.Since(t0))
	writeJSON(w, fc)
}

// GetResolveStatus handles GET /districts/status: the published
// generation and snapshot size, for clients polling during a resolve.
func (h *Handlers) GetResolveStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	writeJSON(w, h.resolver.Status())
}

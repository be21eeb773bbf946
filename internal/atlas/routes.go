package atlas

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes(res *Resolver) http.Handler {
	r := chi.NewRouter()
	h := NewHandlers(res)

	r.Get("/status", h.GetResolveStatus)
	r.Get("/{year}", h.GetDistrictsByYear)
	r.Post("/{year}", h.ResolveRoster)

	return r
}

package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/DistrictAtlas/DA-Backend/internal/atlas"
	"github.com/DistrictAtlas/DA-Backend/internal/middleware"
	"github.com/DistrictAtlas/DA-Backend/internal/roster"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	_ = godotenv.Load(".env.local")

	port := os.Getenv("PORT")
	if port == "" {
		port = "5050"
	}

	var termSource roster.TermSource
	if path := os.Getenv("ROSTER_FILE"); path != "" {
		src, err := roster.LoadFile(path)
		if err != nil {
			log.Fatalf("Failed to load roster file: %v", err)
		}
		termSource = src
	} else {
		// No server-side roster: GET-by-year returns empty collections
		// and callers POST their own term lists.
		termSource = roster.NewStaticSource(nil)
	}

	resolver, err := atlas.Setup(termSource)
	if err != nil {
		log.Fatalf("Failed to set up resolver: %v", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.RequestLogger)
	r.Get("/", RootHandler)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Mount("/districts", atlas.SetupRoutes(resolver))

	fmt.Printf("Server listening on port :%s...\n", port)

	if err := http.ListenAndServe("0.0.0.0:"+port, r); err != nil {
		log.Fatal(err)
	}
}

package atlas

import (
	"fmt"
	"log"

	"github.com/DistrictAtlas/DA-Backend/internal/atlas/source"
	"github.com/DistrictAtlas/DA-Backend/internal/roster"
)

// Setup wires a resolver from environment configuration: shape source
// client, fresh shape cache, fetcher, and the given term source. Each
// call owns an independent cache, so multiple resolvers never share
// state by accident.
func Setup(src roster.TermSource) (*Resolver, error) {
	cfg, err := source.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load source config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid source config: %w", err)
	}

	client := source.NewClient(cfg)
	fetcher := NewFetcher(client, NewShapeCache())

	log.Printf("[atlas] shape source districts=%s bulk=%s outlines=%s",
		cfg.DistrictURL, cfg.BulkURL, cfg.OutlineURL)

	return NewResolver(src, fetcher, DefaultBatchSize), nil
}

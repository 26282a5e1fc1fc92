package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/guttosm/geo-cache-service/internal/cachekey"
	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/guttosm/geo-cache-service/internal/repository"
	"gopkg.in/yaml.v3"
)

// WarmSource supplies requests expected to be hot.
type WarmSource interface {
	Name() string
	// Routes returns at most limit requests.
	Routes(ctx context.Context, limit int) ([]model.Request, error)
}

// StoreWarmSource replays the most-hit entries already in the cache.
type StoreWarmSource struct {
	store repository.CacheStore
}

// NewStoreWarmSource creates a warm source over store.
func NewStoreWarmSource(store repository.CacheStore) *StoreWarmSource {
	return &StoreWarmSource{store: store}
}

// Name identifies the source in logs.
func (s *StoreWarmSource) Name() string { return "store" }

// Routes returns the requests of the hottest entries.
func (s *StoreWarmSource) Routes(ctx context.Context, limit int) ([]model.Request, error) {
	entries, err := s.store.TopEntries(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("hot entries: %w", err)
	}
	reqs := make([]model.Request, 0, len(entries))
	for _, e := range entries {
		if !e.Request.Kind.Valid() {
			continue
		}
		reqs = append(reqs, e.Request)
	}
	return reqs, nil
}

// warmFile is the YAML layout of a known-routes file:
//
//	routes:
//	  - origin: {lat: 32.7157, lng: -117.1611}
//	    destination: {lat: 33.1959, lng: -117.3795}
//	addresses:
//	  - 1 Civic Center Dr, Carlsbad, CA
type warmFile struct {
	Routes []struct {
		Origin      warmPoint `yaml:"origin"`
		Destination warmPoint `yaml:"destination"`
	} `yaml:"routes"`
	Addresses []string `yaml:"addresses"`
}

type warmPoint struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

// FileWarmSource reads known high-traffic routes and addresses from a YAML
// file. The file is re-read on every call.
type FileWarmSource struct {
	path string
}

// NewFileWarmSource creates a warm source reading path.
func NewFileWarmSource(path string) *FileWarmSource {
	return &FileWarmSource{path: path}
}

// Name identifies the source in logs.
func (s *FileWarmSource) Name() string { return "file:" + s.path }

// Routes parses the file, routes first, then addresses.
func (s *FileWarmSource) Routes(_ context.Context, limit int) ([]model.Request, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read warm file: %w", err)
	}
	var f warmFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse warm file %s: %w", s.path, err)
	}

	reqs := make([]model.Request, 0, len(f.Routes)+len(f.Addresses))
	for _, r := range f.Routes {
		reqs = append(reqs, model.NewDistanceRequest(
			model.Coordinate{Lat: r.Origin.Lat, Lng: r.Origin.Lng},
			model.Coordinate{Lat: r.Destination.Lat, Lng: r.Destination.Lng},
		))
	}
	for _, a := range f.Addresses {
		reqs = append(reqs, model.NewGeocodeRequest(a))
	}
	if limit >= 0 && len(reqs) > limit {
		reqs = reqs[:limit]
	}
	return reqs, nil
}

// CompositeWarmSource merges sources round-robin, dropping requests that
// normalize to an already collected key, until limit is reached. Every source
// with requests left gets a turn before any source gets a second one, so a
// large source cannot crowd out a small one. A failing source does not stop
// the others.
type CompositeWarmSource struct {
	sources    []WarmSource
	normalizer *cachekey.Normalizer
}

// NewCompositeWarmSource merges sources; precision must match the lookup service.
func NewCompositeWarmSource(precision int, sources ...WarmSource) *CompositeWarmSource {
	return &CompositeWarmSource{sources: sources, normalizer: cachekey.New(precision)}
}

// Name identifies the source in logs.
func (c *CompositeWarmSource) Name() string { return "composite" }

// Routes collects deduplicated requests from every source. Source errors are
// joined and returned alongside whatever was collected.
func (c *CompositeWarmSource) Routes(ctx context.Context, limit int) ([]model.Request, error) {
	var (
		out   []model.Request
		errs  []error
		lists = make([][]model.Request, 0, len(c.sources))
		seen  = make(map[string]struct{})
	)
	for _, src := range c.sources {
		reqs, err := src.Routes(ctx, limit)
		if err != nil {
			errs = append(errs, fmt.Errorf("warm source %s: %w", src.Name(), err))
		}
		lists = append(lists, reqs)
	}

	add := func(r model.Request) {
		key, err := c.normalizer.Normalize(r)
		if err != nil {
			// left in so Warm reports it as a failure
			out = append(out, r)
			return
		}
		id := string(key.Kind) + "|" + key.Value
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, r)
	}

	for i := 0; len(out) < limit; i++ {
		progressed := false
		for _, reqs := range lists {
			if len(out) >= limit {
				break
			}
			if i < len(reqs) {
				progressed = true
				add(reqs[i])
			}
		}
		if !progressed {
			break
		}
	}
	return out, errors.Join(errs...)
}

package service

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"adbdeck/adb"
	"adbdeck/models"
)

const defaultLabelWorkers = 5

// Enricher replaces placeholder package names with real application labels.
type Enricher struct {
	client  *adb.ADBClient
	cache   *LabelCache // optional
	workers int
	log     zerolog.Logger
}

func NewEnricher(client *adb.ADBClient, cache *LabelCache, workers int, log zerolog.Logger) *Enricher {
	if workers <= 0 {
		workers = defaultLabelWorkers
	}
	return &Enricher{
		client:  client,
		cache:   cache,
		workers: workers,
		log:     log.With().Str("component", "enricher").Logger(),
	}
}

// Enrich looks up the label of every package with at most e.workers lookups
// in flight. emit is called once per label found, in completion order, from
// a single goroutine. Packages without a label are skipped. Enrich returns
// when every lookup has finished or ctx is done.
func (e *Enricher) Enrich(ctx context.Context, deviceID string, pkgs []models.Package, emit func(models.LabelUpdate)) error {
	found := make(chan models.LabelUpdate)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	go func() {
		for _, p := range pkgs {
			name := p.Name
			g.Go(func() error {
				label, ok := e.lookup(gctx, deviceID, name)
				if !ok {
					return nil
				}
				select {
				case found <- models.LabelUpdate{DeviceID: deviceID, Package: name, Label: label}:
				case <-gctx.Done():
				}
				return nil
			})
		}
		g.Wait()
		close(found)
	}()

	n := 0
	for u := range found {
		emit(u)
		n++
	}
	e.log.Debug().Str("device", deviceID).Int("packages", len(pkgs)).Int("labels", n).Msg("enrichment done")
	return ctx.Err()
}

// EnrichInPlace rewrites the display names of pkgs with their labels.
func (e *Enricher) EnrichInPlace(ctx context.Context, deviceID string, pkgs []models.Package) error {
	index := make(map[string]int, len(pkgs))
	for i, p := range pkgs {
		index[p.Name] = i
	}
	return e.Enrich(ctx, deviceID, pkgs, func(u models.LabelUpdate) {
		pkgs[index[u.Package]].DisplayName = u.Label
	})
}

func (e *Enricher) lookup(ctx context.Context, deviceID, pkg string) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	if e.cache != nil {
		label, ok, err := e.cache.Get(ctx, deviceID, pkg)
		if err != nil {
			e.log.Debug().Err(err).Msg("label cache read failed")
		} else if ok {
			return label, true
		}
	}

	label, ok, err := e.client.AppLabel(ctx, deviceID, pkg)
	if err != nil {
		e.log.Debug().Err(err).Str("package", pkg).Msg("label lookup skipped")
		return "", false
	}
	if !ok {
		return "", false
	}
	if e.cache != nil {
		if err := e.cache.Put(ctx, deviceID, pkg, label); err != nil {
			e.log.Debug().Err(err).Msg("label cache write failed")
		}
	}
	return label, true
}

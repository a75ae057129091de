// Package explorer drives an interactive lineage view over a payload.
//
// A [Runner] owns the immutable mode graphs, a layout composer and a cache.
// Front ends (the HTTP server and the terminal explorer) keep a
// [view.State] per client and hand it to the runner to apply actions,
// compose layouts, search and inspect nodes. The runner itself keeps no
// per-view state, so one runner serves any number of concurrent views.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pipescope/pkg/cache"
	perrors "github.com/matzehuels/pipescope/pkg/errors"
	"github.com/matzehuels/pipescope/pkg/layout"
	"github.com/matzehuels/pipescope/pkg/lineage"
	"github.com/matzehuels/pipescope/pkg/observability"
	"github.com/matzehuels/pipescope/pkg/search"
	"github.com/matzehuels/pipescope/pkg/view"
)

// DefaultLayoutTTL is how long composed layouts stay cached.
const DefaultLayoutTTL = 24 * time.Hour

// keyTypeLayout labels layout cache events for observability hooks.
const keyTypeLayout = "layout"

// Runner encapsulates view transitions and layout composition with caching.
// Both CLI and API use it so that caching and validation live in one place.
//
// The Runner is stateless apart from its collaborators. Multiple goroutines
// can safely use the same Runner with different states.
type Runner struct {
	Store      *lineage.Store
	Composer   *layout.Composer
	Cache      cache.Cache
	Keyer      cache.Keyer
	Logger     *log.Logger
	SearchOpts search.Options
	TTL        time.Duration

	payloadHash string
}

// NewRunner creates a runner for store.
// If composer is nil, a Graphviz-backed composer with default options is used.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(store *lineage.Store, composer *layout.Composer, c cache.Cache, keyer cache.Keyer, logger *log.Logger) (*Runner, error) {
	if store == nil {
		return nil, perrors.New(perrors.ErrCodeInvalidPayload, "no payload loaded")
	}
	if logger == nil {
		logger = log.Default()
	}
	if composer == nil {
		composer = layout.NewComposer(layout.NewGraphvizEngine(), layout.DefaultOptions(), logger)
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}

	data, err := json.Marshal(store)
	if err != nil {
		return nil, fmt.Errorf("hash payload: %w", err)
	}

	return &Runner{
		Store:       store,
		Composer:    composer,
		Cache:       c,
		Keyer:       keyer,
		Logger:      logger,
		SearchOpts:  search.DefaultOptions(),
		TTL:         DefaultLayoutTTL,
		payloadHash: cache.Hash(data),
	}, nil
}

// PayloadHash identifies the loaded payload. Layout cache keys are scoped
// by it, so a rebuilt payload never reuses stale layouts.
func (r *Runner) PayloadHash() string { return r.payloadHash }

// Start returns the initial state of mode. Unknown modes fall back to the
// default mode.
func (r *Runner) Start(mode string) view.State {
	return view.SwitchMode(r.Store, mode)
}

// Graph returns the graph a state belongs to.
func (r *Runner) Graph(s view.State) *lineage.Graph {
	g, _ := r.Store.Graph(s.Mode)
	return g
}

// LayoutWithCacheInfo composes the layout of s and reports whether it was
// served from the cache. Cache failures are logged and never fail the call.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, s view.State) (*layout.Result, bool, error) {
	g, mode := r.Store.Graph(s.Mode)
	cacheKey := r.Keyer.LayoutKey(r.payloadHash, cache.LayoutKeyOpts{
		Mode:    mode,
		Nodes:   s.Visible.Nodes,
		Edges:   s.Visible.Edges,
		Options: r.Composer.Options,
	})

	hooks := observability.Cache()
	if data, ok, err := r.Cache.Get(ctx, cacheKey); err != nil {
		r.Logger.Warn("layout cache read failed", "err", err)
	} else if ok {
		var res layout.Result
		if err := json.Unmarshal(data, &res); err == nil {
			hooks.OnCacheHit(ctx, keyTypeLayout)
			r.Logger.Debug("layout cache hit", "mode", mode)
			return &res, true, nil
		}
		r.Logger.Warn("discarding corrupt layout cache entry", "key", cacheKey)
	}
	hooks.OnCacheMiss(ctx, keyTypeLayout)

	compose := observability.Compose()
	compose.OnComposeStart(ctx, mode, len(s.Visible.Nodes))
	start := time.Now()
	res, err := r.Composer.Compose(ctx, g, s.Visible)
	elapsed := time.Since(start)
	if err != nil {
		compose.OnComposeComplete(ctx, mode, 0, 0, elapsed, err)
		return nil, false, perrors.Wrap(perrors.ErrCodeLayoutFailed, err, "compose %s view", mode)
	}
	res.Mode = mode
	compose.OnComposeComplete(ctx, mode, len(res.Nodes), len(res.Omitted), elapsed, nil)
	r.Logger.Info("composed layout", "mode", mode, "nodes", len(res.Nodes), "edges", len(res.Edges), "duration", elapsed)

	if data, err := json.Marshal(res); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, r.TTL); err != nil {
			r.Logger.Warn("layout cache write failed", "err", err)
		} else {
			hooks.OnCacheSet(ctx, keyTypeLayout, len(data))
		}
	}
	return res, false, nil
}

// Layout composes the layout of s.
func (r *Runner) Layout(ctx context.Context, s view.State) (*layout.Result, error) {
	res, _, err := r.LayoutWithCacheInfo(ctx, s)
	return res, err
}

// Search returns the nodes of s's graph matching query.
func (r *Runner) Search(s view.State, query string) ([]lineage.Node, error) {
	if err := perrors.ValidateQuery(query); err != nil {
		return nil, err
	}
	return search.Match(r.Graph(s), query, r.SearchOpts), nil
}

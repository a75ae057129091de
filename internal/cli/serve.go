package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pipescope/pkg/cache"
	"github.com/matzehuels/pipescope/pkg/config"
	"github.com/matzehuels/pipescope/pkg/lineage"
	"github.com/matzehuels/pipescope/pkg/observability"
	"github.com/matzehuels/pipescope/pkg/server"
	"github.com/matzehuels/pipescope/pkg/session"
	"github.com/matzehuels/pipescope/pkg/source"
)

// serveCommand creates the serve command that runs the HTTP explorer API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		fromMongo string
		noCache   bool
	)

	cmd := &cobra.Command{
		Use:   "serve [payload]",
		Short: "Serve the lineage explorer over HTTP",
		Long: `Serve the lineage explorer over HTTP.

The payload is a file produced by 'build', a directory of pipeline
definitions, or a payload published to MongoDB (--from-mongo name). Clients
create a session, apply actions to it (mode, select, focus, filter,
show-all) and fetch the composed layout of its current view.

Sessions live in memory by default; with --sessions redis they are shared
through the redis server configured for the cache. Prometheus metrics are
served on /metrics.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) == 1 {
				input = args[0]
			}
			return c.runServe(cmd.Context(), input, fromMongo, noCache)
		},
	}

	cmd.Flags().StringVar(&fromMongo, "from-mongo", "", "load the payload published under this name")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable layout caching")

	// Settings, bound through the config layer.
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().Duration("session-ttl", 0, "idle lifetime of a session (default 2h)")
	cmd.Flags().String("sessions", "", "session backend: memory (default), redis")
	cmd.Flags().String("cache", "", "cache backend: file (default), redis, none")
	cmd.Flags().String("cache-dir", "", "file cache directory")
	cmd.Flags().String("redis-addr", "", "redis address for the redis cache and sessions")
	cmd.Flags().String("mongo-uri", "", "MongoDB connection URI")
	cmd.Flags().String("mongo-database", "", "MongoDB database")
	cmd.Flags().String("mongo-collection", "", "MongoDB collection")

	return cmd
}

// runServe loads the payload and runs the server until ctx is cancelled.
func (c *CLI) runServe(ctx context.Context, input, fromMongo string, noCache bool) error {
	if (input == "") == (fromMongo == "") {
		return errors.New("give either a payload path or --from-mongo")
	}
	cfg := c.config()

	var (
		store *lineage.Store
		err   error
	)
	if fromMongo != "" {
		store, err = c.loadFromMongo(ctx, fromMongo)
	} else {
		store, err = c.loadPayload(ctx, input)
	}
	if err != nil {
		return fmt.Errorf("load payload: %w", err)
	}

	prom := observability.NewPrometheus(prometheus.DefaultRegisterer)
	observability.SetComposeHooks(prom)
	observability.SetCacheHooks(prom)
	observability.SetHTTPHooks(prom)

	runner, err := c.newRunner(ctx, store, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Cache.Close()

	sessions, closeSessions, err := c.newSessionStore(ctx)
	if err != nil {
		return err
	}
	defer closeSessions()

	srv := server.New(runner, sessions, cfg.Server, c.Logger)

	printSuccess("Serving %d view modes", len(store.Modes()))
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleLink.Render(srvURL(cfg.Server.Addr)))
	printKeyValue("sessions", cfg.Sessions.Backend)
	printKeyValue("cache", cfg.Cache.Backend)
	printNewline()

	return srv.Run(ctx)
}

// loadFromMongo loads a published payload.
func (c *CLI) loadFromMongo(ctx context.Context, name string) (*lineage.Store, error) {
	m := c.config().Mongo
	if m.URI == "" {
		return nil, errors.New("--from-mongo needs a MongoDB URI (--mongo-uri or mongo.uri)")
	}
	ms, err := source.NewMongoStore(ctx, m.URI, m.Database, m.Collection)
	if err != nil {
		return nil, err
	}
	defer ms.Close(context.WithoutCancel(ctx))
	return ms.Load(ctx, name)
}

// newSessionStore opens the configured session store. The returned close
// function releases its connection, if any.
func (c *CLI) newSessionStore(ctx context.Context) (session.Store, func(), error) {
	cfg := c.config()
	switch cfg.Sessions.Backend {
	case config.SessionRedis:
		client, err := cache.DialRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			return nil, nil, fmt.Errorf("session store: %w", err)
		}
		return session.NewRedisStore(client), func() { _ = client.Close() }, nil
	default:
		return session.NewMemoryStore(), func() {}, nil
	}
}

// srvURL renders a listen address as a URL for display.
func srvURL(addr string) string {
	if addr == "" {
		addr = server.DefaultAddr
	}
	if addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

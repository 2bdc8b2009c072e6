package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jrsteele09/go-blog-client/api"
	"github.com/jrsteele09/go-blog-client/auth"
	clienterrors "github.com/jrsteele09/go-blog-client/internal/errors"
	"github.com/jrsteele09/go-blog-client/internal/config"
	"github.com/jrsteele09/go-blog-client/routes"
	"github.com/jrsteele09/go-blog-client/tokenstore"
	"github.com/jrsteele09/go-blog-client/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// app is one process worth of client state: the session store, the
// authenticated API client and the session manager on top of them.
type app struct {
	cfg      config.Config
	store    *tokenstore.Store
	client   *api.Client
	manager  *auth.Manager
	nav      *routes.Recorder
	registry *prometheus.Registry
	metrics  *transport.Metrics
	stdout   io.Writer
	stderr   io.Writer
}

// openRepo selects the session backend named by SESSION_STORE.
func openRepo(c config.StoreConfig) (tokenstore.Repo, func(), error) {
	noop := func() {}
	switch c.GetSessionStore() {
	case config.StoreFile:
		var options []tokenstore.FileRepoOption
		if key := c.GetSessionKey(); key != "" {
			cipher, err := tokenstore.NewCipher(key)
			if err != nil {
				return nil, noop, err
			}
			options = append(options, tokenstore.WithCipher(cipher))
		}
		return tokenstore.NewFileRepo(c.GetSessionFile(), options...), noop, nil
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.GetRedisAddr(),
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
		})
		closeFn := func() {
			if err := rdb.Close(); err != nil {
				log.Err(err).Msg("closing redis client")
			}
		}
		return tokenstore.NewRedisRepo(rdb, c.GetRedisPrefix()), closeFn, nil
	case config.StoreMemory:
		return tokenstore.NewInMemoryRepo(), noop, nil
	default:
		return nil, noop, clienterrors.Wrapf(clienterrors.ErrUnknownBackend, "SESSION_STORE=%q", c.GetSessionStore())
	}
}

func newApp(c config.Config, repo tokenstore.Repo, stdout, stderr io.Writer) (*app, error) {
	a := &app{
		cfg:      c,
		store:    tokenstore.New(repo),
		nav:      &routes.Recorder{},
		registry: prometheus.NewRegistry(),
		stdout:   stdout,
		stderr:   stderr,
	}
	a.metrics = transport.NewMetrics(a.registry)

	// Refreshes go out through a plain client so they never recurse into
	// the refreshing transport.
	refresher, err := api.New(c.GetBaseURL(), api.WithHTTPClient(&http.Client{Timeout: c.GetRefreshTimeout()}))
	if err != nil {
		return nil, fmt.Errorf("[newApp] %w", err)
	}

	rt, err := transport.New(a.store, refresher,
		transport.WithRefreshTimeout(c.GetRefreshTimeout()),
		transport.WithMetrics(a.metrics),
		transport.WithOnExpired(a.expire),
	)
	if err != nil {
		return nil, fmt.Errorf("[newApp] %w", err)
	}

	a.client, err = api.New(c.GetBaseURL(), api.WithHTTPClient(&http.Client{
		Transport: rt,
		Timeout:   c.GetRequestTimeout(),
	}))
	if err != nil {
		return nil, fmt.Errorf("[newApp] %w", err)
	}

	a.manager, err = auth.NewManager(a.store, a.client, auth.WithNavigator(a.nav))
	if err != nil {
		return nil, fmt.Errorf("[newApp] %w", err)
	}
	return a, nil
}

func (a *app) expire(ctx context.Context, cause error) {
	a.manager.Expire(ctx, cause)
}

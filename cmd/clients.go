package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/notifier-app/notifier/internal/ezhttp"
	"github.com/notifier-app/notifier/internal/identity"
	"github.com/notifier-app/notifier/internal/query"
	"github.com/notifier-app/notifier/internal/ver"
	"github.com/notifier-app/notifier/notifier"
)

var errNoAPIKey = errors.New("no identity api key configured, set it with: notifier env -w AUTH_API_KEY=<key>")

type clients struct {
	config   notifier.Config
	identity *identity.Store
	api      *notifier.Client
	queries  *query.Client
}

func newClients() (*clients, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}

	store := identity.NewStore(identity.New(identity.Config{
		APIKey:      config.Auth.APIKey,
		IdentityURL: config.Auth.IdentityURL,
		TokenURL:    config.Auth.TokenURL,
		Timeout:     config.HTTPTimeout,
	}), identity.ConfigPersister, identity.SessionFromConfig(viper.GetString))

	api := notifier.NewClient(ezhttp.New(ezhttp.Config{
		Server:    config.Server,
		Timeout:   config.HTTPTimeout,
		UserAgent: ver.Load().UserAgent(),
		Tokens:    store,
	}))

	return &clients{
		config:   config,
		identity: store,
		api:      api,
		queries:  query.NewClient(config.Query.StaleTime),
	}, nil
}

// requireAuth fails early for commands that need a signed in user.
func (c *clients) requireAuth() error {
	if c.identity.Session() == nil {
		return fmt.Errorf("%w, run: notifier account login", identity.ErrNotLoggedIn)
	}
	return nil
}

func (c *clients) requireAPIKey() error {
	if c.config.Auth.APIKey == "" {
		return errNoAPIKey
	}
	return nil
}

func (c *clients) openDB(ctx context.Context) (*notifier.DB, error) {
	db, err := notifier.NewDB(ctx, c.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open draft database: %w", err)
	}
	return db, nil
}

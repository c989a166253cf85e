package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bookworm/internal/api"
	"bookworm/internal/config"
	"bookworm/internal/credstore"
	"bookworm/internal/feed"
	"bookworm/internal/nav"
	"bookworm/internal/session"
	"bookworm/internal/util"
)

// app wires config, the API client, the session store, and the feed engine
// for one command invocation.
type app struct {
	cfg     config.FileConfig
	client  *api.Client
	session *session.Store
	engine  *feed.Engine
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	util.InitLogger(cfg.LogLevel)

	timeout, err := config.ParseRequestTimeout(cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}

	creds, err := newCredStore(cfg)
	if err != nil {
		return nil, err
	}

	client := api.NewClient(cfg.APIBaseURL, timeout)
	sess := session.New(client, creds)
	client.UseTokenSource(sess)

	return &app{
		cfg:     cfg,
		client:  client,
		session: sess,
		engine:  feed.NewEngine(client, cfg.PageLimit),
	}, nil
}

func newCredStore(cfg config.FileConfig) (credstore.Store, error) {
	if cfg.RedisAddr != "" {
		return credstore.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, "", 0), nil
	}
	key := cfg.CredentialsKey
	if key == "" {
		slog.Warn("credentials: sealing with the built-in default passphrase, set credentialsKey to use a secret")
		key = "bookworm-local"
	}
	return credstore.NewFileStore(cfg.CredentialsPath, key)
}

// requireAuth resolves the session and applies the route guard as a signed-in
// screen would.
func (a *app) requireAuth(ctx context.Context) error {
	if err := a.session.CheckAuth(ctx); err != nil {
		return err
	}
	if nav.Decide(a.session.Status(), a.session.Token() != "", false) == nav.DecisionRedirectToAuth {
		return errors.New("not signed in, run 'bookworm login' first")
	}
	return nil
}

// requireAnon applies the route guard as the auth screens would.
func (a *app) requireAnon(ctx context.Context) error {
	if err := a.session.CheckAuth(ctx); err != nil {
		return err
	}
	if nav.Decide(a.session.Status(), a.session.Token() != "", true) == nav.DecisionRedirectToApp {
		user, _ := a.session.User()
		return fmt.Errorf("already signed in as %s, run 'bookworm logout' first", user.Username)
	}
	return nil
}

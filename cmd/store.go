package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/pharmscope/license-verify/internal/store"
	"github.com/pharmscope/license-verify/internal/verify"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "licverify.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initEngine(st store.Store) *verify.Engine {
	return verify.New(st, cfg.Scoring, cfg.Classify)
}

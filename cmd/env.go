package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lasqc/internal/certify"
	"github.com/sells-group/lasqc/internal/config"
	"github.com/sells-group/lasqc/internal/fetcher"
	"github.com/sells-group/lasqc/internal/pipeline"
	"github.com/sells-group/lasqc/internal/registry"
	"github.com/sells-group/lasqc/internal/store"
	"github.com/sells-group/lasqc/internal/uncertainty"
)

// env bundles the components a command needs.
type env struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Issuer   *certify.Issuer
	Loader   *fetcher.Loader
}

// Close releases the store, if any.
func (e *env) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

// initEnv validates the configuration for command and wires the pipeline.
// When withStore is false runs are not persisted.
func initEnv(ctx context.Context, c *config.Config, command string, withStore bool) (*env, error) {
	if err := c.Validate(command); err != nil {
		return nil, err
	}

	reg, err := registry.Load(c.Registry.Path)
	if err != nil {
		return nil, eris.Wrap(err, "load registry")
	}
	calc := uncertainty.NewCalculator(c.Rates())

	e := &env{
		Issuer: certify.NewIssuer(calc, c.Certify.SigningKey),
		Loader: fetcher.NewLoader(c.FetchOptions()),
	}
	opts := []pipeline.Option{pipeline.WithRetry(c.RetryPolicy())}
	if withStore {
		st, err := initStore(ctx, c)
		if err != nil {
			return nil, err
		}
		e.Store = st
		opts = append(opts, pipeline.WithStore(st))
	}
	e.Pipeline = pipeline.New(c.Pipeline(), reg, calc, opts...)
	return e, nil
}

// initStore opens the configured store and runs migrations.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	st, err := store.Open(ctx, c.Store.Driver, c.Store.DatabaseURL, c.PoolConfig())
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/typegraph/store"
	"github.com/wippyai/typegraph/store/filestore"
	"github.com/wippyai/typegraph/store/memstore"
	"github.com/wippyai/typegraph/store/neo4jstore"
	"github.com/wippyai/typegraph/types"
	"github.com/wippyai/typegraph/witimport"
)

type storeConfig struct {
	logger    *zap.Logger
	kind      string
	path      string
	neo4jURI  string
	neo4jUser string
	neo4jPass string
	neo4jDB   string
	watch     bool
}

// openManager opens the configured backend and loads the graph from it.
// The file backend is returned separately for watch.
func openManager(ctx context.Context, cfg storeConfig) (*types.Manager, *filestore.Backend, error) {
	if cfg.logger != nil {
		memstore.SetLogger(cfg.logger)
		witimport.SetLogger(cfg.logger)
	}

	var (
		backend store.Backend
		fs      *filestore.Backend
	)
	switch cfg.kind {
	case "file":
		opts := filestore.DefaultOptions()
		opts.Logger = cfg.logger
		opts.Path = cfg.path
		opts.Watch = cfg.watch
		b, err := filestore.Open(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", cfg.path, err)
		}
		backend, fs = b, b
	case "neo4j":
		b, err := neo4jstore.Open(ctx, neo4jstore.Config{
			Logger:   cfg.logger,
			URI:      cfg.neo4jURI,
			Username: cfg.neo4jUser,
			Password: cfg.neo4jPass,
			Database: cfg.neo4jDB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect %s: %w", cfg.neo4jURI, err)
		}
		backend = b
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.kind)
	}

	opts := types.DefaultOptions()
	opts.Logger = cfg.logger
	m := types.New(backend, opts)
	if err := m.Initialize(ctx); err != nil {
		_ = m.Close()
		return nil, nil, fmt.Errorf("load graph: %w", err)
	}
	return m, fs, nil
}

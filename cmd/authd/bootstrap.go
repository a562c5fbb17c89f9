package main

import (
	"context"
	"fmt"

	"github.com/MrEthical07/authcore/cache"
	"github.com/MrEthical07/authcore/internal/config"
	"github.com/MrEthical07/authcore/internal/obs"
	"github.com/MrEthical07/authcore/userstore"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func loadSettings(path string) (*config.Settings, *zap.Logger, error) {
	s, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := obs.NewLogger(s.LogConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return s, logger, nil
}

func openStore(ctx context.Context, s *config.Settings, logger *zap.Logger) (*userstore.Store, error) {
	store, err := userstore.Open(s.DB.Driver, s.DB.DSN,
		userstore.WithLogger(logger.Named("userstore")),
		userstore.WithQueryTimeout(s.DB.QueryTimeout),
	)
	if err != nil {
		return nil, err
	}
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return store, nil
}

// openCache returns the configured cache and a close func. The memory
// backend only suits a single instance.
func openCache(ctx context.Context, s *config.Settings, logger *zap.Logger) (cache.Store, pinger, func(), error) {
	if s.Cache.Driver == "memory" {
		logger.Warn("using in-process cache; sessions are lost on restart and not shared between instances")
		return cache.NewMemoryStore(), nil, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     s.Cache.Addr,
		Password: s.Cache.Password,
		DB:       s.Cache.DB,
	})
	store := cache.NewRedisStore(client, s.Cache.Prefix)
	if err := store.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("ping redis %s: %w", s.Cache.Addr, err)
	}
	return store, store, func() { _ = client.Close() }, nil
}

package main

import (
	"context"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/database/postgres"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/database/redis"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/search/milvus"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/search/opensearch"
)

// Readiness probe adapters for the backing stores.

type postgresHealthAdapter struct {
	pool *postgres.Pool
}

func (a *postgresHealthAdapter) Name() string { return "postgres" }

func (a *postgresHealthAdapter) Check(ctx context.Context) error {
	return a.pool.HealthCheck(ctx)
}

type redisHealthAdapter struct {
	client *redis.Client
}

func (a *redisHealthAdapter) Name() string { return "redis" }

func (a *redisHealthAdapter) Check(ctx context.Context) error {
	return a.client.Ping(ctx)
}

type milvusHealthAdapter struct {
	client *milvus.Client
}

func (a *milvusHealthAdapter) Name() string { return "milvus" }

func (a *milvusHealthAdapter) Check(ctx context.Context) error {
	return a.client.CheckHealth(ctx)
}

type opensearchHealthAdapter struct {
	client *opensearch.Client
}

func (a *opensearchHealthAdapter) Name() string { return "opensearch" }

func (a *opensearchHealthAdapter) Check(ctx context.Context) error {
	return a.client.Ping(ctx)
}

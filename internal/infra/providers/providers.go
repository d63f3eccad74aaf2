package providers

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/totegamma/taxonomy-sync/client"
	"github.com/totegamma/taxonomy-sync/internal/config"
	"github.com/totegamma/taxonomy-sync/internal/infra/cache"
	"github.com/totegamma/taxonomy-sync/internal/infra/database"
	"github.com/totegamma/taxonomy-sync/internal/infra/gateway"
	"github.com/totegamma/taxonomy-sync/internal/infra/repository"
	"github.com/totegamma/taxonomy-sync/internal/service"
	"github.com/totegamma/taxonomy-sync/internal/usecase"
)

const memcachedTimeout = time.Second

// NewAuditRecorder opens and migrates Postgres. Without a DSN nothing is recorded.
func NewAuditRecorder(conf config.Server) (usecase.AuditRecorder, error) {
	if conf.PostgresDsn == "" {
		return repository.NopAuditRecorder{}, nil
	}
	db, err := database.NewPostgres(conf.PostgresDsn)
	if err != nil {
		return nil, errors.Wrap(err, "providers.NewAuditRecorder: connect failed")
	}
	if err := database.MigratePostgres(db); err != nil {
		return nil, errors.Wrap(err, "providers.NewAuditRecorder: migrate failed")
	}
	return repository.NewAuditRepository(db), nil
}

// NewSharedTier returns nil when no memcached address is configured.
func NewSharedTier(conf config.Cache) cache.SharedTier {
	if conf.MemcachedAddr == "" {
		return nil
	}
	return cache.NewMemcachedTier(database.NewMemcached(conf.MemcachedAddr, memcachedTimeout), conf.TTL)
}

// NewSignal connects redis. Without an address it returns nil and a no-op closer.
func NewSignal(ctx context.Context, conf config.Server) (*service.SignalService, func() error, error) {
	if conf.RedisAddr == "" {
		return nil, func() error { return nil }, nil
	}
	rdb, err := database.NewRedis(ctx, conf.RedisAddr, conf.RedisPassword, conf.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return service.NewSignalService(rdb), rdb.Close, nil
}

// NewTaxonomyGateway constructs the gateway backed by the taxonomy client.
func NewTaxonomyGateway(conf config.Taxonomy, userAgent string) *gateway.TaxonomyGateway {
	return gateway.NewTaxonomyGateway(client.New(
		conf.ApiRoot,
		client.WithTimeout(conf.Timeout),
		client.WithUserAgent(userAgent),
	))
}

package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Schofield90/whatsapp-lead-system/internal/api/router"
	appconfig "github.com/Schofield90/whatsapp-lead-system/internal/config"
	"github.com/Schofield90/whatsapp-lead-system/internal/messaging"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// Runtime is an App together with the connections it owns.
type Runtime struct {
	*App
	Pool  *pgxpool.Pool
	Redis *redis.Client

	closers []func()
}

// Open connects every configured backend and builds the App. sender may be
// nil, in which case outbound messages are only logged.
func Open(ctx context.Context, cfg *appconfig.Config, sender messaging.Sender, reg prometheus.Registerer, logger *logging.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	rt := &Runtime{}

	pool, err := ConnectPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	rt.Pool = pool
	rt.closers = append(rt.closers, pool.Close)

	sqlDB, err := OpenSQL(cfg.DatabaseURL)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.closers = append(rt.closers, func() { _ = sqlDB.Close() })

	if rdb := BuildRedisClient(ctx, cfg, logger, true); rdb != nil {
		rt.Redis = rdb
		rt.closers = append(rt.closers, func() { _ = rdb.Close() })
	}

	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
	}

	llm, model, err := BuildLLMClient(ctx, cfg, &awsCfg, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}

	infra := Infra{
		Postgres:   pool,
		SQL:        sqlDB,
		Redis:      rt.Redis,
		LLM:        llm,
		Model:      model,
		Sender:     sender,
		Calendar:   BuildCalendar(ctx, cfg, logger),
		Email:      BuildEmailSender(cfg, sesv2.NewFromConfig(awsCfg), logger),
		Registerer: reg,
	}
	if cfg.TranscriptArchiveBucket != "" {
		infra.S3 = s3.NewFromConfig(awsCfg, func(o *s3.Options) { o.UsePathStyle = cfg.AWSEndpointOverride != "" })
	}
	if cfg.CostLedgerTable != "" {
		infra.Dynamo = dynamodb.NewFromConfig(awsCfg)
	}
	if cfg.ConversationQueueURL != "" {
		infra.SQS = sqs.NewFromConfig(awsCfg)
	}

	app, err := Build(cfg, infra, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.App = app
	return rt, nil
}

// Readiness returns the checks served on /ready.
func (rt *Runtime) Readiness() map[string]router.ReadinessCheck {
	checks := map[string]router.ReadinessCheck{}
	if rt.Pool != nil {
		checks["postgres"] = func(r *http.Request) error { return rt.Pool.Ping(r.Context()) }
	}
	if rt.Redis != nil {
		checks["redis"] = func(r *http.Request) error { return rt.Redis.Ping(r.Context()).Err() }
	}
	return checks
}

// Close releases connections in reverse order of opening.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

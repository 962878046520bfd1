// cmd/marketplace-service/main.go
package main

import (
	"context"
	"flag"
	"time"

	"partsmarket/internal/pkg/bootstrap"
	"partsmarket/internal/pkg/logger"
	"partsmarket/internal/pkg/mq"
	"partsmarket/internal/pkg/redis"
	"partsmarket/internal/service/order/application"
	"partsmarket/internal/service/order/domain/port"
	"partsmarket/internal/service/order/infrastructure"
	"partsmarket/internal/service/order/infrastructure/adapter"
	"partsmarket/internal/service/order/interfaces"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
)

// main 是组装根: 创建并组装所有依赖项，然后启动应用
func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults to $CONFIG_PATH)")
	flag.Parse()

	cfg, err := bootstrap.Init(*configPath)
	if err != nil {
		logger.Init("marketplace-service", "info", true)
		logger.Logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.App.Name, cfg.App.LogLevel, cfg.App.Env == "dev")
	ctx := context.Background()

	appCfg, err := applicationConfig(cfg)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("invalid application config")
	}

	// 1. 持久化
	db, err := infrastructure.OpenMySQL(ctx, infrastructure.MySQLOptions{
		DSN:             cfg.Infra.MySQL.DSN,
		MaxOpenConns:    cfg.Infra.MySQL.MaxOpenConns,
		MaxIdleConns:    cfg.Infra.MySQL.MaxOpenConns / 2,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to mysql")
	}
	transactor := infrastructure.NewGormTransactor(db)
	orderRepo := infrastructure.NewGormOrderRepository(db)
	partRepo := infrastructure.NewGormPartRepository(db)
	txRepo := infrastructure.NewGormTransactionRepository(db)
	accountRepo := infrastructure.NewGormAccountRepository(db)

	var cleanup []func(ctx context.Context)
	cleanup = append(cleanup, func(context.Context) {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	// 2. Redis: 状态缓存与事件去重，未配置时降级为直接读库
	var (
		statusCache port.OrderStatusCache
		dedup       port.EventDeduplicator
	)
	if len(cfg.Infra.Redis.Addrs) > 0 {
		redisClient, err := redis.NewClient(ctx, cfg.Infra.Redis.Addrs)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("failed to initialize redis client")
		}
		statusCache = adapter.NewStatusCacheRedisAdapter(redisClient)
		dedup = adapter.NewEventDedupRedisAdapter(redisClient)
		cleanup = append(cleanup, func(context.Context) { _ = redisClient.Close() })
	} else {
		logger.Logger.Warn().Msg("redis not configured, status cache and event dedup disabled")
	}

	// 3. Kafka: 领域事件、支付结果、死信
	var (
		publisher port.EventPublisher
		dltWriter *kafka.Writer
	)
	brokers := cfg.Infra.Kafka.Brokers
	if len(brokers) > 0 {
		eventsWriter := mq.NewWriter(brokers, cfg.Infra.Kafka.EventsTopic)
		dltWriter = mq.NewWriter(brokers, cfg.Infra.Kafka.DLTTopic)
		publisher = adapter.NewEventKafkaAdapter(eventsWriter, cfg.App.Name)
		cleanup = append(cleanup, func(context.Context) {
			_ = eventsWriter.Close()
			_ = dltWriter.Close()
		})
	} else {
		logger.Logger.Warn().Msg("kafka not configured, domain events are not published")
	}

	// 4. 应用服务
	tracer := otel.Tracer(cfg.App.Name)
	orderSvc := application.NewOrderApplicationService(transactor, orderRepo, partRepo, txRepo, accountRepo, publisher, statusCache, appCfg, tracer)
	txSvc := application.NewTransactionApplicationService(transactor, txRepo, orderRepo, partRepo, accountRepo, publisher, statusCache, appCfg, tracer)
	settlementSvc := application.NewSettlementApplicationService(transactor, accountRepo, appCfg, tracer)
	catalogSvc := application.NewCatalogApplicationService(transactor, accountRepo, partRepo, tracer)

	// 5. 驱动适配器: HTTP 与消费者
	handler := interfaces.NewHandler(orderSvc, txSvc, settlementSvc, catalogSvc)
	var workers []bootstrap.Worker
	if len(brokers) > 0 {
		workers = append(workers,
			interfaces.NewPaymentResultConsumer(
				mq.NewReader(brokers, cfg.Infra.Kafka.PaymentResultsTopic, cfg.Infra.Kafka.GroupID),
				cfg.Infra.Kafka.PaymentResultsTopic, txSvc, dedup, mq.NewFailureHandler(dltWriter),
			),
			interfaces.NewDltConsumerAdapter(
				mq.NewReader(brokers, cfg.Infra.Kafka.DLTTopic, cfg.Infra.Kafka.GroupID+"-dlt"),
				cfg.Infra.Kafka.DLTTopic,
			),
		)
	}

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: cfg.App.Name,
		Port:        cfg.App.Port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Router)
		},
		Workers: workers,
		Cleanup: cleanup,
	})
}

func applicationConfig(cfg *bootstrap.Config) (application.Config, error) {
	appCfg := application.DefaultConfig()
	if cfg.App.FeeRate != "" {
		rate, err := decimal.NewFromString(cfg.App.FeeRate)
		if err != nil {
			return appCfg, err
		}
		appCfg.FeeRate = rate
	}
	appCfg.ReversalWindow = time.Duration(cfg.App.ReversalWindowDays) * 24 * time.Hour
	appCfg.DefaultPremiumDays = cfg.App.DefaultPremiumDays
	return appCfg, nil
}

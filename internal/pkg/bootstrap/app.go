// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"partsmarket/internal/pkg/logger"
	"partsmarket/internal/pkg/metrics"
	"partsmarket/internal/pkg/nacos"
	"partsmarket/internal/pkg/tracing"
	"partsmarket/internal/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

// Worker 是随服务一起启停的后台任务 (例如 Kafka 消费者)
type Worker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
}

type AppCtx struct {
	Router chi.Router
	Nacos  *nacos.Client
}

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName      string
	Port             int
	RegisterHandlers func(appCtx AppCtx) // 注册服务自己的 HTTP 路由
	Workers          []Worker
	Cleanup          []func(ctx context.Context) // 关停时按注册的逆序执行
}

// StartService 封装了通用的启动和优雅关停逻辑，阻塞直到收到 SIGINT / SIGTERM
func StartService(info AppInfo) {
	cfg := GetCurrentConfig()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Tracer
	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	// 2. 服务注册 (可选)
	var (
		namingClient *nacos.Client
		ip           string
	)
	if cfg.Infra.Nacos.Enabled {
		namingClient, err = nacos.NewNacosClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("failed to initialize nacos client")
		}
		if ip, err = utils.GetOutboundIP(); err != nil {
			logger.Logger.Fatal().Err(err).Msg("failed to get outbound IP address")
		}
		if err := namingClient.RegisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			logger.Logger.Fatal().Err(err).Msg("failed to register service with nacos")
		}
	}

	// 3. HTTP 路由
	router := chi.NewRouter()
	router.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, metrics.Middleware)
	router.Handle("/metrics", metrics.Handler())
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Router: router, Nacos: namingClient})
	}
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(info.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 4. HTTP server 与后台任务共用一个 errgroup，任一失败都触发整体关停
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Logger.Info().Str("service", info.ServiceName).Int("port", info.Port).Msg("✅ HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	for _, w := range info.Workers {
		w := w
		g.Go(func() error { return w.Start(gctx) })
	}

	<-gctx.Done()
	logger.Logger.Info().Str("service", info.ServiceName).Msg("🛑 Shutting down service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 5. 关停顺序: 注销 -> HTTP -> 后台任务 -> 资源 -> tracer
	if namingClient != nil {
		if err := namingClient.DeregisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			logger.Logger.Error().Err(err).Msg("error deregistering from nacos")
		}
		namingClient.Close()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("error shutting down http server")
	}
	for _, w := range info.Workers {
		w.Stop(shutdownCtx)
	}
	for i := len(info.Cleanup) - 1; i >= 0; i-- {
		info.Cleanup[i](shutdownCtx)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("error shutting down tracer provider")
	}

	if err := g.Wait(); err != nil {
		logger.Logger.Error().Err(err).Str("service", info.ServiceName).Msg("service stopped with error")
		return
	}
	logger.Logger.Info().Str("service", info.ServiceName).Msg("✅ Service gracefully shut down.")
}

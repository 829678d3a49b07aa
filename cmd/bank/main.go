package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	centralbank "github.com/wyfcoding/mortgagebank/internal/centralbank/domain"
	creditsupply "github.com/wyfcoding/mortgagebank/internal/creditsupply/domain"
	"github.com/wyfcoding/mortgagebank/internal/lending/application"
	"github.com/wyfcoding/mortgagebank/internal/lending/domain"
	"github.com/wyfcoding/mortgagebank/internal/lending/infrastructure/market"
	"github.com/wyfcoding/mortgagebank/internal/lending/infrastructure/persistence/mysql"
	stateredis "github.com/wyfcoding/mortgagebank/internal/lending/infrastructure/persistence/redis"
	"github.com/wyfcoding/mortgagebank/internal/lending/infrastructure/publisher"
	grpc_server "github.com/wyfcoding/mortgagebank/internal/lending/interfaces/grpc"
	http_server "github.com/wyfcoding/mortgagebank/internal/lending/interfaces/http"
	"github.com/wyfcoding/mortgagebank/pkg/cache"
	"github.com/wyfcoding/mortgagebank/pkg/config"
	"github.com/wyfcoding/mortgagebank/pkg/db"
	"github.com/wyfcoding/mortgagebank/pkg/logger"
	"github.com/wyfcoding/mortgagebank/pkg/metrics"
	"github.com/wyfcoding/mortgagebank/pkg/middleware"
	"github.com/wyfcoding/mortgagebank/pkg/mq"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/bank/config.toml", "path to config file")
	flag.Parse()

	if err := run(configPath); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// 1. Config
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// 2. Logger
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log := logger.Get().With("service", cfg.ServiceName)

	ctx := context.Background()

	// 3. Metrics
	m := metrics.New(cfg.ServiceName)
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := m.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	// 4. Database
	gdb, err := db.Init(ctx, db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(gdb) }()

	if err := mysql.AutoMigrate(gdb); err != nil {
		return fmt.Errorf("migrate db failed: %w", err)
	}

	// 5. Redis & Kafka
	redisCache, err := cache.New(ctx, cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		return err
	}
	defer func() { _ = redisCache.Close() }()

	producer := mq.NewProducer(mq.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
	})
	defer func() { _ = producer.Close() }()

	// 6. Infrastructure & Domain
	mortgageRepo := mysql.NewMortgageRepo(gdb)
	stateRepo := stateredis.NewStateRedisRepository(redisCache.Client(), cfg.Redis.StatePrefix, 0)
	eventPublisher := publisher.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
	creditSink := publisher.NewAsyncCreditSink(eventPublisher, cfg.Kafka.SinkBuffer, log)
	yieldFeed := market.NewYieldFeed(redisCache, cfg.Market.YieldKey, cfg.Market.InitialYield)
	collector := creditsupply.NewCollector(cfg.CreditSupply.WindowMonths, cfg.CreditSupply.UKHouseholds)

	central, err := centralbank.NewPolicy(centralbank.PolicyValues{
		BaseRate:              cfg.CentralBank.BaseRate,
		FirstTimeBuyerLTI:     cfg.CentralBank.MaxFirstTimeBuyerLTI,
		OwnerOccupierLTI:      cfg.CentralBank.MaxOwnerOccupierLTI,
		MaxFractionOverLTI:    cfg.CentralBank.MaxFractionOverLTI,
		BuyToLetInterestCover: cfg.CentralBank.BuyToLetICR,
	})
	if err != nil {
		return err
	}

	bank, err := domain.NewBank(domain.Parameters{
		InitialRate:              cfg.Bank.InitialRate,
		CreditSupplyTarget:       cfg.Bank.CreditSupplyTarget,
		FeedbackGain:             cfg.Bank.FeedbackGain(),
		AffordabilityCoefficient: cfg.Bank.AffordabilityCoefficient,
		NPayments:                cfg.Bank.NPayments,
		Policy: domain.LendingPolicy{
			FirstTimeBuyerLTV: cfg.Bank.MaxFirstTimeBuyerLTV,
			OwnerOccupierLTV:  cfg.Bank.MaxOwnerOccupierLTV,
			BuyToLetLTV:       cfg.Bank.MaxBuyToLetLTV,
			FirstTimeBuyerLTI: cfg.Bank.MaxFirstTimeBuyerLTI,
			OwnerOccupierLTI:  cfg.Bank.MaxOwnerOccupierLTI,
		},
	}, central, yieldFeed, domain.CreditSinks{collector, creditSink}, nil)
	if err != nil {
		return err
	}

	// 7. Application
	svc := application.NewLendingService(bank, central, mortgageRepo, stateRepo, eventPublisher, collector, yieldFeed, m, log)
	if err := svc.Restore(ctx); err != nil {
		return fmt.Errorf("restore bank: %w", err)
	}

	driver := application.NewMonthlyDriver(svc, cfg.Scheduler.MonthSpec, cfg.Scheduler.Population, log)
	if cfg.Scheduler.Enabled {
		if err := driver.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit.Enabled {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.QPS), cfg.RateLimit.Burst)
	}

	// 8. Interfaces
	// gRPC
	unary := []grpc.UnaryServerInterceptor{
		middleware.GRPCRecoveryInterceptor(),
		middleware.GRPCLoggingInterceptor(),
		middleware.GRPCMetricsInterceptor(m),
	}
	if limiter != nil {
		unary = append(unary, middleware.GRPCRateLimitInterceptor(limiter))
	}
	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(unary...),
		grpc.MaxConcurrentStreams(cfg.GRPC.MaxConcurrentStreams),
	)
	grpc_server.RegisterLendingServer(grpcSrv, grpc_server.NewServer(svc))
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(grpc_server.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcSrv, healthSrv)

	// HTTP
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.GinRecoveryMiddleware(), middleware.GinLoggingMiddleware(), middleware.GinMetricsMiddleware(m))
	if limiter != nil {
		r.Use(middleware.GinRateLimitMiddleware(limiter))
	}

	sys := r.Group("/sys")
	{
		sys.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })
		sys.GET("/ready", func(c *gin.Context) {
			if err := redisCache.Client().Ping(c.Request.Context()).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "NOT_READY", "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "READY", "month": bank.Snapshot().Month})
		})
	}
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	}
	pp := r.Group("/debug/pprof")
	{
		pp.GET("/", gin.WrapF(pprof.Index))
		pp.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		pp.GET("/profile", gin.WrapF(pprof.Profile))
		pp.GET("/symbol", gin.WrapF(pprof.Symbol))
		pp.GET("/trace", gin.WrapF(pprof.Trace))
	}

	http_server.NewLendingHandler(svc, driver).RegisterRoutes(r)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// 9. Start
	sinkCtx, stopSink := context.WithCancel(context.Background())
	defer stopSink()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return creditSink.Run(sinkCtx)
	})

	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		log.Info("gRPC server starting", "addr", addr)
		return grpcSrv.Serve(lis)
	})

	g.Go(func() error {
		log.Info("HTTP server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 10. Graceful Shutdown
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			log.Info("shutting down servers...")
		case <-gctx.Done():
			log.Info("context cancelled, shutting down...")
		}

		healthSrv.Shutdown()
		if cfg.Scheduler.Enabled {
			driver.Stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown failed", "error", err)
		}
		grpcSrv.GracefulStop()
		stopSink()
		return nil
	})

	return g.Wait()
}

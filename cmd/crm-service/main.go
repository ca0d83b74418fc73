package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/CarLeaseHub/CarLeaseHub/internal/common/config"
	"github.com/CarLeaseHub/CarLeaseHub/internal/common/db"
	"github.com/CarLeaseHub/CarLeaseHub/internal/common/logger"
	"github.com/CarLeaseHub/CarLeaseHub/internal/common/metrics"
	"github.com/CarLeaseHub/CarLeaseHub/internal/common/middleware"
	"github.com/CarLeaseHub/CarLeaseHub/internal/common/server"
	"github.com/CarLeaseHub/CarLeaseHub/internal/common/tracing"
	"github.com/CarLeaseHub/CarLeaseHub/internal/customer"
	"github.com/CarLeaseHub/CarLeaseHub/internal/fleet"
	"github.com/CarLeaseHub/CarLeaseHub/internal/lease"
	"github.com/CarLeaseHub/CarLeaseHub/internal/view"
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	consulKey := flag.String("consul-config-key", "", "consul KV key holding the config JSON (overrides the file)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	// 配置中心模式：本地文件只提供 Consul 地址，完整配置从 KV 拉取
	if *consulKey != "" {
		cfg, err = config.LoadConfigFromConsulKV(cfg.Consul.Host, cfg.Consul.Port, *consulKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config from consul: %v\n", err)
			os.Exit(1)
		}
	}

	log, err := logger.NewLogger(cfg.Log.Driver, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	// 链路追踪（失败不阻塞启动）
	tracer, closer, err := tracing.InitTracer(cfg.Server.Name, cfg.Jaeger.Endpoint, cfg.Jaeger.Sampler)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		opentracing.SetGlobalTracer(tracer)
		defer closer.Close()
	}

	gormDB, err := db.NewMySQL(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.MaxIdle,
		cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Errorf("failed to connect to database: %v", err)
		os.Exit(1)
	}

	if err := gormDB.AutoMigrate(
		&fleet.Owner{},
		&fleet.Car{},
		&customer.Customer{},
		&lease.Lease{},
	); err != nil {
		log.Errorf("failed to migrate database: %v", err)
		os.Exit(1)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// 读侧缓存（Redis 可选）
	var cache *view.CarCache
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		cache = view.NewCarCache(client, log)
	}

	// 业务装配：租约清理接口由 lease.Repo 提供，写路径变更后失效读缓存
	leaseRepo := lease.NewRepo(gormDB)
	registry := fleet.NewRegistry(gormDB, leaseRepo)
	customers := customer.NewService(gormDB, leaseRepo)
	manager := lease.NewManager(gormDB, lease.SystemClock(), m)
	views := view.NewService(gormDB, cache)

	manager.SetOnChange(views.InvalidateCars)
	registry.SetOnChange(views.InvalidateCars)

	fleetHandler := fleet.NewHTTPHandler(registry, log)
	customerHandler := customer.NewHTTPHandler(customers, log)
	leaseHandler := lease.NewHTTPHandler(manager, log)
	viewHandler := view.NewHTTPHandler(views, log)

	writeLimiter := middleware.NewTokenBucket(100, 50)

	err = server.RunHTTPServer(cfg, log, m, func(r *gin.Engine) error {
		admin := r.Group("/api/admin")
		if cfg.Auth.Enabled {
			admin.Use(server.JWTAuth(cfg.Auth, log), server.RequireRole(cfg.Auth, "admin"))
		}

		viewHandler.RegisterRoutes(admin)

		writes := admin.Group("", server.RateLimit(writeLimiter))
		fleetHandler.RegisterRoutes(writes)
		customerHandler.RegisterRoutes(writes)
		leaseHandler.RegisterRoutes(writes)
		return nil
	})
	if err != nil {
		log.Errorf("server exited with error: %v", err)
		os.Exit(1)
	}
}

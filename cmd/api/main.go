package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ringba-sync-dashboard/internal/cache"
	"ringba-sync-dashboard/internal/config"
	"ringba-sync-dashboard/internal/httpapi"
	"ringba-sync-dashboard/internal/metrics"
	"ringba-sync-dashboard/internal/reporting"
	"ringba-sync-dashboard/internal/routing"
	"ringba-sync-dashboard/internal/spa"
	"ringba-sync-dashboard/pkg/logger"
	"ringba-sync-dashboard/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "ringba-dashboard:"

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// The pool connects lazily. A database that is down only fails the
	// payload endpoints (503) while assets and the SPA keep serving.
	pool := utils.PoolConfig{PingTimeout: 5 * time.Second}
	db, err := utils.OpenPool(cfg.DB.Driver, cfg.DSN(), pool)
	if err != nil {
		log.Error("database init failed", "err", err, "driver", cfg.DB.Driver)
		os.Exit(1)
	}
	defer db.Close()
	if err := utils.HealthCheck(rootCtx, db, pool.PingTimeout); err != nil {
		log.Warn("database not reachable at startup", "err", err, "driver", cfg.DB.Driver)
	}

	var rdb *redis.Client
	if cfg.RedisEnabled() && cfg.CacheEnabled() {
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn("redis unavailable, using in-process cache", "err", err)
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	m := metrics.New()

	resolver, err := routing.NewResolver(cfg.Web.BuildDir, cfg.Web.ProxyPrefix, nil)
	if err != nil {
		log.Error("router init failed", "err", err)
		os.Exit(1)
	}
	shell := spa.NewShell(resolver.BuildRoot(), resolver.Prefix())
	if !shell.Available() {
		log.Warn("front-end build not found, serving fallback page", "build_dir", resolver.BuildRoot())
	}

	srv, err := httpapi.NewServer(httpapi.Options{
		Resolver: resolver,
		Payloads: reporting.NewService(reporting.NewSQLSource(db, cfg.DB.Driver)),
		Shell:    shell,
		Cache:    payloadCache(cfg, rdb),
		Metrics:  m,
	})
	if err != nil {
		log.Error("server init failed", "err", err)
		os.Exit(1)
	}

	r := newRouter(log, srv, m)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening",
			"addr", httpSrv.Addr,
			"env", cfg.App.Env,
			"driver", cfg.DB.Driver,
			"build_dir", resolver.BuildRoot(),
			"proxy_prefix", resolver.Prefix(),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// payloadCache picks redis when reachable, else an in-process LRU. TTL 0 disables caching.
func payloadCache(cfg config.Config, rdb *redis.Client) cache.Cache {
	if !cfg.CacheEnabled() {
		return cache.Noop{}
	}
	if rdb != nil {
		return cache.NewRedis(rdb, cacheKeyPrefix, cfg.Cache.TTL)
	}
	return cache.NewMemory(cfg.Cache.Size, cfg.Cache.TTL)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TIANLI0/AttackLens/config"
	"github.com/TIANLI0/AttackLens/handler"
	"github.com/TIANLI0/AttackLens/middleware"
	"github.com/TIANLI0/AttackLens/page"
	"github.com/TIANLI0/AttackLens/service"
	"github.com/TIANLI0/AttackLens/utils"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	BuildID   = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	exportDir := flag.String("export", "", "prerender the page into this directory and exit")
	flag.Parse()

	cfg := config.New(*configPath)

	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()

	if *exportDir != "" {
		path, err := page.Export(*exportDir, page.MetaFromConfig(&cfg.Site))
		if err != nil {
			utils.Logger.Fatal("failed to export page", zap.Error(err))
		}
		utils.Logger.Info("page exported", zap.String("path", path))
		return
	}

	utils.Logger.Info("starting AttackLens server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("git_branch", GitBranch),
		zap.String("attack_api", cfg.API.BaseURL))

	var attacker service.Attacker = service.NewAttackClient(&cfg.API)

	// optional result cache
	if cfg.Redis.Enabled {
		redisService := service.NewRedisService(&cfg.Redis)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := redisService.Ping(ctx)
		cancel()
		if err != nil {
			utils.Logger.Warn("redis connection failed, cache disabled", zap.Error(err))
		} else {
			utils.Logger.Info("redis connected successfully")
			attacker = service.NewCachedAttacker(attacker, redisService)
		}
		defer redisService.Close()
	}

	attackHandler := handler.NewAttackHandler(cfg, attacker)

	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"version": Version,
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"build_id":   BuildID,
			"git_commit": GitCommit,
			"git_branch": GitBranch,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	attackHandler.Register(r)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		utils.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	utils.Logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Logger.Error("server shutdown failed", zap.Error(err))
	}
}

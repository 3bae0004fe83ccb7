package main

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/padraicbc/chartapi/config"
	"github.com/padraicbc/chartapi/db"
	"github.com/padraicbc/chartapi/handlers"
	"github.com/padraicbc/chartapi/ingest"
	applog "github.com/padraicbc/chartapi/logger"
	mw "github.com/padraicbc/chartapi/middleware"
	"github.com/padraicbc/chartapi/registry"
)

func main() {
	cfg := config.Load()
	logger, err := applog.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	bdb := db.Setup(cfg)
	defer bdb.Close()

	if err := db.CreateTables(context.Background(), bdb); err != nil {
		logger.Fatal("create tables failed", zap.Error(err))
	}

	store := registry.NewBunStore(bdb)
	reg := registry.NewService(store, logger)
	orch := ingest.NewOrchestrator(reg, logger, cfg.MaxBatchSize, cfg.AutoAcceptScore, cfg.ReviewScore)
	h := handlers.New(bdb, reg, orch, cfg.JWTKey())

	e := echo.New()
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.Int("status", v.Status),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			switch {
			case v.Status >= 500:
				logger.Error("http request", fields...)
			case v.Status >= 400:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"*", "Authorization"},
		AllowCredentials: true,
	}))

	// Public
	e.POST("/api/signin", h.Signin)

	// Protected – require valid JWT in Authorization header
	api := e.Group("/api", mw.JWT(cfg.JWTKey()))
	api.POST("/password-hash", h.PasswordHash)

	api.POST("/charts/parse", h.ParseCharts)
	api.GET("/charts/batches/:id", h.GetBatch)
	api.POST("/charts/commit", h.CommitCharts)

	api.GET("/horses", h.SearchHorses)
	api.POST("/horses", h.SaveHorse)
	api.POST("/horses/merge", h.MergeHorses)
	api.POST("/horses/rename", h.RenameHorse)
	api.POST("/horses/unmerge", h.UnmergeHorse)
	api.GET("/horses/:id/history", h.GetHistory)
	api.POST("/horses/:id/history", h.AddHistoryNote)

	logger.Info("starting server", zap.String("addr", cfg.Port), zap.Bool("debug", cfg.Debug))
	if err := e.Start(cfg.Port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

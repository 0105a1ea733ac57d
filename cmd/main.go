package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"evacconsole/internal/credentials"
	"evacconsole/internal/handlers"
	"evacconsole/internal/layout"
	"evacconsole/internal/logger"
	"evacconsole/internal/repository"
	"evacconsole/internal/repository/db"
	"evacconsole/internal/server"
	"evacconsole/internal/service"
	"evacconsole/internal/transport"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// config first so the log level can come from it
	cfgErr := loadConfig()
	log := logger.Get(viper.GetString("log.level"))
	if cfgErr != nil {
		log.Fatalw("error reading config", "err", cfgErr)
	}

	sqlDB, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	creds, err := credentials.New(ctx, repos.Prefs, viper.GetString("api.base_url"), log.Named("credentials"))
	if err != nil {
		log.Fatalw("failed to load credentials", "err", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	client := transport.New(transport.Options{
		Credentials: creds.Get,
		OnForbidden: func() { creds.Invalidate(context.Background()) },
		Timeout:     viper.GetDuration("api.timeout"),
		TokenHeader: viper.GetString("api.token_header"),
		Logger:      log,
		Metrics:     transport.NewMetrics(registry),
	})
	services := service.New(client, creds, log)
	apiHandler := handlers.NewHandler(services, layout.New(repos.Prefs), handlers.Config{
		Metrics:        registry,
		StreamInterval: viper.GetDuration("ws.interval"),
	}, log)

	srv := &server.Server{}
	runHTTPServer(srv, server.Config{
		Port:         viper.GetString("port"),
		WriteTimeout: viper.GetDuration("server.write_timeout"),
	}, apiHandler, log)

	if creds.Get().HasToken() {
		go warmUp(ctx, services, log)
	}

	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.SetDefault("port", "8080")
	viper.SetDefault("db.path", "console.db")
	viper.SetDefault("log.level", logger.InfoLevel)
	viper.SetDefault("api.timeout", transport.DefaultTimeout)
	viper.SetDefault("api.token_header", transport.DefaultTokenHeader)
	viper.SetDefault("ws.interval", time.Second)

	viper.SetEnvPrefix("EVAC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	log.Infow("opening preferences store", "path", dbPath)
	return db.InitDB(dbPath)
}

// warmUp loads the floor list and backend health once so the first page has data.
func warmUp(ctx context.Context, services *service.Service, log *logger.Logger) {
	if _, err := services.System.CheckHealth(ctx); err != nil {
		log.Warnw("startup_health_check_failed", "err", err)
	}
	if _, err := services.Floors.List(ctx); err != nil {
		log.Warnw("startup_floor_list_failed", "err", err)
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, cfg server.Config, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		log.Infow("console listening", "port", cfg.Port)
		if err := srv.Run(cfg, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}

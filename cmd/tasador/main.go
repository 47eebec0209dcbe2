// Command tasador serves the price estimator form and API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ezoic/tasador/config"
	"github.com/ezoic/tasador/dataset"
	"github.com/ezoic/tasador/pkg/log"
	"github.com/ezoic/tasador/server"
	"github.com/ezoic/tasador/valuation"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tasador:", err)
		os.Exit(1)
	}
	log.Setup(cfg.Log.LogOptions())
	logger := log.GetLoggerWithName("tasador")

	options := []valuation.Option{
		valuation.WithErrorMargin(cfg.Model.ErrorMargin),
	}

	// A missing artifact is reported by the page; the server still starts.
	artifact, err := valuation.Load(cfg.Model.Path)
	if err != nil {
		log.LogError(err, "Price model not loaded", log.PathKey, cfg.Model.Path)
		artifact = nil
	} else {
		logger.Info("Price model loaded",
			log.PathKey, cfg.Model.Path,
			"id", artifact.Summary.ID,
			"trained_at", artifact.Summary.TrainedAt,
		)
	}

	if cfg.Model.MenuCSV != "" {
		catalog, err := dataset.LoadCatalog(cfg.Model.MenuCSV)
		if err != nil {
			log.LogError(err, "Menu file not loaded, using the model catalog", log.PathKey, cfg.Model.MenuCSV)
		} else {
			options = append(options, valuation.WithCatalog(catalog))
		}
	}

	srv, err := server.New(
		valuation.NewEstimator(artifact, options...),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
	)
	if err != nil {
		log.LogError(err, "Server setup failed")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(":" + cfg.Server.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.LogError(err, "Server stopped")
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.LogError(err, "Shutdown failed")
		}
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kass/geo-planner/internal/config"
	"github.com/kass/geo-planner/internal/view"
	"github.com/kass/geo-planner/pkg/api"
	"github.com/kass/geo-planner/pkg/archive"
	"github.com/kass/geo-planner/pkg/export"
	"github.com/kass/geo-planner/pkg/geomap"
	"github.com/kass/geo-planner/pkg/logger"
	"github.com/kass/geo-planner/pkg/models"
)

// app holds what every command builds from the configuration
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	client *api.Client

	store  archive.Store
	opened bool
}

func setup(ctx context.Context, interactive bool) (*app, error) {
	cfg, source, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if source == config.ExampleFile && !interactive {
		printInfo("Using config.yaml.example (copy to config.yaml for custom settings)")
	}

	level := logger.ParseLevel(cfg.Log.Level)
	if verbose {
		level = zapcore.DebugLevel
	}
	if err := logger.Init(level, logDestination(interactive, cfg.Log.File), zap.String("service", "geoplanner")); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	log := logger.Log
	log.Debug("Configuration loaded", zap.String("source", source), zap.String("api", cfg.API.BaseURL))

	client, err := api.New(cfg.API.BaseURL,
		api.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		api.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst),
		api.WithDetailTTL(cfg.API.DetailTTL),
		api.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: log, client: client}, nil
}

// archive opens the configured store once. A nil store means planners are
// not kept.
func (a *app) archive(ctx context.Context) (archive.Store, error) {
	if a.opened {
		return a.store, nil
	}
	a.opened = true

	switch a.cfg.Archive.Driver {
	case "none":
		return nil, nil
	case "postgis":
		pg := a.cfg.Archive.PostGIS
		store, err := archive.NewPostGISStore(ctx, archive.ConnString(pg.Host, pg.Port, pg.User, pg.Password, pg.Database, pg.SSLMode))
		if err != nil {
			return nil, err
		}
		a.logger.Info("Archive connected", zap.String("driver", "postgis"), zap.String("host", pg.Host))
		a.store = store
	default:
		a.store = archive.NewFileStore(a.cfg.Archive.Path)
	}
	return a.store, nil
}

func (a *app) viewDeps(ctx context.Context) (view.Deps, error) {
	store, err := a.archive(ctx)
	if err != nil {
		return view.Deps{}, err
	}

	renderer, err := export.NewRenderer(a.cfg.Export.Width, a.cfg.Export.FontSize)
	if err != nil {
		return view.Deps{}, err
	}
	sinks := []export.Sink{export.FileSink{Dir: a.cfg.Export.Dir}}
	if bucket := a.cfg.Export.S3.Bucket; bucket != "" {
		s3Sink, err := export.NewS3SinkFromEnv(ctx, bucket, a.cfg.Export.S3.Region)
		if err != nil {
			return view.Deps{}, err
		}
		sinks = append(sinks, s3Sink)
	}

	return view.Deps{
		Source:  a.client,
		Details: a.client,
		Bridge:  export.NewBridge(renderer, a.client, store, a.logger, sinks...),
		Archive: store,
		NewWidget: func(center models.Location) view.MapWidget {
			return geomap.NewCanvas(center)
		},
		Logger: a.logger,
	}, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("Failed to close archive", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"camclassify/internal/config"
	"camclassify/internal/logger"
	"camclassify/internal/routes"
	"camclassify/internal/service/ai"
	aiopencv "camclassify/internal/service/ai/opencv"
	"camclassify/internal/service/camera"
	camopencv "camclassify/internal/service/camera/opencv"
	"camclassify/internal/service/camera/udp"
	"camclassify/internal/service/capture"
	"camclassify/internal/service/export"
	"camclassify/internal/service/storage"
	"camclassify/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	classifier ai.Classifier
	source     camera.Source
	store      *storage.PredictionStore
	hub        *websocket.HubService
	loop       *capture.Loop
	exporter   *export.Exporter
}

// NewApp wires every service from cfg. Nothing is opened yet.
func NewApp(cfg *config.Config) (*App, error) {
	log := logger.NewLogger(cfg)

	source, err := newSource(cfg, log)
	if err != nil {
		log.Close()
		return nil, err
	}

	store := storage.NewPredictionStore(cfg, log)
	hub := websocket.NewHubService(log)
	classifier := aiopencv.NewClassifierService(cfg, log)

	// commit failures happen after the tick returned, surface them to viewers
	store.OnWriteFailed(func(err error) {
		hub.Notify(capture.Event{Type: capture.EventStorageWarning, Time: time.Now(), Error: err.Error()})
	})

	return &App{
		config:     cfg,
		logger:     log,
		classifier: classifier,
		source:     source,
		store:      store,
		hub:        hub,
		loop:       capture.NewLoop(cfg, source, classifier, store, hub, log),
		exporter:   export.NewExporter(store),
	}, nil
}

func newSource(cfg *config.Config, log *logger.Logger) (camera.Source, error) {
	switch cfg.DeviceDriver {
	case "udp":
		cameras, err := config.LoadCameras(cfg.CamerasFile)
		if err != nil {
			return nil, err
		}
		source := udp.NewSource(cfg, cameras, log)
		if cfg.DefaultDevice != "" {
			if err := source.SelectDevice(cfg.DefaultDevice); err != nil {
				log.Warning("Default camera %s not usable: %v", cfg.DefaultDevice, err)
			}
		}
		return source, nil
	default:
		return camopencv.NewSource(cfg, log), nil
	}
}

// Run loads the model, serves HTTP until ctx is cancelled and then shuts
// everything down. A model that cannot be loaded is fatal; a store or camera
// that is unavailable is only reported.
func (a *App) Run(ctx context.Context) error {
	defer a.logger.Close()

	if err := a.classifier.LoadModel(ctx); err != nil {
		a.logger.Error("Failed to load model: %v", err)
		return fmt.Errorf("failed to load model: %w", err)
	}
	defer a.classifier.Close()

	if err := a.store.Open(ctx); err != nil {
		a.logger.Warning("Predictions will not be saved until storage is available: %v", err)
	}
	defer a.store.Close()

	if devices, err := a.source.Devices(ctx); err != nil || len(devices) == 0 {
		a.logger.Warning("No camera available: %v", err)
	} else {
		a.logger.Info("Found %d camera(s)", len(devices))
	}

	go a.hub.Run(ctx)

	router := routes.SetupRoutes(routes.Dependencies{
		StaticDirectory: a.config.StaticDirectory,
		Source:          a.source,
		Capture:         a.loop,
		Store:           a.store,
		Exporter:        a.exporter,
		Hub:             a.hub,
		Logger:          a.logger,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: router,
	}

	fmt.Printf("🚀 Camera Classifier Server\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("🤖 Model: %s\n", a.config.ModelPath)
	fmt.Printf("💾 Store: %s\n", a.config.StoreDriver)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			a.shutdown(server)
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.logger.Info("Shutting down")
		a.shutdown(server)
		return nil
	}
}

// shutdown stops accepting requests, stops capture and lets in-flight
// predictions reach the store before it is closed.
func (a *App) shutdown(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		a.logger.Warning("HTTP shutdown: %v", err)
	}
	if err := a.loop.Shutdown(ctx); err != nil {
		a.logger.Warning("Capture shutdown: %v", err)
	}
}

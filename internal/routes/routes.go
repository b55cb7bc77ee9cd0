package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"camclassify/internal/handler"
	"camclassify/internal/logger"
	"camclassify/internal/middleware"
	"camclassify/internal/service/camera"
	"camclassify/internal/service/export"
	"camclassify/internal/service/websocket"
)

// Dependencies groups the services served over HTTP.
type Dependencies struct {
	StaticDirectory string
	Source          camera.Source
	Capture         handler.CaptureController
	Store           handler.PredictionStore
	Exporter        *export.Exporter
	Hub             *websocket.HubService
	Logger          *logger.Logger
}

// dynamicHTMLHandler serves /path as <static>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers static file serving, API endpoints and log views,
// and wraps the mux with logging and panic recovery.
func SetupRoutes(deps Dependencies) http.Handler {
	mux := http.NewServeMux()
	log := deps.Logger

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(deps.StaticDirectory))))

	// Camera
	mux.HandleFunc("GET /api/devices", handler.DevicesHandler(deps.Source, log))
	mux.HandleFunc("POST /api/devices/select", handler.SelectDeviceHandler(deps.Capture, log))
	mux.HandleFunc("POST /api/camera/toggle", handler.ToggleHandler(deps.Capture, log))
	mux.HandleFunc("GET /api/camera/status", handler.StatusHandler(deps.Capture, log))

	// Predictions
	mux.HandleFunc("GET /api/predictions", handler.PredictionsHandler(deps.Store, log))
	mux.HandleFunc("GET /api/predictions/export", handler.ExportHandler(deps.Exporter, log))
	mux.HandleFunc("POST /api/predictions/clear", handler.ClearPredictionsHandler(deps.Store, log))
	mux.HandleFunc("GET /api/predictions/stats", handler.StatsHandler(deps.Store, log))

	// Live events
	mux.HandleFunc("GET /api/events", handler.EventsWebsocketHandler(deps.Hub, log))

	// Log endpoints
	for name, file := range map[string]string{
		"info":    logger.InfoFile,
		"warning": logger.WarningFile,
		"error":   logger.ErrorFile,
	} {
		mux.HandleFunc("GET /logs/"+name, handler.ShowLogsHandler(log, file))
		mux.HandleFunc("POST /logs/"+name+"/clear", handler.ClearLogsHandler(log, file))
	}

	// Automatic HTML handler mapping for example: /history -> <static>/history.html
	mux.HandleFunc("/", dynamicHTMLHandler(deps.StaticDirectory))

	return middleware.RecoverMiddleware(log, middleware.LoggingMiddleware(log, mux))
}

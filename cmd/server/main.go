package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/geoimport/backend/internal/api"
	"github.com/geoimport/backend/internal/config"
	"github.com/geoimport/backend/internal/directory"
	"github.com/geoimport/backend/internal/ingest"
	"github.com/geoimport/backend/internal/persist"
	"github.com/geoimport/backend/internal/session"
	"github.com/geoimport/backend/internal/storage"
	"github.com/geoimport/backend/internal/store"
	"github.com/geoimport/backend/internal/upload"
	"github.com/geoimport/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

type options struct {
	Config    string `short:"c" long:"config" description:"Path to the XML config file (defaults to GeoImport.exe.config next to the binary)"`
	LogLevel  string `long:"log-level" description:"Log level override (trace, debug, info, warn, error)"`
	Directory string `long:"directory" description:"Path to the project/package directory YAML file"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(1)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	configPath := opts.Config
	if configPath == "" {
		exePath, err := os.Executable()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to resolve executable path")
		}
		configPath = filepath.Join(filepath.Dir(exePath), "GeoImport.exe.config")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load configuration")
	}

	level := cfg.Advanced.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	if parsed, err := zerolog.ParseLevel(level); err == nil {
		log = log.Level(parsed)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatal().Err(err).Msg("failed to create data directories")
	}

	if opts.Directory != "" {
		cfg.Directory.Path = opts.Directory
	}
	dir, err := directory.LoadOrDefault(cfg.Directory.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Directory.Path).Msg("failed to load project directory")
	}

	fileStore, err := storage.NewLocalStore(cfg.GetUploadDir())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}

	state := store.New()
	parser := ingest.NewParser(ingest.NewAssembler(nil))
	sessionMgr := session.NewManager(parser, fileStore, state, log)
	uploadMgr := upload.NewManager(fileStore, log)

	importStore, err := persist.NewImportStore(cfg.Storage.DatabasePath, log)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Storage.DatabasePath).Msg("failed to open import database")
	}
	defer importStore.Close()

	// Background cleanup of finished sessions and upload jobs
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Processing.CleanupIntervalMinutes) * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			maxAge := time.Duration(cfg.Processing.SessionTimeoutMinutes) * time.Minute
			sessionMgr.CleanupOldSessions(maxAge)
			uploadMgr.CleanupOldJobs(maxAge)
		}
	}()

	h := api.NewHandler(api.Dependencies{
		Files:    fileStore,
		Sessions: sessionMgr,
		Uploads:  uploadMgr,
		State:    state,
		Imports:  importStore,
		Dir:      dir,
		Version:  Version,
		Log:      log,
	})
	wsHandler := api.NewWebSocketHandler(h)

	embeddedMode := web.HasEmbeddedFiles()

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/status") ||
				strings.HasSuffix(path, "/progress") ||
				path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.Contains(path, "/stream") ||
				strings.Contains(path, "/upload") ||
				strings.Contains(path, "/ws/") ||
				c.Request().Header.Get("Accept") == "text/event-stream"
		},
		ErrorMessage: "request timeout",
	}))

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		if embeddedMode {
			origins := strings.Split(cfg.Server.AllowOrigins, ",")
			for i := range origins {
				origins[i] = strings.TrimSpace(origins[i])
			}
			if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
				origins = []string{"*"}
			}
			e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
				AllowOrigins: origins,
				AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
				AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			}))
		} else {
			// Development mode - only allow localhost
			e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
				AllowOrigins: []string{
					"http://localhost:5173", "http://127.0.0.1:5173",
					"http://localhost:3000", "http://127.0.0.1:3000",
				},
				AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
				AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			}))
		}
	}

	api.RegisterRoutes(e, h)
	api.RegisterWebSocketRoutes(e, wsHandler)

	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			log.Warn().Err(err).Msg("failed to register static routes")
		} else {
			log.Info().Msg("serving embedded frontend from binary")
		}
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	log.Info().
		Str("version", Version).
		Str("buildTime", BuildTime).
		Str("config", configPath).
		Str("listen", cfg.GetServerAddr()).
		Str("dataDir", cfg.GetDataDir()).
		Bool("embedded", embeddedMode).
		Msg("geoimport server starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.StartServer(s); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
	log.Info().Msg("server stopped")
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"rps-arena/config"
	"rps-arena/handlers"
	"rps-arena/middleware"
	"rps-arena/services"
	"rps-arena/storage"
	"rps-arena/utils"
	"rps-arena/workers"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server_failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := utils.NewLogger(utils.LogConfig{
		Level:      cfg.Log.Level,
		Dir:        cfg.Log.Dir,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}, "rps-arena.log")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timeline, err := services.NewTimeline(logger)
	if err != nil {
		return err
	}

	hub := services.NewHub(cfg.SendBuffer, logger)
	games := services.NewGameService()
	tournaments := services.NewTournamentService()
	replays := services.NewReplayService(cfg.ReplayCapacity)
	ai := services.NewAIOpponent(services.WithHistorySize(cfg.AIHistorySize))

	archiver, archiveReader, err := openArchive(ctx, cfg.Archive)
	if err != nil {
		return err
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var sink services.ReplaySink
	var archiveRuns handlers.ArchiveStats
	var archiveWorker *workers.ArchiveWorker
	if archiver != nil {
		archiveWorker = workers.NewArchiveWorker(archiver, cfg.Archive.Workers, cfg.Archive.QueueSize, logger)
		archiveWorker.Start(workerCtx)
		sink, archiveRuns = archiveWorker, archiveWorker
	}

	lobby := services.NewLobbyService(services.LobbyDeps{
		Games:       games,
		Tournaments: tournaments,
		Replays:     replays,
		AI:          ai,
		Notifier:    hub,
		Scheduler:   timeline,
		Archive:     sink,
		Log:         logger,
	}, services.LobbyConfig{
		MatchCompleteDelay: cfg.MatchCompleteDelay,
		ChatRatePerSec:     cfg.ChatRatePerSec,
	})
	dispatcher := handlers.NewDispatcher(lobby, hub, logger)
	tokens := middleware.NewConnectionTokens(cfg.ConnectionSecret)

	app := fiber.New(fiber.Config{
		AppName:     "rps-arena",
		BodyLimit:   64 * 1024,
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})
	app.Use(middleware.RequestLogger(logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, Cache-Control, " + middleware.ConnectionHeader,
		ExposeHeaders: "Content-Length, Content-Type",
		MaxAge:        86400,
	}))

	handlers.SetupRoutes(app, handlers.Deps{
		Hub:         hub,
		Lobby:       lobby,
		Games:       games,
		Tournaments: tournaments,
		Replays:     replays,
		Dispatcher:  dispatcher,
		Tokens:      tokens,
		Archive:     archiveReader,
		ArchiveRuns: archiveRuns,
		Log:         logger,
	})

	cleanup, err := workers.NewCleanupWorker(lobby, cfg.TournamentTTL, cfg.CleanupInterval, logger)
	if err != nil {
		return err
	}
	if err := cleanup.Start(); err != nil {
		return err
	}

	var wsServer *http.Server
	if cfg.WSAddr != "" {
		ws := handlers.NewWebSocketServer(hub, lobby, dispatcher, tokens, cfg.AllowedOrigins, logger)
		wsServer = &http.Server{
			Addr:              cfg.WSAddr,
			Handler:           ws.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ws_server_failed", "err", err)
				stop()
			}
		}()
		logger.Info("ws_server_listening", "addr", cfg.WSAddr)
	}

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			logger.Error("http_server_failed", "err", err)
			stop()
		}
	}()
	logger.Info("server_started",
		"http", cfg.HTTPAddr,
		"ws", cfg.WSAddr,
		"archive", cfg.Archive.Backend,
		"origins", cfg.AllowedOrigins,
	)

	<-ctx.Done()
	logger.Info("shutting_down")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http_shutdown_failed", "err", err)
	}
	if wsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := wsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("ws_shutdown_failed", "err", err)
		}
		cancel()
	}
	if err := cleanup.Stop(); err != nil {
		logger.Warn("cleanup_stop_failed", "err", err)
	}
	if err := timeline.Shutdown(); err != nil {
		logger.Warn("timeline_stop_failed", "err", err)
	}
	stopWorkers()
	if archiveWorker != nil {
		archiveWorker.Wait()
	}
	return nil
}

// openArchive builds the configured replay archive. The reader is nil unless
// the backend can serve archived replays back.
func openArchive(ctx context.Context, c config.ArchiveConfig) (workers.Archiver, handlers.ArchiveReader, error) {
	switch c.Backend {
	case config.ArchivePostgres:
		db, err := storage.OpenPostgres(c.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store, err := storage.NewReplayStore(db)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.ArchiveSQLite:
		db, err := storage.OpenSQLite(c.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, err := storage.NewReplayStore(db)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.ArchiveR2:
		r2, err := storage.NewR2Archive(ctx, storage.R2Config{
			AccountID:       c.R2AccountID,
			AccessKeyID:     c.R2AccessKey,
			AccessKeySecret: c.R2Secret,
			Bucket:          c.R2Bucket,
		})
		if err != nil {
			return nil, nil, err
		}
		return r2, nil, nil
	}
	return nil, nil, nil
}

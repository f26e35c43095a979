package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"attendance/clock"
	"attendance/config"
	"attendance/database"
	"attendance/handlers"
	"attendance/holiday"
	"attendance/logger"
	"attendance/middleware"
	"attendance/remotelog"
	"attendance/reportjob"
	"attendance/roster"
	"attendance/session"
	"attendance/store"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to the config file")
	pflag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logg.Sync()

	if err := run(cfg, logg); err != nil {
		logg.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logg *zap.Logger) error {
	middleware.SetJWTSecret(cfg.Auth.JWTSecret)

	// Initialize database
	if err := database.Init(&cfg.Local, cfg.Roster, logg); err != nil {
		return fmt.Errorf("initialize local database: %w", err)
	}
	db := database.GetDB()

	remote, closeRemote, err := openRemote(cfg, logg)
	if err != nil {
		return err
	}
	defer closeRemote()

	clk := clock.Real()
	loc := cfg.Location()

	journal := remote
	var queue *remotelog.Queue
	if cfg.Sync.Async {
		queue = remotelog.NewQueue(remote, clk, cfg.Sync, logg.Named("sync"), nil)
		journal = queue
	}

	st := store.New(db, clk, loc, logg.Named("store"))
	rost := roster.New(db)
	cal := holiday.Default(cfg.Holidays.Extra...)

	sessions := session.NewManager(session.Options{
		Store:         st,
		Roster:        rost,
		Calendar:      cal,
		Journal:       journal,
		Clock:         clk,
		Location:      loc,
		Logger:        logg.Named("session"),
		Breaks:        cfg.BreakMinutes(),
		AutoEndBreaks: cfg.Session.AutoEndBreaks,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sessions.Run(ctx, cfg.Session.SweepInterval, cfg.Session.IdleTTL)

	// Initialize handlers
	router := handlers.Router(logg.Named("http"),
		handlers.NewSessionHandler(sessions, rost, cal, st, journal, logg.Named("portal")),
		handlers.NewAuthHandler(cfg),
		handlers.NewExportHandler(cfg.Org.Name, journal, st, clk, loc, logg.Named("export")),
	)

	if cfg.Report.Enabled {
		job := reportjob.New(journal, reportjob.NewSMTPMailer(cfg.Report.SMTP), clk, loc, logg.Named("report"))
		scheduler, err := job.Schedule(cfg.Report)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()
		logg.Info("daily report scheduled",
			zap.String("schedule", cfg.Report.Schedule),
			zap.String("timezone", cfg.Report.Timezone),
		)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info("server starting", zap.String("port", cfg.Server.Port))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logg.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Warn("http shutdown", zap.Error(err))
	}
	// Ends any break still running so it reaches the log before exit.
	sessions.Close(shutdownCtx)
	if queue != nil {
		if err := queue.Close(shutdownCtx); err != nil {
			logg.Warn("remote log queue not drained", zap.Error(err))
		}
	}
	return nil
}

// openRemote connects the configured remote log backend.
func openRemote(cfg *config.Config, logg *zap.Logger) (remotelog.Log, func(), error) {
	switch cfg.Remote.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Remote.Redis.Addr,
			Password: cfg.Remote.Redis.Password,
			DB:       cfg.Remote.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			// Entries are still recorded locally; sync failures surface as warnings.
			logg.Warn("redis unreachable at startup", zap.String("addr", cfg.Remote.Redis.Addr), zap.Error(err))
		}
		logg.Info("remote log ready", zap.String("backend", "redis"))
		return remotelog.NewRedisLog(client, cfg.Remote.Redis.KeyPrefix), func() { client.Close() }, nil

	default:
		db, err := database.Open(&cfg.Remote.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("open remote database: %w", err)
		}
		l, err := remotelog.NewGormLog(db)
		if err != nil {
			return nil, nil, err
		}
		logg.Info("remote log ready", zap.String("backend", "sql"), zap.String("driver", cfg.Remote.Database.Driver))
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return l, closeFn, nil
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/in-nis/classdash/internal/api"
	"github.com/in-nis/classdash/internal/auth"
	"github.com/in-nis/classdash/internal/classroom"
	"github.com/in-nis/classdash/internal/config"
	"github.com/in-nis/classdash/internal/cron"
	"github.com/in-nis/classdash/internal/dashboard"
	"github.com/in-nis/classdash/internal/db"
	"github.com/in-nis/classdash/internal/logger"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if envErr != nil {
		log.Info("no .env file found, using system env")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}

	store, err := db.Open(cfg.DBUrl, log)
	if err != nil {
		return err
	}
	defer store.Close()

	holder := auth.NewHolder()
	defer holder.Close()
	unsubscribe := holder.Subscribe(func(kind auth.EventKind, s *auth.Session) {
		if s == nil {
			log.Info("auth event", zap.String("event", string(kind)))
			return
		}
		log.Info("auth event",
			zap.String("event", string(kind)),
			zap.Uint("user_id", s.UserID),
			zap.String("role", s.Role))
	})
	defer unsubscribe()

	authSvc := auth.NewService(
		store,
		auth.NewTokens(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL),
		holder,
		log.Named("auth"),
		cfg.TeacherEmailDomains,
	)
	google := auth.NewGoogle(cfg)
	if !google.Enabled() {
		log.Warn("GOOGLE_CLIENT_ID not set, google login disabled")
	}

	jobs, err := cron.StartJobs(store, cfg, log.Named("cron"))
	if err != nil {
		return err
	}
	defer jobs.Stop()

	r := api.SetupRouter(api.Deps{
		Auth:        authSvc,
		AuthHandler: auth.NewHandler(authSvc, google),
		Dashboard:   dashboard.NewService(store, log.Named("dashboard")),
		Classrooms:  classroom.NewService(store, log.Named("classroom")),
		DB:          store,
		Log:         log.Named("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

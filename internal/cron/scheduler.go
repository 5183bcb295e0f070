package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/in-nis/classdash/internal/config"
)

const jobTimeout = time.Minute

type TokenStore interface {
	DeleteRevokedTokens(ctx context.Context, expiredBefore time.Time) (int64, error)
}

// StartJobs schedules the revoked-token cleanup and starts the scheduler.
// Callers stop it with Stop.
func StartJobs(store TokenStore, cfg *config.Config, log *zap.Logger) (*cron.Cron, error) {
	c := cron.New()

	ttl := time.Duration(cfg.TokenBlacklistTTLDays) * 24 * time.Hour
	_, err := c.AddFunc(cfg.CleanupSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		_, _ = CleanupRevokedTokens(ctx, store, ttl, time.Now(), log)
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	log.Info("cron started", zap.String("schedule", cfg.CleanupSchedule), zap.Duration("token_ttl", ttl))
	return c, nil
}

// CleanupRevokedTokens deletes revoked tokens that expired more than ttl before now.
func CleanupRevokedTokens(ctx context.Context, store TokenStore, ttl time.Duration, now time.Time, log *zap.Logger) (int64, error) {
	log.Info("Running revoked token cleanup job...")

	n, err := store.DeleteRevokedTokens(ctx, now.Add(-ttl))
	if err != nil {
		log.Error("failed to delete revoked tokens", zap.Error(err))
		return 0, err
	}

	log.Info("deleted revoked tokens", zap.Int64("count", n))
	return n, nil
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"bannedemails/config"
	"bannedemails/internal/adapters/auth"
	"bannedemails/internal/adapters/email"
	"bannedemails/internal/domain"
	"bannedemails/internal/repository/postgres"
	rediscache "bannedemails/internal/repository/redis"
	"bannedemails/internal/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	red "github.com/redis/go-redis/v9"
)

// app holds the wired dependencies shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *sql.DB
	redis    *red.Client
	nonces   domain.NonceManager
	settings domain.SettingsStore
	service  domain.BanService
}

// newApp loads config and opens the database and optional cache. recorder may be nil.
func newApp(ctx context.Context, recorder domain.BanRecorder) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := config.NewLogger()

	db, err := postgres.Open(ctx, cfg.DBUrl)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, db: db}

	a.settings = postgres.NewSettingsRepository(db)
	if cfg.RedisURL != "" {
		client, err := rediscache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		a.settings = rediscache.NewSettingsCache(a.settings, client, cfg.CachePrefix, cfg.CacheTTL, logger)
	}
	a.nonces = auth.NewNonceManager(cfg.NonceSecret, cfg.NonceLifetime)

	opts, err := a.banOptions(recorder)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.service = services.NewBanService(a.settings, postgres.NewAccountRepository(db), a.nonces, logger, opts...)
	return a, nil
}

func (a *app) banOptions(recorder domain.BanRecorder) ([]services.BanOption, error) {
	var opts []services.BanOption
	if a.cfg.BannedEmailsFile != "" {
		extra, err := readBannedFile(a.cfg.BannedEmailsFile)
		if err != nil {
			return nil, err
		}
		a.logger.Info("merging operator banned emails", "file", a.cfg.BannedEmailsFile, "count", len(extra))
		opts = append(opts, services.WithFilters(services.MergeBannedList(extra)))
	}
	if a.cfg.BanMatchCaseInsensitive {
		opts = append(opts, services.WithMatcher(services.FoldMatch))
	}
	if a.cfg.NotifyEmail != "" {
		mailer, err := email.NewMailer(email.MailerConfig{
			Provider:    a.cfg.Email.Provider,
			FromAddress: a.cfg.Email.FromAddress,
			FromName:    a.cfg.Email.FromName,
			SES: email.SESConfig{
				Region:             a.cfg.Email.AWSRegion,
				AccessKeyID:        a.cfg.Email.AWSAccessKeyID,
				SecretAccessKey:    a.cfg.Email.AWSSecretAccessKey,
				InsecureSkipVerify: a.cfg.Email.InsecureSkipVerify,
			},
		}, a.logger)
		if err != nil {
			return nil, err
		}
		renderer, err := email.NewTemplateRenderer()
		if err != nil {
			return nil, err
		}
		notifier := services.NewNotificationService(mailer, renderer, a.logger)
		opts = append(opts, services.WithNotifications(notifier, a.cfg.NotifyEmail))
	}
	if recorder != nil {
		opts = append(opts, services.WithRecorder(recorder))
	}
	return opts, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// readBannedFile loads an operator list, one email per line, normalized like admin input.
func readBannedFile(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read banned emails file: %w", err)
	}
	return services.NormalizeBannedEmails(string(raw)), nil
}

// newRegistry returns the Prometheus registry served on /metrics.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/analytics"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/mail"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Without a broker email goes out inline and transaction events are skipped.
	var (
		mailer     mail.Sender = directMailer(cfg)
		events     services.EventPublisher
		amqpClient *amqp.Client
	)
	if cfg.HasAMQP() {
		var err error
		amqpClient, err = amqp.NewClient(amqp.Config{
			URL:               cfg.AMQPURL,
			Exchange:          cfg.AMQPExchange,
			TransactionsQueue: cfg.AMQPTransactionsQueue,
			EmailsQueue:       cfg.AMQPEmailsQueue,
		})
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		mailer = mail.NewQueuedSender(amqpClient, mailer)
		events = amqpClient
		logger.Info("AMQP publishing enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - emails sent inline, transaction events skipped")
	}

	summaryCache := cache.NewLRUCache[analytics.Summary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(summaryCache)
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	summaries := services.NewSummaryService(repo, summaryCache)
	accounts := services.NewAccountService(repo, mailer, cfg.BaseURL, cfg.SessionTTL)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Accounts:           accounts,
		Transactions:       services.NewTransactionService(repo, events, summaries),
		Summaries:          summaries,
		Preferences:        services.NewPreferencesService(repo),
		DB:                 repo,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		SecureCookies:      cfg.SessionCookieSecure,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	go purgeSessions(ctx, logger, accounts)

	logger.Info("Starting fintrack server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

func directMailer(cfg *config.Config) mail.Sender {
	if cfg.HasSMTP() {
		return mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	}
	return mail.LogSender{}
}

func purgeSessions(ctx context.Context, logger *applog.Logger, accounts *services.AccountService) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := accounts.PurgeExpiredSessions(ctx)
			if err != nil {
				logger.Error("Session purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("Expired sessions purged", "count", n)
			}
		}
	}
}

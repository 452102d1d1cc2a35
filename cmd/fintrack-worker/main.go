package main

import (
	"context"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/mail"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	if !cfg.HasAMQP() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ledger, exportType, err := backend.NewLedger(context.Background(), cfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize export ledger", "error", err)
		os.Exit(1)
	}

	var sender mail.Sender = mail.LogSender{}
	if cfg.HasSMTP() {
		sender = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
		logger.Info("SMTP delivery enabled", "addr", cfg.SMTPAddr())
	} else {
		logger.Info("SMTP disabled - emails are logged only")
	}

	amqpClient, err := amqp.NewClient(amqp.Config{
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

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, nil)

	logger.Info("Starting fintrack-worker",
		"transactions_queue", cfg.AMQPTransactionsQueue,
		"emails_queue", cfg.AMQPEmailsQueue,
		"export", exportType.String())
	err = worker.Run(ctx, amqpClient, worker.NewExportWorker(repo, ledger), worker.NewMailWorker(sender))
	if err != nil {
		logger.Error("Worker stopped", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}

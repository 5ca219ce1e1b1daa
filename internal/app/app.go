// Package app wires the application dependencies and exposes the runnable
// modes:
//
//   - Reader mode: MTProto user session that ingests donor channel messages
//   - Worker mode: content pipeline turning raw messages into moderated records
//   - Bot mode: operator Telegram bot for configuration and moderation
//
// Each mode runs as its own process; they share the database.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-repost-bot/internal/llm"
	"github.com/lueurxax/telegram-repost-bot/internal/moderation"
	"github.com/lueurxax/telegram-repost-bot/internal/platform/config"
	"github.com/lueurxax/telegram-repost-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-repost-bot/internal/process/adfilter"
	"github.com/lueurxax/telegram-repost-bot/internal/process/dedup"
	"github.com/lueurxax/telegram-repost-bot/internal/process/pipeline"
	"github.com/lueurxax/telegram-repost-bot/internal/process/rephrase"
	"github.com/lueurxax/telegram-repost-bot/internal/storage"
	"github.com/lueurxax/telegram-repost-bot/internal/telegrambot"
	"github.com/lueurxax/telegram-repost-bot/internal/telegramreader"
)

// App holds the shared application dependencies.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	srv := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunReader runs the donor channel ingestion mode.
func (a *App) RunReader(ctx context.Context) error {
	a.logger.Info().Msg("starting reader mode")

	r := telegramreader.New(a.cfg, a.database, a.logger)

	if err := r.Run(ctx); err != nil {
		return fmt.Errorf("reader run: %w", err)
	}

	return nil
}

// RunWorker runs the content pipeline mode.
func (a *App) RunWorker(ctx context.Context) error {
	a.logger.Info().Msg("starting worker mode")

	api, err := telegrambot.NewAPI(a.cfg.BotToken)
	if err != nil {
		return fmt.Errorf("bot api init: %w", err)
	}

	llmClient := llm.New(a.cfg, a.logger)
	machine := a.buildMachine(api, llmClient)
	notifier := telegrambot.NewNotifier(a.cfg, a.database, api, a.logger)

	detector := dedup.New(a.database, a.cfg.LexicalThreshold, a.cfg.SemanticThreshold, a.cfg.DedupCorpusSize, a.logger)
	classifier := adfilter.New(llmClient, a.cfg.AdPhrases, a.cfg.AdPromoTokenLimit, a.cfg.AdClassifyWithLLM, a.logger)
	rephraser := rephrase.New(llmClient, a.cfg.UrgentKeywords, a.cfg.RephraseEnabled, a.logger)

	p := pipeline.New(a.database, detector, classifier, rephraser, machine, notifier, pipeline.Config{
		BatchSize:    a.cfg.WorkerBatchSize,
		PollInterval: a.cfg.WorkerPollInterval,
	}, a.logger)

	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	return nil
}

// RunBot runs the operator bot mode.
func (a *App) RunBot(ctx context.Context) error {
	a.logger.Info().Msg("starting bot mode")

	api, err := telegrambot.NewAPI(a.cfg.BotToken)
	if err != nil {
		return fmt.Errorf("bot api init: %w", err)
	}

	machine := a.buildMachine(api, llm.New(a.cfg, a.logger))
	b := telegrambot.New(a.cfg, a.database, machine, api, a.logger)

	if err := b.Run(ctx); err != nil {
		return fmt.Errorf("bot run: %w", err)
	}

	return nil
}

// buildMachine assembles the moderation state machine on top of a Bot API
// client shared with the caller.
func (a *App) buildMachine(api *tgbotapi.BotAPI, llmClient llm.Client) *moderation.Machine {
	rephraser := rephrase.New(llmClient, a.cfg.UrgentKeywords, a.cfg.RephraseEnabled, a.logger)
	deliverer := telegrambot.NewDeliverer(api, a.logger)

	return moderation.New(a.database, deliverer, rephraser, a.logger)
}

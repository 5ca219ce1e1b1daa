// Package pipeline turns raw donor messages into moderated records.
//
// Each message goes through signature stripping, duplicate detection,
// advertisement classification, rephrasing and promo cleanup, and always ends
// up as exactly one persisted record with a definite status. Messages that
// fail a content gate become rejected records, never silent drops; the
// moderation log is the audit trail.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-repost-bot/internal/core/domain"
	"github.com/lueurxax/telegram-repost-bot/internal/moderation"
	"github.com/lueurxax/telegram-repost-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-repost-bot/internal/platform/worker"
	"github.com/lueurxax/telegram-repost-bot/internal/process/dedup"
	"github.com/lueurxax/telegram-repost-bot/internal/process/mask"
	"github.com/lueurxax/telegram-repost-bot/internal/storage"
)

const (
	backlogGaugeInterval = 30 * time.Second

	// pauseSettingKey is flipped by the operator bot; while set the pipeline
	// leaves the backlog untouched.
	pauseSettingKey = "processing_paused"
)

// Repository is the storage surface the pipeline needs.
type Repository interface {
	GetUnprocessedRawMessages(ctx context.Context, limit int) ([]domain.RawMessage, error)
	MarkRawMessageProcessed(ctx context.Context, id string) error
	GetSource(ctx context.Context, id string) (*domain.Source, error)
	GetDestination(ctx context.Context, id string) (*domain.Destination, error)
	CreateRecord(ctx context.Context, r domain.Record) (*domain.Record, error)
	SaveDuplicateLink(ctx context.Context, originalRecordID, duplicateRecordID, reason string) error
	GetBacklogCount(ctx context.Context) (int64, error)
	GetSetting(ctx context.Context, key string) (string, error)
}

var _ Repository = (*db.DB)(nil)

// Detector checks a candidate text against the destination's recent corpus.
type Detector interface {
	Check(ctx context.Context, candidate, destinationID string) (dedup.Match, error)
}

// AdClassifier reports whether a text is promotional.
type AdClassifier interface {
	Classify(ctx context.Context, text string) bool
}

// Rephraser rewords a candidate text, falling back to the original on failure.
type Rephraser interface {
	Rephrase(ctx context.Context, text string) string
}

// Publisher performs the auto-publish transition on a pending record.
type Publisher interface {
	Publish(ctx context.Context, recordID, trigger string) (*domain.Record, error)
}

// Notifier tells the operators about records that need attention. Both calls
// are best-effort: notification failures never fail the pipeline.
type Notifier interface {
	RecordPending(ctx context.Context, record *domain.Record)
	PublishFailed(ctx context.Context, record *domain.Record, err error)
}

// Config tunes the pipeline loop.
type Config struct {
	BatchSize    int
	PollInterval time.Duration
}

// Pipeline is the content processing worker.
type Pipeline struct {
	repo       Repository
	detector   Detector
	classifier AdClassifier
	rephraser  Rephraser
	publisher  Publisher
	notifier   Notifier
	cfg        Config
	logger     *zerolog.Logger
}

func New(
	repo Repository,
	detector Detector,
	classifier AdClassifier,
	rephraser Rephraser,
	publisher Publisher,
	notifier Notifier,
	cfg Config,
	logger *zerolog.Logger,
) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}

	return &Pipeline{
		repo:       repo,
		detector:   detector,
		classifier: classifier,
		rephraser:  rephraser,
		publisher:  publisher,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run polls for unprocessed raw messages until the context is canceled.
func (p *Pipeline) Run(ctx context.Context) error {
	return worker.Loop(ctx, worker.Config{
		Name:         "pipeline",
		PollInterval: p.cfg.PollInterval,
		Process:      p.processNextBatch,
		PeriodicTasks: []worker.PeriodicTask{
			{
				Name:     "backlog-gauge",
				Interval: backlogGaugeInterval,
				Run:      p.updateBacklogGauge,
			},
		},
		Logger: p.logger,
	})
}

func (p *Pipeline) processNextBatch(ctx context.Context) error {
	paused, err := p.repo.GetSetting(ctx, pauseSettingKey)
	if err != nil {
		return fmt.Errorf("read pause setting: %w", err)
	}

	if paused == "true" {
		p.logger.Debug().Msg("processing paused, skipping batch")

		return nil
	}

	messages, err := p.repo.GetUnprocessedRawMessages(ctx, p.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("fetch unprocessed messages: %w", err)
	}

	if len(messages) == 0 {
		return nil
	}

	start := time.Now()

	for _, msg := range messages {
		if ctx.Err() != nil {
			return fmt.Errorf("batch interrupted: %w", ctx.Err())
		}

		correlationID := uuid.NewString()
		logger := p.logger.With().
			Str("correlation_id", correlationID).
			Str("raw_message_id", msg.ID).
			Str("source_id", msg.SourceID).
			Logger()

		if err := p.processMessage(ctx, &logger, msg); err != nil {
			// Storage-level failure: leave the message unprocessed so the
			// next poll retries it.
			logger.Error().Err(err).Msg("processing failed, message left for retry")

			continue
		}

		if err := p.repo.MarkRawMessageProcessed(ctx, msg.ID); err != nil {
			logger.Error().Err(err).Msg("failed to mark message processed")
		}
	}

	observability.PipelineBatchDurationSeconds.Observe(time.Since(start).Seconds())

	return nil
}

// processMessage runs one message through the content gates. A returned error
// means no record could be persisted and the message must be retried; every
// other outcome produces exactly one record.
func (p *Pipeline) processMessage(ctx context.Context, logger *zerolog.Logger, msg domain.RawMessage) error {
	source, err := p.repo.GetSource(ctx, msg.SourceID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			// Source removed while the message sat in the backlog; nothing
			// to attach a record to.
			logger.Warn().Msg("source gone, dropping message")

			return nil
		}

		return fmt.Errorf("load source: %w", err)
	}

	destination, err := p.repo.GetDestination(ctx, source.DestinationID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			logger.Warn().Msg("destination gone, dropping message")

			return nil
		}

		return fmt.Errorf("load destination: %w", err)
	}

	record := domain.Record{
		SourceID:            source.ID,
		DestinationID:       destination.ID,
		RawMessageID:        msg.ID,
		OriginalText:        msg.Text,
		MediaJSON:           msg.MediaJSON,
		SourceLink:          msg.Link,
		OriginalTGMessageID: msg.TGMessageID,
	}

	stripped, err := mask.Strip(msg.Text, source.MaskPattern)
	if err != nil {
		status, ok := maskStatus(err)
		if !ok {
			return fmt.Errorf("strip mask: %w", err)
		}

		logger.Info().Str("status", status).Msg("message rejected by mask gate")

		record.Status = status
		record.ErrorDetail = err.Error()

		return p.persistRejected(ctx, logger, record)
	}

	match, err := p.detector.Check(ctx, stripped, destination.ID)
	if err != nil {
		logger.Warn().Err(err).Msg("duplicate check failed")

		record.Status = domain.StatusRejectedProcessing
		record.ErrorDetail = fmt.Sprintf("duplicate check: %v", err)

		return p.persistRejected(ctx, logger, record)
	}

	if match.IsDuplicate {
		record.Status = domain.StatusRejectedDuplicate
		record.IsDuplicate = true

		created, err := p.repo.CreateRecord(ctx, record)
		if err != nil {
			return fmt.Errorf("create duplicate record: %w", err)
		}

		if err := p.repo.SaveDuplicateLink(ctx, match.OriginalID, created.ID, match.Reason); err != nil {
			logger.Error().Err(err).Msg("failed to save duplicate link")
		}

		observability.DuplicatesDetected.WithLabelValues(match.Reason).Inc()
		observability.PipelineProcessed.WithLabelValues(record.Status).Inc()

		logger.Info().
			Str("original_id", match.OriginalID).
			Str("reason", match.Reason).
			Float64("score", match.Score).
			Msg("duplicate rejected")

		return nil
	}

	record.IsAdvertisement = p.classifier.Classify(ctx, stripped)

	candidate := mask.CleanPromo(p.rephraser.Rephrase(ctx, stripped))
	if candidate == "" {
		record.Status = domain.StatusRejectedEmpty
		record.ErrorDetail = "nothing left after promo cleanup"

		return p.persistRejected(ctx, logger, record)
	}

	record.Status = domain.StatusPending
	record.ProcessedText = candidate

	created, err := p.repo.CreateRecord(ctx, record)
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}

	observability.PipelineProcessed.WithLabelValues(domain.StatusPending).Inc()

	p.route(ctx, logger, created, destination)

	return nil
}

// route decides what happens to a fresh pending record: auto-publish when the
// destination allows it and the message is not an advertisement, otherwise
// hand it to the operators. Advertisements always require a human decision.
func (p *Pipeline) route(ctx context.Context, logger *zerolog.Logger, record *domain.Record, destination *domain.Destination) {
	if destination.AutoMode && !record.IsAdvertisement {
		published, err := p.publisher.Publish(ctx, record.ID, moderation.TriggerAuto)
		if err != nil {
			if errors.Is(err, moderation.ErrAlreadyProcessed) {
				return
			}

			logger.Error().Err(err).Str("record_id", record.ID).Msg("auto-publish failed")
			p.notifier.PublishFailed(ctx, record, err)

			return
		}

		logger.Info().Str("record_id", published.ID).Msg("auto-published")

		return
	}

	p.notifier.RecordPending(ctx, record)
}

func (p *Pipeline) persistRejected(ctx context.Context, logger *zerolog.Logger, record domain.Record) error {
	if _, err := p.repo.CreateRecord(ctx, record); err != nil {
		return fmt.Errorf("create rejected record: %w", err)
	}

	observability.PipelineProcessed.WithLabelValues(record.Status).Inc()
	logger.Debug().Str("status", record.Status).Msg("rejected record persisted")

	return nil
}

func maskStatus(err error) (string, bool) {
	switch {
	case errors.Is(err, mask.ErrNoMaskConfigured):
		return domain.StatusRejectedNoMaskDefined, true
	case errors.Is(err, mask.ErrMaskInvalid):
		return domain.StatusRejectedMaskError, true
	case errors.Is(err, mask.ErrNoMaskMatch):
		return domain.StatusRejectedNoMaskMatch, true
	case errors.Is(err, mask.ErrEmptyAfterClean):
		return domain.StatusRejectedEmpty, true
	}

	return "", false
}

func (p *Pipeline) updateBacklogGauge(ctx context.Context) {
	count, err := p.repo.GetBacklogCount(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to read backlog count")

		return
	}

	observability.PipelineBacklog.Set(float64(count))
}

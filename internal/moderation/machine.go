// Package moderation implements the record lifecycle state machine: the four
// operator actions (publish, edit, rephrase again, reject) plus the
// auto-publish path, all serialized per record through conditional updates on
// the pending status.
package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-repost-bot/internal/core/domain"
	"github.com/lueurxax/telegram-repost-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-repost-bot/internal/process/mask"
	"github.com/lueurxax/telegram-repost-bot/internal/storage"
)

// ErrAlreadyProcessed is returned when an action targets a record that is no
// longer pending, e.g. a double-clicked publish button. The caller reports it
// back to the operator; no side effect has happened.
var ErrAlreadyProcessed = errors.New("record already processed")

// ErrNoText is returned when publish is requested for a record without a
// candidate text.
var ErrNoText = errors.New("record has no processed text")

// Publish triggers, used as a metric label.
const (
	TriggerAuto     = "auto"
	TriggerOperator = "operator"
)

type Repository interface {
	GetRecord(ctx context.Context, id string) (*domain.Record, error)
	GetSource(ctx context.Context, id string) (*domain.Source, error)
	GetDestination(ctx context.Context, id string) (*domain.Destination, error)
	MarkRecordPublished(ctx context.Context, id string) (bool, error)
	MarkRecordPublishError(ctx context.Context, id, detail string) error
	UpdateRecordTextPending(ctx context.Context, id, text string) (bool, error)
	RejectRecordPending(ctx context.Context, id string) (bool, error)
	RequeueRecordPending(ctx context.Context, id string) (bool, error)
}

var _ Repository = (*db.DB)(nil)

// Deliverer posts a record to its destination feed.
type Deliverer interface {
	Send(ctx context.Context, chatID int64, text string, mediaJSON []byte) error
}

// Rephraser produces a new candidate wording for the rephrase-again action.
type Rephraser interface {
	Rephrase(ctx context.Context, text string) string
}

type Machine struct {
	repo      Repository
	deliverer Deliverer
	rephraser Rephraser
	logger    *zerolog.Logger
}

func New(repo Repository, deliverer Deliverer, rephraser Rephraser, logger *zerolog.Logger) *Machine {
	return &Machine{
		repo:      repo,
		deliverer: deliverer,
		rephraser: rephraser,
		logger:    logger,
	}
}

// Publish moves a pending record to published and delivers it to the
// destination. The pending->published claim is a conditional update, so two
// racing triggers produce exactly one delivery: the loser gets
// ErrAlreadyProcessed. A delivery failure moves the record to publish_error;
// there is no automatic retry, the operator re-triggers via Retry.
func (m *Machine) Publish(ctx context.Context, recordID, trigger string) (*domain.Record, error) {
	record, err := m.repo.GetRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}

	if record.ProcessedText == "" {
		return nil, ErrNoText
	}

	destination, err := m.repo.GetDestination(ctx, record.DestinationID)
	if err != nil {
		return nil, fmt.Errorf("load destination: %w", err)
	}

	claimed, err := m.repo.MarkRecordPublished(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("claim record: %w", err)
	}

	if !claimed {
		observability.ModerationActions.WithLabelValues("publish", "already_processed").Inc()

		return nil, ErrAlreadyProcessed
	}

	if err := m.deliverer.Send(ctx, destination.ChatID, record.ProcessedText, record.MediaJSON); err != nil {
		observability.PublishFailures.Inc()

		if markErr := m.repo.MarkRecordPublishError(ctx, recordID, err.Error()); markErr != nil {
			m.logger.Error().Err(markErr).Str("record_id", recordID).Msg("failed to mark publish error")
		}

		return nil, fmt.Errorf("deliver record %s: %w", recordID, err)
	}

	observability.RecordsPublished.WithLabelValues(trigger).Inc()
	observability.ModerationActions.WithLabelValues("publish", "ok").Inc()

	published, err := m.repo.GetRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("reload record: %w", err)
	}

	return published, nil
}

// Edit replaces the candidate text of a pending record. The record stays
// pending and is re-offered to the operator.
func (m *Machine) Edit(ctx context.Context, recordID, newText string) error {
	updated, err := m.repo.UpdateRecordTextPending(ctx, recordID, newText)
	if err != nil {
		return fmt.Errorf("edit record: %w", err)
	}

	if !updated {
		observability.ModerationActions.WithLabelValues("edit", "already_processed").Inc()

		return ErrAlreadyProcessed
	}

	observability.ModerationActions.WithLabelValues("edit", "ok").Inc()

	return nil
}

// RephraseAgain generates a fresh wording from the original message (mask
// stripped again when the source still has a pattern) and stores it as the
// new candidate. The record stays pending.
func (m *Machine) RephraseAgain(ctx context.Context, recordID string) (string, error) {
	record, err := m.repo.GetRecord(ctx, recordID)
	if err != nil {
		return "", fmt.Errorf("load record: %w", err)
	}

	if record.Status != domain.StatusPending {
		observability.ModerationActions.WithLabelValues("rephrase", "already_processed").Inc()

		return "", ErrAlreadyProcessed
	}

	base := record.ProcessedText

	if source, err := m.repo.GetSource(ctx, record.SourceID); err == nil {
		if stripped, stripErr := mask.Strip(record.OriginalText, source.MaskPattern); stripErr == nil {
			if cleaned := mask.CleanPromo(stripped); cleaned != "" {
				base = cleaned
			}
		}
	}

	newText := m.rephraser.Rephrase(ctx, base)

	updated, err := m.repo.UpdateRecordTextPending(ctx, recordID, newText)
	if err != nil {
		return "", fmt.Errorf("store rephrased text: %w", err)
	}

	if !updated {
		observability.ModerationActions.WithLabelValues("rephrase", "already_processed").Inc()

		return "", ErrAlreadyProcessed
	}

	observability.ModerationActions.WithLabelValues("rephrase", "ok").Inc()

	return newText, nil
}

// Reject moves a pending record to the operator-rejected terminal state.
func (m *Machine) Reject(ctx context.Context, recordID string) error {
	rejected, err := m.repo.RejectRecordPending(ctx, recordID)
	if err != nil {
		return fmt.Errorf("reject record: %w", err)
	}

	if !rejected {
		observability.ModerationActions.WithLabelValues("reject", "already_processed").Inc()

		return ErrAlreadyProcessed
	}

	observability.ModerationActions.WithLabelValues("reject", "ok").Inc()

	return nil
}

// Retry puts a publish_error record back into pending so the operator can
// publish again. Operator-triggered only.
func (m *Machine) Retry(ctx context.Context, recordID string) error {
	requeued, err := m.repo.RequeueRecordPending(ctx, recordID)
	if err != nil {
		return fmt.Errorf("retry record: %w", err)
	}

	if !requeued {
		observability.ModerationActions.WithLabelValues("retry", "already_processed").Inc()

		return ErrAlreadyProcessed
	}

	observability.ModerationActions.WithLabelValues("retry", "ok").Inc()

	return nil
}

package moderation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-repost-bot/internal/core/domain"
)

type fakeRepo struct {
	mu          sync.Mutex
	record      *domain.Record
	source      *domain.Source
	destination *domain.Destination
}

func (f *fakeRepo) GetRecord(_ context.Context, id string) (*domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.record == nil || f.record.ID != id {
		return nil, errors.New("not found")
	}

	r := *f.record

	return &r, nil
}

func (f *fakeRepo) GetSource(_ context.Context, _ string) (*domain.Source, error) {
	if f.source == nil {
		return nil, errors.New("not found")
	}

	s := *f.source

	return &s, nil
}

func (f *fakeRepo) GetDestination(_ context.Context, _ string) (*domain.Destination, error) {
	d := *f.destination

	return &d, nil
}

func (f *fakeRepo) MarkRecordPublished(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.record.ID != id || f.record.Status != domain.StatusPending {
		return false, nil
	}

	now := time.Now()
	f.record.Status = domain.StatusPublished
	f.record.PublishedAt = &now

	return true, nil
}

func (f *fakeRepo) MarkRecordPublishError(_ context.Context, id, detail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.record.Status = domain.StatusPublishError
	f.record.PublishedAt = nil
	f.record.ErrorDetail = detail

	return nil
}

func (f *fakeRepo) UpdateRecordTextPending(_ context.Context, id, text string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.record.ID != id || f.record.Status != domain.StatusPending {
		return false, nil
	}

	f.record.ProcessedText = text

	return true, nil
}

func (f *fakeRepo) RejectRecordPending(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.record.ID != id || f.record.Status != domain.StatusPending {
		return false, nil
	}

	f.record.Status = domain.StatusRejected

	return true, nil
}

func (f *fakeRepo) RequeueRecordPending(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.record.ID != id || f.record.Status != domain.StatusPublishError {
		return false, nil
	}

	f.record.Status = domain.StatusPending
	f.record.ErrorDetail = ""

	return true, nil
}

type fakeDeliverer struct {
	mu    sync.Mutex
	sends int
	err   error
}

func (f *fakeDeliverer) Send(_ context.Context, _ int64, _ string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++

	return f.err
}

type fakeRephraser struct {
	result string
}

func (f *fakeRephraser) Rephrase(_ context.Context, text string) string {
	if f.result != "" {
		return f.result
	}

	return text
}

func newFixture(status string) (*Machine, *fakeRepo, *fakeDeliverer) {
	repo := &fakeRepo{
		record: &domain.Record{
			ID:            "rec-1",
			SourceID:      "src-1",
			DestinationID: "dest-1",
			OriginalText:  "Новость дня ❤ Подписывайся",
			ProcessedText: "Новость дня",
			Status:        status,
		},
		source:      &domain.Source{ID: "src-1", DestinationID: "dest-1", MaskPattern: "❤.*$"},
		destination: &domain.Destination{ID: "dest-1", ChatID: -100123},
	}
	deliverer := &fakeDeliverer{}
	logger := zerolog.Nop()

	return New(repo, deliverer, &fakeRephraser{}, &logger), repo, deliverer
}

func TestPublish(t *testing.T) {
	m, repo, deliverer := newFixture(domain.StatusPending)

	record, err := m.Publish(context.Background(), "rec-1", TriggerOperator)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPublished, record.Status)
	assert.NotNil(t, record.PublishedAt)
	assert.Equal(t, 1, deliverer.sends)
	assert.Equal(t, domain.StatusPublished, repo.record.Status)
}

func TestPublish_TwiceSendsOnce(t *testing.T) {
	m, _, deliverer := newFixture(domain.StatusPending)

	_, err := m.Publish(context.Background(), "rec-1", TriggerOperator)
	require.NoError(t, err)

	_, err = m.Publish(context.Background(), "rec-1", TriggerOperator)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Equal(t, 1, deliverer.sends)
}

func TestPublish_DeliveryFailure(t *testing.T) {
	m, repo, deliverer := newFixture(domain.StatusPending)
	deliverer.err = errors.New("chat unreachable")

	_, err := m.Publish(context.Background(), "rec-1", TriggerAuto)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyProcessed)

	assert.Equal(t, domain.StatusPublishError, repo.record.Status)
	assert.Nil(t, repo.record.PublishedAt)
	assert.Contains(t, repo.record.ErrorDetail, "chat unreachable")
}

func TestPublish_NoProcessedText(t *testing.T) {
	m, repo, deliverer := newFixture(domain.StatusPending)
	repo.record.ProcessedText = ""

	_, err := m.Publish(context.Background(), "rec-1", TriggerOperator)
	assert.ErrorIs(t, err, ErrNoText)
	assert.Equal(t, 0, deliverer.sends)
}

func TestEdit(t *testing.T) {
	m, repo, _ := newFixture(domain.StatusPending)

	require.NoError(t, m.Edit(context.Background(), "rec-1", "исправленный текст"))
	assert.Equal(t, "исправленный текст", repo.record.ProcessedText)
	assert.Equal(t, domain.StatusPending, repo.record.Status)
}

func TestEdit_AlreadyProcessed(t *testing.T) {
	m, _, _ := newFixture(domain.StatusPublished)

	err := m.Edit(context.Background(), "rec-1", "текст")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestRephraseAgain(t *testing.T) {
	m, repo, _ := newFixture(domain.StatusPending)

	newText, err := m.RephraseAgain(context.Background(), "rec-1")
	require.NoError(t, err)

	// Mask stripped from the original before rephrasing.
	assert.Equal(t, "Новость дня", newText)
	assert.Equal(t, "Новость дня", repo.record.ProcessedText)
	assert.Equal(t, domain.StatusPending, repo.record.Status)
}

func TestRephraseAgain_AlreadyProcessed(t *testing.T) {
	m, _, _ := newFixture(domain.StatusRejected)

	_, err := m.RephraseAgain(context.Background(), "rec-1")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestReject(t *testing.T) {
	m, repo, _ := newFixture(domain.StatusPending)

	require.NoError(t, m.Reject(context.Background(), "rec-1"))
	assert.Equal(t, domain.StatusRejected, repo.record.Status)

	err := m.Reject(context.Background(), "rec-1")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestRetry(t *testing.T) {
	m, repo, deliverer := newFixture(domain.StatusPublishError)
	repo.record.ErrorDetail = "chat unreachable"

	require.NoError(t, m.Retry(context.Background(), "rec-1"))
	assert.Equal(t, domain.StatusPending, repo.record.Status)

	record, err := m.Publish(context.Background(), "rec-1", TriggerOperator)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, record.Status)
	assert.Equal(t, 1, deliverer.sends)
}

func TestRetry_NotInPublishError(t *testing.T) {
	m, _, _ := newFixture(domain.StatusPending)

	err := m.Retry(context.Background(), "rec-1")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

package pipeline

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-repost-bot/internal/core/domain"
	"github.com/lueurxax/telegram-repost-bot/internal/process/dedup"
	"github.com/lueurxax/telegram-repost-bot/internal/storage"
)

type fakeRepo struct {
	source       *domain.Source
	destination  *domain.Destination
	queue        []domain.RawMessage
	records      []domain.Record
	links        [][3]string
	processedIDs []string
	settings     map[string]string
	createErr    error
	nextID       int
}

func (f *fakeRepo) GetUnprocessedRawMessages(_ context.Context, limit int) ([]domain.RawMessage, error) {
	if len(f.queue) > limit {
		return f.queue[:limit], nil
	}

	return f.queue, nil
}

func (f *fakeRepo) MarkRawMessageProcessed(_ context.Context, id string) error {
	f.processedIDs = append(f.processedIDs, id)

	return nil
}

func (f *fakeRepo) GetSource(_ context.Context, id string) (*domain.Source, error) {
	if f.source == nil || f.source.ID != id {
		return nil, db.ErrNotFound
	}

	s := *f.source

	return &s, nil
}

func (f *fakeRepo) GetDestination(_ context.Context, id string) (*domain.Destination, error) {
	if f.destination == nil || f.destination.ID != id {
		return nil, db.ErrNotFound
	}

	d := *f.destination

	return &d, nil
}

func (f *fakeRepo) CreateRecord(_ context.Context, r domain.Record) (*domain.Record, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}

	f.nextID++
	r.ID = "rec-" + strconv.Itoa(f.nextID)
	f.records = append(f.records, r)

	return &r, nil
}

func (f *fakeRepo) SaveDuplicateLink(_ context.Context, originalID, duplicateID, reason string) error {
	f.links = append(f.links, [3]string{originalID, duplicateID, reason})

	return nil
}

func (f *fakeRepo) GetBacklogCount(_ context.Context) (int64, error) {
	return int64(len(f.records)), nil
}

func (f *fakeRepo) GetSetting(_ context.Context, key string) (string, error) {
	return f.settings[key], nil
}

type fakeDetector struct {
	match dedup.Match
	err   error
	seen  string
}

func (f *fakeDetector) Check(_ context.Context, candidate, _ string) (dedup.Match, error) {
	f.seen = candidate

	return f.match, f.err
}

type fakeClassifier struct{ isAd bool }

func (f *fakeClassifier) Classify(_ context.Context, _ string) bool { return f.isAd }

type fakeRephraser struct{ result string }

func (f *fakeRephraser) Rephrase(_ context.Context, text string) string {
	if f.result != "" {
		return f.result
	}

	return text
}

type fakePublisher struct {
	calls    int
	triggers []string
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, recordID, trigger string) (*domain.Record, error) {
	f.calls++
	f.triggers = append(f.triggers, trigger)

	if f.err != nil {
		return nil, f.err
	}

	return &domain.Record{ID: recordID, Status: domain.StatusPublished}, nil
}

type fakeNotifier struct {
	pending []string
	failed  []string
}

func (f *fakeNotifier) RecordPending(_ context.Context, record *domain.Record) {
	f.pending = append(f.pending, record.ID)
}

func (f *fakeNotifier) PublishFailed(_ context.Context, record *domain.Record, _ error) {
	f.failed = append(f.failed, record.ID)
}

type fixture struct {
	pipeline   *Pipeline
	repo       *fakeRepo
	detector   *fakeDetector
	classifier *fakeClassifier
	publisher  *fakePublisher
	notifier   *fakeNotifier
}

func newFixture(autoMode bool) *fixture {
	repo := &fakeRepo{
		source: &domain.Source{
			ID:            "src-1",
			DestinationID: "dest-1",
			Username:      "donor_channel",
			MaskPattern:   "❤.*$",
			IsActive:      true,
		},
		destination: &domain.Destination{ID: "dest-1", ChatID: -100123, AutoMode: autoMode},
	}
	detector := &fakeDetector{}
	classifier := &fakeClassifier{}
	publisher := &fakePublisher{}
	notifier := &fakeNotifier{}
	logger := zerolog.Nop()

	p := New(repo, detector, classifier, &fakeRephraser{}, publisher, notifier, Config{}, &logger)

	return &fixture{
		pipeline:   p,
		repo:       repo,
		detector:   detector,
		classifier: classifier,
		publisher:  publisher,
		notifier:   notifier,
	}
}

func newMessage(text string) domain.RawMessage {
	return domain.RawMessage{
		ID:          "raw-1",
		SourceID:    "src-1",
		TGMessageID: 42,
		Text:        text,
		Link:        "https://t.me/donor_channel/42",
	}
}

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()

	return &l
}

func TestProcessMessage_PendingAndNotified(t *testing.T) {
	f := newFixture(false)

	err := f.pipeline.processMessage(context.Background(), testLogger(), newMessage("Новость дня ❤ Подписывайся"))
	require.NoError(t, err)

	require.Len(t, f.repo.records, 1)
	record := f.repo.records[0]
	assert.Equal(t, domain.StatusPending, record.Status)
	assert.Equal(t, "Новость дня", record.ProcessedText)
	assert.Equal(t, "Новость дня ❤ Подписывайся", record.OriginalText)
	assert.False(t, record.IsDuplicate)

	assert.Equal(t, 0, f.publisher.calls)
	assert.Len(t, f.notifier.pending, 1)
}

func TestProcessMessage_AutoModePublishes(t *testing.T) {
	f := newFixture(true)

	err := f.pipeline.processMessage(context.Background(), testLogger(), newMessage("Новость дня ❤ Подписывайся"))
	require.NoError(t, err)

	assert.Equal(t, 1, f.publisher.calls)
	assert.Equal(t, []string{"auto"}, f.publisher.triggers)
	assert.Empty(t, f.notifier.pending)
}

func TestProcessMessage_AdNeverAutoPublishes(t *testing.T) {
	f := newFixture(true)
	f.classifier.isAd = true

	err := f.pipeline.processMessage(context.Background(), testLogger(), newMessage("Скидки! Купи сегодня ❤ Подписывайся"))
	require.NoError(t, err)

	require.Len(t, f.repo.records, 1)
	assert.True(t, f.repo.records[0].IsAdvertisement)
	assert.Equal(t, domain.StatusPending, f.repo.records[0].Status)

	// Advertisements always go to an operator, even with auto mode on.
	assert.Equal(t, 0, f.publisher.calls)
	assert.Len(t, f.notifier.pending, 1)
}

func TestProcessMessage_Duplicate(t *testing.T) {
	f := newFixture(true)
	f.detector.match = dedup.Match{
		IsDuplicate: true,
		Reason:      domain.DuplicateReasonLexical,
		OriginalID:  "rec-orig",
		Score:       0.95,
	}

	err := f.pipeline.processMessage(context.Background(), testLogger(), newMessage("Новость дня ❤ Подписывайся"))
	require.NoError(t, err)

	require.Len(t, f.repo.records, 1)
	record := f.repo.records[0]
	assert.Equal(t, domain.StatusRejectedDuplicate, record.Status)
	assert.True(t, record.IsDuplicate)
	assert.Empty(t, record.ProcessedText)

	require.Len(t, f.repo.links, 1)
	assert.Equal(t, "rec-orig", f.repo.links[0][0])
	assert.Equal(t, record.ID, f.repo.links[0][1])
	assert.Equal(t, domain.DuplicateReasonLexical, f.repo.links[0][2])

	assert.Equal(t, 0, f.publisher.calls)
	assert.Empty(t, f.notifier.pending)
}

func TestProcessMessage_NoMaskConfigured(t *testing.T) {
	f := newFixture(false)
	f.repo.source.MaskPattern = ""

	err := f.pipeline.processMessage(context.Background(), testLogger(), newMessage("Новость дня"))
	require.NoError(t, err)

	require.Len(t, f.repo.records, 1)
	assert.Equal(t, domain.StatusRejectedNoMaskDefined, f.repo.records[0].Status)
	assert.Empty(t, f.notifier.pending)
}

func TestProcessMessage_NoMaskMatch(t *testing.T) {
	f := newFixture(false)

	err := f.pipeline.processMessage(context.Background(), testLogger(), newMessage("Новость без подписи"))
	require.NoError(t, err)

	require.Len(t, f.repo.records, 1)
	assert.Equal(t, domain.StatusRejectedNoMaskMatch, f.repo.records[0].Status)
}

func TestProcessMessage_InvalidMask(t *testing.T) {
	f := newFixture(false)
	f.repo.source.MaskPattern = "(["

	err := f.pipeline.processMessage(context.Background(), testLogger(), newMessage("Новость дня"))
	require.NoError(t, err)

	require.Len(t, f.repo.records, 1)
	record := f.repo.records[0]
	assert.Equal(t, domain.StatusRejectedMaskError, record.Status)
	assert.NotEmpty(t, record.ErrorDetail)
}

func TestProcessMessage_EmptyAfterClean(t *testing.T) {
	f := newFixture(false)

	// Only promo tokens remain once the signature is stripped.
	err := f.pipeline.processMessage(context.Background(), testLogger(), newMessage("@mention #tag ❤ Подписывайся"))
	require.NoError(t, err)

	require.Len(t, f.repo.records, 1)
	assert.Equal(t, domain.StatusRejectedEmpty, f.repo.records[0].Status)
}

func TestProcessMessage_SourceGoneDropsMessage(t *testing.T) {
	f := newFixture(false)
	f.repo.source = nil

	err := f.pipeline.processMessage(context.Background(), testLogger(), newMessage("Новость дня ❤"))
	require.NoError(t, err)

	assert.Empty(t, f.repo.records)
}

func TestProcessMessage_StorageFailureRetriable(t *testing.T) {
	f := newFixture(false)
	f.repo.createErr = errors.New("connection refused")

	err := f.pipeline.processMessage(context.Background(), testLogger(), newMessage("Новость дня ❤ Подписывайся"))
	require.Error(t, err)
}

func TestProcessMessage_DedupFailureRejectsProcessing(t *testing.T) {
	f := newFixture(false)
	f.detector.err = errors.New("corpus unavailable")

	err := f.pipeline.processMessage(context.Background(), testLogger(), newMessage("Новость дня ❤ Подписывайся"))
	require.NoError(t, err)

	require.Len(t, f.repo.records, 1)
	record := f.repo.records[0]
	assert.Equal(t, domain.StatusRejectedProcessing, record.Status)
	assert.Contains(t, record.ErrorDetail, "corpus unavailable")
}

func TestProcessMessage_AutoPublishFailureNotifies(t *testing.T) {
	f := newFixture(true)
	f.publisher.err = errors.New("chat unreachable")

	err := f.pipeline.processMessage(context.Background(), testLogger(), newMessage("Новость дня ❤ Подписывайся"))
	require.NoError(t, err)

	assert.Len(t, f.notifier.failed, 1)
	assert.Empty(t, f.notifier.pending)
}

func TestProcessNextBatch_MarksMessagesProcessed(t *testing.T) {
	f := newFixture(false)
	f.repo.queue = []domain.RawMessage{newMessage("Новость дня ❤ Подписывайся")}

	err := f.pipeline.processNextBatch(context.Background())
	require.NoError(t, err)

	assert.Len(t, f.repo.records, 1)
	assert.Equal(t, []string{"raw-1"}, f.repo.processedIDs)
}

func TestProcessNextBatch_PausedLeavesBacklogUntouched(t *testing.T) {
	f := newFixture(false)
	f.repo.queue = []domain.RawMessage{newMessage("Новость дня ❤ Подписывайся")}
	f.repo.settings = map[string]string{"processing_paused": "true"}

	err := f.pipeline.processNextBatch(context.Background())
	require.NoError(t, err)

	assert.Empty(t, f.repo.records)
	assert.Empty(t, f.repo.processedIDs)
}

func TestProcessMessage_DedupSeesStrippedText(t *testing.T) {
	f := newFixture(false)

	err := f.pipeline.processMessage(context.Background(), testLogger(), newMessage("Новость дня ❤ Подписывайся"))
	require.NoError(t, err)

	// Duplicate detection compares post-mask text, not the raw message.
	assert.Equal(t, "Новость дня", f.detector.seen)
}

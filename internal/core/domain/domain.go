// Package domain holds the shared entity types of the repost pipeline.
package domain

import "time"

// Destination is an output channel (a "city" feed) messages are published to.
type Destination struct {
	ID        string
	Title     string
	ChatID    int64
	AutoMode  bool
	CreatedAt time.Time
}

// Source is a donor channel bound to one destination.
type Source struct {
	ID              string
	DestinationID   string
	Title           string
	Username        string
	TGPeerID        int64
	AccessHash      int64
	MaskPattern     string // empty means not configured
	IsActive        bool
	LastTGMessageID int64
	CreatedAt       time.Time
}

// RawMessage is one message fetched from a donor channel, before processing.
type RawMessage struct {
	ID          string
	SourceID    string
	TGMessageID int64
	Text        string
	MediaJSON   []byte
	Link        string
	Processed   bool
	CreatedAt   time.Time
}

// Record is the persisted unit of work representing one incoming message
// through the pipeline. Its status is always one of the Status* constants.
type Record struct {
	ID                  string
	SourceID            string
	DestinationID       string
	RawMessageID        string
	OriginalText        string
	ProcessedText       string // empty until the pipeline produces a candidate
	MediaJSON           []byte
	SourceLink          string
	OriginalTGMessageID int64
	IsDuplicate         bool
	IsAdvertisement     bool
	Status              string
	ErrorDetail         string
	CreatedAt           time.Time
	PublishedAt         *time.Time
}

// Record status constants. pending is the only non-terminal state;
// publish_error is terminal but retriable by operator action.
const (
	StatusPending               = "pending"
	StatusPublished             = "published"
	StatusRejected              = "rejected"
	StatusRejectedDuplicate     = "rejected_duplicate"
	StatusRejectedNoMaskDefined = "rejected_no_mask_defined"
	StatusRejectedNoMaskMatch   = "rejected_no_mask_match"
	StatusRejectedEmpty         = "rejected_empty_after_clean"
	StatusRejectedMaskError     = "rejected_mask_error"
	StatusRejectedProcessing    = "rejected_processing_error"
	StatusPublishError          = "publish_error"
)

// DuplicateLink connects a duplicate Record to the original it matched.
type DuplicateLink struct {
	ID                string
	OriginalRecordID  string
	DuplicateRecordID string
	Reason            string
	CreatedAt         time.Time
}

// Duplicate detection reasons.
const (
	DuplicateReasonLexical  = "lexical"
	DuplicateReasonSemantic = "semantic"
)

// Admin is an operator allowed to use the moderation bot.
type Admin struct {
	TGUserID int64
	Username string
	AddedAt  time.Time
}

// Package telegramreader ingests messages from donor channels through the
// Telegram client API (MTProto) and stores them as raw messages for the
// pipeline. Runs as a user session, not a bot: donor channels do not admit
// bots as readers.
package telegramreader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/telegram-repost-bot/internal/core/domain"
	"github.com/lueurxax/telegram-repost-bot/internal/platform/config"
	"github.com/lueurxax/telegram-repost-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-repost-bot/internal/storage"
)

// ErrSourceNotFound indicates the donor channel could not be resolved.
var ErrSourceNotFound = errors.New("source channel not found")

// ErrNotAChannel indicates the resolved peer is not a channel.
var ErrNotAChannel = errors.New("peer is not a channel")

// ErrNoSourceIdentifier indicates the source has neither a cached peer nor a username.
var ErrNoSourceIdentifier = errors.New("source has no peer id or username")

type Reader struct {
	cfg      *config.Config
	database *db.DB
	client   *telegram.Client
	limiter  *rate.Limiter
	logger   *zerolog.Logger
}

func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *Reader {
	rps := cfg.RateLimitRPS
	if rps < 1 {
		rps = 1
	}

	return &Reader{
		cfg:      cfg,
		database: database,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		logger:   logger,
	}
}

// Run connects the user session and polls donor channels until the context is
// canceled. The first run on a fresh session prompts for the login code on
// stdin; afterwards the session file is reused.
func (r *Reader) Run(ctx context.Context) error {
	client := telegram.NewClient(r.cfg.TGAPIID, r.cfg.TGAPIHash, telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{
			Path: r.cfg.TGSessionPath,
		},
	})

	r.client = client

	return client.Run(ctx, func(ctx context.Context) error {
		if err := client.Auth().IfNecessary(ctx, r.authFlow()); err != nil {
			return fmt.Errorf("telegram auth: %w", err)
		}

		r.logger.Info().Msg("authenticated as user")

		return r.ingestMessages(ctx)
	})
}

func (r *Reader) ingestMessages(ctx context.Context) error {
	api := tg.NewClient(r.client)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		sources, err := r.database.GetActiveSources(ctx)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to get active sources")

			if err := r.sleep(ctx, 10*time.Second); err != nil {
				return err
			}

			continue
		}

		if len(sources) == 0 {
			r.logger.Info().Msg("no active sources to track, waiting")

			if err := r.sleep(ctx, 30*time.Second); err != nil {
				return err
			}

			continue
		}

		start := time.Now()
		cycleMsgs := 0

		for _, src := range sources {
			if err := r.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}

			count, err := r.fetchSourceMessages(ctx, api, src)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				r.logger.Error().Err(err).Str("source", src.Username).Msg("failed to fetch source messages")

				continue
			}

			cycleMsgs += count
		}

		r.logger.Info().
			Int("sources", len(sources)).
			Int("msgs", cycleMsgs).
			Dur("duration", time.Since(start)).
			Msg("finished ingestion cycle")

		// Poll faster while donors are active.
		delay := r.cfg.ReaderPollInterval
		if cycleMsgs == 0 {
			delay *= 2
		}

		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (r *Reader) fetchSourceMessages(ctx context.Context, api *tg.Client, src domain.Source) (int, error) {
	peer, err := r.resolvePeer(ctx, api, &src)
	if err != nil {
		observability.ReaderFetchRequestsTotal.WithLabelValues(src.Username, "resolve_error").Inc()

		return 0, err
	}

	req := &tg.MessagesGetHistoryRequest{
		Peer:  peer,
		Limit: r.cfg.ReaderFetchLimit,
	}

	if src.LastTGMessageID > 0 {
		// Fetch only messages newer than the last seen one.
		req.OffsetID = int(src.LastTGMessageID)
		req.AddOffset = -r.cfg.ReaderFetchLimit
	}

	history, err := api.MessagesGetHistory(ctx, req)
	if err != nil {
		if floodErr, ok := tgerr.As(err); ok && floodErr.Type == "FLOOD_WAIT" {
			observability.ReaderFetchRequestsTotal.WithLabelValues(src.Username, "flood_wait").Inc()
			observability.ReaderFloodWaitSecondsTotal.WithLabelValues(src.Username).Add(float64(floodErr.Argument))

			r.logger.Warn().Int("seconds", floodErr.Argument).Str("source", src.Username).Msg("flood wait")

			if err := r.sleep(ctx, time.Duration(floodErr.Argument)*time.Second); err != nil {
				return 0, err
			}

			return 0, nil
		}

		observability.ReaderFetchRequestsTotal.WithLabelValues(src.Username, "error").Inc()

		return 0, fmt.Errorf("get history: %w", err)
	}

	observability.ReaderFetchRequestsTotal.WithLabelValues(src.Username, "ok").Inc()

	var messages []tg.MessageClass

	switch h := history.(type) {
	case *tg.MessagesMessages:
		messages = h.Messages
	case *tg.MessagesMessagesSlice:
		messages = h.Messages
	case *tg.MessagesChannelMessages:
		messages = h.Messages
	case *tg.MessagesMessagesNotModified:
		return 0, nil
	}

	count := 0
	maxID := src.LastTGMessageID

	for _, m := range messages {
		msg, ok := m.(*tg.Message)
		if !ok {
			continue
		}

		if int64(msg.ID) > maxID {
			maxID = int64(msg.ID)
		}

		if int64(msg.ID) <= src.LastTGMessageID {
			continue
		}

		if msg.Message == "" && msg.Media == nil {
			continue
		}

		mediaJSON, _ := json.Marshal(msg.Media) //nolint:errcheck // tg types always marshal

		raw := domain.RawMessage{
			SourceID:    src.ID,
			TGMessageID: int64(msg.ID),
			Text:        msg.Message,
			MediaJSON:   mediaJSON,
			Link:        messageLink(src, int64(msg.ID)),
		}

		if err := r.database.SaveRawMessage(ctx, raw); err != nil {
			r.logger.Error().Err(err).Str("source", src.Username).Int("msg_id", msg.ID).Msg("failed to save raw message")

			continue
		}

		count++

		observability.MessagesIngested.WithLabelValues(src.Username).Inc()
	}

	if count > 0 {
		r.logger.Info().Str("source", src.Username).Int("count", count).Msg("saved messages for source")
	} else {
		r.logger.Debug().Str("source", src.Username).Msg("no new messages for source")
	}

	if maxID > src.LastTGMessageID {
		if err := r.database.UpdateSourceLastMessageID(ctx, src.ID, maxID); err != nil {
			r.logger.Error().Err(err).Str("source", src.Username).Int64("max_id", maxID).Msg("failed to update last message id")
		}
	}

	return count, nil
}

// resolvePeer returns the input peer for a source. Cached peer identifiers
// are used directly; otherwise the username is resolved through the API and
// the result is cached on the source row.
func (r *Reader) resolvePeer(ctx context.Context, api *tg.Client, src *domain.Source) (tg.InputPeerClass, error) {
	if src.TGPeerID != 0 && src.AccessHash != 0 {
		return &tg.InputPeerChannel{
			ChannelID:  src.TGPeerID,
			AccessHash: src.AccessHash,
		}, nil
	}

	if src.Username == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoSourceIdentifier, src.ID)
	}

	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: src.Username})
	if err != nil {
		return nil, fmt.Errorf("resolve username %s: %w", src.Username, err)
	}

	if len(resolved.Chats) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, src.Username)
	}

	channel, ok := resolved.Chats[0].(*tg.Channel)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAChannel, src.Username)
	}

	r.logger.Info().
		Str("username", src.Username).
		Int64("peer_id", channel.ID).
		Str("title", channel.Title).
		Msg("caching resolved peer")

	src.TGPeerID = channel.ID
	src.AccessHash = channel.AccessHash
	src.Title = channel.Title

	if err := r.database.UpdateSourcePeer(ctx, src.ID, channel.ID, channel.AccessHash, channel.Title); err != nil {
		r.logger.Error().Err(err).Str("username", src.Username).Msg("failed to cache resolved peer")
	}

	return &tg.InputPeerChannel{
		ChannelID:  src.TGPeerID,
		AccessHash: src.AccessHash,
	}, nil
}

func messageLink(src domain.Source, msgID int64) string {
	if src.Username == "" {
		return ""
	}

	return fmt.Sprintf("https://t.me/%s/%d", src.Username, msgID)
}

func (r *Reader) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

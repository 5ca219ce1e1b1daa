package telegrambot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lueurxax/telegram-repost-bot/internal/core/domain"
	"github.com/lueurxax/telegram-repost-bot/internal/storage"
)

const logsPageLimit = 200

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		if recordID, ok := b.takePendingEdit(msg.From.ID); ok {
			b.completeEdit(ctx, msg, recordID)
		}

		return
	}

	b.logger.Info().Str("command", msg.Command()).Int64("user_id", msg.From.ID).Msg("handling command")

	switch msg.Command() {
	case "start", "help":
		b.handleHelp(msg)
	case "add_city":
		b.handleAddCity(ctx, msg)
	case "remove_city":
		b.handleRemoveCity(ctx, msg)
	case "list":
		b.handleList(ctx, msg)
	case "toggle_auto":
		b.handleToggleAuto(ctx, msg)
	case "add_donor":
		b.handleAddDonor(ctx, msg)
	case "remove_donor":
		b.handleRemoveDonor(ctx, msg)
	case "set_mask":
		b.handleSetMask(ctx, msg)
	case "pending":
		b.handlePending(ctx, msg)
	case "logs":
		b.handleLogs(ctx, msg)
	case "pause":
		b.handlePause(ctx, msg, true)
	case "resume":
		b.handlePause(ctx, msg, false)
	case "add_admin":
		b.handleAddAdmin(ctx, msg)
	case "remove_admin":
		b.handleRemoveAdmin(ctx, msg)
	case "admins":
		b.handleAdmins(ctx, msg)
	default:
		b.reply(msg, "Unknown command. See /help.")
	}
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) {
	b.reply(msg, `<b>Repost bot commands</b>

<b>Cities</b>
/add_city &lt;chat_id&gt; &lt;title&gt; — register a destination feed
/remove_city &lt;title&gt; — delete a feed with its donors and records
/toggle_auto &lt;title&gt; — flip automatic publication
/list — feeds with their donors

<b>Donors</b>
/add_donor &lt;city&gt; &lt;@username&gt; [mask pattern] — attach a donor channel
/remove_donor &lt;@username&gt; — detach a donor channel
/set_mask &lt;@username&gt; &lt;pattern&gt; — set the signature pattern

<b>Moderation</b>
/pending — re-send records awaiting review
/logs [date] — processing log for a day
/pause — stop processing new messages
/resume — continue processing

<b>Admins</b>
/add_admin &lt;user_id&gt; [username]
/remove_admin &lt;user_id&gt;
/admins`)
}

func (b *Bot) handleAddCity(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 2 {
		b.reply(msg, "Usage: <code>/add_city &lt;chat_id&gt; &lt;title&gt;</code>")

		return
	}

	chatID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(msg, "❌ chat_id must be a number, e.g. <code>-1001234567890</code>")

		return
	}

	title := strings.Join(args[1:], " ")

	dest, err := b.database.CreateDestination(ctx, title, chatID)
	if err != nil {
		b.reply(msg, "❌ Failed to create city: "+html.EscapeString(err.Error()))

		return
	}

	b.reply(msg, fmt.Sprintf("✅ City <b>%s</b> registered (chat <code>%d</code>). Auto mode is off.",
		html.EscapeString(dest.Title), dest.ChatID))
}

func (b *Bot) handleRemoveCity(ctx context.Context, msg *tgbotapi.Message) {
	title := strings.TrimSpace(msg.CommandArguments())
	if title == "" {
		b.reply(msg, "Usage: <code>/remove_city &lt;title&gt;</code>")

		return
	}

	dest, err := b.database.GetDestinationByTitle(ctx, title)
	if err != nil {
		b.replyNotFound(msg, err, "city")

		return
	}

	if err := b.database.DeleteDestinationCascade(ctx, dest.ID); err != nil {
		b.reply(msg, "❌ Failed to remove city: "+html.EscapeString(err.Error()))

		return
	}

	b.reply(msg, fmt.Sprintf("✅ City <b>%s</b> removed together with its donors and records.", html.EscapeString(dest.Title)))
}

func (b *Bot) handleList(ctx context.Context, msg *tgbotapi.Message) {
	destinations, err := b.database.GetDestinations(ctx)
	if err != nil {
		b.reply(msg, "❌ Failed to load cities: "+html.EscapeString(err.Error()))

		return
	}

	if len(destinations) == 0 {
		b.reply(msg, "No cities configured yet. Start with /add_city.")

		return
	}

	var sb strings.Builder

	sb.WriteString("<b>Cities</b>\n")

	for _, dest := range destinations {
		mode := "manual"
		if dest.AutoMode {
			mode = "auto"
		}

		sb.WriteString(fmt.Sprintf("\n🏙 <b>%s</b> — chat <code>%d</code>, %s\n",
			html.EscapeString(dest.Title), dest.ChatID, mode))

		sources, err := b.database.GetSourcesByDestination(ctx, dest.ID)
		if err != nil {
			sb.WriteString("  <i>failed to load donors</i>\n")

			continue
		}

		if len(sources) == 0 {
			sb.WriteString("  <i>no donors</i>\n")

			continue
		}

		for _, src := range sources {
			state := "active"
			if !src.IsActive {
				state = "paused"
			}

			mask := "mask not set"
			if src.MaskPattern != "" {
				mask = "mask <code>" + html.EscapeString(src.MaskPattern) + "</code>"
			}

			sb.WriteString(fmt.Sprintf("  • @%s — %s, %s\n", html.EscapeString(src.Username), state, mask))
		}
	}

	b.reply(msg, sb.String())
}

func (b *Bot) handleToggleAuto(ctx context.Context, msg *tgbotapi.Message) {
	title := strings.TrimSpace(msg.CommandArguments())
	if title == "" {
		b.reply(msg, "Usage: <code>/toggle_auto &lt;title&gt;</code>")

		return
	}

	dest, err := b.database.GetDestinationByTitle(ctx, title)
	if err != nil {
		b.replyNotFound(msg, err, "city")

		return
	}

	if err := b.database.SetDestinationAutoMode(ctx, dest.ID, !dest.AutoMode); err != nil {
		b.reply(msg, "❌ Failed to toggle auto mode: "+html.EscapeString(err.Error()))

		return
	}

	if dest.AutoMode {
		b.reply(msg, fmt.Sprintf("✅ <b>%s</b>: auto mode off, records now wait for review.", html.EscapeString(dest.Title)))
	} else {
		b.reply(msg, fmt.Sprintf("✅ <b>%s</b>: auto mode on. Advertisements still require review.", html.EscapeString(dest.Title)))
	}
}

func (b *Bot) handleAddDonor(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 2 {
		b.reply(msg, "Usage: <code>/add_donor &lt;city&gt; &lt;@username&gt; [mask pattern]</code>")

		return
	}

	dest, err := b.database.GetDestinationByTitle(ctx, args[0])
	if err != nil {
		b.replyNotFound(msg, err, "city")

		return
	}

	username := strings.TrimPrefix(args[1], "@")
	mask := strings.Join(args[2:], " ")

	src, err := b.database.CreateSource(ctx, dest.ID, username, username, mask)
	if err != nil {
		b.reply(msg, "❌ Failed to add donor: "+html.EscapeString(err.Error()))

		return
	}

	reply := fmt.Sprintf("✅ Donor @%s attached to <b>%s</b>.", html.EscapeString(src.Username), html.EscapeString(dest.Title))
	if src.MaskPattern == "" {
		reply += "\n⚠️ No mask set: messages will be rejected until /set_mask."
	}

	b.reply(msg, reply)
}

func (b *Bot) handleRemoveDonor(ctx context.Context, msg *tgbotapi.Message) {
	username := strings.TrimSpace(msg.CommandArguments())
	if username == "" {
		b.reply(msg, "Usage: <code>/remove_donor &lt;@username&gt;</code>")

		return
	}

	src, err := b.database.GetSourceByUsername(ctx, username)
	if err != nil {
		b.replyNotFound(msg, err, "donor")

		return
	}

	if err := b.database.DeleteSource(ctx, src.ID); err != nil {
		b.reply(msg, "❌ Failed to remove donor: "+html.EscapeString(err.Error()))

		return
	}

	b.reply(msg, fmt.Sprintf("✅ Donor @%s removed.", html.EscapeString(src.Username)))
}

func (b *Bot) handleSetMask(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 2 {
		b.reply(msg, "Usage: <code>/set_mask &lt;@username&gt; &lt;pattern&gt;</code>")

		return
	}

	src, err := b.database.GetSourceByUsername(ctx, args[0])
	if err != nil {
		b.replyNotFound(msg, err, "donor")

		return
	}

	pattern := strings.Join(args[1:], " ")

	if err := b.database.UpdateSourceMask(ctx, src.ID, pattern); err != nil {
		b.reply(msg, "❌ Failed to set mask: "+html.EscapeString(err.Error()))

		return
	}

	b.reply(msg, fmt.Sprintf("✅ Mask for @%s set to <code>%s</code>.",
		html.EscapeString(src.Username), html.EscapeString(pattern)))
}

func (b *Bot) handlePending(ctx context.Context, msg *tgbotapi.Message) {
	records, err := b.database.GetRecordsByStatus(ctx, domain.StatusPending, time.Now().AddDate(0, 0, -7), 10)
	if err != nil {
		b.reply(msg, "❌ Failed to load pending records: "+html.EscapeString(err.Error()))

		return
	}

	if len(records) == 0 {
		b.reply(msg, "Nothing awaiting review. 🎉")

		return
	}

	for i := range records {
		record := &records[i]

		sourceTitle := record.SourceID
		if source, err := b.database.GetSource(ctx, record.SourceID); err == nil {
			sourceTitle = sourceDisplayName(source)
		}

		destinationTitle := record.DestinationID
		if destination, err := b.database.GetDestination(ctx, record.DestinationID); err == nil {
			destinationTitle = destination.Title
		}

		out := tgbotapi.NewMessage(msg.Chat.ID, formatRecordPreview(record, sourceTitle, destinationTitle))
		out.ParseMode = tgbotapi.ModeHTML
		out.DisableWebPagePreview = true
		out.ReplyMarkup = moderationKeyboard(record.ID)

		if _, err := b.api.Send(out); err != nil {
			b.logger.Error().Err(err).Msg("failed to send pending record")
		}
	}
}

// handleLogs renders the processing log for a day: how many messages ended in
// each status and what was rejected as duplicate of what.
func (b *Bot) handleLogs(ctx context.Context, msg *tgbotapi.Message) {
	day := time.Now()

	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		parsed, err := dateparse.ParseAny(arg)
		if err != nil {
			b.reply(msg, "❌ Could not parse the date, try e.g. <code>/logs 2026-08-29</code>")

			return
		}

		day = parsed
	}

	since := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	statuses := []string{
		domain.StatusPublished,
		domain.StatusPending,
		domain.StatusRejected,
		domain.StatusRejectedDuplicate,
		domain.StatusRejectedNoMaskDefined,
		domain.StatusRejectedNoMaskMatch,
		domain.StatusRejectedEmpty,
		domain.StatusRejectedMaskError,
		domain.StatusRejectedProcessing,
		domain.StatusPublishError,
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📋 <b>Processing log for %s</b>\n\n", since.Format("2006-01-02")))

	total := 0

	for _, status := range statuses {
		records, err := b.database.GetRecordsByStatus(ctx, status, since, logsPageLimit)
		if err != nil {
			b.logger.Error().Err(err).Str("status", status).Msg("failed to load log records")

			continue
		}

		if len(records) == 0 {
			continue
		}

		total += len(records)

		sb.WriteString(fmt.Sprintf("%s <b>%s</b>: %d\n", statusEmoji(status), html.EscapeString(status), len(records)))
	}

	if total == 0 {
		sb.WriteString("<i>no records for this day</i>\n")
	}

	links, err := b.database.GetDuplicateLinksSince(ctx, since, logsPageLimit)
	if err == nil && len(links) > 0 {
		sb.WriteString(fmt.Sprintf("\n♻️ <b>Duplicates</b>: %d", len(links)))

		byReason := make(map[string]int)
		for _, l := range links {
			byReason[l.Reason]++
		}

		for reason, count := range byReason {
			sb.WriteString(fmt.Sprintf("\n  • %s: %d", html.EscapeString(reason), count))
		}
	}

	b.reply(msg, sb.String())
}

// handlePause flips the worker-wide kill switch. Ingestion keeps running, so
// the backlog accumulates and is processed on /resume.
func (b *Bot) handlePause(ctx context.Context, msg *tgbotapi.Message, pause bool) {
	value := "false"
	if pause {
		value = "true"
	}

	if err := b.database.SetSetting(ctx, "processing_paused", value); err != nil {
		b.reply(msg, "❌ Failed to update pause state: "+html.EscapeString(err.Error()))

		return
	}

	if pause {
		b.reply(msg, "⏸ Processing paused. New donor messages pile up until /resume.")
	} else {
		b.reply(msg, "▶️ Processing resumed.")
	}
}

func (b *Bot) completeEdit(ctx context.Context, msg *tgbotapi.Message, recordID string) {
	newText := strings.TrimSpace(msg.Text)
	if newText == "" {
		b.reply(msg, "❌ The replacement text is empty, edit canceled.")

		return
	}

	if err := b.machine.Edit(ctx, recordID, newText); err != nil {
		b.reply(msg, "❌ Edit failed: "+html.EscapeString(err.Error()))

		return
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, "✏️ Text updated, the record stays in review:\n\n"+html.EscapeString(truncate(newText, 3000)))
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = moderationKeyboard(recordID)

	if _, err := b.api.Send(reply); err != nil {
		b.logger.Error().Err(err).Msg("failed to confirm edit")
	}
}

func (b *Bot) handleAddAdmin(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 1 {
		b.reply(msg, "Usage: <code>/add_admin &lt;user_id&gt; [username]</code>")

		return
	}

	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(msg, "❌ user_id must be a number")

		return
	}

	username := ""
	if len(args) > 1 {
		username = args[1]
	}

	if err := b.database.AddAdmin(ctx, userID, username); err != nil {
		b.reply(msg, "❌ Failed to add admin: "+html.EscapeString(err.Error()))

		return
	}

	b.reply(msg, fmt.Sprintf("✅ Admin <code>%d</code> added.", userID))
}

func (b *Bot) handleRemoveAdmin(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())

	userID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		b.reply(msg, "Usage: <code>/remove_admin &lt;user_id&gt;</code>")

		return
	}

	if err := b.database.RemoveAdmin(ctx, userID); err != nil {
		b.reply(msg, "❌ Failed to remove admin: "+html.EscapeString(err.Error()))

		return
	}

	b.reply(msg, fmt.Sprintf("✅ Admin <code>%d</code> removed.", userID))
}

func (b *Bot) handleAdmins(ctx context.Context, msg *tgbotapi.Message) {
	var sb strings.Builder

	sb.WriteString("<b>Admins</b>\n")

	for _, id := range b.cfg.AdminIDs {
		sb.WriteString(fmt.Sprintf("• <code>%d</code> (config)\n", id))
	}

	stored, err := b.database.GetAdmins(ctx)
	if err != nil {
		b.reply(msg, "❌ Failed to load admins: "+html.EscapeString(err.Error()))

		return
	}

	for _, admin := range stored {
		if admin.Username != "" {
			sb.WriteString(fmt.Sprintf("• <code>%d</code> @%s\n", admin.TGUserID, html.EscapeString(admin.Username)))
		} else {
			sb.WriteString(fmt.Sprintf("• <code>%d</code>\n", admin.TGUserID))
		}
	}

	b.reply(msg, sb.String())
}

func (b *Bot) replyNotFound(msg *tgbotapi.Message, err error, what string) {
	if errors.Is(err, db.ErrNotFound) {
		b.reply(msg, fmt.Sprintf("❌ Unknown %s. Check /list.", what))

		return
	}

	b.reply(msg, "❌ Lookup failed: "+html.EscapeString(err.Error()))
}

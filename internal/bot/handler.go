package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"terabox-extractor/internal/monitor"
	"terabox-extractor/internal/ratelimit"
	"terabox-extractor/internal/registry"
	"terabox-extractor/pkg/models"
)

const (
	maxTitleLen  = 100
	maxStreamLen = 500
	maxButtonLen = 2048
)

// Replies sent to users
const (
	MsgPong        = "🏓 Pong! Bot is running."
	MsgNotTerabox  = "❌ Not a Terabox link. Send a valid Terabox URL."
	MsgExtracting  = "⏳ <i>Extracting video...</i>"
	MsgSlowDown    = "⏱ Too many requests. Please wait a moment."
	openVideoLabel = "▶️ Open Video"
)

// Update kinds recorded in metrics
const (
	kindCommand = "command"
	kindLink    = "link"
	kindIgnored = "ignored"
	kindInvalid = "invalid"
	kindLimited = "limited"
)

// Messenger is the subset of the Bot API the handler needs
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) (*tgbotapi.Message, error)
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error
}

// Resolver resolves links and exposes the registry it screens hosts with
type Resolver interface {
	models.Resolver
	Registry() *registry.Registry
}

// Handler reacts to chat messages
type Handler struct {
	messenger Messenger
	resolver  models.Resolver
	registry  *registry.Registry
	limiter   *ratelimit.RateLimiter
	monitor   *monitor.Monitor
	logger    zerolog.Logger
}

// NewHandler creates a handler. limiter and mon may be nil.
func NewHandler(messenger Messenger, resolver Resolver, limiter *ratelimit.RateLimiter, mon *monitor.Monitor, logger zerolog.Logger) *Handler {
	return &Handler{
		messenger: messenger,
		resolver:  resolver,
		registry:  resolver.Registry(),
		limiter:   limiter,
		monitor:   mon,
		logger:    logger.With().Str("component", "bot_handler").Logger(),
	}
}

// HandleUpdate processes one update. Updates without text are ignored.
func (h *Handler) HandleUpdate(ctx context.Context, update *tgbotapi.Update) error {
	if update == nil || update.Message == nil || update.Message.Chat == nil {
		return nil
	}

	msg := update.Message
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, "/") {
		return h.handleCommand(ctx, msg.Chat.ID, text)
	}

	if !strings.HasPrefix(text, "http://") && !strings.HasPrefix(text, "https://") {
		h.record(kindIgnored)
		return nil
	}

	if h.limiter != nil && !h.limiter.Allow(strconv.FormatInt(msg.Chat.ID, 10)) {
		h.record(kindLimited)
		return h.send(ctx, msg.Chat.ID, MsgSlowDown)
	}

	if !h.registry.IsKnownHost(text) {
		h.record(kindInvalid)
		return h.send(ctx, msg.Chat.ID, MsgNotTerabox)
	}

	h.record(kindLink)
	return h.handleLink(ctx, msg.Chat.ID, text)
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, text string) error {
	command := strings.Fields(text)[0]
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}

	var reply string
	switch command {
	case "/start":
		reply = startText()
	case "/help":
		reply = helpText()
	case "/ping":
		reply = MsgPong
	default:
		h.record(kindIgnored)
		return nil
	}

	h.record(kindCommand)
	return h.send(ctx, chatID, reply)
}

func (h *Handler) handleLink(ctx context.Context, chatID int64, link string) error {
	h.logger.Info().Int64("chat_id", chatID).Str("url", link).Msg("Resolving link from chat")

	processing, err := h.messenger.SendMessage(ctx, chatID, MsgExtracting, nil)
	if err != nil {
		return fmt.Errorf("error sending progress message: %w", err)
	}

	result := h.resolver.Resolve(ctx, link)

	text, markup := FormatResult(result)
	if err := h.messenger.EditMessageText(ctx, chatID, processing.MessageID, text, markup); err != nil {
		return fmt.Errorf("error editing progress message: %w", err)
	}

	return nil
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) error {
	if _, err := h.messenger.SendMessage(ctx, chatID, text, nil); err != nil {
		return fmt.Errorf("error sending message: %w", err)
	}
	return nil
}

func (h *Handler) record(kind string) {
	if h.monitor != nil {
		h.monitor.RecordBotUpdate(kind)
	}
}

// FormatResult renders a resolution as an HTML message with an optional button
func FormatResult(result *models.VideoResult) (string, *tgbotapi.InlineKeyboardMarkup) {
	if !result.Playable() {
		message := models.MsgAllStrategiesFailed
		if result != nil && result.Error != "" {
			message = result.Error
		}
		return "❌ <b>Failed:</b>\n" + html.EscapeString(message), nil
	}

	var b strings.Builder
	b.WriteString("✅ <b>Video Found!</b>\n\n")
	fmt.Fprintf(&b, "📹 <b>Title:</b> <code>%s</code>\n", html.EscapeString(truncate(result.Title, maxTitleLen)))
	fmt.Fprintf(&b, "📊 <b>Size:</b> %s\n\n", html.EscapeString(result.SizeStr))
	b.WriteString("🔗 <b>Stream URL:</b>\n")
	fmt.Fprintf(&b, "<code>%s</code>\n\n", html.EscapeString(truncate(result.StreamURL, maxStreamLen)))
	fmt.Fprintf(&b, "<b>Share ID:</b> %s\n", html.EscapeString(result.Surl))

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(openVideoLabel, truncate(result.StreamURL, maxButtonLen)),
		),
	)

	return b.String(), &markup
}

// truncate cuts s to at most n characters
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func startText() string {
	var b strings.Builder
	b.WriteString("🎬 <b>Terabox Video Extractor</b>\n\n")
	b.WriteString("Send me any Terabox link and I'll get the direct video URL!\n\n")
	b.WriteString("<b>Supported domains:</b>\n")
	for _, domain := range registry.PrimaryDomains() {
		fmt.Fprintf(&b, "• %s\n", domain)
	}
	b.WriteString("• And more...\n\n")
	b.WriteString("<b>Just send a link to start!</b>")
	return b.String()
}

func helpText() string {
	return `📖 <b>How to use:</b>

1. Copy any Terabox video link
2. Send it to me
3. Get direct streaming URL!

<b>Example links:</b>
<code>https://terabox.com/s/1xxxxx</code>
<code>https://1024tera.com/s/1xxxxx</code>
<code>https://teraboxlink.com/s/1xxxxx</code>

<b>Tip:</b> Links with "1" before surl work best!`
}

package bot

import (
	"context"
	"crypto/subtle"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const (
	// DefaultPollTimeout is the long-poll wait in seconds
	DefaultPollTimeout = 30

	// WebhookPathPrefix is the route prefix the webhook is served under
	WebhookPathPrefix = "/webhook/"

	retryDelay = 3 * time.Second
)

// Config holds the bot runtime settings
type Config struct {
	Token       string
	WebhookURL  string
	PollTimeout int
}

// UpdateSource is the Bot API surface used for receiving updates
type UpdateSource interface {
	SetWebhook(ctx context.Context, url string) error
	DeleteWebhook(ctx context.Context, dropPending bool) error
	GetUpdates(ctx context.Context, offset, timeout int) ([]tgbotapi.Update, error)
}

// Bot receives updates by webhook or long polling and hands them to a Handler
type Bot struct {
	config  Config
	source  UpdateSource
	handler *Handler
	logger  zerolog.Logger

	wg sync.WaitGroup
}

// New creates a bot. It fails when no token is configured.
func New(config Config, source UpdateSource, handler *Handler, logger zerolog.Logger) (*Bot, error) {
	if config.Token == "" {
		return nil, ErrMissingToken
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = DefaultPollTimeout
	}
	config.WebhookURL = strings.TrimRight(config.WebhookURL, "/")

	return &Bot{
		config:  config,
		source:  source,
		handler: handler,
		logger:  logger.With().Str("component", "bot").Logger(),
	}, nil
}

// WebhookMode reports whether updates arrive by webhook
func (b *Bot) WebhookMode() bool {
	return b.config.WebhookURL != ""
}

// WebhookPath is the local route the webhook is served on
func (b *Bot) WebhookPath() string {
	return WebhookPathPrefix + b.config.Token
}

// ValidToken reports whether token matches the bot token
func (b *Bot) ValidToken(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), []byte(b.config.Token)) == 1
}

// Run receives updates until ctx is cancelled. In webhook mode it registers
// the webhook, waits, then deletes it; otherwise it long-polls.
func (b *Bot) Run(ctx context.Context) error {
	defer b.wg.Wait()

	if b.WebhookMode() {
		return b.runWebhook(ctx)
	}
	return b.runPolling(ctx)
}

func (b *Bot) runWebhook(ctx context.Context) error {
	webhookURL := b.config.WebhookURL + b.WebhookPath()
	if err := b.source.SetWebhook(ctx, webhookURL); err != nil {
		return err
	}
	b.logger.Info().Str("url", b.config.WebhookURL+WebhookPathPrefix+"***").Msg("Webhook set")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := b.source.DeleteWebhook(shutdownCtx, false); err != nil {
		b.logger.Warn().Err(err).Msg("Error deleting webhook")
	}

	b.logger.Info().Msg("Bot stopped")
	return nil
}

func (b *Bot) runPolling(ctx context.Context) error {
	if err := b.source.DeleteWebhook(ctx, true); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	b.logger.Info().Int("poll_timeout", b.config.PollTimeout).Msg("Starting polling")

	var offset int
	for {
		updates, err := b.source.GetUpdates(ctx, offset, b.config.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				b.logger.Info().Msg("Bot stopped")
				return nil
			}
			b.logger.Warn().Err(err).Msg("Error polling updates")
			select {
			case <-time.After(retryDelay):
				continue
			case <-ctx.Done():
				b.logger.Info().Msg("Bot stopped")
				return nil
			}
		}

		for i := range updates {
			if updates[i].UpdateID >= offset {
				offset = updates[i].UpdateID + 1
			}
			b.Dispatch(ctx, &updates[i])
		}
	}
}

// Dispatch handles update in the background. The handling outlives ctx's
// cancellation so webhook requests can return immediately.
func (b *Bot) Dispatch(ctx context.Context, update *tgbotapi.Update) {
	ctx = context.WithoutCancel(ctx)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.handler.HandleUpdate(ctx, update); err != nil {
			b.logger.Error().Err(err).Int("update_id", update.UpdateID).Msg("Error handling update")
		}
	}()
}

// Wait blocks until dispatched updates are handled
func (b *Bot) Wait() {
	b.wg.Wait()
}

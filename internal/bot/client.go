package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"terabox-extractor/internal/utils"
)

// DefaultAPIBase is the public Bot API host
const DefaultAPIBase = "https://api.telegram.org"

// ErrMissingToken is returned when the bot is started without credentials
var ErrMissingToken = errors.New("BOT_TOKEN is required")

// Client talks to the Bot API through tgbotapi over the shared HTTP session
type Client struct {
	api     *tgbotapi.BotAPI
	session *utils.Session
	logger  zerolog.Logger
}

// NewClient creates a Bot API client. An empty apiBase selects DefaultAPIBase.
// Nothing is sent until the first call.
func NewClient(session *utils.Session, apiBase, token string, logger zerolog.Logger) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}

	api := &tgbotapi.BotAPI{
		Token:  token,
		Buffer: 100,
	}
	api.SetAPIEndpoint(strings.TrimRight(apiBase, "/") + "/bot%s/%s")

	return &Client{
		api:     api,
		session: session,
		logger:  logger.With().Str("component", "bot_client").Logger(),
	}
}

// bind returns a copy of the API handle whose requests carry ctx
func (c *Client) bind(ctx context.Context) (*tgbotapi.BotAPI, error) {
	if c.api.Token == "" {
		return nil, ErrMissingToken
	}

	api := *c.api
	api.Client = &sessionDoer{ctx: ctx, session: c.session}
	return &api, nil
}

// sessionDoer sends tgbotapi requests through the session under ctx.
// Transport errors are stripped of the request URL, which embeds the token.
type sessionDoer struct {
	ctx     context.Context
	session *utils.Session
}

func (d *sessionDoer) Do(req *http.Request) (*http.Response, error) {
	client, err := d.session.Client()
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req.WithContext(d.ctx))
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, fmt.Errorf("%s %s: %w", urlErr.Op, req.URL.Host, urlErr.Err)
		}
		return nil, err
	}
	return resp, nil
}

// SendMessage sends an HTML formatted message
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) (*tgbotapi.Message, error) {
	api, err := c.bind(ctx)
	if err != nil {
		return nil, err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}

	sent, err := api.Send(msg)
	if err != nil {
		return nil, fmt.Errorf("error calling sendMessage: %w", err)
	}
	return &sent, nil
}

// EditMessageText replaces the text of a sent message
func (c *Client) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	api, err := c.bind(ctx)
	if err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	edit.ReplyMarkup = markup

	if _, err := api.Request(edit); err != nil {
		return fmt.Errorf("error calling editMessageText: %w", err)
	}
	return nil
}

// SetWebhook registers link and drops updates queued before it
func (c *Client) SetWebhook(ctx context.Context, link string) error {
	api, err := c.bind(ctx)
	if err != nil {
		return err
	}

	webhook, err := tgbotapi.NewWebhook(link)
	if err != nil {
		return fmt.Errorf("error parsing webhook URL: %w", err)
	}
	webhook.DropPendingUpdates = true

	if _, err := api.Request(webhook); err != nil {
		return fmt.Errorf("error calling setWebhook: %w", err)
	}
	return nil
}

// DeleteWebhook removes any registered webhook
func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	api, err := c.bind(ctx)
	if err != nil {
		return err
	}

	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPending}); err != nil {
		return fmt.Errorf("error calling deleteWebhook: %w", err)
	}
	return nil
}

// GetUpdates long-polls for message updates after offset
func (c *Client) GetUpdates(ctx context.Context, offset, timeout int) ([]tgbotapi.Update, error) {
	api, err := c.bind(ctx)
	if err != nil {
		return nil, err
	}

	config := tgbotapi.NewUpdate(offset)
	config.Timeout = timeout
	config.AllowedUpdates = []string{"message"}

	updates, err := api.GetUpdates(config)
	if err != nil {
		return nil, fmt.Errorf("error calling getUpdates: %w", err)
	}
	return updates, nil
}

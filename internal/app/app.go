// Package app wires configuration into the resolution engine and its front-ends.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"terabox-extractor/internal/batch"
	"terabox-extractor/internal/bot"
	"terabox-extractor/internal/config"
	"terabox-extractor/internal/monitor"
	"terabox-extractor/internal/platform"
	"terabox-extractor/internal/ratelimit"
	"terabox-extractor/internal/registry"
	"terabox-extractor/internal/resolver"
	"terabox-extractor/internal/server"
	"terabox-extractor/internal/utils"
	"terabox-extractor/pkg/models"
)

// Per-chat limits for bot users
const (
	chatRequestsPerSecond = 0.5
	chatBurst             = 3
)

// App holds the shared engine components of one process
type App struct {
	Config   *models.Config
	Logger   zerolog.Logger
	Session  *utils.Session
	Monitor  *monitor.Monitor
	Resolver *resolver.Resolver
}

// New builds the engine from cfg. Nothing touches the network until first use.
func New(cfg *models.Config, logger zerolog.Logger) (*App, error) {
	session := utils.NewSession(config.HTTPClientConfig(cfg), logger)
	reg := registry.NewRegistry(cfg.Resolver.APIBase)
	mon := monitor.NewMonitor(logger)

	strategies, err := platform.NewStrategies(models.PlatformTerabox, session, reg, logger)
	if err != nil {
		return nil, err
	}

	res := resolver.NewResolver(
		reg,
		strategies,
		logger,
		resolver.WithTimeout(config.ResolverTimeout(cfg)),
		resolver.WithMonitor(mon),
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Session:  session,
		Monitor:  mon,
		Resolver: res,
	}, nil
}

// BatchManager returns a batch runner bound to the resolver
func (a *App) BatchManager() *batch.BatchManager {
	return batch.NewBatchManager(a.Resolver, a.Config.Batch.MaxConcurrent, a.Logger)
}

// NewBot builds the chat bot. It fails with bot.ErrMissingToken when no token is configured.
func (a *App) NewBot() (*bot.Bot, error) {
	pollTimeout := a.Config.Bot.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = bot.DefaultPollTimeout
	}

	// Separate session: verified TLS, and a timeout longer than the long poll.
	clientConfig := config.HTTPClientConfig(a.Config)
	clientConfig.TLSInsecure = false
	clientConfig.Timeout = time.Duration(pollTimeout+15) * time.Second
	botSession := utils.NewSession(clientConfig, a.Logger)

	client := bot.NewClient(botSession, a.Config.Bot.APIBase, a.Config.Bot.Token, a.Logger)
	limiter := ratelimit.NewRateLimiter(chatRequestsPerSecond, chatBurst, a.Logger)
	handler := bot.NewHandler(client, a.Resolver, limiter, a.Monitor, a.Logger)

	return bot.New(bot.Config{
		Token:       a.Config.Bot.Token,
		WebhookURL:  a.Config.Bot.WebhookURL,
		PollTimeout: pollTimeout,
	}, client, handler, a.Logger)
}

// RunServer serves the HTTP API until ctx is cancelled. When a bot token is
// configured the bot runs alongside it.
func (a *App) RunServer(ctx context.Context) error {
	a.Monitor.Start()
	defer a.Monitor.Stop()

	var opts []server.Option
	var chatBot *bot.Bot
	if a.Config.Bot.Token != "" {
		b, err := a.NewBot()
		if err != nil {
			return err
		}
		chatBot = b
		opts = append(opts, server.WithBot(b))
	}

	srv := server.NewServer(a.Config, a.Resolver, a.Monitor, a.Logger, opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if chatBot != nil {
		g.Go(func() error {
			return chatBot.Run(gctx)
		})
	}

	return g.Wait()
}

// RunBot runs only the chat bot. In webhook mode the HTTP server is started too,
// since updates arrive over HTTP.
func (a *App) RunBot(ctx context.Context) error {
	if a.Config.Bot.Token == "" {
		return bot.ErrMissingToken
	}
	if a.Config.Bot.WebhookURL != "" {
		return a.RunServer(ctx)
	}

	chatBot, err := a.NewBot()
	if err != nil {
		return err
	}

	a.Monitor.Start()
	defer a.Monitor.Stop()

	a.Logger.Info().Msg("Mode: Polling")
	return chatBot.Run(ctx)
}

// Close releases pooled connections
func (a *App) Close() error {
	a.Monitor.Stop()
	return a.Session.Close()
}

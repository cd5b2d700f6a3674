package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"terabox-extractor/internal/utils"
	"terabox-extractor/pkg/models"
)

// EnvPrefix is prepended to every automatically mapped environment variable
const EnvPrefix = "TBX"

// Plain environment variables honored for deployment platforms
var envBindings = map[string]string{
	"bot.token":       "BOT_TOKEN",
	"bot.webhook_url": "RENDER_EXTERNAL_URL",
	"server.port":     "PORT",
	"log.level":       "LOG_LEVEL",
}

// Manager manages application configuration
type Manager struct {
	config  *models.Config
	viper   *viper.Viper
	logger  zerolog.Logger
	logFile *os.File
}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{
		config: &models.Config{},
		viper:  viper.New(),
		logger: zerolog.New(os.Stdout).With().Timestamp().Logger(),
	}
}

// Load loads configuration from file and environment.
// configPath may name a yaml file or a directory containing config.yaml.
// A missing config file is not an error.
func (m *Manager) Load(configPath string) (*models.Config, error) {
	m.setDefaults()

	m.viper.SetConfigName("config")
	m.viper.SetConfigType("yaml")

	switch {
	case strings.HasSuffix(configPath, ".yaml"), strings.HasSuffix(configPath, ".yml"):
		m.viper.SetConfigFile(configPath)
	case configPath != "":
		m.viper.AddConfigPath(configPath)
	default:
		m.viper.AddConfigPath(".")
		m.viper.AddConfigPath("./config")
		m.viper.AddConfigPath("$HOME/.terabox-extractor")
		m.viper.AddConfigPath("/etc/terabox-extractor")
	}

	// Enable environment variable support
	m.viper.SetEnvPrefix(EnvPrefix)
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.viper.AutomaticEnv()

	for key, env := range envBindings {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := m.viper.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", env, err)
		}
	}

	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		m.logger.Debug().Msg("No config file found, using defaults and environment")
	}

	if err := m.viper.Unmarshal(m.config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := m.configureLogger(); err != nil {
		return nil, err
	}

	return m.config, nil
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *models.Config {
	return m.config
}

// UpdateConfig updates specific configuration values
func (m *Manager) UpdateConfig(updates map[string]interface{}) error {
	for key, value := range updates {
		m.viper.Set(key, value)
	}

	return m.viper.Unmarshal(m.config)
}

// ConfigFile returns the file the configuration was read from, if any
func (m *Manager) ConfigFile() string {
	return m.viper.ConfigFileUsed()
}

// Dump renders the effective configuration as yaml. The bot token is masked.
func (m *Manager) Dump() (string, error) {
	settings := m.viper.AllSettings()
	if bot, ok := settings["bot"].(map[string]interface{}); ok {
		if token, _ := bot["token"].(string); token != "" {
			bot["token"] = maskSecret(token)
		}
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("error encoding config: %w", err)
	}
	return string(out), nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	m.viper.SetDefault("server.host", "0.0.0.0")
	m.viper.SetDefault("server.port", 10000)
	m.viper.SetDefault("server.read_timeout", 30)
	m.viper.SetDefault("server.write_timeout", 90)

	// Log defaults
	m.viper.SetDefault("log.level", "info")
	m.viper.SetDefault("log.format", "text")
	m.viper.SetDefault("log.output", "stdout")

	// HTTP session defaults
	m.viper.SetDefault("http.timeout", 30)
	m.viper.SetDefault("http.max_idle_conns", 10)
	m.viper.SetDefault("http.max_conns", 10)
	m.viper.SetDefault("http.max_conns_per_host", 5)
	m.viper.SetDefault("http.insecure_tls", true)
	m.viper.SetDefault("http.proxy_url", "")

	// Resolver defaults
	m.viper.SetDefault("resolver.timeout", 60)
	m.viper.SetDefault("resolver.api_base", "https://www.terabox.com")

	// Bot defaults
	m.viper.SetDefault("bot.token", "")
	m.viper.SetDefault("bot.webhook_url", "")
	m.viper.SetDefault("bot.api_base", "https://api.telegram.org")
	m.viper.SetDefault("bot.poll_timeout", 30)

	// Rate limit defaults
	m.viper.SetDefault("rate_limit.enabled", true)
	m.viper.SetDefault("rate_limit.requests_per_second", 2)
	m.viper.SetDefault("rate_limit.burst", 10)
	m.viper.SetDefault("rate_limit.max_concurrent", 20)
	m.viper.SetDefault("rate_limit.whitelisted_ips", []string{"127.0.0.1", "::1"})

	// Batch defaults
	m.viper.SetDefault("batch.max_concurrent", 3)
}

// configureLogger configures the logger based on settings
func (m *Manager) configureLogger() error {
	level, err := zerolog.ParseLevel(strings.ToLower(m.config.Log.Level))
	if err != nil || m.config.Log.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stdout
	switch m.config.Log.Output {
	case "", "stdout":
	case "stderr":
		out = os.Stderr
	default:
		if err := os.MkdirAll(filepath.Dir(m.config.Log.Output), 0755); err != nil {
			return fmt.Errorf("error creating log directory: %w", err)
		}
		file, err := os.OpenFile(m.config.Log.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("error opening log file: %w", err)
		}
		m.logFile = file
		out = file
	}

	if m.config.Log.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: m.logFile != nil}
	}

	m.logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}

// GetLogger returns the logger instance
func (m *Manager) GetLogger() zerolog.Logger {
	return m.logger
}

// Close releases the log file, if one was opened
func (m *Manager) Close() error {
	if m.logFile == nil {
		return nil
	}
	return m.logFile.Close()
}

// HTTPClientConfig maps the http section onto the session configuration
func HTTPClientConfig(cfg *models.Config) utils.ClientConfig {
	clientConfig := utils.DefaultClientConfig()

	if cfg.HTTP.Timeout > 0 {
		clientConfig.Timeout = time.Duration(cfg.HTTP.Timeout) * time.Second
	}
	if cfg.HTTP.MaxIdleConns > 0 {
		clientConfig.MaxIdleConns = cfg.HTTP.MaxIdleConns
	}
	if cfg.HTTP.MaxConns > 0 {
		clientConfig.MaxConns = cfg.HTTP.MaxConns
	}
	if cfg.HTTP.MaxConnsPerHost > 0 {
		clientConfig.MaxConnsPerHost = cfg.HTTP.MaxConnsPerHost
	}
	clientConfig.TLSInsecure = cfg.HTTP.InsecureTLS
	clientConfig.ProxyURL = cfg.HTTP.ProxyURL
	if cfg.Resolver.APIBase != "" {
		clientConfig.Origin = strings.TrimRight(cfg.Resolver.APIBase, "/")
	}

	return clientConfig
}

// ResolverTimeout returns the per-resolution deadline
func ResolverTimeout(cfg *models.Config) time.Duration {
	return time.Duration(cfg.Resolver.Timeout) * time.Second
}

func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****" + secret[len(secret)-4:]
}

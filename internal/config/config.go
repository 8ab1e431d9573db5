package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultUserAgent is sent with every outbound request unless overridden.
const DefaultUserAgent = "AniBridge/2 (+https://github.com/Belphemur/AniBridge)"

// AniDBProtocolVersion is the HTTP API protocol version the decoder understands.
const AniDBProtocolVersion = 1

type Config struct {
	// Production disables the warm-up delay applied before the first AniDB request.
	Production            bool   `mapstructure:"production"`
	ProxyConnectionString string `mapstructure:"proxy_connection_string"`
	ClientTimeout         string `mapstructure:"client_timeout"` // Go duration string like "30s", "1m", etc.
	UserAgent             string `mapstructure:"user_agent"`
	LogLevel              string `mapstructure:"log_level"`
	LogFile               string `mapstructure:"log_file"`
	Relations             struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"relations"`
	AniDB struct {
		URL                string `mapstructure:"url"`
		Client             string `mapstructure:"client"`
		ClientVersion      string `mapstructure:"client_version"`
		MinInterval        string `mapstructure:"min_interval"`
		WarmUp             string `mapstructure:"warm_up"`
		StrictFirstEpisode bool   `mapstructure:"strict_first_episode"`
	} `mapstructure:"anidb"`
	Season struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"season"`
	Ledger struct {
		Provider      string `mapstructure:"provider"` // "redis" shares spacing across processes; "memory" is process-local (metrics only); empty disables
		RedisAddress  string `mapstructure:"redis_address"`
		RedisPassword string `mapstructure:"redis_password"`
		RedisDB       int    `mapstructure:"redis_db"`
	} `mapstructure:"ledger"`
	Server struct {
		Port    int    `mapstructure:"port"`
		Address string `mapstructure:"address"`
	} `mapstructure:"server"`
	HTTP struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"http"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`
	Sentry struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"sentry"`
}

var (
	globalConfig *Config
	logger       zerolog.Logger
)

func init() {
	logger = zerolog.New(newConsoleWriter(os.Stdout)).With().Timestamp().Logger()

	config, err := LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	level := zerolog.InfoLevel
	if config.LogLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(config.LogLevel); err == nil {
			level = parsedLevel
		} else {
			logger.Warn().Str("invalid_level", config.LogLevel).Msg("Invalid log level, using default 'info'")
		}
	}
	zerolog.SetGlobalLevel(level)

	if config.LogFile != "" {
		logger = zerolog.New(newLogWriter(config.LogFile)).With().Timestamp().Logger()
	}
	logger = logger.Level(level)

	logger.Info().Str("level", level.String()).Bool("production", config.Production).Msg("Logging configured")
	globalConfig = config
	logger.Info().Msg("Configuration loaded successfully")
}

func newConsoleWriter(out *os.File) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    !isatty.IsTerminal(out.Fd()) && !isatty.IsCygwinTerminal(out.Fd()),
		TimeFormat: time.RFC3339,
	}
}

// newLogWriter mirrors console output into a size-rotated JSON log file.
func newLogWriter(path string) io.Writer {
	rotating := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
		Compress:   true,
	}
	return zerolog.MultiLevelWriter(newConsoleWriter(os.Stdout), rotating)
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variable support
	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = v.BindEnv("log_level", "LOG_LEVEL")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Every key needs a default so AutomaticEnv can populate it during Unmarshal.
	v.SetDefault("production", false)
	v.SetDefault("proxy_connection_string", "")
	v.SetDefault("client_timeout", "30s")
	v.SetDefault("user_agent", "")
	v.SetDefault("log_level", "")
	v.SetDefault("log_file", "")
	v.SetDefault("relations.url", "https://relations.yuna.moe")
	v.SetDefault("anidb.url", "http://api.anidb.net:9001/httpapi")
	v.SetDefault("anidb.client", "application")
	v.SetDefault("anidb.client_version", "2")
	v.SetDefault("anidb.min_interval", "2250ms")
	v.SetDefault("anidb.warm_up", "2000ms")
	v.SetDefault("anidb.strict_first_episode", false)
	v.SetDefault("season.url", "")
	v.SetDefault("ledger.provider", "")
	v.SetDefault("ledger.redis_address", "localhost:6379")
	v.SetDefault("ledger.redis_password", "")
	v.SetDefault("ledger.redis_db", 0)
	v.SetDefault("server.address", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("http.port", 8081)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("sentry.dsn", "")
}

// Duration parses a Go duration string, falling back to def when the value is
// empty or invalid. Invalid values are logged.
func Duration(key, value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		logger.Warn().Err(err).Str("key", key).Str("value", value).Dur("default", def).Msg("Invalid duration, using default")
		return def
	}
	return parsed
}

func GetConfig() *Config {
	return globalConfig
}

func GetUserAgent() string {
	if globalConfig != nil && globalConfig.UserAgent != "" {
		return globalConfig.UserAgent
	}

	return DefaultUserAgent
}

func GetLogger() zerolog.Logger {
	return logger
}

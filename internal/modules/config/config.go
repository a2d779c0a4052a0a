package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"signal_relay/internal/models"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
	accountIDsENV     = "CTRADER_ACCOUNT_IDS"
	channelsENV       = "TELEGRAM_CHANNELS"
)

// Options — то, что приходит из флагов cobra.
type Options struct {
	File     string
	LogLevel string
}

type BackoffConfig struct {
	Initial     time.Duration `mapstructure:"initial"`
	Factor      float64       `mapstructure:"factor"`
	Max         time.Duration `mapstructure:"max"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

type OpenAPIConfig struct {
	URL               string        `mapstructure:"url"`
	ClientID          string        `mapstructure:"client_id"`
	ClientSecret      string        `mapstructure:"client_secret"`
	AccessToken       string        `mapstructure:"access_token"`
	AccountIDs        []int64       `mapstructure:"account_ids"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	Backoff           BackoffConfig `mapstructure:"backoff"`
}

type TradingConfig struct {
	// Доля рабочего баланса под риск одной сделки (0.15 = 15%)
	RiskFraction      float64 `mapstructure:"risk_fraction"`
	MinWorkingBalance float64 `mapstructure:"min_working_balance"`
	PipValueMetals    float64 `mapstructure:"pip_value_metals"`
	PipValueDefault   float64 `mapstructure:"pip_value_default"`
	// symbolId золота у брокера: для него своя стоимость пипа и округление целей
	MetalsInstrumentID int64 `mapstructure:"metals_instrument_id"`
	// fixed | exponent
	PipDistance string `mapstructure:"pip_distance"`
	// пусто — торгуем всё, что распознали
	AllowedInstruments []string `mapstructure:"allowed_instruments"`
	InstrumentsFile    string   `mapstructure:"instruments_file"`
	Label              string   `mapstructure:"label"`
}

type TelegramConfig struct {
	Token          string  `mapstructure:"token"`
	Channels       []int64 `mapstructure:"channels"` // пусто — слушаем все чаты, куда добавлен бот
	OperatorChatID int64   `mapstructure:"operator_chat_id"`
}

// Config ...
type Config struct {
	Service struct {
		Name       string `mapstructure:"name"`
		HealthAddr string `mapstructure:"health_addr"`
	} `mapstructure:"service"`
	Log struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
	} `mapstructure:"log"`
	Tracing struct {
		Enabled bool   `mapstructure:"enabled"`
		Host    string `mapstructure:"host"`
		Port    int    `mapstructure:"port"`
	} `mapstructure:"tracing"`
	DB       string         `mapstructure:"db_dsn"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	OpenAPI  OpenAPIConfig  `mapstructure:"openapi"`
	Trading  TradingConfig  `mapstructure:"trading"`

	Instruments models.InstrumentTable `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "signal_relay")
	v.SetDefault("service.health_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("tracing.host", "localhost")
	v.SetDefault("tracing.port", 6831)

	v.SetDefault("openapi.url", "wss://demo.ctraderapi.com:5036")
	v.SetDefault("openapi.heartbeat_interval", "15s")
	v.SetDefault("openapi.request_timeout", "30s")
	v.SetDefault("openapi.backoff.initial", "5s")
	v.SetDefault("openapi.backoff.factor", 1.5)
	v.SetDefault("openapi.backoff.max", "60s")
	v.SetDefault("openapi.backoff.max_attempts", 10)

	v.SetDefault("trading.risk_fraction", 0.15)
	v.SetDefault("trading.min_working_balance", 100)
	v.SetDefault("trading.pip_value_metals", 1.0)
	v.SetDefault("trading.pip_value_default", 10.0)
	v.SetDefault("trading.metals_instrument_id", 41)
	v.SetDefault("trading.pip_distance", "fixed")
}

func bindEnv(v *viper.Viper) error {
	binds := map[string]string{
		"telegram.token":            tokenTelegramENV,
		"telegram.operator_chat_id": "TELEGRAM_OPERATOR_CHAT_ID",
		"db_dsn":                    databaseDSN,
		"openapi.url":               "CTRADER_URL",
		"openapi.client_id":         "CTRADER_CLIENT_ID",
		"openapi.client_secret":     "CTRADER_CLIENT_SECRET",
		"openapi.access_token":      "CTRADER_ACCESS_TOKEN",
		"log.level":                 "LOG_LEVEL",
		"tracing.enabled":           "TRACING_ENABLED",
	}
	for key, env := range binds {
		if err := v.BindEnv(key, env); err != nil {
			return pkgerrors.Wrapf(err, "bind env %s", env)
		}
	}
	return nil
}

func NewConfig(opts Options) (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	path := opts.File
	if path == "" {
		path = filepath.Join(getenvDefault(configDirENV, "configs"), getenvDefault(configFilePathENV, "values_local.yaml"))
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, pkgerrors.Wrapf(err, "read config %s", path)
		}
		// без файла живём на дефолтах и env
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, pkgerrors.Wrap(err, "decode config")
	}

	if opts.LogLevel != "" {
		config.Log.Level = opts.LogLevel
	}
	if ids, ok, err := int64sFromEnv(accountIDsENV); err != nil {
		return nil, err
	} else if ok {
		config.OpenAPI.AccountIDs = ids
	}
	if ids, ok, err := int64sFromEnv(channelsENV); err != nil {
		return nil, err
	} else if ok {
		config.Telegram.Channels = ids
	}

	config.Instruments = models.DefaultInstruments()
	if config.Trading.InstrumentsFile != "" {
		table, err := LoadInstruments(config.Trading.InstrumentsFile)
		if err != nil {
			return nil, err
		}
		config.Instruments = table
	}

	return &config, nil
}

// Validate — то, без чего к брокеру не подключиться.
func (c *Config) Validate() error {
	var missing []string
	if c.OpenAPI.ClientID == "" {
		missing = append(missing, "openapi.client_id")
	}
	if c.OpenAPI.ClientSecret == "" {
		missing = append(missing, "openapi.client_secret")
	}
	if c.OpenAPI.AccessToken == "" {
		missing = append(missing, "openapi.access_token")
	}
	if len(c.OpenAPI.AccountIDs) == 0 {
		missing = append(missing, "openapi.account_ids")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing %s", strings.Join(missing, ", "))
	}
	if c.Trading.RiskFraction <= 0 || c.Trading.RiskFraction > 1 {
		return fmt.Errorf("config: trading.risk_fraction must be in (0, 1], got %v", c.Trading.RiskFraction)
	}
	return nil
}

// LoadInstruments читает таблицу профилей инструментов из отдельного yaml.
func LoadInstruments(path string) (models.InstrumentTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.InstrumentTable{}, pkgerrors.Wrapf(err, "read instruments %s", path)
	}

	table := models.DefaultInstruments()
	var parsed models.InstrumentTable
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return models.InstrumentTable{}, pkgerrors.Wrapf(err, "decode instruments %s", path)
	}

	if parsed.Default.MinVolume > 0 {
		table.Default = parsed.Default
	}
	for symbolID, p := range parsed.ByID {
		if p.MinVolume <= 0 {
			return models.InstrumentTable{}, fmt.Errorf("instrument %d: min_volume must be > 0", symbolID)
		}
		table.ByID[symbolID] = p
	}
	return table, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func int64sFromEnv(key string) ([]int64, bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return nil, false, nil
	}
	var out []int64
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, false, fmt.Errorf("env %s: %w", key, err)
		}
		out = append(out, n)
	}
	return out, true, nil
}

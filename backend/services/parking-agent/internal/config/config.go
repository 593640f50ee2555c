package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/shopspring/decimal"

	libconfig "parkingagent/backend/libs/config"
)

// APIConfig points at the parking API and holds the account credentials.
type APIConfig struct {
	BaseURL    string        `yaml:"base_url" env:"BASE_URL"`
	OrgID      int           `yaml:"org_id" env:"PREFEITURA_ID"`
	Credential string        `yaml:"credential" env:"CREDENCIAL"`
	Password   string        `yaml:"password" env:"SENHA"`
	Timeout    time.Duration `yaml:"timeout" env:"API_TIMEOUT"`
}

// DeviceConfig identifies the phone the account is bound to.
type DeviceConfig struct {
	IMEI string `yaml:"imei" env:"CARTAO_IMEI"`
	UUID string `yaml:"uuid" env:"CARTAO_UUID"`
}

// HeadersConfig are the static client headers the API expects.
type HeadersConfig struct {
	OSVersion   string `yaml:"os_version" env:"HEADER_OS_VERSION"`
	AppVersion  string `yaml:"app_version" env:"HEADER_APP_VERSION"`
	PhoneModel  string `yaml:"phone_model" env:"HEADER_PHONE_MODEL"`
	Origin      string `yaml:"origin" env:"HEADER_ORIGIN"`
	CityCode    string `yaml:"city_code" env:"HEADER_CITY_CODE"`
	ContentType string `yaml:"content_type" env:"HEADER_CONTENT_TYPE"`
	UserAgent   string `yaml:"user_agent" env:"HEADER_USER_AGENT"`
}

// CardConfig is the credit card used for balance purchases.
type CardConfig struct {
	Number     string `yaml:"number" env:"CARTAO_NUMERO"`
	CVV        string `yaml:"cvv" env:"CARTAO_CVV"`
	Expiration string `yaml:"expiration" env:"CARTAO_EXPIRACAO"`
	Brand      string `yaml:"brand" env:"CARTAO_BANDEIRA"`
	Holder     string `yaml:"holder" env:"CARTAO_TITULAR"`
}

// BalanceConfig drives the automatic top-up.
type BalanceConfig struct {
	Threshold float64 `yaml:"threshold" env:"BALANCE_THRESHOLD"`
	TopUp     float64 `yaml:"top_up" env:"BALANCE_TOP_UP"`
}

// Policy returns the threshold and top-up as cent amounts.
func (b BalanceConfig) Policy() (threshold, topUp decimal.Decimal) {
	return decimal.NewFromFloat(b.Threshold).Round(2), decimal.NewFromFloat(b.TopUp).Round(2)
}

// ParkingConfig holds the activation location and the default rule per vehicle type.
type ParkingConfig struct {
	Latitude  float64     `yaml:"latitude" env:"PARKING_LATITUDE"`
	Longitude float64     `yaml:"longitude" env:"PARKING_LONGITUDE"`
	Rules     map[int]int `yaml:"rules"`

	// RulesOverride replaces Rules when set, as "type:rule" pairs, e.g. "1:85,2:89".
	RulesOverride string `yaml:"-" env:"PARKING_RULES"`
}

// SessionConfig selects where the session token is persisted. A redis address
// wins over the file.
type SessionConfig struct {
	File          string `yaml:"file" env:"SESSION_FILE"`
	RedisAddr     string `yaml:"redis_addr" env:"SESSION_REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"SESSION_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"SESSION_REDIS_DB"`
	RedisKey      string `yaml:"redis_key" env:"SESSION_REDIS_KEY"`
}

// TelegramConfig configures notifications. Empty token or chat disables sending.
type TelegramConfig struct {
	BotToken  string        `yaml:"bot_token" env:"BOT_TOKEN"`
	ChatID    string        `yaml:"chat_id" env:"CHAT_ID"`
	Timeout   time.Duration `yaml:"timeout" env:"TELEGRAM_TIMEOUT"`
	PerSecond int           `yaml:"per_second" env:"TELEGRAM_PER_SECOND"`
}

// HistoryConfig enables the run history ledger when DSN is set.
type HistoryConfig struct {
	DSN string `yaml:"dsn" env:"HISTORY_POSTGRES_DSN"`
}

// Config defines parking agent configuration.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Device   DeviceConfig   `yaml:"device"`
	Headers  HeadersConfig  `yaml:"headers"`
	Card     CardConfig     `yaml:"card"`
	Balance  BalanceConfig  `yaml:"balance"`
	Parking  ParkingConfig  `yaml:"parking"`
	Session  SessionConfig  `yaml:"session"`
	Telegram TelegramConfig `yaml:"telegram"`
	History  HistoryConfig  `yaml:"history"`
}

// Default returns configuration with every optional value filled in.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Timeout: 30 * time.Second,
		},
		Headers: HeadersConfig{
			OSVersion:   "Android_v13_r33",
			AppVersion:  "PareAzul_v2025.04.11_r40134",
			PhoneModel:  "samsung SM-G985F",
			Origin:      "APP",
			CityCode:    "CPM",
			ContentType: "application/json; charset=UTF-8",
			UserAgent:   "okhttp/3.12.12",
		},
		Balance: BalanceConfig{
			Threshold: 6.0,
			TopUp:     5.75,
		},
		Parking: ParkingConfig{
			Latitude:  -24.04206,
			Longitude: -52.37622,
			Rules:     map[int]int{1: 85, 2: 89},
		},
		Session: SessionConfig{
			File:     "session.json",
			RedisKey: "parking-agent:session",
		},
		Telegram: TelegramConfig{
			Timeout:   10 * time.Second,
			PerSecond: 1,
		},
	}
}

// Load configuration from file/env and validate it.
func Load() (*Config, error) {
	cfg := Default()

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if override := strings.TrimSpace(cfg.Parking.RulesOverride); override != "" {
		rules, err := ParseRules(override)
		if err != nil {
			return nil, err
		}
		cfg.Parking.Rules = rules
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.API,
		validation.Field(&c.API.BaseURL, validation.Required, is.URL),
		validation.Field(&c.API.OrgID, validation.Required, validation.Min(1)),
		validation.Field(&c.API.Credential, validation.Required),
		validation.Field(&c.API.Password, validation.Required),
		validation.Field(&c.API.Timeout, validation.Required),
	); err != nil {
		return fmt.Errorf("config: api: %w", err)
	}

	if err := validation.ValidateStruct(&c.Device,
		validation.Field(&c.Device.IMEI, validation.Required, is.Digit),
		validation.Field(&c.Device.UUID, validation.Required),
	); err != nil {
		return fmt.Errorf("config: device: %w", err)
	}

	if err := validation.ValidateStruct(&c.Card,
		validation.Field(&c.Card.Number, validation.Required, is.Digit, validation.Length(12, 19)),
		validation.Field(&c.Card.CVV, validation.Required, is.Digit, validation.Length(3, 4)),
		validation.Field(&c.Card.Expiration, validation.Required),
		validation.Field(&c.Card.Brand, validation.Required),
		validation.Field(&c.Card.Holder, validation.Required),
	); err != nil {
		return fmt.Errorf("config: card: %w", err)
	}

	if err := validation.ValidateStruct(&c.Balance,
		validation.Field(&c.Balance.Threshold, validation.Min(0.0)),
		validation.Field(&c.Balance.TopUp, validation.Required, validation.Min(0.01)),
	); err != nil {
		return fmt.Errorf("config: balance: %w", err)
	}

	if err := validation.ValidateStruct(&c.Parking,
		validation.Field(&c.Parking.Latitude, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&c.Parking.Longitude, validation.Min(-180.0), validation.Max(180.0)),
	); err != nil {
		return fmt.Errorf("config: parking: %w", err)
	}

	if c.Session.RedisAddr == "" && strings.TrimSpace(c.Session.File) == "" {
		return fmt.Errorf("config: session: file or redis address required")
	}
	return nil
}

// ParseRules reads "type:rule" pairs separated by commas.
func ParseRules(raw string) (map[int]int, error) {
	rules := make(map[int]int)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		typePart, rulePart, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("config: rule %q: expected type:rule", pair)
		}
		typeID, err := strconv.Atoi(strings.TrimSpace(typePart))
		if err != nil {
			return nil, fmt.Errorf("config: rule %q: %w", pair, err)
		}
		ruleID, err := strconv.Atoi(strings.TrimSpace(rulePart))
		if err != nil {
			return nil, fmt.Errorf("config: rule %q: %w", pair, err)
		}
		rules[typeID] = ruleID
	}
	return rules, nil
}

// IdentityHeaders returns the static headers sent with every authenticated call.
func (c *Config) IdentityHeaders() map[string]string {
	return map[string]string{
		"Versao-So":        c.Headers.OSVersion,
		"Versao-App":       c.Headers.AppVersion,
		"Modelo-Celular":   c.Headers.PhoneModel,
		"Origem-Movimento": c.Headers.Origin,
		"Prefeitura-Sigla": c.Headers.CityCode,
		"Content-Type":     c.Headers.ContentType,
		"User-Agent":       c.Headers.UserAgent,
		"Dispositivo-Uuid": c.Device.UUID,
		"Dispositivo-Imei": c.Device.IMEI,
	}
}

// UsesRedisSession reports whether the token lives in redis.
func (c *Config) UsesRedisSession() bool {
	return strings.TrimSpace(c.Session.RedisAddr) != ""
}

// HistoryEnabled reports whether runs are recorded.
func (c *Config) HistoryEnabled() bool {
	return strings.TrimSpace(c.History.DSN) != ""
}

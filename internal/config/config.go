package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	AI        AIConfig
	WhatsApp  WhatsAppConfig
}

type ServerConfig struct {
	Address string
}

type DatabaseConfig struct {
	PostgresURL string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type SchedulerConfig struct {
	Interval  time.Duration
	BatchSize int
}

// AIConfig drives the language-model client. The API key is optional
// at boot; the client reports a configuration error when first used
// without one.
type AIConfig struct {
	Endpoint     string
	APIKey       string
	Model        string
	Temperature  float64
	MaxTokens    int
	AgentContext string
}

// WhatsAppConfig holds the messaging-gateway settings. Email/password
// and the device token are validated lazily by the session manager and
// the dispatcher, never at boot. BearerToken is an optional
// pre-provisioned credential used when the login response carries no
// token of its own.
type WhatsAppConfig struct {
	BaseURL     string
	Email       string
	Password    string
	DeviceToken string
	BearerToken string
}

func LoadAll() (*Config, error) {
	var errs []error

	postgresURL, err := requireEnv("POSTGRES_URL")
	if err != nil {
		errs = append(errs, err)
	}

	schedInterval, err := getEnvInt("SCHED_INTERVAL_SECONDS", 120)
	if err != nil {
		errs = append(errs, err)
	}
	schedBatch, err := getEnvInt("SCHED_BATCH_SIZE", 10)
	if err != nil {
		errs = append(errs, err)
	}

	temperature, err := getEnvFloat("AI_TEMPERATURE", 0.7)
	if err != nil {
		errs = append(errs, err)
	}
	maxTokens, err := getEnvInt("AI_MAX_TOKENS", 1000)
	if err != nil {
		errs = append(errs, err)
	}

	redisCfg, err := loadRedisConfig()
	if err != nil {
		errs = append(errs, err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Database: DatabaseConfig{
			PostgresURL: postgresURL,
		},
		Scheduler: SchedulerConfig{
			Interval:  time.Duration(schedInterval) * time.Second,
			BatchSize: schedBatch,
		},
		AI: AIConfig{
			Endpoint:     getEnv("OPENROUTER_URL", "https://openrouter.ai/api/v1/chat/completions"),
			APIKey:       os.Getenv("OPENROUTER_API_KEY"),
			Model:        getEnv("AI_MODEL", "openai/gpt-4o-mini"),
			Temperature:  temperature,
			MaxTokens:    maxTokens,
			AgentContext: getEnv("AGENT_CONTEXT", "Você é um assistente virtual amigável e prestativo. Responda de forma clara e concisa."),
		},
		WhatsApp: WhatsAppConfig{
			BaseURL:     getEnv("WHATSAPP_BASE_URL", "https://gateway.apibrasil.io/api/v2"),
			Email:       os.Getenv("WHATSAPP_EMAIL"),
			Password:    os.Getenv("WHATSAPP_PASSWORD"),
			DeviceToken: os.Getenv("WHATSAPP_DEVICE_TOKEN"),
			BearerToken: os.Getenv("WHATSAPP_BEARER_TOKEN"),
		},
		Redis: redisCfg,
	}

	errs = append(errs, validate(cfg)...)

	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRedisConfig() (RedisConfig, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}, nil
	}

	db, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return RedisConfig{}, err
	}
	ttl, err := getEnvInt("REDIS_TTL_SECONDS", 86400)
	if err != nil {
		return RedisConfig{}, err
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		TTL:      time.Duration(ttl) * time.Second,
	}, nil
}

func validate(cfg *Config) []error {
	var errs []error
	if cfg.Scheduler.BatchSize <= 0 {
		errs = append(errs, errors.New("SCHED_BATCH_SIZE must be > 0"))
	}
	if cfg.Scheduler.Interval <= 0 {
		errs = append(errs, errors.New("SCHED_INTERVAL_SECONDS must be > 0"))
	}
	if cfg.AI.MaxTokens <= 0 {
		errs = append(errs, errors.New("AI_MAX_TOKENS must be > 0"))
	}
	return errs
}

func requireEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return val, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for env %s: %s", key, v)
	}
	return i, nil
}

func getEnvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float for env %s: %s", key, v)
	}
	return f, nil
}

func joinErrors(errs []error) error {
	return errors.Join(errs...)
}

package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/prisme-studio/prisme/backend/internal/model/quote"
)

// Fixed product policy. These are deliberate constants, not env knobs.
const (
	AppName         = "prisme"
	MaxConsultTurns = 10
	SessionTTL      = 2 * time.Hour
)

// Config aggregates every runtime setting for the service.
type Config struct {
	Server  ServerConfig
	Consult ConsultConfig
	AI      AIConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	consult := loadConsultConfig()

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Consult: consult, AI: ai}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// ConsultConfig carries the consult admission and pricing policy.
type ConsultConfig struct {
	DefaultCapacity   quote.CapacityLevel
	AllowRushInNormal bool
	InviteCodes       []string
	DepositURL        string
	BookingURL        string
	TurnstileSecret   string
}

const (
	defaultDepositURL = "https://buy.stripe.com/test_14k3fA0"
	defaultBookingURL = "https://calendly.com/your-handle/prisme-consult"
)

func loadConsultConfig() ConsultConfig {
	return ConsultConfig{
		DefaultCapacity:   quote.ParseCapacityLevel(strings.TrimSpace(os.Getenv("CAPACITY_LEVEL")), quote.CapacityNormal),
		AllowRushInNormal: strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_RUSH_IN_NORMAL")), "true"),
		InviteCodes:       parseInviteCodes(os.Getenv("PRISME_INVITE_CODES")),
		DepositURL:        getEnvOrDefault("STRIPE_DEPOSIT_URL", defaultDepositURL),
		BookingURL:        getEnvOrDefault("CALENDLY_URL", defaultBookingURL),
		TurnstileSecret:   strings.TrimSpace(os.Getenv("TURNSTILE_SECRET_KEY")),
	}
}

// parseInviteCodes splits a comma-separated list, normalized to lowercase.
// An empty or unset variable falls back to the demo code.
func parseInviteCodes(raw string) []string {
	fallback := []string{"prisme-demo"}
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	var codes []string
	for _, entry := range strings.Split(raw, ",") {
		code := strings.ToLower(strings.TrimSpace(entry))
		if code != "" {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		return fallback
	}
	return codes
}

// AIConfig describes the external model and its daily spend policy.
type AIConfig struct {
	APIKey            string
	AccessKey         string
	SecretKey         string
	Model             string
	BaseURL           string
	Region            string
	Temperature       *float64
	TopP              *float64
	MaxTokens         *int
	DailyBudgetUSD    float64
	EstCostPerCallUSD float64
}

// Enabled reports whether the required model credentials were provided.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel creates a model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: provide ARK_API_KEY + ARK_MODEL or the AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	dailyBudget, err := parseFloatEnv("AI_DAILY_BUDGET_USD", 2)
	if err != nil {
		return AIConfig{}, err
	}

	costPerCall, err := parseFloatEnv("AI_EST_COST_PER_CALL", 0.002)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:            strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:         strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:         strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:             strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:           getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:            getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:       temperature,
		TopP:              topP,
		MaxTokens:         maxTokens,
		DailyBudgetUSD:    dailyBudget,
		EstCostPerCallUSD: costPerCall,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

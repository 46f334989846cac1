package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath          = "CONFIG_PATH"
	EnvDBConnection        = "DB_CONNECTION"
	EnvPort                = "PORT"
	EnvJWTSecret           = "JWT_SECRET"
	EnvJWTExpiry           = "JWT_EXPIRY"
	EnvAuthIssuer          = "AUTH_ISSUER"
	EnvAuthAudience        = "AUTH_AUDIENCE"
	EnvAuthJWKSURL         = "AUTH_JWKS_URL"
	EnvAuthHSSecret        = "AUTH_HS_SECRET"
	EnvStripeSecretKey     = "STRIPE_SECRET_KEY"
	EnvStripeWebhookSecret = "STRIPE_WEBHOOK_SECRET"
	EnvGeminiAPIKey        = "GEMINI_API_KEY"
	EnvAdminUsername       = "ADMIN_USERNAME"
	EnvAdminPassword       = "ADMIN_PASSWORD"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// readConfigFile reads and parses the YAML config file into target. A missing
// file is not an error; loaders fall back to env values and defaults.
func readConfigFile(configPath string, target any) error {
	data, errRead := os.ReadFile(configPath)
	if errRead != nil {
		if os.IsNotExist(errRead) {
			return nil
		}
		return fmt.Errorf("read config file: %w", errRead)
	}
	if errUnmarshal := yaml.Unmarshal(data, target); errUnmarshal != nil {
		return fmt.Errorf("parse config file: %w", errUnmarshal)
	}
	return nil
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return "", errRead
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	Debug       bool     `yaml:"debug"`
	CORSOrigins []string `yaml:"cors-origins"`
}

// LoadServerConfig loads HTTP server settings from the YAML config file.
func LoadServerConfig(configPath string) (ServerConfig, error) {
	// fileConfig maps the YAML fields needed for server settings.
	type fileConfig struct {
		Host        string   `yaml:"host"`
		Port        int      `yaml:"port"`
		Debug       bool     `yaml:"debug"`
		CORSOrigins []string `yaml:"cors-origins"`
	}

	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return ServerConfig{}, errRead
	}

	result := ServerConfig{
		Host:        strings.TrimSpace(cfg.Host),
		Port:        cfg.Port,
		Debug:       cfg.Debug,
		CORSOrigins: cfg.CORSOrigins,
	}
	if raw := strings.TrimSpace(os.Getenv(EnvPort)); raw != "" {
		if port, errParse := strconv.Atoi(raw); errParse == nil && port > 0 {
			result.Port = port
		}
	}
	if result.Port <= 0 {
		result.Port = 8080
	}
	return result, nil
}

// JWTConfig holds JWT secret and expiry settings for ops tokens.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// LoadJWTConfig loads JWT settings from the YAML config file.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	// fileConfig maps the YAML fields needed for JWT settings.
	type fileConfig struct {
		JWT JWTConfig `yaml:"jwt"`
	}

	result := JWTConfig{Expiry: defaultJWTExpiry}

	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead == nil {
		if cfg.JWT.Secret != "" || cfg.JWT.Expiry != 0 {
			result = cfg.JWT
		}
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// IdentityConfig holds client bearer-token verification settings.
type IdentityConfig struct {
	Issuer   string        `yaml:"issuer"`
	Audience string        `yaml:"audience"`
	JWKSURL  string        `yaml:"jwks-url"`
	HSSecret string        `yaml:"hs-secret"`
	Leeway   time.Duration `yaml:"leeway"`
}

// LoadIdentityConfig loads identity-provider settings from the YAML config file.
func LoadIdentityConfig(configPath string) (IdentityConfig, error) {
	// fileConfig maps the YAML fields needed for identity settings.
	type fileConfig struct {
		Identity IdentityConfig `yaml:"identity"`
	}

	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return IdentityConfig{}, errRead
	}

	result := cfg.Identity
	if issuer := strings.TrimSpace(os.Getenv(EnvAuthIssuer)); issuer != "" {
		result.Issuer = issuer
	}
	if audience := strings.TrimSpace(os.Getenv(EnvAuthAudience)); audience != "" {
		result.Audience = audience
	}
	if jwksURL := strings.TrimSpace(os.Getenv(EnvAuthJWKSURL)); jwksURL != "" {
		result.JWKSURL = jwksURL
	}
	if secret := strings.TrimSpace(os.Getenv(EnvAuthHSSecret)); secret != "" {
		result.HSSecret = secret
	}
	if result.Leeway <= 0 {
		result.Leeway = time.Minute
	}
	return result, nil
}

// StripeConfig holds payment provider credentials.
type StripeConfig struct {
	SecretKey     string `yaml:"secret-key"`
	WebhookSecret string `yaml:"webhook-secret"`
}

// LoadStripeConfig loads Stripe settings from the YAML config file.
func LoadStripeConfig(configPath string) (StripeConfig, error) {
	// fileConfig maps the YAML fields needed for Stripe settings.
	type fileConfig struct {
		Stripe StripeConfig `yaml:"stripe"`
	}

	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return StripeConfig{}, errRead
	}

	result := cfg.Stripe
	if key := strings.TrimSpace(os.Getenv(EnvStripeSecretKey)); key != "" {
		result.SecretKey = key
	}
	if secret := strings.TrimSpace(os.Getenv(EnvStripeWebhookSecret)); secret != "" {
		result.WebhookSecret = secret
	}
	return result, nil
}

// GenerationConfig holds image-generation provider settings.
type GenerationConfig struct {
	APIKey  string        `yaml:"api-key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base-url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Generation provider defaults.
const (
	defaultGenerationModel   = "gemini-2.5-flash-image-preview"
	defaultGenerationBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGenerationTimeout = 60 * time.Second
)

// LoadGenerationConfig loads generation provider settings from the YAML config file.
func LoadGenerationConfig(configPath string) (GenerationConfig, error) {
	// fileConfig maps the YAML fields needed for generation settings.
	type fileConfig struct {
		Generation GenerationConfig `yaml:"generation"`
	}

	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return GenerationConfig{}, errRead
	}

	result := cfg.Generation
	if key := strings.TrimSpace(os.Getenv(EnvGeminiAPIKey)); key != "" {
		result.APIKey = key
	}
	if strings.TrimSpace(result.Model) == "" {
		result.Model = defaultGenerationModel
	}
	if strings.TrimSpace(result.BaseURL) == "" {
		result.BaseURL = defaultGenerationBaseURL
	}
	if result.Timeout <= 0 {
		result.Timeout = defaultGenerationTimeout
	}
	return result, nil
}

// EntitlementConfig holds entitlement policy settings.
type EntitlementConfig struct {
	FreeQuota int `yaml:"free-quota"`
}

// defaultFreeQuota is the number of free generations granted to new users.
const defaultFreeQuota = 5

// LoadEntitlementConfig loads entitlement policy from the YAML config file.
func LoadEntitlementConfig(configPath string) (EntitlementConfig, error) {
	// fileConfig maps the YAML fields needed for entitlement settings.
	type fileConfig struct {
		Entitlement EntitlementConfig `yaml:"entitlement"`
	}

	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return EntitlementConfig{}, errRead
	}

	result := cfg.Entitlement
	if result.FreeQuota <= 0 {
		result.FreeQuota = defaultFreeQuota
	}
	return result, nil
}

// LoadCatalogPath returns the optional catalog override file path.
func LoadCatalogPath(configPath string) (string, error) {
	// fileConfig maps the YAML fields needed for catalog resolution.
	type fileConfig struct {
		CatalogFile string `yaml:"catalog-file"`
	}

	var cfg fileConfig
	if errRead := readConfigFile(configPath, &cfg); errRead != nil {
		return "", errRead
	}
	return strings.TrimSpace(cfg.CatalogFile), nil
}

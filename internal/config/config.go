package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RoutePolicy maps a session stage to the routes it may reach. Consumed by
// the session guard's enforcer at startup.
type RoutePolicy struct {
	Stage   string `yaml:"stage"`
	Path    string `yaml:"path"`
	Methods string `yaml:"methods"`
}

type AppConfig struct {
	Port    int    `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ProviderConfig selects the identity provider backing. Mode "hosted" talks
// to a GoTrue-compatible endpoint; mode "local" runs the embedded provider.
type ProviderConfig struct {
	Mode       string `yaml:"mode"`
	URL        string `yaml:"url"`
	AnonKey    string `yaml:"anon_key"`
	RedirectTo string `yaml:"redirect_to"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	Issuer     string `yaml:"issuer"`
	AccessTTL  string `yaml:"access_ttl"`
	RefreshTTL string `yaml:"refresh_ttl"`
}

type ChallengeConfig struct {
	TTL             string `yaml:"ttl"`
	Length          int    `yaml:"length"`
	MaxAttempts     int    `yaml:"max_attempts"`
	CooldownSeconds int    `yaml:"cooldown_seconds"`
	RegionPrefix    string `yaml:"region_prefix"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type GuardConfig struct {
	VerifyPath string        `yaml:"verify_path"`
	HomePath   string        `yaml:"home_path"`
	Routes     []RoutePolicy `yaml:"routes"`
}

type ConfigFile struct {
	App       AppConfig       `yaml:"app"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Provider  ProviderConfig  `yaml:"provider"`
	JWT       JWTConfig       `yaml:"jwt"`
	Challenge ChallengeConfig `yaml:"challenge"`
	Twilio    TwilioConfig    `yaml:"twilio"`
	Guard     GuardConfig     `yaml:"guard"`
}

type Config struct {
	Port            string
	GinMode         string
	DSN             string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ProviderMode    string
	ProviderURL     string
	ProviderAnonKey string
	RedirectTo      string
	JWTSecret       string
	JWTIssuer       string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	ChallengeTTL    time.Duration
	ChallengeLength int
	MaxAttempts     int
	CooldownSeconds int
	RegionPrefix    string
	TwilioSID       string
	TwilioToken     string
	TwilioFrom      string
	VerifyPath      string
	HomePath        string
	GuardRoutes     []RoutePolicy
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func Load() (*Config, error) {
	path := env("VERIFYSVC_CONFIG", "config/config.yml")
	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	accTTL, err := time.ParseDuration(configFile.JWT.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT access TTL: %w", err)
	}

	refTTL, err := time.ParseDuration(configFile.JWT.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT refresh TTL: %w", err)
	}

	chTTL, err := time.ParseDuration(configFile.Challenge.TTL)
	if err != nil {
		return nil, fmt.Errorf("invalid challenge TTL: %w", err)
	}

	cfg := &Config{
		Port:            fmt.Sprintf("%d", configFile.App.Port),
		GinMode:         configFile.App.GinMode,
		DSN:             configFile.Database.DSN,
		RedisAddr:       configFile.Redis.Addr,
		RedisPassword:   configFile.Redis.Password,
		RedisDB:         configFile.Redis.DB,
		ProviderMode:    configFile.Provider.Mode,
		ProviderURL:     configFile.Provider.URL,
		ProviderAnonKey: env("PROVIDER_ANON_KEY", configFile.Provider.AnonKey),
		RedirectTo:      configFile.Provider.RedirectTo,
		JWTSecret:       env("JWT_SECRET", configFile.JWT.Secret),
		JWTIssuer:       configFile.JWT.Issuer,
		AccessTTL:       accTTL,
		RefreshTTL:      refTTL,
		ChallengeTTL:    chTTL,
		ChallengeLength: configFile.Challenge.Length,
		MaxAttempts:     configFile.Challenge.MaxAttempts,
		CooldownSeconds: configFile.Challenge.CooldownSeconds,
		RegionPrefix:    configFile.Challenge.RegionPrefix,
		TwilioSID:       env("TWILIO_ACCOUNT_SID", configFile.Twilio.AccountSID),
		TwilioToken:     env("TWILIO_AUTH_TOKEN", configFile.Twilio.AuthToken),
		TwilioFrom:      configFile.Twilio.FromNumber,
		VerifyPath:      configFile.Guard.VerifyPath,
		HomePath:        configFile.Guard.HomePath,
		GuardRoutes:     configFile.Guard.Routes,
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ProviderMode == "" {
		cfg.ProviderMode = "local"
	}
	if cfg.ChallengeLength == 0 {
		cfg.ChallengeLength = 6
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.CooldownSeconds == 0 {
		cfg.CooldownSeconds = 30
	}
	if cfg.RegionPrefix == "" {
		cfg.RegionPrefix = "+1"
	}
	if cfg.VerifyPath == "" {
		cfg.VerifyPath = "/auth"
	}
	if cfg.HomePath == "" {
		cfg.HomePath = "/"
	}
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}

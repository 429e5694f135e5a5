package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	API    APIConfig    `mapstructure:"api"`
	Site   SiteConfig   `mapstructure:"site"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Upload UploadConfig `mapstructure:"upload"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// APIConfig points at the external attack service.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds one attack call. Zero means no client-side timeout.
	Timeout time.Duration `mapstructure:"timeout"`
}

// SiteConfig holds the document metadata of the rendered page.
type SiteConfig struct {
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	FormAction  string `mapstructure:"form_action"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize int64 `mapstructure:"max_size"`
}

const envPrefix = "ATTACKLENS"

// Load reads configPath (if it exists), then applies .env and environment
// overrides. A missing config file is not an error.
func Load(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v, err := newViper()
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(v)
}

// New loads configPath. If the file cannot be used the error is reported and
// the config is rebuilt from defaults and the environment alone.
func New(configPath string) *Config {
	cfg, err := Load(configPath)
	if err == nil {
		return cfg
	}
	fmt.Printf("Failed to load config %s: %v, using defaults and environment\n", configPath, err)

	v, err := newViper()
	if err == nil {
		if cfg, err = decode(v); err == nil {
			return cfg
		}
	}
	fmt.Printf("Failed to apply environment overrides: %v\n", err)
	return getDefaultConfig()
}

// newViper returns a viper instance with defaults and env bindings but no file.
func newViper() (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api.base_url", envPrefix+"_API_BASE_URL", "ATTACK_API_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = defaultBaseURL
	}

	return &cfg, nil
}

const defaultBaseURL = "http://localhost:8000"

func setDefaults(v *viper.Viper) {
	d := getDefaultConfig()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)

	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)

	v.SetDefault("site.title", d.Site.Title)
	v.SetDefault("site.description", d.Site.Description)
	v.SetDefault("site.form_action", d.Site.FormAction)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("upload.max_size", d.Upload.MaxSize)
}

func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0,
			CORSOrigins:  []string{"*"},
		},
		API: APIConfig{
			BaseURL: defaultBaseURL,
			Timeout: 0,
		},
		Site: SiteConfig{
			Title:       "FGSM Demo",
			Description: "Adversarial attack demo (FGSM) with FastAPI backend",
			FormAction:  "/",
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      24 * time.Hour,
		},
		Upload: UploadConfig{
			MaxSize: 10 * 1024 * 1024,
		},
	}
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. BLOGFLOW_DB_HOST.
const EnvPrefix = "BLOGFLOW"

// Config holds the configuration for the application.
type Config struct {
	Environment   string `mapstructure:"environment"`
	DevModeBypass bool   `mapstructure:"dev_mode_bypass"`
	LogLevel      string `mapstructure:"log_level"`
	Server        struct {
		Addr    string `mapstructure:"addr"`
		TLSAddr string `mapstructure:"tls_addr"`
	} `mapstructure:"server"`
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	LLM LLMConfig `mapstructure:"llm"`
	// Services lists the base URLs of the sibling services by name.
	Services map[string]string `mapstructure:"services"`
	Auth     struct {
		OktaDomain      string   `mapstructure:"okta_domain"`
		ClientID        string   `mapstructure:"client_id"`
		ClientSecret    string   `mapstructure:"client_secret"`
		RedirectURL     string   `mapstructure:"redirect_url"`
		SwaggerClientID string   `mapstructure:"swagger_client_id"`
		AllowedDomains  []string `mapstructure:"allowed_domains"`
	} `mapstructure:"auth"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `mapstructure:"-"`
}

// LLMConfig holds model invocation defaults and the statically configured providers.
type LLMConfig struct {
	DefaultProvider string                    `mapstructure:"default_provider"`
	DefaultModel    string                    `mapstructure:"default_model"`
	Temperature     float64                   `mapstructure:"temperature"`
	MaxTokens       int                       `mapstructure:"max_tokens"`
	Timeout         time.Duration             `mapstructure:"timeout"`
	Providers       map[string]ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig describes one model backend.
type ProviderConfig struct {
	Type   string `mapstructure:"type"`
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// LoadConfig loads the configuration from a file and the environment. When
// envFile is set it is loaded into the process environment first. A missing
// config file is not an error; defaults and environment variables apply.
func LoadConfig(envFile string, searchPaths ...string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(searchPaths) == 0 {
		searchPaths = []string{".", "./config"}
	}
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	config.ConfigFile = v.ConfigFileUsed()

	// normalize OKTA issuer url (strip trailing slash if any)
	config.Auth.OktaDomain = normalizeOktaIssuer(config.Auth.OktaDomain)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "DEV")
	v.SetDefault("dev_mode_bypass", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.tls_addr", ":8443")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "blogflow")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "blogflow")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("llm.default_provider", "ollama")
	v.SetDefault("llm.default_model", "llama3")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.providers.ollama.type", "ollama")
	v.SetDefault("llm.providers.ollama.url", "http://localhost:11434")
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.LLM.Timeout <= 0 {
		return errors.New("llm.timeout must be positive")
	}
	if c.LLM.MaxTokens <= 0 {
		return errors.New("llm.max_tokens must be positive")
	}
	for name, p := range c.LLM.Providers {
		if p.URL == "" {
			return fmt.Errorf("llm provider %q has no url", name)
		}
		switch p.Type {
		case "ollama", "openai":
		default:
			return fmt.Errorf("llm provider %q has unsupported type %q", name, p.Type)
		}
	}
	return nil
}

// DatabaseURL renders the connection settings as a postgres URL.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DB.User, c.DB.Password),
		Host:   c.DB.Host + ":" + strconv.Itoa(c.DB.Port),
		Path:   "/" + c.DB.Name,
	}
	q := url.Values{}
	q.Set("sslmode", c.DB.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// IsDev reports whether the service runs in the development environment.
func (c *Config) IsDev() bool {
	return strings.EqualFold(c.Environment, "DEV")
}

// normalizeOktaIssuer ensures the provided Okta issuer string is in a
// predictable form. It removes any trailing slash and leaves the scheme and
// path intact.
func normalizeOktaIssuer(input string) string {
	return strings.TrimRight(strings.TrimSpace(input), "/")
}

package publisher

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// Config holds everything the studio needs to reach its providers and stores.
type Config struct {
	LLM        LLMConfig    `mapstructure:"llm"`
	TTS        TTSConfig    `mapstructure:"tts"`
	Export     ExportConfig `mapstructure:"export"`
	ServerAddr string       `mapstructure:"server_addr"`
}

// LLMConfig selects the text generation provider.
type LLMConfig struct {
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TTSConfig selects the speech provider.
type TTSConfig struct {
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	Voice    string        `mapstructure:"voice"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ExportConfig selects where exported artifacts are stored.
type ExportConfig struct {
	Backend string   `mapstructure:"backend"`
	Dir     string   `mapstructure:"dir"`
	S3      S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// Credentials are read from the conventional provider variables when the
// config file leaves the keys empty.
type Credentials struct {
	GeminiAPIKey       string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey       string `env:"OPENAI_API_KEY"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion          string `env:"AWS_REGION"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", 2*time.Minute)

	v.SetDefault("tts.provider", "gemini")
	v.SetDefault("tts.model", "")
	v.SetDefault("tts.voice", "")
	v.SetDefault("tts.api_key", "")
	v.SetDefault("tts.base_url", "")
	v.SetDefault("tts.timeout", 2*time.Minute)

	v.SetDefault("export.backend", "local")
	v.SetDefault("export.dir", "exports")
	v.SetDefault("export.s3.bucket", "")
	v.SetDefault("export.s3.prefix", "")
	v.SetDefault("export.s3.region", "")
	v.SetDefault("export.s3.endpoint", "")
	v.SetDefault("export.s3.access_key_id", "")
	v.SetDefault("export.s3.secret_access_key", "")

	v.SetDefault("server_addr", ":8080")
}

// LoadConfig reads a YAML/JSON config. With an empty path it looks for
// storystudio.{yaml,yml,json} in searchDirs and falls back to defaults when
// none exists. STORYSTUDIO_* variables override file values.
func LoadConfig(path string, searchDirs ...string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("storystudio")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		for _, dir := range searchDirs {
			v.AddConfigPath(dir)
		}
		v.SetConfigName("storystudio")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	creds, err := env.ParseAs[Credentials]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.applyCredentials(creds)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func keyFor(provider string, creds Credentials) string {
	switch provider {
	case "gemini":
		return creds.GeminiAPIKey
	case "openai":
		return creds.OpenAIAPIKey
	default:
		return ""
	}
}

func (c *Config) applyCredentials(creds Credentials) {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = keyFor(c.LLM.Provider, creds)
	}
	if c.TTS.APIKey == "" {
		c.TTS.APIKey = keyFor(c.TTS.Provider, creds)
	}
	s3cfg := &c.Export.S3
	if s3cfg.AccessKeyID == "" {
		s3cfg.AccessKeyID = creds.AWSAccessKeyID
	}
	if s3cfg.SecretAccessKey == "" {
		s3cfg.SecretAccessKey = creds.AWSSecretAccessKey
	}
	if s3cfg.Region == "" {
		s3cfg.Region = creds.AWSRegion
	}
}

// Validate checks provider names and the export backend.
func (c Config) Validate() error {
	switch c.LLM.Provider {
	case "gemini", "openai", "mock":
	case "deepseek":
		// DeepSeek 提供 OpenAI 兼容接口，需填写 base_url。
		if c.LLM.BaseURL == "" {
			return errors.New("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
	default:
		return fmt.Errorf("llm provider %q not supported", c.LLM.Provider)
	}
	switch c.TTS.Provider {
	case "gemini", "openai", "mock":
	default:
		return fmt.Errorf("tts provider %q not supported", c.TTS.Provider)
	}
	switch c.Export.Backend {
	case "local":
		if c.Export.Dir == "" {
			return errors.New("export.dir is required for the local backend")
		}
	case "s3":
		if c.Export.S3.Bucket == "" {
			return errors.New("export.s3.bucket is required for the s3 backend")
		}
		if c.Export.S3.Region == "" {
			return errors.New("export.s3.region is required for the s3 backend")
		}
	default:
		return fmt.Errorf("export backend %q not supported", c.Export.Backend)
	}
	return nil
}

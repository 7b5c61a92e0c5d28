// Package config loads and validates gateway configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend names accepted for classifier.backend.
const (
	BackendONNX   = "onnx"
	BackendStatic = "static"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// UploadConfig bounds what the upload validator accepts.
type UploadConfig struct {
	MaxBytes          int64    `mapstructure:"max_bytes"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

// ClassifierConfig selects and tunes the classifier backend.
type ClassifierConfig struct {
	Backend           string  `mapstructure:"backend"`
	ModelPath         string  `mapstructure:"model_path"`
	MetadataPath      string  `mapstructure:"metadata_path"`
	AnomalyThreshold  float64 `mapstructure:"anomaly_threshold"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	StaticLabel       string  `mapstructure:"static_label"`
	StaticProbability float64 `mapstructure:"static_probability"`
}

// LoggingConfig controls the dual-sink zap logger.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("IMAGEGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("upload.max_bytes", 16*1024*1024)
	v.SetDefault("upload.allowed_extensions", []string{"png", "jpg", "jpeg"})
	v.SetDefault("classifier.backend", BackendStatic)
	v.SetDefault("classifier.anomaly_threshold", 0.5)
	v.SetDefault("classifier.timeout_seconds", 30)
	v.SetDefault("classifier.static_label", "Cat")
	v.SetDefault("classifier.static_probability", 0.99)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.file", "imagegate.log")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be > 0")
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		return fmt.Errorf("upload.allowed_extensions must not be empty")
	}
	switch c.Classifier.Backend {
	case BackendONNX:
		if c.Classifier.ModelPath == "" || c.Classifier.MetadataPath == "" {
			return fmt.Errorf("classifier.model_path and classifier.metadata_path must be set when backend is onnx")
		}
	case BackendStatic:
	default:
		return fmt.Errorf("classifier.backend must be one of onnx, static")
	}
	if c.Classifier.AnomalyThreshold < 0 || c.Classifier.AnomalyThreshold > 1 {
		return fmt.Errorf("classifier.anomaly_threshold must be in [0,1]")
	}
	if c.Classifier.TimeoutSeconds <= 0 {
		return fmt.Errorf("classifier.timeout_seconds must be > 0")
	}
	if c.Logging.File == "" {
		return fmt.Errorf("logging.file must be set")
	}
	return nil
}

// ClassifyBudget converts the classifier timeout config into a duration.
func (c Config) ClassifyBudget() time.Duration {
	return time.Duration(c.Classifier.TimeoutSeconds) * time.Second
}

// RequestTimeout converts the server request timeout config into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

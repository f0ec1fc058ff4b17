// Package config provides configuration management for the pdftrans tool.
// Configuration lives in a YAML (.yaml/.yml) or JSON file; missing values fall
// back to defaults and, for credentials and the font path, to environment variables.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/euel88/law-chatbot/internal/logger"
	"github.com/euel88/law-chatbot/internal/types"
)

const (
	// DefaultConfigFileName is the default configuration file name
	DefaultConfigFileName = "config.yaml"
	// EnvOpenAIAPIKey is the environment variable name for OpenAI API key
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	// EnvOpenAIBaseURL is the environment variable name for OpenAI base URL
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	// EnvFontPath overrides the TrueType font used for translated text
	EnvFontPath = "PDFTRANS_FONT_PATH"
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is the default chat model used for translation
	DefaultModel = "gpt-4"
	DefaultSourceLang = "en"
	DefaultTargetLang = "ko"
	// DefaultConcurrency is the number of translation calls in flight per document
	DefaultConcurrency = 3
	// DefaultTimeoutSeconds bounds every translation and OCR call
	DefaultTimeoutSeconds = 60
	DefaultMinImageSize   = 50
	DefaultRenderMode     = "overlay"
	DefaultRenderEngine   = "gofpdf"
	DefaultCacheBackend   = "memory"
	DefaultListenAddr     = ":8080"
	DefaultLogLevel       = "info"
)

// DefaultOCRLanguages is the tesseract language set ("kor+eng").
var DefaultOCRLanguages = []string{"kor", "eng"}

// Config is the application configuration.
type Config struct {
	OpenAIAPIKey   string   `json:"openai_api_key" yaml:"openai_api_key"`
	OpenAIBaseURL  string   `json:"openai_base_url" yaml:"openai_base_url"`
	OpenAIModel    string   `json:"openai_model" yaml:"openai_model"`
	SourceLang     string   `json:"source_lang" yaml:"source_lang"`
	TargetLang     string   `json:"target_lang" yaml:"target_lang"`
	Concurrency    int      `json:"concurrency" yaml:"concurrency"`
	TimeoutSeconds int      `json:"timeout_seconds" yaml:"timeout_seconds"`
	OCRLanguages   []string `json:"ocr_languages" yaml:"ocr_languages"`
	FontPath       string   `json:"font_path" yaml:"font_path"`
	CachePath      string   `json:"cache_path" yaml:"cache_path"`
	CacheBackend   string   `json:"cache_backend" yaml:"cache_backend"` // memory | sqlite
	RenderMode     string   `json:"render_mode" yaml:"render_mode"`     // overlay | replace
	RenderEngine   string   `json:"render_engine" yaml:"render_engine"` // gofpdf | gopdf2
	MinImageSize   int      `json:"min_image_size" yaml:"min_image_size"`
	ResultsDir     string   `json:"results_dir" yaml:"results_dir"`
	ListenAddr     string   `json:"listen_addr" yaml:"listen_addr"`
	LogFile        string   `json:"log_file" yaml:"log_file"`
	LogLevel       string   `json:"log_level" yaml:"log_level"`
}

// Timeout returns the per-call timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ConfigManager manages application configuration
type ConfigManager struct {
	configPath string
	config     *Config
}

// NewConfigManager creates a new ConfigManager with the specified config path.
// If configPath is empty, it uses ~/.config/pdftrans/config.yaml.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			logger.Error("failed to get user home directory", err)
			return nil, types.NewAppError(types.ErrConfig, "failed to get user home directory", err)
		}
		configPath = filepath.Join(homeDir, ".config", "pdftrans", DefaultConfigFileName)
	}

	logger.Debug("ConfigManager initialized", logger.String("configPath", configPath))
	return &ConfigManager{
		configPath: configPath,
		config:     DefaultConfig(),
	}, nil
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	c := &Config{}
	applyDefaults(c)
	return c
}

func applyDefaults(c *Config) {
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = DefaultBaseURL
	}
	if c.OpenAIModel == "" {
		c.OpenAIModel = DefaultModel
	}
	if c.SourceLang == "" {
		c.SourceLang = DefaultSourceLang
	}
	if c.TargetLang == "" {
		c.TargetLang = DefaultTargetLang
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if len(c.OCRLanguages) == 0 {
		c.OCRLanguages = append([]string(nil), DefaultOCRLanguages...)
	}
	if c.CacheBackend == "" {
		c.CacheBackend = DefaultCacheBackend
	}
	if c.RenderMode == "" {
		c.RenderMode = DefaultRenderMode
	}
	if c.RenderEngine == "" {
		c.RenderEngine = DefaultRenderEngine
	}
	if c.MinImageSize <= 0 {
		c.MinImageSize = DefaultMinImageSize
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load loads configuration from the config file.
// If the file doesn't exist or cannot be parsed, defaults are used.
func (m *ConfigManager) Load() error {
	logger.Debug("loading configuration", logger.String("path", m.configPath))

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("config file not found, using defaults", logger.String("path", m.configPath))
			m.config = DefaultConfig()
			return nil
		}
		logger.Error("failed to read config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to read config file", err)
	}

	cfg := &Config{}
	if isYAML(m.configPath) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		logger.Warn("invalid config file format, using defaults", logger.String("path", m.configPath), logger.Err(err))
		m.config = DefaultConfig()
		return nil
	}

	applyDefaults(cfg)
	m.config = cfg
	logger.Info("configuration loaded",
		logger.String("path", m.configPath),
		logger.Int("apiKeyLength", len(cfg.OpenAIAPIKey)),
		logger.String("model", cfg.OpenAIModel),
		logger.String("languages", cfg.SourceLang+"->"+cfg.TargetLang))
	return nil
}

// Save saves the current configuration to the config file.
func (m *ConfigManager) Save() error {
	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create config directory", err, logger.String("dir", dir))
		return types.NewAppError(types.ErrConfig, "failed to create config directory", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(m.configPath) {
		data, err = yaml.Marshal(m.GetConfig())
	} else {
		data, err = json.MarshalIndent(m.GetConfig(), "", "  ")
	}
	if err != nil {
		logger.Error("failed to marshal config", err)
		return types.NewAppError(types.ErrConfig, "failed to marshal config", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		logger.Error("failed to write config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to write config file", err)
	}

	logger.Info("configuration saved", logger.String("path", m.configPath))
	return nil
}

// GetConfig returns the current configuration.
func (m *ConfigManager) GetConfig() *Config {
	if m.config == nil {
		m.config = DefaultConfig()
	}
	return m.config
}

// SetConfig sets the entire configuration; empty fields take default values.
func (m *ConfigManager) SetConfig(config *Config) {
	if config != nil {
		applyDefaults(config)
	}
	m.config = config
}

// GetConfigPath returns the path to the config file.
func (m *ConfigManager) GetConfigPath() string {
	return m.configPath
}

// GetAPIKey returns the OpenAI API key.
// It first checks the config file value, then falls back to the environment variable.
func (m *ConfigManager) GetAPIKey() string {
	if key := m.GetConfig().OpenAIAPIKey; key != "" {
		return key
	}
	return os.Getenv(EnvOpenAIAPIKey)
}

// SetAPIKey sets the OpenAI API key and saves the configuration.
func (m *ConfigManager) SetAPIKey(key string) error {
	m.GetConfig().OpenAIAPIKey = key
	return m.Save()
}

// GetBaseURL returns the OpenAI API base URL.
// An explicitly configured URL wins, then OPENAI_BASE_URL, then the default.
func (m *ConfigManager) GetBaseURL() string {
	if url := m.GetConfig().OpenAIBaseURL; url != "" && url != DefaultBaseURL {
		return url
	}
	if env := os.Getenv(EnvOpenAIBaseURL); env != "" {
		return env
	}
	return DefaultBaseURL
}

// GetModel returns the chat model to use.
func (m *ConfigManager) GetModel() string {
	return m.GetConfig().OpenAIModel
}

// GetFontPath returns the configured TrueType font, falling back to PDFTRANS_FONT_PATH.
// An empty result lets the renderer pick a system font.
func (m *ConfigManager) GetFontPath() string {
	if path := m.GetConfig().FontPath; path != "" {
		return path
	}
	return os.Getenv(EnvFontPath)
}

// GetConcurrency returns the translation concurrency.
func (m *ConfigManager) GetConcurrency() int {
	return m.GetConfig().Concurrency
}

// GetCachePath returns the translation cache location; empty disables persistence.
func (m *ConfigManager) GetCachePath() string {
	return m.GetConfig().CachePath
}

// GetResultsDir returns the job results directory, defaulting to ~/.pdftrans/results.
func (m *ConfigManager) GetResultsDir() string {
	if dir := m.GetConfig().ResultsDir; dir != "" {
		return dir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "pdftrans-results")
	}
	return filepath.Join(homeDir, ".pdftrans", "results")
}

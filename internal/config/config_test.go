package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestNewConfigManager(t *testing.T) {
	t.Run("with custom path", func(t *testing.T) {
		customPath := filepath.Join(t.TempDir(), "custom.yaml")
		cm, err := NewConfigManager(customPath)
		if err != nil {
			t.Fatalf("NewConfigManager failed: %v", err)
		}
		if cm.GetConfigPath() != customPath {
			t.Errorf("expected config path %s, got %s", customPath, cm.GetConfigPath())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		cm, err := NewConfigManager("")
		if err != nil {
			t.Fatalf("NewConfigManager failed: %v", err)
		}
		if !strings.HasSuffix(cm.GetConfigPath(), filepath.Join("pdftrans", DefaultConfigFileName)) {
			t.Errorf("unexpected default path %s", cm.GetConfigPath())
		}
	})
}

func TestConfigManager_LoadSave(t *testing.T) {
	tmpDir := t.TempDir()

	for _, name := range []string{"config.yaml", "config.json"} {
		configPath := filepath.Join(tmpDir, name)

		t.Run(name+" load with missing file uses defaults", func(t *testing.T) {
			cm, _ := NewConfigManager(configPath)
			if err := cm.Load(); err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			cfg := cm.GetConfig()
			if cfg.OpenAIModel != DefaultModel || cfg.TargetLang != DefaultTargetLang || cfg.RenderEngine != DefaultRenderEngine {
				t.Errorf("unexpected defaults: %+v", cfg)
			}
			if strings.Join(cfg.OCRLanguages, "+") != "kor+eng" {
				t.Errorf("expected kor+eng OCR languages, got %v", cfg.OCRLanguages)
			}
		})

		t.Run(name+" save then load round-trips", func(t *testing.T) {
			cm, _ := NewConfigManager(configPath)
			cm.SetConfig(&Config{
				OpenAIAPIKey: "test-api-key",
				OpenAIModel:  "gpt-4o-mini",
				TargetLang:   "ja",
				RenderMode:   "replace",
				RenderEngine: "gopdf2",
				Concurrency:  8,
			})
			if err := cm.Save(); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			info, err := os.Stat(configPath)
			if err != nil {
				t.Fatalf("config file was not created: %v", err)
			}
			if info.Mode().Perm() != 0600 {
				t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
			}

			loaded, _ := NewConfigManager(configPath)
			if err := loaded.Load(); err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			cfg := loaded.GetConfig()
			if cfg.OpenAIAPIKey != "test-api-key" || cfg.OpenAIModel != "gpt-4o-mini" {
				t.Errorf("credentials not restored: %+v", cfg)
			}
			if cfg.TargetLang != "ja" || cfg.RenderMode != "replace" || cfg.RenderEngine != "gopdf2" || cfg.Concurrency != 8 {
				t.Errorf("settings not restored: %+v", cfg)
			}
			if cfg.SourceLang != DefaultSourceLang {
				t.Errorf("empty source lang should default, got %q", cfg.SourceLang)
			}
		})
	}

	t.Run("saved yaml uses snake_case keys", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(tmpDir, "config.yaml"))
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var raw map[string]interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			t.Fatalf("yaml: %v", err)
		}
		if raw["target_lang"] != "ja" {
			t.Errorf("expected target_lang key, got %v", raw)
		}
	})

	t.Run("invalid file uses defaults", func(t *testing.T) {
		invalid := filepath.Join(tmpDir, "invalid.json")
		if err := os.WriteFile(invalid, []byte("invalid json"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		cm, _ := NewConfigManager(invalid)
		if err := cm.Load(); err != nil {
			t.Fatalf("Load should not fail on invalid content: %v", err)
		}
		if cm.GetModel() != DefaultModel {
			t.Errorf("expected default model, got %s", cm.GetModel())
		}
	})
}

func TestConfigManager_EnvFallbacks(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")

	t.Run("api key falls back to environment", func(t *testing.T) {
		t.Setenv(EnvOpenAIAPIKey, "env-api-key")
		cm, _ := NewConfigManager(configPath)
		cm.SetConfig(&Config{})
		if got := cm.GetAPIKey(); got != "env-api-key" {
			t.Errorf("expected env-api-key, got %s", got)
		}
	})

	t.Run("config api key takes precedence", func(t *testing.T) {
		t.Setenv(EnvOpenAIAPIKey, "env-api-key")
		cm, _ := NewConfigManager(configPath)
		cm.SetConfig(&Config{OpenAIAPIKey: "config-api-key"})
		if got := cm.GetAPIKey(); got != "config-api-key" {
			t.Errorf("expected config-api-key, got %s", got)
		}
	})

	t.Run("base url from environment when not configured", func(t *testing.T) {
		t.Setenv(EnvOpenAIBaseURL, "http://localhost:11434/v1")
		cm, _ := NewConfigManager(configPath)
		if got := cm.GetBaseURL(); got != "http://localhost:11434/v1" {
			t.Errorf("unexpected base url %s", got)
		}
		cm.SetConfig(&Config{OpenAIBaseURL: "http://proxy/v1"})
		if got := cm.GetBaseURL(); got != "http://proxy/v1" {
			t.Errorf("configured base url should win, got %s", got)
		}
	})

	t.Run("font path from environment", func(t *testing.T) {
		t.Setenv(EnvFontPath, "/fonts/NanumGothic.ttf")
		cm, _ := NewConfigManager(configPath)
		if got := cm.GetFontPath(); got != "/fonts/NanumGothic.ttf" {
			t.Errorf("unexpected font path %s", got)
		}
	})
}

func TestConfigManager_SetAPIKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "dir", "config.json")

	cm, _ := NewConfigManager(configPath)
	if err := cm.SetAPIKey("new-api-key"); err != nil {
		t.Fatalf("SetAPIKey failed: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	var saved Config
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("failed to parse saved config: %v", err)
	}
	if saved.OpenAIAPIKey != "new-api-key" {
		t.Errorf("expected saved key new-api-key, got %s", saved.OpenAIAPIKey)
	}
}

func TestConfig_Timeout(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Timeout().Seconds() != DefaultTimeoutSeconds {
		t.Errorf("unexpected timeout %v", cfg.Timeout())
	}
}

// Package dora wires Dora's components into a runnable application.
package dora

import (
	"fmt"
	"strings"

	"github.com/teslashibe/go-dora/internal/config"
	"github.com/teslashibe/go-dora/pkg/audioio"
	"github.com/teslashibe/go-dora/pkg/camera"
	"github.com/teslashibe/go-dora/pkg/capture"
	"github.com/teslashibe/go-dora/pkg/stt"
	"github.com/teslashibe/go-dora/pkg/tts"
	"github.com/teslashibe/go-dora/pkg/web"
	"github.com/teslashibe/go-dora/pkg/wiki"
)

// LLM backends.
const (
	LLMGemini = "gemini"
	LLMOpenAI = "openai"
)

// Config holds all configuration for Dora. Flag parsing is done in
// cmd/dora; this struct is data only.
type Config struct {
	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// VoiceLoop runs the background listen/answer loop next to the UI.
	VoiceLoop bool `yaml:"voice_loop"`

	Web     web.Config     `yaml:"web"`
	Camera  camera.Config  `yaml:"camera"`
	Audio   audioio.Config `yaml:"audio"`
	Capture capture.Config `yaml:"capture"`
	LLM     LLMConfig      `yaml:"llm"`
	STT     STTConfig      `yaml:"stt"`
	TTS     TTSConfig      `yaml:"tts"`
	Wiki    WikiConfig     `yaml:"wiki"`

	// API keys come from the environment only.
	GroqKey       string `yaml:"-"`
	GoogleKey     string `yaml:"-"`
	ElevenLabsKey string `yaml:"-"`
	OpenAIKey     string `yaml:"-"`
}

// LLMConfig selects the chat and vision model.
type LLMConfig struct {
	// Provider is gemini or openai. An empty Model uses the provider's default.
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	VisionModel string  `yaml:"vision_model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	// Fallback adds the other provider behind the primary when its key is set.
	Fallback bool `yaml:"fallback"`
	MaxSteps int  `yaml:"max_steps"`
}

// STTConfig configures transcription.
type STTConfig struct {
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

// TTSConfig configures speech output.
type TTSConfig struct {
	// Providers is the fallback order, first is primary.
	Providers  []string `yaml:"providers"`
	Voice      string   `yaml:"voice"`
	Model      string   `yaml:"model"`
	Language   string   `yaml:"language"`
	OutputPath string   `yaml:"output_path"`
}

// WikiConfig configures the lookup tool.
type WikiConfig struct {
	BaseURL string `yaml:"base_url"`
}

// DefaultConfig returns Dora's defaults: Gemini, ElevenLabs then gTTS,
// UI on 127.0.0.1:7860 and the voice loop on.
func DefaultConfig() Config {
	return Config{
		LogLevel:  "info",
		VoiceLoop: true,
		Web:       web.DefaultConfig(),
		Camera:    camera.DefaultConfig(),
		Audio:     audioio.DefaultConfig(),
		Capture:   capture.DefaultConfig(),
		LLM: LLMConfig{
			Provider:    LLMGemini,
			MaxTokens:   1024,
			Temperature: 0.7,
			MaxSteps:    5,
		},
		STT: STTConfig{
			Model:    stt.ModelWhisperLargeV3,
			Language: "en",
		},
		TTS: TTSConfig{
			Providers:  []string{"elevenlabs", "gtts"},
			Voice:      tts.DoraVoiceID,
			Model:      tts.ModelMultilingualV2,
			Language:   "en",
			OutputPath: tts.DefaultOutputPath,
		},
		Wiki: WikiConfig{BaseURL: wiki.DefaultBaseURL},
	}
}

// Load layers an optional YAML file and .env over the defaults, then
// reads the environment. An empty path tries config.DefaultFile and
// ignores it when missing.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	optional := path == ""
	if optional {
		path = config.DefaultFile
	}
	if err := config.LoadFile(path, &cfg, optional); err != nil {
		return cfg, err
	}
	if err := config.LoadDotEnv(); err != nil {
		return cfg, err
	}
	cfg.LoadEnvConfig()
	return cfg, nil
}

// LoadEnvConfig reads API keys and a few overrides from the environment.
func (c *Config) LoadEnvConfig() {
	c.GroqKey = config.Env(config.EnvGroqKey)
	c.GoogleKey = config.Env(config.EnvGoogleKey, config.EnvGeminiKey)
	c.ElevenLabsKey = config.Env(config.EnvElevenLabsKey)
	c.OpenAIKey = config.Env(config.EnvOpenAIKey)

	c.LogLevel = config.EnvOr("DORA_LOG_LEVEL", c.LogLevel)
	c.Web.Addr = config.EnvOr("DORA_ADDR", c.Web.Addr)
	c.VoiceLoop = config.EnvBool("DORA_VOICE_LOOP", c.VoiceLoop)
	if v := config.Env("ELEVENLABS_VOICE_ID"); v != "" {
		c.TTS.Voice = v
	}
	if v := config.Env("DORA_TTS_PROVIDERS"); v != "" {
		c.TTS.Providers = strings.Split(v, ",")
	}
}

// Validate checks settings and the credentials the enabled features need.
// Missing keys are reported as *config.CredentialError.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case LLMGemini:
		if c.GoogleKey == "" {
			return &config.CredentialError{Var: config.EnvGoogleKey, Feature: "the Gemini agent"}
		}
	case LLMOpenAI:
		if c.OpenAIKey == "" {
			return &config.CredentialError{Var: config.EnvOpenAIKey, Feature: "the OpenAI agent"}
		}
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}

	if c.VoiceLoop && c.GroqKey == "" {
		return &config.CredentialError{Var: config.EnvGroqKey, Feature: "transcription"}
	}
	if len(c.TTS.Providers) == 0 {
		return fmt.Errorf("tts.providers must list at least one provider")
	}
	if errs := c.Camera.Validate(); len(errs) > 0 {
		return fmt.Errorf("camera: %s", strings.Join(errs, "; "))
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	return nil
}

// ValidateSpeech checks only what speaking needs, for one-shot -say runs.
func (c *Config) ValidateSpeech() error {
	if len(c.TTS.Providers) == 0 {
		return fmt.Errorf("tts.providers must list at least one provider")
	}
	return c.Audio.Validate()
}

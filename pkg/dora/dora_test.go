package dora

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-dora/internal/config"
	"github.com/teslashibe/go-dora/internal/log"
	"github.com/teslashibe/go-dora/pkg/agent"
	"github.com/teslashibe/go-dora/pkg/camera"
	"github.com/teslashibe/go-dora/pkg/inference"
	"github.com/teslashibe/go-dora/pkg/web"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvGroqKey, config.EnvGoogleKey, config.EnvGeminiKey,
		config.EnvElevenLabsKey, config.EnvOpenAIKey,
		"DORA_LOG_LEVEL", "DORA_ADDR", "DORA_VOICE_LOOP",
		"ELEVENLABS_VOICE_ID", "DORA_TTS_PROVIDERS",
	} {
		t.Setenv(k, "")
	}
}

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.GoogleKey = "google"
	cfg.GroqKey = "groq"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, LLMGemini, cfg.LLM.Provider)
	assert.Equal(t, []string{"elevenlabs", "gtts"}, cfg.TTS.Providers)
	assert.Equal(t, web.DefaultAddr, cfg.Web.Addr)
	assert.Equal(t, "final.mp3", cfg.TTS.OutputPath)
	assert.Equal(t, "audio_question.wav", cfg.Capture.OutputPath)
	assert.True(t, cfg.VoiceLoop)
}

func TestLoadEnvConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvGroqKey, "groq")
	t.Setenv(config.EnvGeminiKey, "gemini")
	t.Setenv("DORA_ADDR", "127.0.0.1:9000")
	t.Setenv("DORA_VOICE_LOOP", "false")
	t.Setenv("DORA_TTS_PROVIDERS", "gtts,elevenlabs")

	cfg := DefaultConfig()
	cfg.LoadEnvConfig()

	assert.Equal(t, "groq", cfg.GroqKey)
	assert.Equal(t, "gemini", cfg.GoogleKey, "GEMINI_API_KEY backs GOOGLE_API_KEY")
	assert.Equal(t, "127.0.0.1:9000", cfg.Web.Addr)
	assert.False(t, cfg.VoiceLoop)
	assert.Equal(t, []string{"gtts", "elevenlabs"}, cfg.TTS.Providers)
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "dora.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
voice_loop: false
web:
  addr: 127.0.0.1:7000
tts:
  providers: [gtts]
llm:
  provider: openai
  max_steps: 3
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.VoiceLoop)
	assert.Equal(t, "127.0.0.1:7000", cfg.Web.Addr)
	assert.Equal(t, []string{"gtts"}, cfg.TTS.Providers)
	assert.Equal(t, LLMOpenAI, cfg.LLM.Provider)
	assert.Equal(t, 3, cfg.LLM.MaxSteps)
	// Untouched sections keep their defaults.
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantVar string
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing google key", mutate: func(c *Config) { c.GoogleKey = "" }, wantVar: config.EnvGoogleKey},
		{name: "missing groq key", mutate: func(c *Config) { c.GroqKey = "" }, wantVar: config.EnvGroqKey},
		{name: "no groq key without voice loop", mutate: func(c *Config) { c.GroqKey = ""; c.VoiceLoop = false }},
		{name: "openai needs its key", mutate: func(c *Config) { c.LLM.Provider = LLMOpenAI }, wantVar: config.EnvOpenAIKey},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "llama" }, wantErr: true},
		{name: "no tts providers", mutate: func(c *Config) { c.TTS.Providers = nil }, wantErr: true},
		{name: "bad camera", mutate: func(c *Config) { c.Camera.Quality = 0 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()

			switch {
			case tt.wantVar != "":
				var cred *config.CredentialError
				require.ErrorAs(t, err, &cred)
				assert.Equal(t, tt.wantVar, cred.Var)
				assert.ErrorIs(t, err, config.ErrMissingCredential)
			case tt.wantErr:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()
	cfg.Web.OpenBrowser = false
	cfg.Web.Addr = "127.0.0.1:0"
	app := New(cfg, log.Discard())
	app.openCamera = camera.NewFakeDevice(1, []byte{0xff, 0xd8, 0x01}).Opener()
	return app
}

func TestInitWithoutTranscription(t *testing.T) {
	cfg := validConfig()
	cfg.GroqKey = ""
	cfg.VoiceLoop = false
	app := newTestApp(t, cfg)
	t.Cleanup(app.Shutdown)

	require.NoError(t, app.Init())
	require.NotNil(t, app.Loop())
	require.NotNil(t, app.Server())

	assert.ElementsMatch(t, []string{agent.VisionToolName, agent.WikipediaToolName}, app.agent.Tools())
	assert.Equal(t, "gemini", app.llm.Name())
	assert.Len(t, app.voices.Providers(), 2, "missing ElevenLabs key keeps an unavailable slot")

	// The Speak button reports the missing key instead of crashing.
	_, err := app.Loop().HandleVoice(context.Background())
	assert.ErrorIs(t, err, config.ErrMissingCredential)
}

func TestInitRejectsInvalidConfig(t *testing.T) {
	cfg := validConfig()
	cfg.GoogleKey = ""
	app := newTestApp(t, cfg)

	err := app.Init()
	assert.ErrorIs(t, err, config.ErrMissingCredential)
	assert.Nil(t, app.Loop())
}

func TestRunBeforeInit(t *testing.T) {
	app := newTestApp(t, validConfig())
	assert.Error(t, app.Run(context.Background()))
}

func TestBuildLLMFallback(t *testing.T) {
	cfg := validConfig()
	cfg.OpenAIKey = "openai"
	cfg.LLM.Fallback = true
	app := newTestApp(t, cfg)

	llm, err := app.buildLLM()
	require.NoError(t, err)
	assert.Contains(t, llm.Name(), "gemini")
	assert.Contains(t, llm.Name(), "openai")
}

func TestBuildLLMFallbackKeepsVisionModel(t *testing.T) {
	cfg := validConfig()
	cfg.OpenAIKey = "openai"
	cfg.LLM.Fallback = true
	cfg.LLM.VisionModel = "vision-x"
	app := newTestApp(t, cfg)

	llm, err := app.buildLLM()
	require.NoError(t, err)
	chain, ok := llm.(*inference.Chain)
	require.True(t, ok)
	require.Len(t, chain.Providers(), 2)

	_, primaryVision := chain.Providers()[0].(*inference.Gemini).Models()
	assert.Equal(t, "vision-x", primaryVision)
	chat, fallbackVision := chain.Providers()[1].(*inference.OpenAI).Models()
	assert.Equal(t, inference.OpenAIModel, chat, "fallback keeps its default chat model")
	assert.Equal(t, "vision-x", fallbackVision)
}

func TestBuildLLMFallbackWithoutKey(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.Fallback = true
	app := newTestApp(t, cfg)

	llm, err := app.buildLLM()
	require.NoError(t, err)
	assert.Equal(t, "gemini", llm.Name())
}

func TestRunServesUI(t *testing.T) {
	cfg := validConfig()
	cfg.VoiceLoop = false
	app := newTestApp(t, cfg)
	t.Cleanup(app.Shutdown)
	require.NoError(t, app.Init())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	cancel()
	assert.NoError(t, <-done)
}

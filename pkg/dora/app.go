package dora

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teslashibe/go-dora/internal/config"
	"github.com/teslashibe/go-dora/internal/httpc"
	"github.com/teslashibe/go-dora/pkg/agent"
	"github.com/teslashibe/go-dora/pkg/assistant"
	"github.com/teslashibe/go-dora/pkg/audioio"
	"github.com/teslashibe/go-dora/pkg/camera"
	"github.com/teslashibe/go-dora/pkg/capture"
	"github.com/teslashibe/go-dora/pkg/inference"
	"github.com/teslashibe/go-dora/pkg/session"
	"github.com/teslashibe/go-dora/pkg/stt"
	"github.com/teslashibe/go-dora/pkg/tts"
	"github.com/teslashibe/go-dora/pkg/vision"
	"github.com/teslashibe/go-dora/pkg/web"
	"github.com/teslashibe/go-dora/pkg/wiki"
)

// App is the Dora application orchestrator. It owns every component and
// their lifecycle.
type App struct {
	config Config
	logger *slog.Logger

	// Reasoning
	llm    inference.Provider
	agent  *agent.Agent
	wiki   *wiki.Client
	webcam *camera.Webcam

	// Speech out
	voices  *tts.Chain
	speaker *tts.Speaker

	// Speech in
	mic      audioio.Source
	listener assistant.Listener

	session *session.Session
	loop    *assistant.Loop
	server  *web.Server

	// openCamera is swapped in tests.
	openCamera camera.Opener
}

// New creates an application. Nothing is opened until Init, InitAgent or
// InitSpeech.
func New(cfg Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		config:  cfg,
		logger:  logger,
		session: session.New(),
	}
}

// Config returns the application config.
func (a *App) Config() Config { return a.config }

// Session returns the conversation session.
func (a *App) Session() *session.Session { return a.session }

// Loop returns the turn loop, nil before Init.
func (a *App) Loop() *assistant.Loop { return a.loop }

// Server returns the web server, nil before Init.
func (a *App) Server() *web.Server { return a.server }

// Init validates the config and builds every component.
func (a *App) Init() error {
	fmt.Println("👧🏼 Dora - Your Smart Personal AI Assistant")
	fmt.Println("===========================================")

	if err := a.config.Validate(); err != nil {
		return err
	}

	fmt.Print("🧠 Connecting agent... ")
	if err := a.InitAgent(); err != nil {
		return fmt.Errorf("agent init: %w", err)
	}
	fmt.Printf("✅ (%s, tools: %s)\n", a.llm.Name(), strings.Join(a.agent.Tools(), ", "))

	fmt.Print("🗣️  Preparing voice... ")
	if err := a.InitSpeech(); err != nil {
		return fmt.Errorf("speech init: %w", err)
	}
	fmt.Printf("✅ (%s)\n", a.voices.Name())

	fmt.Print("🎙️  Opening microphone... ")
	if err := a.initListening(); err != nil {
		fmt.Printf("⚠️  %v\n", err)
	} else {
		fmt.Println("✅")
	}

	a.loop = assistant.New(a.listener, a.agent, a.speaker, a.session, a.logger)
	a.loop.SpeechPath = a.config.TTS.OutputPath

	a.server = web.NewServer(a.config.Web, a.loop, a.webcam, a.logger)
	a.loop.OnTurn = a.server.PublishTurn
	a.loop.OnState = a.server.PublishState

	return nil
}

// InitAgent builds the model, the tools and the agent. Init calls it; the
// one-shot -ask mode calls it alone.
func (a *App) InitAgent() error {
	if a.agent != nil {
		return nil
	}
	llm, err := a.buildLLM()
	if err != nil {
		return err
	}
	a.llm = llm

	a.wiki = wiki.NewClient(
		wiki.WithBaseURL(a.config.Wiki.BaseURL),
		wiki.WithHTTPClient(httpc.NewClient(0)),
		wiki.WithLogger(a.logger),
	)
	a.webcam = camera.NewWebcam(
		camera.NewManagerWithConfig(a.config.Camera),
		a.openCamera,
		a.logger,
	)
	analyzer := vision.NewAnalyzer(a.webcam, a.llm, "", a.logger)

	a.agent = agent.New(a.llm,
		agent.WithTools(
			agent.VisionTool(analyzer),
			agent.WikipediaTool(a.wiki),
		),
		agent.WithMaxSteps(a.config.LLM.MaxSteps),
		agent.WithLogger(a.logger),
	)
	return nil
}

// InitSpeech builds the TTS fallback chain and the speaker. Init calls it;
// the one-shot -say mode calls it alone.
func (a *App) InitSpeech() error {
	if a.speaker != nil {
		return nil
	}
	if err := a.config.ValidateSpeech(); err != nil {
		return err
	}
	chain, err := a.voiceRegistry().Build(a.config.TTS.Providers, a.logger)
	if err != nil {
		return err
	}
	a.voices = chain
	player := audioio.NewPlayer(a.config.Audio, a.logger)
	a.speaker = tts.NewSpeaker(chain, player, a.logger)
	return nil
}

// voiceRegistry knows every speech provider Dora can use. The configured
// order decides which are tried and in what sequence.
func (a *App) voiceRegistry() *tts.Registry {
	c := a.config.TTS
	reg := tts.NewRegistry()
	reg.Register("elevenlabs", func() (tts.Provider, error) {
		return tts.NewElevenLabs(
			tts.WithAPIKey(a.config.ElevenLabsKey),
			tts.WithVoice(tts.ResolveElevenLabsVoice(c.Voice)),
			tts.WithModel(c.Model),
			tts.WithLogger(a.logger),
		)
	})
	reg.Register("gtts", func() (tts.Provider, error) {
		return tts.NewGoogleTranslate(
			tts.WithLanguage(c.Language),
			tts.WithLogger(a.logger),
		)
	})
	reg.Register("openai", func() (tts.Provider, error) {
		return tts.NewOpenAI(
			tts.WithAPIKey(a.config.OpenAIKey),
			tts.WithLogger(a.logger),
		)
	})
	return reg
}

// buildLLM creates the configured model, with the other backend behind it
// when fallback is on and its key is present.
func (a *App) buildLLM() (inference.Provider, error) {
	primary, err := a.newLLM(a.config.LLM.Provider, a.config.LLM.Model)
	if err != nil {
		return nil, err
	}
	if !a.config.LLM.Fallback {
		return primary, nil
	}

	other := LLMOpenAI
	if a.config.LLM.Provider == LLMOpenAI {
		other = LLMGemini
	}
	secondary, err := a.newLLM(other, "")
	if err != nil {
		a.logger.Warn("llm fallback disabled", "provider", other, "error", err)
		return primary, nil
	}
	return inference.NewChainWithLogger(a.logger, primary, secondary)
}

func (a *App) newLLM(name, model string) (inference.Provider, error) {
	c := a.config.LLM
	opts := []inference.Option{
		inference.WithMaxTokens(c.MaxTokens),
		inference.WithTemperature(c.Temperature),
		inference.WithLogger(a.logger),
	}
	if model != "" {
		opts = append(opts, inference.WithModel(model))
	}
	if c.VisionModel != "" {
		opts = append(opts, inference.WithVisionModel(c.VisionModel))
	}

	switch name {
	case LLMGemini:
		if a.config.GoogleKey == "" {
			return nil, &config.CredentialError{Var: config.EnvGoogleKey, Feature: "the Gemini agent"}
		}
		return inference.NewGemini(append(opts, inference.WithAPIKey(a.config.GoogleKey))...)
	case LLMOpenAI:
		if a.config.OpenAIKey == "" {
			return nil, &config.CredentialError{Var: config.EnvOpenAIKey, Feature: "the OpenAI agent"}
		}
		return inference.NewOpenAI(append(opts, inference.WithAPIKey(a.config.OpenAIKey))...)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
}

// initListening opens the microphone path. Without a Groq key, or without
// a microphone, the Speak button reports the problem on use.
func (a *App) initListening() error {
	transcriber, err := stt.NewGroq(
		stt.WithAPIKey(a.config.GroqKey),
		stt.WithModel(a.config.STT.Model),
		stt.WithLanguage(a.config.STT.Language),
		stt.WithLogger(a.logger),
	)
	if errors.Is(err, stt.ErrNoAPIKey) {
		err = &config.CredentialError{Var: config.EnvGroqKey, Feature: "transcription"}
	}
	if err != nil {
		a.listener = unavailableListener{err}
		return err
	}

	mic, err := audioio.NewSource(a.config.Audio, a.logger)
	if err != nil {
		a.listener = unavailableListener{err}
		return err
	}
	rec, err := capture.NewRecorder(mic, a.config.Capture, a.logger)
	if err != nil {
		mic.Close()
		a.listener = unavailableListener{err}
		return err
	}
	a.mic = mic
	a.listener = capture.NewListener(rec, transcriber, a.config.Capture.OutputPath, a.logger)
	return nil
}

// Run serves the UI and, if enabled, runs the voice loop. It blocks until
// ctx is done or the server fails. Saying goodbye ends the voice loop; the
// UI stays up.
func (a *App) Run(ctx context.Context) error {
	if a.server == nil {
		return errors.New("dora: Run called before Init")
	}

	errc := make(chan error, 1)
	go func() { errc <- a.server.Start(ctx) }()

	fmt.Printf("🌐 Dora UI: %s\n", a.server.URL())
	if a.config.VoiceLoop {
		fmt.Println("\n🎤 Dora is listening! Say \"goodbye\" to stop talking.")
		fmt.Println("   (Ctrl+C to exit)")
		go func() {
			if err := a.loop.Run(ctx); err != nil && ctx.Err() == nil {
				a.logger.Error("voice loop ended", "error", err)
				return
			}
			if ctx.Err() == nil {
				fmt.Println("👋 Goodbye! Voice loop stopped, the UI is still open.")
			}
		}()
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return <-errc
	}
}

// Ask answers one question without the UI.
func (a *App) Ask(ctx context.Context, question string) (string, error) {
	if err := a.InitAgent(); err != nil {
		return "", err
	}
	return a.agent.Ask(ctx, question)
}

// Say speaks text once without the UI.
func (a *App) Say(ctx context.Context, text string) (tts.SpeakResult, error) {
	if err := a.InitSpeech(); err != nil {
		return tts.SpeakResult{}, err
	}
	done := a.session.SpeakScope()
	defer done()
	return a.speaker.Say(ctx, text, a.config.TTS.OutputPath)
}

// Shutdown releases devices and providers.
func (a *App) Shutdown() {
	fmt.Println("\n👋 Goodbye!")

	if a.webcam != nil {
		if err := a.webcam.Stop(); err != nil {
			a.logger.Warn("camera release failed", "error", err)
		}
	}
	if a.mic != nil {
		a.mic.Close()
	}
	if a.voices != nil {
		a.voices.Close()
	}
	if a.llm != nil {
		a.llm.Close()
	}
}

// unavailableListener fails every listen with the reason the microphone
// path could not be built.
type unavailableListener struct{ err error }

func (u unavailableListener) Listen(ctx context.Context) (string, error) {
	return "", u.err
}

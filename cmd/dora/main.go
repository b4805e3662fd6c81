// Dora - voice and vision assistant.
// Listens through the microphone, answers with a Gemini agent that can
// look things up on Wikipedia or through the webcam, and speaks the reply.
// A browser UI offers the same conversation by text.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-dora/internal/config"
	dlog "github.com/teslashibe/go-dora/internal/log"
	"github.com/teslashibe/go-dora/pkg/dora"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (default: ./"+config.DefaultFile+" if present)")
		debug      = flag.Bool("debug", false, "Enable verbose debug logging")
		addr       = flag.String("addr", "", "UI listen address (default "+dora.DefaultConfig().Web.Addr+")")
		noBrowser  = flag.Bool("no-browser", false, "Do not open the UI in a browser")
		noVoice    = flag.Bool("no-voice", false, "Disable the background voice loop")
		say        = flag.String("say", "", "Speak the given text and exit")
		ask        = flag.String("ask", "", "Answer the given question on stdout and exit")
	)
	flag.Parse()

	cfg, err := dora.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	if *addr != "" {
		cfg.Web.Addr = *addr
	}
	if *noBrowser {
		cfg.Web.OpenBrowser = false
	}
	if *noVoice {
		cfg.VoiceLoop = false
	}

	dlog.Init(cfg.LogLevel)
	app := dora.New(cfg, dlog.L())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case *say != "":
		res, err := app.Say(ctx, *say)
		if err != nil {
			log.Fatalf("❌ Speech failed: %v", err)
		}
		fmt.Printf("🔊 %s -> %s\n", res.Provider, res.Path)
		return
	case *ask != "":
		answer, err := app.Ask(ctx, *ask)
		if err != nil {
			log.Fatalf("❌ Agent failed: %v", err)
		}
		fmt.Println(answer)
		return
	}

	if err := app.Init(); err != nil {
		log.Fatalf("❌ Initialization failed: %v", err)
	}
	defer app.Shutdown()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("❌ Runtime error: %v", err)
	}
}

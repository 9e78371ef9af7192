package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"

	"github.com/gulalabs1-droid/textwingman/backend/internal/config"
	"github.com/gulalabs1-droid/textwingman/backend/internal/service/dynamics"
	"github.com/gulalabs1-droid/textwingman/backend/internal/service/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.SetOutput(os.Stderr)

	pretty := flag.Bool("pretty", false, "indent the JSON output")
	contextTag := flag.String("context", "", "relationship context, e.g. dating or friends")
	draft := flag.String("draft", "", "unsent reply to score alongside the thread")
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout")
	offline := flag.Bool("offline", false, "skip the model and print the deterministic analysis only")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [transcript-file]\nreads stdin when no file is given\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] .env not loaded, using system environment: %v", err)
	}

	raw, err := readTranscript(flag.Arg(0))
	if err != nil {
		log.Fatalf("read transcript: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var chatModel model.ChatModel
	if !*offline && cfg.AI.Enabled() && cfg.Strategy.Enabled {
		chatModel, err = cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Printf("[WARN] chat model unavailable, using safe default strategy: %v", err)
			chatModel = nil
		}
	} else if !*offline {
		log.Printf("[WARN] no %s credentials configured, using safe default strategy", cfg.AI.Provider)
	}

	strategySvc, err := strategy.NewService(ctx, chatModel, cfg.Strategy.ServiceConfig())
	if err != nil {
		log.Fatalf("init strategy service: %v", err)
	}

	svc := dynamics.NewService(strategySvc, nil, "")
	analysis, err := svc.Analyze(ctx, dynamics.Request{
		Transcript: string(raw),
		ContextTag: *contextTag,
		Draft:      *draft,
	})
	if err != nil {
		log.Fatalf("analyze: %v", err)
	}

	if err := writeJSON(os.Stdout, analysis, *pretty); err != nil {
		log.Fatalf("write output: %v", err)
	}
}

func readTranscript(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

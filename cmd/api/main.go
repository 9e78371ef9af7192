package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"

	"github.com/gulalabs1-droid/textwingman/backend/internal/config"
	"github.com/gulalabs1-droid/textwingman/backend/internal/events"
	"github.com/gulalabs1-droid/textwingman/backend/internal/handler"
	"github.com/gulalabs1-droid/textwingman/backend/internal/service/dynamics"
	"github.com/gulalabs1-droid/textwingman/backend/internal/service/strategy"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// A missing chat model leaves the strategy service disabled; every
	// analysis then carries the safe default strategy.
	var chatModel model.ChatModel
	if cfg.AI.Enabled() && cfg.Strategy.Enabled {
		chatModel, err = cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize %s chat model: %v", cfg.AI.Provider, err)
			chatModel = nil
		} else {
			log.Printf("%s chat model initialized", cfg.AI.Provider)
		}
	} else {
		log.Printf("chat model not configured for provider %s, strategy inference disabled", cfg.AI.Provider)
	}

	strategySvc, err := strategy.NewService(ctx, chatModel, cfg.Strategy.ServiceConfig())
	if err != nil {
		log.Fatalf("failed to initialize strategy service: %v", err)
	}

	publisher, err := events.New(cfg.Events.NatsURL, cfg.Events.NatsToken)
	if err != nil {
		log.Printf("warning: failed to connect to NATS, events disabled: %v", err)
		publisher = events.Noop{}
	} else if cfg.Events.NatsURL != "" {
		log.Printf("publishing analysis events to %s", cfg.Events.Subject)
	}
	defer publisher.Close()

	dynamicsSvc := dynamics.NewService(strategySvc, publisher, cfg.Events.Subject)
	router := handler.NewRouter(dynamicsSvc, strategySvc.Enabled())

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("textwingman backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Command convocored serves the convocore text adapter over HTTP and the
// voice adapter over websocket.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	convocore "github.com/convocore/convocore"
	"github.com/convocore/convocore/config"
	"github.com/convocore/convocore/core"
	"github.com/convocore/convocore/logging"
	"github.com/convocore/convocore/memory"
	anthropicengine "github.com/convocore/convocore/model/anthropic"
	openaiengine "github.com/convocore/convocore/model/openai"
	"github.com/convocore/convocore/transport/ws"
	"github.com/convocore/convocore/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{Level: parseLevel(cfg.LogLevel), Format: cfg.LogFormat})

	def := workflow.DefaultDefinition()
	if cfg.WorkflowPath != "" {
		def, err = workflow.LoadFile(cfg.WorkflowPath)
		if err != nil {
			logger.Error("failed to load workflow definition", "path", cfg.WorkflowPath, "error", err.Error())
			os.Exit(1)
		}
	}

	var memories memory.Store = memory.NewInMemoryStore()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		memories = memory.NewRedisStore(client)
		logger.Info("using redis memory store", "addr", cfg.RedisAddr)
	}

	var engine core.ReasoningEngine
	switch cfg.ModelProvider {
	case "anthropic":
		engine = anthropicengine.NewEngine()
	case "openai":
		engine = openaiengine.NewEngine()
	}

	c := convocore.New(func(o *convocore.Options) {
		o.AgentID = cfg.AgentID
		o.Workflow = def
		o.LocalToolsURL = cfg.LocalToolsURL
		o.Memories = memories
		o.Engine = engine
		o.Logger = logger
	})

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Post("/sessions/{id}/start", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var mem core.SessionMemory
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&mem)
		}
		rec := &bufferTransport{}
		if err := c.Text.Start(r.Context(), id, rec, &mem); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, map[string]string{"sessionId": id, "status": "started"})
	})

	r.Post("/sessions/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "malformed body", http.StatusBadRequest)
			return
		}
		writeJSON(w, c.Text.ProcessMessage(r.Context(), id, body.Text))
	})

	r.Post("/sessions/{id}/tools/{tool}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		toolName := chi.URLParam(r, "tool")
		var input any
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			input = nil
		}
		writeJSON(w, c.Pipeline.ExecuteTool(r.Context(), id, toolName, input, core.NewID()))
	})

	r.Post("/sessions/{id}/stop", func(w http.ResponseWriter, r *http.Request) {
		c.Text.Stop(chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/voice/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
		if err != nil {
			logger.Error("failed to accept websocket", "session_id", id, "error", err.Error())
			return
		}
		transport := ws.NewTransport(conn)
		stream := ws.NewStreamClient(conn, logger)
		if err := c.Voice.StartWithStream(r.Context(), id, transport, stream, nil); err != nil {
			logger.Warn("voice session start failed", "session_id", id, "error", err.Error())
			_ = transport.Close()
			return
		}
		<-r.Context().Done()
		c.Voice.Stop(id)
		_ = transport.Close()
	})

	srv := &http.Server{
		Addr:        cfg.ListenAddr,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("convocored listening", "addr", cfg.ListenAddr, "agent_id", cfg.AgentID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err.Error())
	}
}

// bufferTransport collects lifecycle events emitted during text session
// start; the text adapter has no live outbound channel between requests.
type bufferTransport struct {
	events []core.Event
}

func (b *bufferTransport) Send(ev core.Event) error {
	b.events = append(b.events, ev)
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to encode response", "error", err)
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/example/tablebot/internal/conversation"
)

const channelName = "web"

//go:embed templates/*.html
var fs embed.FS

// Bot is the conversation runtime as seen from an HTTP handler.
type Bot interface {
	Turn(ctx context.Context, id, channel, text string) ([]conversation.Message, error)
	Restart(ctx context.Context, id, channel string) ([]conversation.Message, error)
}

type Server struct {
	Bot      Bot
	Sessions *SessionManager
	Log      *zap.Logger

	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler
	// TurnTimeout bounds one request including slot service calls.
	TurnTimeout time.Duration
}

type tmplData struct {
	Title string
}

type chatRequest struct {
	Text string `json:"text"`
}

type chatResponse struct {
	Messages []conversation.Message `json:"messages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if s.Metrics != nil {
		mux.Handle("/metrics", s.Metrics)
	}

	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/chat/restart", s.handleRestart)
	mux.HandleFunc("/", s.handleHome)

	return s.logging(mux)
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.render(w, "templates/chat.html", tmplData{Title: "Book a table"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	cid, err := s.Sessions.Ensure(w, r)
	if err != nil {
		s.fail(w, "issue session", err)
		return
	}

	ctx, cancel := s.turnContext(r.Context())
	defer cancel()
	msgs, err := s.Bot.Turn(ctx, cid, channelName, req.Text)
	if err != nil {
		s.fail(w, "conversation turn", err, zap.String("conversation_id", cid))
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Messages: msgs})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// the old conversation is left to expire with its TTL
	s.Sessions.Clear(w)
	cid, err := s.Sessions.Issue(w)
	if err != nil {
		s.fail(w, "issue session", err)
		return
	}
	ctx, cancel := s.turnContext(r.Context())
	defer cancel()
	msgs, err := s.Bot.Restart(ctx, cid, channelName)
	if err != nil {
		s.fail(w, "conversation restart", err, zap.String("conversation_id", cid))
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Messages: msgs})
}

func (s *Server) turnContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.TurnTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.TurnTimeout)
}

func (s *Server) fail(w http.ResponseWriter, what string, err error, fields ...zap.Field) {
	s.logger().Error(what+" failed", append(fields, zap.Error(err))...)
	status := http.StatusInternalServerError
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, errorResponse{Error: "something went wrong, please try again"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) render(w http.ResponseWriter, name string, data tmplData) {
	t, err := template.ParseFS(fs, name)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.Execute(w, data); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// Start serves h on addr until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

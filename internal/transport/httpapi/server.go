package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sandevgo/replydesk/internal/config"
	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/log"
)

const maxRequestBodySize = 1 << 20 // 1MB

type Responder interface {
	Respond(ctx context.Context, in core.Inbound) (core.Result, error)
	Greeting(ctx context.Context, businessID string, ref core.ContactRef, channel core.Channel) (string, string, error)
	Resolve(ctx context.Context, businessID, conversationID string, summary *string) error
}

type Summarizer interface {
	Summarize(ctx context.Context, businessID, conversationID string) (*core.Summary, error)
}

type Translator interface {
	Translate(ctx context.Context, text, target string) string
}

// Deps wires the handlers. Deduper and SMS may be nil.
type Deps struct {
	Responder  Responder
	Summarizer Summarizer
	Translator Translator
	Businesses core.BusinessRepository
	Deduper    core.Deduper
	SMS        core.SMSSender
}

type Server struct {
	cfg  *config.HTTPConfig
	deps Deps
	srv  *http.Server
}

func NewServer(cfg *config.HTTPConfig, deps Deps) *Server {
	s := &Server{cfg: cfg, deps: deps}
	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(requestTimeout(s.cfg.RequestTimeout))

	r.Get("/health", handleHealth)

	r.Route("/b/{businessID}", func(r chi.Router) {
		r.Post("/sms", s.handleSMS)
		r.Post("/voice", s.handleVoice)
		r.Post("/voice/gather", s.handleVoiceGather)
		r.Post("/email", s.handleEmail)
	})

	r.Route("/api/b/{businessID}", func(r chi.Router) {
		r.Post("/respond", s.handleRespond)
		r.Post("/conversations/{conversationID}/resolve", s.handleResolve)
		r.Post("/conversations/{conversationID}/summarize", s.handleSummarize)
	})

	return r
}

func (s *Server) Start(ctx context.Context) error {
	s.srv.BaseContext = func(net.Listener) context.Context { return ctx }
	log.FromCtx(ctx).Info().Str("addr", s.cfg.Addr).Msg("starting http server")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// requestLogger puts a request-scoped logger into the context and logs the
// outcome of every request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := log.WithFields(r.Context(),
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
		)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		log.FromCtx(ctx).Debug().
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}

func requestTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// seen reports whether a webhook delivery was already handled. Dedupe
// failures let the delivery through.
func (s *Server) seen(ctx context.Context, key string) bool {
	if s.deps.Deduper == nil || key == "" {
		return false
	}
	dup, err := s.deps.Deduper.Seen(ctx, key)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("key", key).Msg("dedupe check failed")
		return false
	}
	return dup
}

func (s *Server) translate(ctx context.Context, text, lang string) string {
	if s.deps.Translator == nil {
		return text
	}
	return s.deps.Translator.Translate(ctx, text, lang)
}

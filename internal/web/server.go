// Package web serves the chat page and its JSON API.
package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"career-chat/internal/career"
	"career-chat/internal/chat"
)

//go:embed templates/index.html
var templatesFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

type Options struct {
	Addr          string
	SessionSecret []byte
	// EagerPriming creates the session's conversation when the page is first served.
	EagerPriming bool
	Title        string
}

type Server struct {
	chat      *chat.Service
	counselor *career.Counselor
	cookies   *securecookie.SecureCookie
	log       *zap.Logger
	opts      Options
	startTime time.Time
	server    *http.Server
}

func NewServer(svc *chat.Service, counselor *career.Counselor, log *zap.Logger, opts Options) *Server {
	if opts.Title == "" {
		opts.Title = "Career Counselor"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		chat:      svc,
		counselor: counselor,
		cookies:   securecookie.New(opts.SessionSecret, nil),
		log:       log,
		opts:      opts,
		startTime: time.Now(),
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	router.HandleFunc("/api/chat", s.handleChat).Methods(http.MethodPost)
	router.HandleFunc("/api/history", s.handleHistory).Methods(http.MethodGet)
	router.HandleFunc("/api/clear", s.handleClear).Methods(http.MethodGet)
	router.HandleFunc("/api/career", s.handleCareer).Methods(http.MethodPost)
	router.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)

	var handler http.Handler = router
	handler = s.recoverMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	return handler
}

// Start blocks serving HTTP until Stop is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info("starting web server", zap.String("addr", s.opts.Addr))
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

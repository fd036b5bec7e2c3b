package http

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bnema/snatch/internal/adapter/http/middleware"
	"github.com/bnema/snatch/internal/adapter/http/ratelimit"
	"github.com/bnema/snatch/internal/service"
	"github.com/bnema/snatch/static"
)

type Server struct {
	router   chi.Router
	handlers *Handlers
	sse      *SSEHandler
}

func NewServer(jobs JobStore, queue JobQueue, prober MediaProber, bus *service.EventBus, downloadDir string) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		handlers: NewHandlers(jobs, queue, prober, downloadDir),
		sse:      NewSSEHandler(bus, jobs),
	}

	s.registerRoutes()
	s.registerStatic()

	return s
}

func (s *Server) registerRoutes() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(chimw.Recoverer)
	s.router.Use(middleware.SecurityHeaders)

	s.router.Get("/", s.index())

	s.router.Route("/api", func(api chi.Router) {
		api.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type"},
		}))

		api.With(rateLimit(10, time.Minute)).Post("/download", s.handlers.StartDownload())
		api.With(rateLimit(60, time.Minute)).Get("/progress/{id}", s.handlers.Progress())
		api.With(rateLimit(20, time.Minute)).Post("/info", s.handlers.Info())
		api.With(rateLimit(30, time.Minute)).Get("/history", s.handlers.History())
		api.With(rateLimit(20, time.Minute)).Get("/downloads", s.handlers.Downloads())
		api.With(rateLimit(10, time.Minute)).Get("/supported-sites", s.handlers.SupportedSites())
		api.With(rateLimit(20, time.Minute)).Get("/file/{filename}", s.handlers.File())

		// Event streams stay open for the life of a job, so no request budget.
		api.Get("/events/{id}", s.sse.Events())
	})
}

func (s *Server) registerStatic() {
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static.FS))))
}

func (s *Server) index() http.HandlerFunc {
	page, err := static.FS.ReadFile("index.html")
	return func(w http.ResponseWriter, r *http.Request) {
		if err != nil {
			http.Error(w, "page unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// rateLimit builds a per-route budget keyed by client IP, with the refusal
// body every endpoint shares.
func rateLimit(max int, window time.Duration) func(http.Handler) http.Handler {
	limiter := ratelimit.New(max, window)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientIP(r)) {
				writeErrorDetails(w, http.StatusTooManyRequests,
					"Rate limit exceeded",
					"Please wait a moment before trying again",
					"Too many requests. Please slow down.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

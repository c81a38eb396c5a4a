package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	srv *http.Server
}

// Router собирает маршруты. metrics == nil — /metrics не публикуется.
func Router(h *Handler, log *slog.Logger, metrics http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Post("/requirements/check", h.Check)
		r.Post("/materials", h.CreateMaterial)

		r.Post("/receipts", h.ProcessReceipt)
		r.Route("/receipts/{id}", func(r chi.Router) {
			r.Get("/", h.GetReceipt)
			r.Post("/transition", h.Transition)
			r.Get("/inspection", h.InspectionByReceipt)
		})

		r.Route("/inspections/{id}", func(r chi.Router) {
			r.Get("/", h.GetInspection)
			r.Post("/start", h.StartInspection)
			r.Put("/items/{itemID}", h.RecordResult)
			r.Post("/complete", h.CompleteInspection)
			r.Get("/report.xlsx", h.Report)
		})

		r.Post("/checklists/import", h.ImportChecklists)
	})
	return r
}

func New(addr string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

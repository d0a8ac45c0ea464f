package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lecture-qa/internal/handlers"
	"lecture-qa/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	QAService service.QAService
	Health    []handlers.HealthCheck
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	healthHandler := handlers.NewHealthHandler(deps.Health...)
	lectureHandler := handlers.NewLectureHandler(deps.QAService)
	askHandler := handlers.NewAskHandler(deps.QAService)
	speechHandler := handlers.NewSpeechHandler(deps.QAService)
	chunksHandler := handlers.NewChunksHandler(deps.QAService)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)

		r.Route("/v1", func(r chi.Router) {
			r.Post("/lectures", lectureHandler.Ingest)
			r.Post("/transcripts/reindex", lectureHandler.Reindex)
			r.Method(http.MethodPost, "/ask", askHandler)
			r.Post("/ask/voice", askHandler.Voice)
			r.Post("/speak", speechHandler.Speak)
			r.Get("/audio/{id}", speechHandler.Audio)
			r.Get("/chunks", chunksHandler.List)
			r.Get("/stats", chunksHandler.Stats)
		})
	})

	return r
}

// Package web serves the live status API of a running attendance loop.
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/kozaktomas/face-attendance/internal/schedule"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// Deps are the running components the API reads from.
type Deps struct {
	Gallery     *gallery.Gallery
	Extractor   facematch.Extractor
	Threshold   float64
	Counts      handlers.CountReader
	Events      database.EventReader // optional
	Schedule    *schedule.Schedule   // optional
	Frames      handlers.FrameProvider
	Broadcaster *recognition.Broadcaster
}

// Server represents the web server
type Server struct {
	deps       Deps
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer creates a new web server
func NewServer(cfg *config.WebConfig, deps Deps) *Server {
	r := chi.NewRouter()

	s := &Server{
		deps:   deps,
		router: r,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:        cfg.Listen,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
		// No WriteTimeout: the event stream stays open for the whole run.
	}

	return s
}

func (s *Server) setupRoutes() {
	attendanceHandler := handlers.NewAttendanceHandler(s.deps.Counts, s.deps.Events, s.deps.Schedule)
	galleryHandler := handlers.NewGalleryHandler(s.deps.Gallery, s.deps.Extractor, s.deps.Threshold)
	liveHandler := handlers.NewLiveHandler(s.deps.Frames, s.deps.Broadcaster)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/events", liveHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(time.Minute))

			r.Get("/attendance", attendanceHandler.Current)
			r.Get("/attendance/{date}", attendanceHandler.History)
			r.Get("/gallery", galleryHandler.List)
			r.Post("/identify", galleryHandler.Identify)
			r.Get("/frame.jpg", liveHandler.Frame)
		})
	})

	s.router.With(middleware.SecurityHeaders()).Get("/", serveDashboard)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Package server serves the estimator form and its JSON API over Fiber.
package server

import (
	"context"
	"embed"
	"html/template"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ezoic/tasador/pkg/log"
	"github.com/ezoic/tasador/valuation"
)

//go:embed templates/index.html
var templateFS embed.FS

// Option configures a Server.
type Option func(*Server)

// WithTimeouts sets the read and write timeouts of the HTTP server.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
	}
}

// WithRegistry registers the metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithLogger sets the access and error logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server holds the estimator and the Fiber app. The estimator is built once
// at start-up and only read by handlers.
type Server struct {
	app       *fiber.App
	estimator *valuation.Estimator
	validate  *validator.Validate
	metrics   *Metrics
	pages     *template.Template
	logger    log.Logger

	registry     *prometheus.Registry
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// New builds the server around est. est may have no artifact; the form then
// shows a blocking error and every estimate is refused.
func New(est *valuation.Estimator, options ...Option) (*Server, error) {
	s := &Server{
		estimator:    est,
		validate:     newValidator(),
		logger:       log.GetLoggerWithName("server"),
		readTimeout:  10 * time.Second,
		writeTimeout: 30 * time.Second,
	}
	for _, opt := range options {
		opt(s)
	}

	pages, err := template.New("index.html").Funcs(templateFuncs()).ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	s.pages = pages

	s.metrics = NewMetrics(s.registry)
	s.metrics.SetModelLoaded(est.Available())

	s.app = fiber.New(fiber.Config{
		AppName:               "tasador",
		DisableStartupMessage: true,
		ReadTimeout:           s.readTimeout,
		WriteTimeout:          s.writeTimeout,
		ErrorHandler:          s.handleError,
	})
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.app.Use(recover.New())
	s.app.Use(requestID())
	s.app.Use(accessLog(s.logger))

	s.app.Get("/", s.formPage)
	s.app.Post("/", s.estimatePage)
	s.app.Get("/healthz", s.health)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))

	api := s.app.Group("/api/v1")
	api.Get("/brands", s.listBrands)
	api.Get("/brands/:brand/models", s.listModels)
	api.Post("/estimate", s.estimateAPI)
	api.Get("/model", s.modelInfo)
}

// App exposes the Fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("Server listening",
		"addr", addr,
		"model_loaded", s.estimator.Available(),
	)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		// Casers and printers keep state, so each call builds its own.
		"title": func(s string) string {
			return cases.Title(language.Spanish).String(s)
		},
		"euros": func(v float64) string {
			return message.NewPrinter(language.Spanish).Sprintf("%.2f €", v)
		},
		"eurosRound": func(v float64) string {
			return message.NewPrinter(language.Spanish).Sprintf("%.0f €", v)
		},
	}
}

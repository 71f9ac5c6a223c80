// Package http serves the CEYCENT dashboard: the login page, the navigation
// shell, the monthly report and its htmx partials.
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"ceycent/internal/activity"
	"ceycent/internal/auth"
	"ceycent/internal/log"
	"ceycent/internal/middleware/security"
	"ceycent/internal/middleware/trace"
	"ceycent/internal/report"
	"ceycent/internal/session"
	"ceycent/internal/sheets"
	"ceycent/internal/shell"
	appweb "ceycent/web"
)

// ReadyFunc reports whether a dependency can serve traffic.
type ReadyFunc func(ctx context.Context) error

// Dependencies are the components the server routes requests to.
type Dependencies struct {
	Auth      *auth.Authenticator
	Sessions  *session.Manager
	Reports   *report.Registry
	Shell     *shell.Shell
	Exporter  sheets.ReportExporter
	Publisher activity.Publisher
	Location  *time.Location
	// Ready checks are run by /readyz, keyed by name.
	Ready  map[string]ReadyFunc
	Logger *log.Logger
}

// Server wraps http.Server with the dashboard's routes.
type Server struct {
	http.Server
	templates *template.Template
	auth      *auth.Authenticator
	sessions  *session.Manager
	reports   *report.Registry
	shell     *shell.Shell
	exporter  sheets.ReportExporter
	publisher activity.Publisher
	location  *time.Location
	ready     map[string]ReadyFunc
	logger    *log.Logger
	tracer    *trace.Middleware
	detector  *security.Detector
	started   time.Time

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewServer parses the embedded templates and wires the routes.
func NewServer(addr string, deps Dependencies) (*Server, error) {
	if deps.Auth == nil || deps.Sessions == nil || deps.Reports == nil || deps.Shell == nil {
		return nil, errors.New("http server requires auth, sessions, reports and shell")
	}
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	if deps.Exporter == nil {
		deps.Exporter = sheets.Disabled{}
	}
	if deps.Publisher == nil {
		deps.Publisher = activity.Noop{}
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}

	tmpl, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	logger := deps.Logger.WithComponent(log.ComponentHTTP)
	detector := security.NewDetector(deps.Logger)

	s := &Server{
		templates: tmpl,
		auth:      deps.Auth,
		sessions:  deps.Sessions,
		reports:   deps.Reports,
		shell:     deps.Shell,
		exporter:  deps.Exporter,
		publisher: deps.Publisher,
		location:  deps.Location,
		ready:     deps.Ready,
		logger:    logger,
		tracer:    trace.NewMiddleware(detector.ExtractClientIP, logger),
		detector:  detector,
		started:   time.Now(),
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Report pages wait on three sequential remote calls.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	app := http.NewServeMux()
	gate := s.shell.RequireSession
	authLog := log.ComponentMiddleware(log.ComponentAuth)
	reportLog := log.ComponentMiddleware(log.ComponentReport)
	shellLog := log.ComponentMiddleware(log.ComponentShell)

	app.Handle("GET /{$}", authLog(http.HandlerFunc(s.handleLoginPage)))
	app.Handle("POST /{$}", authLog(http.HandlerFunc(s.handleLogin)))
	app.Handle("POST /login", authLog(http.HandlerFunc(s.handleLogin)))
	app.Handle("/logout", shellLog(http.HandlerFunc(s.handleLogout)))

	app.Handle("GET /content", shellLog(gate(http.HandlerFunc(s.handleContent))))
	app.Handle("GET /report", reportLog(gate(security.NoStore(http.HandlerFunc(s.handleReport)))))
	app.Handle("GET /ui/report", reportLog(gate(security.NoStore(http.HandlerFunc(s.handleReportPartial)))))
	app.Handle("/report/export", reportLog(gate(http.HandlerFunc(s.handleReportExport))))
	for _, path := range shell.PlaceholderPaths() {
		app.Handle("GET "+path, shellLog(gate(http.HandlerFunc(s.handlePlaceholder))))
	}
	app.HandleFunc("/", s.handleNotFound)

	root := http.NewServeMux()
	staticFS, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("static assets: %v", err))
	}
	root.Handle("/static/", http.StripPrefix("/static/",
		security.StaticAssetMiddleware(3600)(http.FileServer(http.FS(staticFS)))))
	root.HandleFunc("GET /healthz", s.handleHealth)
	root.HandleFunc("GET /readyz", s.handleReady)
	root.Handle("/", s.sessions.Middleware(app))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	return s.tracer.Middleware(s.detector.Middleware(headers.Middleware(root)))
}

// Shutdown gracefully stops the server. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "Shutting down HTTP server",
			log.NewFields().WithOperation(log.OpShutdown).ToSlice()...)
		s.shutdownErr = s.Server.Shutdown(ctx)
	})
	return s.shutdownErr
}

// render executes name into a buffer first so template errors never leave
// a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, status int, data any, extra ...func(*HTMXResponseBuilder)) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Template render failed",
			err, log.ComponentTemplate, log.OpRender, log.LogFields{"template": name})
		InternalServerError("Something went wrong").Write(w)
		return
	}

	b := NewHTMXResponse().Status(status).BodyHTML(buf.Bytes())
	for _, fn := range extra {
		fn(b)
	}
	b.Write(w)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	NotFoundError("Page not found").Write(w)
}

// Package web serves the to-do list pages.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/MaraisMark/NotetakingMark/internal/models"
	"github.com/MaraisMark/NotetakingMark/internal/store"
)

//go:embed templates/*.html
var templatesFS embed.FS

const shutdownTimeout = 10 * time.Second

type Options struct {
	// Mode is the gin mode; empty leaves the current mode alone.
	Mode string
	// ServiceName labels the otelgin spans.
	ServiceName string
	// Seed is copied into every new list and into an empty default list.
	// Nil means models.DefaultItems().
	Seed   []models.Item
	Logger *slog.Logger
}

type Server struct {
	Router *gin.Engine
	store  store.Store
}

// NewServer builds the router with middleware, templates and routes.
func NewServer(st store.Store, opts Options) *Server {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	if opts.Seed == nil {
		opts.Seed = models.DefaultItems()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "todolist"
	}

	router := gin.New()
	router.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	router.Use(gin.Recovery())
	router.Use(RequestLogger(opts.Logger))
	router.Use(secure.New(secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))
	router.Use(otelgin.Middleware(opts.ServiceName))
	router.Use(MetricsMiddleware())

	s := &Server{Router: router, store: st}
	s.setupRoutes(opts.Seed)
	return s
}

func (s *Server) setupRoutes(seed []models.Item) {
	// Browsers ask for this on every page; without a route it would create a
	// list called "favicon.ico".
	s.Router.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	r := s.Router.Group("/")
	r.Use(StoreMiddleware(s.store))
	{
		r.GET("/", GetHome(seed))
		r.POST("/", PostItem(seed))
		r.POST("/delete", PostDelete)
		r.GET("/about", GetAbout)
		r.GET("/healthz", GetHealth)
		r.GET("/:customListName", GetCustomList(seed))
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server is running", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Package server is a small self-hostable backend implementing the
// PostgREST-style table contract the client speaks: per-table GET, merge
// upsert via POST with on_conflict=id, and filtered DELETE. It runs against
// Postgres in production and SQLite for local use and tests.
package server

import (
	"net/http"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/tasktide/tasktide/internal/logger"
)

// Server hosts the REST backend over one database.
type Server struct {
	db     *sqlx.DB
	sb     sq.StatementBuilderType
	echo   *echo.Echo
	apiKey string
}

// New connects to the database at dbURL and prepares the routes. A
// postgres:// URL selects lib/pq; anything else is treated as a SQLite path.
// An empty apiKey disables authentication (local development only).
func New(dbURL, apiKey string) (*Server, error) {
	driver := "sqlite"
	var placeholder sq.PlaceholderFormat = sq.Question
	if strings.HasPrefix(dbURL, "postgres://") || strings.HasPrefix(dbURL, "postgresql://") {
		driver = "postgres"
		placeholder = sq.Dollar
	}

	db, err := sqlx.Connect(driver, dbURL)
	if err != nil {
		return nil, err
	}

	s := &Server{
		db:     db,
		sb:     sq.StatementBuilder.PlaceholderFormat(placeholder),
		apiKey: apiKey,
	}

	if err := s.migrate(); err != nil {
		return nil, err
	}
	s.setupEcho()
	return s, nil
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http",
				logger.F("method", c.Request().Method),
				logger.F("uri", c.Request().RequestURI),
				logger.F("status", c.Response().Status),
				logger.F("duration", time.Since(start).String()))
			return err
		}
	})
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/health", s.handleHealth)

	rest := e.Group("/rest/v1")
	rest.Use(s.keyMiddleware)
	rest.GET("/:table", s.handleList)
	rest.POST("/:table", s.handleUpsert)
	rest.DELETE("/:table", s.handleDelete)

	s.echo = e
}

// keyMiddleware checks the apikey header pair the client sends.
func (s *Server) keyMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.apiKey == "" {
			return next(c)
		}
		key := c.Request().Header.Get("apikey")
		if key == "" {
			auth := c.Request().Header.Get("Authorization")
			key = strings.TrimPrefix(auth, "Bearer ")
		}
		if key != s.apiKey {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
		}
		return next(c)
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Close closes the database connection.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router returns the HTTP handler, for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start serves on addr until failure.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

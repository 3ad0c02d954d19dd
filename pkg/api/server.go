// Package api serves a patient table over HTTP. The server owns the current
// table and replaces it wholesale after every mutation.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/marshallshelly/patient-records/pkg/patient"
	"go.uber.org/zap"
)

// Server holds the current table and the HTTP routes operating on it.
type Server struct {
	mu     sync.RWMutex
	table  patient.Table
	log    *zap.Logger
	onSave func(patient.Table)
	echo   *echo.Echo
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and event logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithSaveHook registers a function called with every new current table.
func WithSaveHook(fn func(patient.Table)) Option {
	return func(s *Server) { s.onSave = fn }
}

// NewServer creates a server starting from table.
func NewServer(table patient.Table, opts ...Option) *Server {
	s := &Server{
		table: table,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(requestLogger(s.log))
	s.RegisterRoutes(e)
	s.echo = e
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// RegisterRoutes mounts the API on e.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", s.Health)

	e.GET("/patients", s.ListPatients)
	e.POST("/patients", s.AddPatient)
	e.PUT("/patients", s.ReplacePatients)
	e.GET("/patients/search", s.SearchPatients)
	e.POST("/patients/reset", s.ResetPatients)
	e.GET("/patients/:id", s.GetPatient)
	e.PUT("/patients/:id", s.UpdatePatient)
	e.DELETE("/patients/:id", s.DeletePatient)

	e.GET("/summary", s.Summary)
	e.GET("/export/patients.csv", s.ExportCSV)
	e.GET("/export/patients.xlsx", s.ExportXLSX)
}

// Table returns the current table.
func (s *Server) Table() patient.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// mutate applies fn to the current table under the write lock. fn reports
// whether it changed anything. The save hook runs before the lock is released
// so saves happen in the same order as the changes.
func (s *Server) mutate(fn func(patient.Table) (patient.Table, bool)) (patient.Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := fn(s.table)
	if !ok {
		return s.table, false
	}
	s.table = next
	if s.onSave != nil {
		s.onSave(next)
	}
	return next, true
}

// Start listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("http server shutting down")
	return s.echo.Shutdown(shutdownCtx)
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_ip", c.RealIP()),
			}
			if err != nil {
				log.Warn("request", append(fields, zap.Error(err))...)
			} else {
				log.Info("request", fields...)
			}
			return nil
		}
	}
}

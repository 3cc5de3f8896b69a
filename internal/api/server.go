package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"scopedrest/internal/api/controllers"
	apimw "scopedrest/internal/api/middleware"
	"scopedrest/internal/api/validator"
	"scopedrest/internal/apierr"
	"scopedrest/internal/config"
	console "scopedrest/internal/utils/logger"
)

const apiPrefix = "/api/v1"

var log = console.New("API-Server")

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators NewServer wires into routes and middleware.
type Deps struct {
	Resources controllers.Deps
	Tokens    apimw.TokenResolver
	Audit     apimw.AuditSink
	// KeyLimiter is nil when per-key limiting is disabled.
	KeyLimiter apimw.Allower
	Health     map[string]HealthCheck
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	deps      Deps
	resources *controllers.ResourceController
}

// NewServer @title scopedrest API
// @version 1.0
// @description Read-only access to registered resources, limited to the caller's scope.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Validator = validator.NewValidator()
	e.JSONSerializer = jsonSerializer{}
	e.HTTPErrorHandler = customHTTPErrorHandler

	resources, err := controllers.NewResourceController(deps.Resources)
	if err != nil {
		return nil, err
	}

	// Gzip sits outside the audit capture so recorded bodies are plain text.
	e.Use(middleware.Logger())
	e.Use(apimw.RequestID())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
	}))
	if deps.Audit != nil {
		e.Use(apimw.AuditMiddleware(deps.Audit, apimw.AuditConfig{
			PathPrefix:   apiPrefix,
			MaxBodyBytes: cfg.Audit.MaxBodyBytes,
		}))
	}
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.Secure())
	if cfg.Server.Timeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: cfg.Server.Timeout,
		}))
	}
	if cfg.Server.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	}
	if cfg.Server.GlobalRate > 0 {
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Server.GlobalRate)),
			DenyHandler: func(c echo.Context, identifier string, err error) error {
				return apierr.TooManyRequests("rate limit exceeded")
			},
		}))
	}

	s := &Server{
		echo:      e,
		config:    cfg,
		deps:      deps,
		resources: resources,
	}
	s.registerRoutes()
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) Start() error {
	err := s.echo.Start(fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port))
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Health check endpoint
func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	checks := make(map[string]string, len(s.deps.Health))
	for name, check := range s.deps.Health {
		if err := check(ctx); err != nil {
			log.Warn("health check %s failed: %v", name, err)
			checks[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	return c.JSON(code, map[string]interface{}{
		"status":  status,
		"version": "1.0.0",
		"checks":  checks,
		"time":    time.Now().Format(time.RFC3339),
	})
}

// Custom HTTP error handler
func customHTTPErrorHandler(err error, c echo.Context) {
	var (
		code    = http.StatusInternalServerError
		message interface{}
	)

	var (
		apiErr *apierr.Error
		he     *echo.HTTPError
		ve     validator.ValidationErrors
	)
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Kind.Status()
		message = apiErr.Message
		if apiErr.Kind == apierr.KindInternal && apiErr.Err != nil {
			log.Debug("internal error on %s: %v", c.Path(), apiErr.Err)
		}
	case errors.As(err, &ve):
		code = http.StatusBadRequest
		message = formatValidationErrors(ve)
	case errors.As(err, &he):
		code = he.Code
		message = he.Message
		if code >= http.StatusInternalServerError {
			message = http.StatusText(code)
		}
	default:
		_ = log.Error("unhandled error on %s", err, c.Path())
		message = http.StatusText(code)
	}

	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, map[string]interface{}{
				"error": message,
				"code":  code,
				"time":  time.Now().Format(time.RFC3339),
			})
		}
		if err != nil {
			c.Echo().Logger.Error(err)
		}
	}
}

// formatValidationErrors formats validation errors into a map
func formatValidationErrors(errors validator.ValidationErrors) map[string]string {
	errMap := make(map[string]string)
	for _, err := range errors {
		field := err.Field()
		tag := err.Tag()
		param := err.Param()

		switch tag {
		case "required":
			errMap[field] = fmt.Sprintf("%s is required", field)
		case "max":
			errMap[field] = fmt.Sprintf("%s must be at most %s", field, param)
		case "gte":
			errMap[field] = fmt.Sprintf("%s must be at least %s", field, param)
		case "oneof":
			errMap[field] = fmt.Sprintf("%s must be one of [%s]", field, strings.ReplaceAll(param, " ", ", "))
		case "resource_name":
			errMap[field] = fmt.Sprintf("%s must be a lowercase name of letters, digits and underscores", field)
		default:
			errMap[field] = fmt.Sprintf("%s failed validation: %s", field, tag)
		}
	}
	return errMap
}

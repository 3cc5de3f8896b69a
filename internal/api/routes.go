package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "scopedrest/docs/swagger"
	"scopedrest/internal/api/middleware"
)

func (s *Server) registerRoutes() {
	// Health check
	// @Summary Health check
	// @Description Check if the server and its dependencies are reachable
	// @Produce json
	// @Success 200 {object} map[string]interface{} "OK"
	// @Failure 503 {object} map[string]interface{} "A dependency is down"
	// @Router /health [get]
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	// API v1 group. Identity first, then the injection guard, both ahead of
	// any resource resolution.
	api := s.echo.Group(apiPrefix)
	api.Use(middleware.NewAuthMiddleware(s.deps.Tokens).Middleware())
	if s.deps.KeyLimiter != nil {
		api.Use(middleware.KeyRateLimit(s.deps.KeyLimiter))
	}
	api.Use(middleware.GuardMiddleware(s.deps.Resources.Guard))

	api.GET("/:resource", s.resources.List)
	api.GET("/:resource/:id", s.resources.Show)
	api.GET("/:resource/:id/:nested", s.resources.NestedList)

	api.RouteNotFound("/*", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "Not Found")
	})
}

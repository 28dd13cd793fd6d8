package http

import "github.com/labstack/echo/v4"

type Routes struct {
	Health     *Handler
	Calculator *CalculatorHandler
	Chat       *ChatHandler
}

// Register mounts the API. mw wraps the /api group only; /health stays bare
// so probes are never rate limited.
func (r Routes) Register(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	e.GET("/health", r.Health.Health)

	api := e.Group("/api", mw...)
	api.POST("/calculate", r.Calculator.Calculate)
	api.POST("/chat", r.Chat.Chat)
}

// Package http provides the HTTP server implementation for pairtalk.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/pairtalk/internal/service"
	v1 "github.com/xiaot623/pairtalk/internal/transport/http/v1"
	"github.com/xiaot623/pairtalk/internal/transport/ws"
)

// NewServer creates the HTTP server. It serves the teacher and student REST
// APIs and, when wsServer is not nil, the WebSocket chat endpoint.
func NewServer(svc *service.Service, wsServer *ws.Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	validator := v1.NewValidator()
	e.Validator = validator
	e.HTTPErrorHandler = v1.NewErrorHandler(validator)

	v1.NewHandler(svc).RegisterRoutes(e)
	if wsServer != nil {
		e.GET("/ws", wsServer.HandleWebSocket)
	}

	return e
}

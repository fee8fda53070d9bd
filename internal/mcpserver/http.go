package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// newHTTPApp mounts the streamable MCP handler at /mcp next to a health check.
func (s *Server) newHTTPApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:     "tecton-mcp",
		ReadTimeout: 30 * time.Second,
	})
	app.Use(recover.New())

	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": s.version,
			"tools":   len(s.tools),
		})
	})

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
	app.All("/mcp", adaptor.HTTPHandler(handler))
	return app
}

func (s *Server) serveHTTP(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	slog.Info("Serving MCP over HTTP", "addr", addr, "path", "/mcp")
	return s.newHTTPApp().Listen(addr, fiber.ListenConfig{
		GracefulContext:       ctx,
		DisableStartupMessage: true,
		ShutdownTimeout:       10 * time.Second,
	})
}

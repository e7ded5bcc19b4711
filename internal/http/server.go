package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"metrics-query-service/internal/config"
	"metrics-query-service/internal/controller"
	"metrics-query-service/internal/routes"
)

// Server wraps the Fiber application setup.
type Server struct {
	app *fiber.App
}

// NewServer configures routes and middleware.
func NewServer(appCfg *config.Config, queryController controller.QueryController) *Server {
	fiberCfg := fiber.Config{
		DisableStartupMessage: true,
		Prefork:               appCfg.FiberPrefork,
	}
	app := fiber.New(fiberCfg)
	app.Use(recover.New())

	routes.Register(app, queryController)

	return &Server{app: app}
}

// Listen runs the server on provided addr.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

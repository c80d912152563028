// Package httpapi serves the read-only status endpoint a running device
// exposes for local tooling and health checks. It never mutates the
// document; edits go through the CLI and the sync engine.
package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/roach88/walletsync/internal/domain"
	"github.com/roach88/walletsync/internal/engine"
)

// Server wraps the fiber app around a running engine.
type Server struct {
	app    *fiber.App
	engine *engine.Engine
}

// New builds the status server for a running engine.
func New(eng *engine.Engine) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	s := &Server{app: app, engine: eng}

	app.Get("/healthz", s.health)
	app.Get("/api/status", s.status)
	app.Get("/api/books", s.books)

	return s
}

// Listen blocks serving on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) status(c *fiber.Ctx) error {
	d := s.engine.Snapshot()
	hash, err := domain.StateHash(d)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "hash state: "+err.Error())
	}
	return c.JSON(fiber.Map{
		"deviceId":      d.DeviceID,
		"schemaVersion": d.SchemaVersion,
		"books":         len(d.Books),
		"activeBookId":  d.ActiveBookID,
		"sync":          string(s.engine.Status()),
		"stateHash":     hash,
	})
}

func (s *Server) books(c *fiber.Ctx) error {
	d := s.engine.Snapshot()
	type bookSummary struct {
		ID           string          `json:"id"`
		Name         string          `json:"name"`
		Currency     string          `json:"currency"`
		Transactions int             `json:"transactions"`
		Balance      decimal.Decimal `json:"balance"`
	}
	out := make([]bookSummary, 0, len(d.Books))
	for _, b := range d.Books {
		out = append(out, bookSummary{
			ID:           b.ID,
			Name:         b.Name,
			Currency:     b.Currency,
			Transactions: len(b.Transactions),
			Balance:      domain.BookBalance(b),
		})
	}
	return c.JSON(out)
}

// Package monitor is a read-only HTTP status server exposing a running
// fuzzer's stats, corpus, failures, and plot data to external
// dashboards, plus a WebSocket stream for live consumers. It mirrors
// the teacher's fiber-over-fasthttp server shape, generalized from a
// live attack dashboard to a read-only fuzzing status board.
package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/genfuzz/genfuzz/pkg/trial"
)

// SnapshotSource supplies the live data the server reports. pkg/trial's
// Runner implements this via its Snapshot-producing accessors.
type SnapshotSource interface {
	Snapshot() trial.Snapshot
}

// Server wraps a fiber app bound to a single run's output directory and
// live snapshot source.
type Server struct {
	app       *fiber.App
	source    SnapshotSource
	outDir    string
	period    time.Duration
}

// New builds a Server. outDir is the run's output directory (holding
// corpus/, failures/, plot_data); period is how often /stream pushes a
// fresh line to connected websocket clients.
func New(source SnapshotSource, outDir string, period time.Duration) *Server {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(cors.New())

	s := &Server{app: app, source: source, outDir: outDir, period: period}

	app.Get("/stats.json", s.handleStats)
	app.Get("/corpus", s.handleCorpus)
	app.Get("/failures", s.handleFailures)
	app.Get("/plot_data", s.handlePlotData)

	app.Use("/stream", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/stream", websocket.New(s.handleStream))

	return s
}

// Listen serves on addr until the process exits or the fiber app is
// shut down.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.source.Snapshot())
}

func (s *Server) handleCorpus(c *fiber.Ctx) error {
	return s.listDir(c, filepath.Join(s.outDir, "corpus"))
}

func (s *Server) handleFailures(c *fiber.Ctx) error {
	return s.listDir(c, filepath.Join(s.outDir, "failures"))
}

func (s *Server) listDir(c *fiber.Ctx, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return c.JSON([]string{})
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return c.JSON(names)
}

func (s *Server) handlePlotData(c *fiber.Ctx) error {
	path := filepath.Join(s.outDir, "plot_data")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c.SendString("")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	c.Set(fiber.HeaderContentType, "text/csv")
	return c.Send(data)
}

func (s *Server) handleStream(conn *websocket.Conn) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	defer conn.Close()

	for range ticker.C {
		line, err := json.Marshal(s.source.Snapshot())
		if err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, line); err != nil {
			return
		}
	}
}

func (s *Server) String() string {
	return fmt.Sprintf("monitor(out=%s)", s.outDir)
}

// Package wsapi streams a job's live event history over a websocket
// connection, bridging jobs.EventBus.Subscribe onto gorilla/websocket the
// way the retrieved bridge rtc service upgrades a plain net/http handler.
package wsapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"media-dubber/internal/jobs"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const writeTimeout = 10 * time.Second

// Server bridges a job's event bus onto a websocket handler.
type Server struct {
	Events *jobs.EventBus
	Logger *slog.Logger
}

// New wires the events route onto e, keeping it a distinct group from the
// httpapi package's plain JSON routes since the two use disjoint upgrade
// semantics.
func New(s *Server) func(e *echo.Echo) {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	return func(e *echo.Echo) {
		e.GET("/v1/jobs/:id/events", s.handleEvents)
	}
}

// handleEvents upgrades the connection, replays any events already on the
// job's ring buffer past ?since=, then streams every new event live until
// the client disconnects or the job's bus is forgotten.
func (s *Server) handleEvents(c echo.Context) error {
	jobID := c.Param("id")

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub, unsubscribe := s.Events.Subscribe(jobID)
	defer unsubscribe()

	since, _ := strconv.ParseInt(c.QueryParam("since"), 10, 64)
	for _, event := range s.Events.Since(jobID, since) {
		if err := s.write(conn, event); err != nil {
			return nil
		}
	}

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-sub:
			if !ok {
				return nil
			}
			if err := s.write(conn, event); err != nil {
				return nil
			}
		}
	}
}

func (s *Server) write(conn *websocket.Conn, event jobs.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	payload, err := json.Marshal(event)
	if err != nil {
		s.Logger.Error("failed to marshal event", "error", err)
		return nil
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

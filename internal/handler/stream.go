package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/stagehand/showcall/internal/broadcast"
	"github.com/stagehand/showcall/internal/repository"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Observers connect from arbitrary front-ends; the JWT middleware
	// already authenticated the request.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const streamWriteTimeout = 10 * time.Second

// StreamHandler serves the websocket observer stream of a runsheet.
type StreamHandler struct {
	RunsheetRepo *repository.RunsheetRepo
	Hub          *broadcast.Hub
}

// NewStreamHandler constructs a StreamHandler and panics if any
// dependency is nil.
func NewStreamHandler(runsheetRepo *repository.RunsheetRepo, hub *broadcast.Hub) *StreamHandler {
	if runsheetRepo == nil || hub == nil {
		panic("nil dependency passed to NewStreamHandler")
	}
	return &StreamHandler{RunsheetRepo: runsheetRepo, Hub: hub}
}

// Stream handles GET /v1/runsheets/:id/stream.  Each committed change
// for the runsheet is forwarded as one JSON frame in commit order.  The
// stream only signals that something changed; clients refetch full
// state over the GET endpoints after (re)connecting.  A disconnect, or
// falling too far behind, simply closes the socket and never affects
// server state.
func (h *StreamHandler) Stream(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid runsheet id"})
	}
	ctx := c.Request().Context()
	if _, err := h.RunsheetRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRunsheetNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "runsheet not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	sub := h.Hub.Subscribe(id)
	defer h.Hub.Unsubscribe(sub)
	defer conn.Close()

	// Read pump: clients send nothing meaningful, but reading is how we
	// notice the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case change, ok := <-sub.Changes():
			if !ok {
				// Dropped by the hub for falling behind; the client
				// reconnects and refetches.
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(change); err != nil {
				log.Printf("stream: write to runsheet %d observer failed: %v", id, err)
				return nil
			}
		case <-done:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

package ws_room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	http_common "github.com/humanbelnik/soundbyte/internal/delivery/http/common"
	"github.com/humanbelnik/soundbyte/internal/model"
	usecase_game "github.com/humanbelnik/soundbyte/internal/usecase/game"
)

const (
	EventConnected = "connected"

	EventCreateRoom     = "createRoom"
	EventJoinRoom       = "joinRoom"
	EventLeaveRoom      = "leaveRoom"
	EventRequestRoom    = "requestRoom"
	EventUpdateSettings = "updateRoomSettings"
	EventSetMode        = "setMode"
	EventStartGame      = "startGame"
	EventAnswer         = "game:answer"
	EventEndGame        = "endGame"
	EventResume         = "game:resume"
	EventGuess          = "guess"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 << 10
	commandTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Coordinator interface {
	CreateRoom(ctx context.Context, connID string, req usecase_game.CreateRoomRequest) (usecase_game.RoomResponse, error)
	JoinRoom(ctx context.Context, connID string, req usecase_game.JoinRoomRequest) (usecase_game.RoomResponse, error)
	LeaveRoom(ctx context.Context, connID string, req usecase_game.LeaveRoomRequest) (usecase_game.LeaveResponse, error)
	RequestRoom(ctx context.Context, connID string, req usecase_game.RequestRoomRequest) (usecase_game.RoomResponse, error)
	UpdateSettings(ctx context.Context, connID string, req usecase_game.UpdateSettingsRequest) (usecase_game.RoomResponse, error)
	SetMode(ctx context.Context, connID string, req usecase_game.SetModeRequest) (usecase_game.RoomResponse, error)
	StartGame(ctx context.Context, connID string, req usecase_game.StartGameRequest) (usecase_game.RoomResponse, error)
	Answer(ctx context.Context, connID string, req usecase_game.AnswerRequest) (usecase_game.AnswerResponse, error)
	EndGame(ctx context.Context, connID string, req usecase_game.EndGameRequest) (usecase_game.EndGameResponse, error)
	Resume(ctx context.Context, connID string, req usecase_game.ResumeRequest) (usecase_game.ResumeResponse, error)
	Guess(ctx context.Context, connID string, req usecase_game.GuessRequest) error
	Disconnect(ctx context.Context, connID string)
}

type Metrics interface {
	CommandHandled(event string, ok bool)
	ConnectionOpened()
	ConnectionClosed()
}

type nopMetrics struct{}

func (nopMetrics) CommandHandled(string, bool) {}
func (nopMetrics) ConnectionOpened()           {}
func (nopMetrics) ConnectionClosed()           {}

type handler func(ctx context.Context, connID string, payload json.RawMessage) (any, error)

// command adapts a typed coordinator method to the raw payload of a frame.
func command[Req, Resp any](fn func(context.Context, string, Req) (Resp, error)) handler {
	return func(ctx context.Context, connID string, payload json.RawMessage) (any, error) {
		var req Req
		if len(payload) > 0 && string(payload) != "null" {
			if err := json.Unmarshal(payload, &req); err != nil {
				return nil, model.NewError(model.ErrValidation, "malformed payload")
			}
		}
		return fn(ctx, connID, req)
	}
}

type inbound struct {
	ID      string          `json:"id"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type Controller struct {
	hub         *Hub
	coordinator Coordinator
	handlers    map[string]handler
	metrics     Metrics

	logger *slog.Logger
}

type ControllerOption func(*Controller)

func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithMetrics(m Metrics) ControllerOption {
	return func(c *Controller) {
		if m != nil {
			c.metrics = m
		}
	}
}

func New(hub *Hub, coordinator Coordinator, opts ...ControllerOption) *Controller {
	c := &Controller{
		hub:         hub,
		coordinator: coordinator,
		metrics:     nopMetrics{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.handlers = map[string]handler{
		EventCreateRoom:     command(coordinator.CreateRoom),
		EventJoinRoom:       command(coordinator.JoinRoom),
		EventLeaveRoom:      command(coordinator.LeaveRoom),
		EventRequestRoom:    command(coordinator.RequestRoom),
		EventUpdateSettings: command(coordinator.UpdateSettings),
		EventSetMode:        command(coordinator.SetMode),
		EventStartGame:      command(coordinator.StartGame),
		EventAnswer:         command(coordinator.Answer),
		EventEndGame:        command(coordinator.EndGame),
		EventResume:         command(coordinator.Resume),
		EventGuess: command(func(ctx context.Context, connID string, req usecase_game.GuessRequest) (any, error) {
			return nil, coordinator.Guess(ctx, connID, req)
		}),
	}
	return c
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", c.serve)
}

func (c *Controller) serve(ctx *gin.Context) {
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Error("failed to upgrade to websocket",
			slog.String("error", err.Error()),
		)
		return
	}

	client := c.hub.RegisterClient(conn)
	c.metrics.ConnectionOpened()
	c.hub.SendTo(client.ID, Message{
		Event:   EventConnected,
		Payload: map[string]string{"connId": client.ID},
	})

	go c.writeLoop(client)
	c.readLoop(client)
}

// readLoop handles one frame at a time so commands from a single connection
// never overlap.
func (c *Controller) readLoop(client *Client) {
	defer func() {
		c.hub.RemoveClient(client)
		client.Conn.Close()
		c.coordinator.Disconnect(context.Background(), client.ID)
		c.metrics.ConnectionClosed()
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("connection closed unexpectedly", "conn_id", client.ID, "error", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil || msg.Event == "" {
			c.hub.SendTo(client.ID, Message{
				Event:   usecase_game.EventRoomError,
				Payload: "malformed message",
			})
			continue
		}
		c.handle(client.ID, msg)
	}
}

func (c *Controller) writeLoop(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Controller) handle(connID string, msg inbound) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	resp, err := c.dispatch(ctx, connID, msg)
	c.metrics.CommandHandled(msg.Event, err == nil)

	if err != nil {
		level := slog.LevelInfo
		if http_common.StatusOf(err) >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		c.logger.Log(ctx, level, "command failed",
			"conn_id", connID, "event", msg.Event, "error", err)
		c.hub.SendTo(connID, Message{Event: errorEvent(msg.Event), Payload: http_common.Message(err)})
	}

	c.hub.SendTo(connID, Message{ID: msg.ID, Event: msg.Event, Payload: ack(resp, err)})
}

func (c *Controller) dispatch(ctx context.Context, connID string, msg inbound) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Join(model.ErrInternal, fmt.Errorf("panic in %s: %v", msg.Event, r))
		}
	}()

	h, ok := c.handlers[msg.Event]
	if !ok {
		return nil, model.NewError(model.ErrValidation, "unknown event "+msg.Event)
	}
	return h(ctx, connID, msg.Payload)
}

func errorEvent(event string) string {
	if strings.HasPrefix(event, "game:") || event == EventEndGame {
		return usecase_game.EventGameError
	}
	return usecase_game.EventRoomError
}

// ack flattens a response into {ok, ...fields}. A failed command still carries
// its response fields when it produced any, e.g. forceAdvance.
func ack(resp any, err error) map[string]any {
	out := make(map[string]any)
	if resp != nil && !reflect.ValueOf(resp).IsZero() {
		if raw, mErr := json.Marshal(resp); mErr == nil {
			_ = json.Unmarshal(raw, &out)
		}
	}

	out["ok"] = err == nil
	if err != nil {
		out["error"] = http_common.Message(err)
	}
	return out
}

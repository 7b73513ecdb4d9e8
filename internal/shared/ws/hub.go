// Package ws — менеджер WebSocket соединений устройств.
//
// Устройство подключается к /ws и в течение authTimeout присылает первое сообщение:
//
//	{"device_id": "<uuid>", "token": "<jwt, необязательно>"}
//
// Без токена соединение анонимное (только DeviceID), с токеном — привязано к UserID.
// Дальше устройство получает сообщения {"type": ..., "data": ...}: тосты,
// запросы координат, рассылку присутствия. Входящие сообщения того же формата
// маршрутизируются по type в обработчики, зарегистрированные через Handle.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"una/internal/shared/logger"
	"una/internal/shared/utils"

	"github.com/gorilla/websocket"
)

const (
	// authTimeout — сколько ждём первое сообщение с device_id/token
	authTimeout = 5 * time.Second

	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 8192
	writeWait      = 10 * time.Second
	sendBuffer     = 256
)

var ErrMissingDevice = errors.New("device_id is required")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: ограничить Origin доменами приложения, когда появится конфиг фронтенда
	CheckOrigin: func(r *http.Request) bool { return true },
}

// AuthFunc проверяет токен и возвращает userID
type AuthFunc func(token string) (userID string, err error)

// MessageHandler обрабатывает входящее сообщение определённого типа
type MessageHandler func(client *Client, data json.RawMessage) error

// Envelope — формат всех сообщений в обе стороны
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client — одно WebSocket соединение
type Client struct {
	ID       string
	DeviceID string
	UserID   string // пусто для анонимного устройства
	conn     *websocket.Conn
	send     chan []byte
	hub      *Hub
}

// Hub хранит активные соединения и доставляет им сообщения
type Hub struct {
	clients    map[string]*Client
	mu         sync.RWMutex
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	authFunc   AuthFunc
	handlers   map[string]MessageHandler
	hmu        sync.RWMutex
	done       chan struct{}
	log        *logger.Logger
}

// NewHub создаёт Hub. После создания нужно запустить hub.Run(ctx) в горутине.
func NewHub(authFunc AuthFunc, log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client, 10),
		unregister: make(chan *Client, 10),
		broadcast:  make(chan []byte, 256),
		authFunc:   authFunc,
		handlers:   make(map[string]MessageHandler),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Handle регистрирует обработчик входящих сообщений типа messageType
func (h *Hub) Handle(messageType string, handler MessageHandler) {
	h.hmu.Lock()
	defer h.hmu.Unlock()
	h.handlers[messageType] = handler
}

func (h *Hub) handler(messageType string) (MessageHandler, bool) {
	h.hmu.RLock()
	defer h.hmu.RUnlock()
	fn, ok := h.handlers[messageType]
	return fn, ok
}

// Run — главный цикл хаба
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, c := range h.clients {
				close(c.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			h.log.Info(logger.Entry{Action: "hub_stopped", Message: "websocket hub stopped"})
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.log.Info(logger.Entry{
				Action:   "client_registered",
				Message:  client.ID,
				UserID:   client.UserID,
				DeviceID: client.DeviceID,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
			}
			h.mu.Unlock()
			h.log.Info(logger.Entry{Action: "client_unregistered", Message: client.ID})

		case message := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// медленный клиент — отключаем
					close(client.send)
					delete(h.clients, id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast отправляет сообщение всем подключенным клиентам
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.log.Error(logger.Entry{Action: "broadcast_dropped", Message: "broadcast channel full"})
	}
}

// deliver отправляет сообщение всем клиентам, для которых match == true; возвращает число получателей
func (h *Hub) deliver(match func(*Client) bool, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, client := range h.clients {
		if !match(client) {
			continue
		}
		select {
		case client.send <- message:
			n++
		default:
			h.log.Warn(logger.Entry{
				Action:   "send_buffer_full",
				Message:  client.ID,
				UserID:   client.UserID,
				DeviceID: client.DeviceID,
			})
		}
	}
	return n
}

// SendToUser отправляет сообщение всем устройствам пользователя
func (h *Hub) SendToUser(userID string, message []byte) int {
	return h.deliver(func(c *Client) bool { return c.UserID != "" && c.UserID == userID }, message)
}

// SendToDevice отправляет сообщение конкретному устройству
func (h *Hub) SendToDevice(deviceID string, message []byte) int {
	return h.deliver(func(c *Client) bool { return c.DeviceID == deviceID }, message)
}

// IsUserConnected проверяет, подключено ли хотя бы одно устройство пользователя
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

// ClientCount — число активных соединений
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS апгрейдит HTTP запрос и аутентифицирует устройство
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error(logger.Entry{
			Action:  "ws_upgrade_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(authTimeout))

	var authMsg struct {
		DeviceID string `json:"device_id"`
		Token    string `json:"token"`
	}
	if err := conn.ReadJSON(&authMsg); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "auth timeout"))
		_ = conn.Close()
		h.log.Warn(logger.Entry{Action: "ws_auth_failed", Message: "no auth message received"})
		return
	}
	if authMsg.DeviceID == "" {
		_ = conn.WriteJSON(map[string]string{"error": ErrMissingDevice.Error()})
		_ = conn.Close()
		h.log.Warn(logger.Entry{Action: "ws_auth_failed", Message: ErrMissingDevice.Error()})
		return
	}

	client := &Client{
		ID:       utils.NewUUID(),
		DeviceID: authMsg.DeviceID,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		hub:      h,
	}

	if authMsg.Token != "" {
		userID, err := h.authFunc(authMsg.Token)
		if err != nil {
			_ = conn.WriteJSON(map[string]string{"error": "invalid token"})
			_ = conn.Close()
			h.log.Warn(logger.Entry{
				Action:   "ws_auth_invalid_token",
				Message:  err.Error(),
				DeviceID: authMsg.DeviceID,
				Error:    &logger.ErrObj{Msg: err.Error()},
			})
			return
		}
		client.UserID = userID
	}

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// подтверждение пишем до старта writePump: один writer на соединение
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteJSON(map[string]string{
		"status":    "authenticated",
		"user_id":   client.UserID,
		"device_id": client.DeviceID,
	})

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn(logger.Entry{
					Action:   "ws_read_error",
					Message:  c.ID,
					DeviceID: c.DeviceID,
					Error:    &logger.ErrObj{Msg: err.Error()},
				})
			}
			return
		}

		var msg Envelope
		if err := json.Unmarshal(message, &msg); err != nil {
			c.hub.log.Warn(logger.Entry{
				Action:   "ws_parse_message_error",
				Message:  err.Error(),
				DeviceID: c.DeviceID,
			})
			continue
		}

		fn, ok := c.hub.handler(msg.Type)
		if !ok {
			c.hub.log.Debug(logger.Entry{
				Action:   "ws_unhandled_message",
				Message:  msg.Type,
				DeviceID: c.DeviceID,
			})
			continue
		}
		if err := fn(c, msg.Data); err != nil {
			c.hub.log.Warn(logger.Entry{
				Action:   "ws_handle_message_error",
				Message:  err.Error(),
				UserID:   c.UserID,
				DeviceID: c.DeviceID,
				Additional: map[string]any{
					"msg_type": msg.Type,
				},
			})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Encode собирает Envelope{type, data}
func Encode(msgType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Data: raw})
}

// BroadcastTyped рассылает typed-сообщение всем
func (h *Hub) BroadcastTyped(msgType string, data any) error {
	msg, err := Encode(msgType, data)
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

// SendTypedToUser отправляет typed-сообщение пользователю, возвращает число устройств
func (h *Hub) SendTypedToUser(userID, msgType string, data any) (int, error) {
	msg, err := Encode(msgType, data)
	if err != nil {
		return 0, err
	}
	return h.SendToUser(userID, msg), nil
}

// SendTypedToDevice отправляет typed-сообщение устройству
func (h *Hub) SendTypedToDevice(deviceID, msgType string, data any) (int, error) {
	msg, err := Encode(msgType, data)
	if err != nil {
		return 0, err
	}
	return h.SendToDevice(deviceID, msg), nil
}

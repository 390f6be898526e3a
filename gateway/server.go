package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/smallnest/agentbridge/config"
	"github.com/smallnest/agentbridge/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin should be checked in production deployments.
		return true
	},
}

// Server is the WebSocket gateway. Clients call JSON-RPC methods over the
// socket; stream events come back as notifications on the channels they
// subscribed to.
type Server struct {
	cfg      *config.GatewayConfig
	handler  *Handler
	notifier *Notifier
	server   *http.Server

	mu      sync.RWMutex
	running bool
}

// NewServer creates a gateway server.
func NewServer(cfg *config.GatewayConfig, handler *Handler, notifier *Notifier) *Server {
	return &Server{
		cfg:      cfg,
		handler:  handler,
		notifier: notifier,
	}
}

// Start begins serving and returns immediately. The server stops when ctx
// is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:      mux,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	go func() {
		logger.Info("gateway server started",
			zap.String("addr", s.server.Addr),
			zap.String("path", s.cfg.Path),
		)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("gateway server error", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.server.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown gateway server", zap.Error(err))
		}
	}

	logger.Info("gateway server stopped")
	return nil
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.cfg.EnableAuth && !s.authenticate(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("failed to upgrade to WebSocket", zap.Error(err))
		return
	}

	conn := NewConnection(ws, s.cfg)
	s.notifier.Track(conn)

	logger.Info("WebSocket connection established",
		zap.String("conn_id", conn.ID),
		zap.String("remote_addr", r.RemoteAddr),
	)

	welcome := NewNotification("connected", map[string]interface{}{
		"conn_id": conn.ID,
		"version": ProtocolVersion,
	})
	conn.SendJSON(welcome)

	go conn.heartbeat()
	go s.readLoop(conn)
}

// authenticate checks the token from the query string or Authorization
// header using a constant-time comparison.
func (s *Server) authenticate(r *http.Request) bool {
	token := r.URL.Query().Get("token")
	if token == "" {
		auth := r.Header.Get("Authorization")
		if len(auth) > 7 && auth[:7] == "Bearer " {
			token = auth[7:]
		}
	}

	if token == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) == 1
}

func (s *Server) readLoop(conn *Connection) {
	defer func() {
		conn.Close()
		s.notifier.Drop(conn.ID)
		logger.Info("WebSocket connection closed",
			zap.String("conn_id", conn.ID),
		)
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Error("WebSocket error",
					zap.String("conn_id", conn.ID),
					zap.Error(err))
			}
			break
		}

		if messageType != websocket.TextMessage {
			continue
		}

		req, err := ParseRequest(data)
		if err != nil {
			logger.Error("failed to parse WebSocket message",
				zap.String("conn_id", conn.ID),
				zap.Error(err))
			conn.SendJSON(NewErrorResponse("", ErrorParseError, "Parse error"))
			continue
		}

		logger.Debug("WebSocket request",
			zap.String("conn_id", conn.ID),
			zap.String("method", req.Method),
		)

		resp := s.handler.HandleRequest(conn.ID, req)
		if err := conn.SendJSON(resp); err != nil {
			logger.Error("failed to send WebSocket response",
				zap.String("conn_id", conn.ID),
				zap.Error(err))
		}
	}
}

// Connection wraps one WebSocket client. Writes are serialized by a
// mutex; gorilla connections allow only one concurrent writer.
type Connection struct {
	*websocket.Conn
	ID           string
	pingInterval time.Duration
	pongTimeout  time.Duration
	mu           sync.Mutex
}

// NewConnection wraps an upgraded socket.
func NewConnection(ws *websocket.Conn, cfg *config.GatewayConfig) *Connection {
	return &Connection{
		Conn:         ws,
		ID:           uuid.New().String(),
		pingInterval: cfg.PingInterval,
		pongTimeout:  cfg.PongTimeout,
	}
}

// SendJSON writes one JSON message.
func (c *Connection) SendJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.WriteJSON(v)
}

// SendMessage writes one raw message.
func (c *Connection) SendMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.WriteMessage(messageType, data)
}

func (c *Connection) heartbeat() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	c.SetPongHandler(func(string) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.SetReadDeadline(time.Now().Add(c.pongTimeout))
	})

	for range ticker.C {
		c.mu.Lock()
		if err := c.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			c.mu.Unlock()
			return
		}
		if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}
}

// Close sends a close frame and closes the socket.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.WriteMessage(websocket.CloseMessage, message)

	return c.Conn.Close()
}

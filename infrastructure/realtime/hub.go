/*
Package realtime 经理端新订单实时推送

Hub 维护 accountID -> session 的注册表，读写由互斥锁保护。连接建立前先校验
令牌并读取账户最新的角色与能力标志；广播只发给启用订单管理且未被停用的经理。
推送尽力而为，不确认、不重试、不回放。
*/
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"orderflow/config"
	"orderflow/domain/account"
	"orderflow/domain/order"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageTypeNewOrder type field of the new-order push
const MessageTypeNewOrder = "NEW_ORDER"

// Admission verifies a session token and loads the account profile at connect time
type Admission interface {
	Authenticate(ctx context.Context, token string) (account.Claims, error)
	Profile(ctx context.Context, accountID int64) (account.Profile, error)
}

type newOrderMessage struct {
	Type               string    `json:"type"`
	OrderID            int64     `json:"orderId"`
	OrderNumber        string    `json:"orderNumber"`
	OrderPlacementTime time.Time `json:"orderPlacementTime"`
}

// Session one registered connection
type Session struct {
	profile account.Profile
	conn    *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func newSession(profile account.Profile, conn *websocket.Conn) *Session {
	return &Session{profile: profile, conn: conn, done: make(chan struct{})}
}

func (s *Session) Profile() account.Profile { return s.profile }

func (s *Session) write(messageType int, data []byte, timeout time.Duration) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if timeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	return s.conn.WriteMessage(messageType, data)
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

type Hub struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	admission    Admission
	managerRole  string
	writeTimeout time.Duration
	pingInterval time.Duration
	upgrader     websocket.Upgrader
	log          *zap.Logger
}

func NewHub(cfg config.RealtimeConfig, managerRole string, admission Admission, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	if managerRole == "" {
		managerRole = account.RoleManager
	}
	h := &Hub{
		sessions:     make(map[int64]*Session),
		admission:    admission,
		managerRole:  managerRole,
		writeTimeout: cfg.WriteTimeout,
		pingInterval: cfg.PingInterval,
		log:          log.Named("realtime"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

// originChecker 未配置白名单时接受任意 Origin
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Admit verifies the token and returns the account's current profile
func (h *Hub) Admit(ctx context.Context, token string) (account.Profile, error) {
	if h.admission == nil {
		return account.Profile{}, errors.New("realtime admission is not configured")
	}
	claims, err := h.admission.Authenticate(ctx, token)
	if err != nil {
		return account.Profile{}, err
	}
	return h.admission.Profile(ctx, claims.AccountID)
}

// Register adds the session; an existing session of the same account is replaced and closed
func (h *Hub) Register(profile account.Profile, conn *websocket.Conn) *Session {
	s := newSession(profile, conn)

	h.mu.Lock()
	previous := h.sessions[profile.AccountID]
	h.sessions[profile.AccountID] = s
	h.mu.Unlock()

	if previous != nil {
		previous.close()
	}
	h.log.Debug("Session registered",
		zap.Int64("account_id", profile.AccountID),
		zap.String("role", profile.Role))
	return s
}

// Unregister removes s only while it is still the registered session of its account
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	if current, ok := h.sessions[s.profile.AccountID]; ok && current == s {
		delete(h.sessions, s.profile.AccountID)
	}
	h.mu.Unlock()
	s.close()
}

// Len number of registered sessions
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) eligible() []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		if s.profile.ReceivesNewOrders(h.managerRole) {
			out = append(out, s)
		}
	}
	return out
}

// PublishNewOrder pushes the notice to every eligible session.
// A failed recipient is dropped and reported in the joined error; the rest still receive it.
func (h *Hub) PublishNewOrder(ctx context.Context, notice order.NewOrderNotice) error {
	data, err := json.Marshal(newOrderMessage{
		Type:               MessageTypeNewOrder,
		OrderID:            notice.OrderID,
		OrderNumber:        notice.OrderNumber,
		OrderPlacementTime: notice.PlacedAt,
	})
	if err != nil {
		return fmt.Errorf("encode new order message: %w", err)
	}

	var errs []error
	delivered := 0
	for _, s := range h.eligible() {
		if err := s.write(websocket.TextMessage, data, h.writeTimeout); err != nil {
			h.log.Warn("Failed to push new order",
				zap.Int64("account_id", s.profile.AccountID),
				zap.Int64("order_id", notice.OrderID),
				zap.Error(err))
			h.Unregister(s)
			errs = append(errs, fmt.Errorf("account %d: %w", s.profile.AccountID, err))
			continue
		}
		delivered++
	}

	h.log.Debug("New order pushed",
		zap.Int64("order_id", notice.OrderID),
		zap.Int("delivered", delivered),
		zap.Int("failed", len(errs)))
	return errors.Join(errs...)
}

// ServeWS admits the token from the query string, upgrades and blocks until the peer disconnects
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Admit(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		h.log.Info("Websocket admission refused", zap.Error(err))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade 已写回错误响应
		h.log.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	s := h.Register(profile, conn)
	defer h.Unregister(s)

	if h.pingInterval > 0 {
		go h.keepAlive(s)
	}
	h.readLoop(s)
}

// readLoop 丢弃客户端消息，只用于检测断开与处理 pong
func (h *Hub) readLoop(s *Session) {
	if h.pingInterval > 0 {
		wait := 2 * h.pingInterval
		_ = s.conn.SetReadDeadline(time.Now().Add(wait))
		s.conn.SetPongHandler(func(string) error {
			return s.conn.SetReadDeadline(time.Now().Add(wait))
		})
	}
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("Websocket closed", zap.Int64("account_id", s.profile.AccountID), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) keepAlive(s *Session) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil, h.writeTimeout); err != nil {
				h.Unregister(s)
				return
			}
		}
	}
}

// Close drops every session
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[int64]*Session)
	h.mu.Unlock()
	for _, s := range sessions {
		s.close()
	}
}

package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"orderflow/config"
	"orderflow/domain/account"
	"orderflow/domain/order"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeAdmission token 即账户 ID 的字符串形式
type fakeAdmission struct {
	profiles map[string]account.Profile
}

func (f *fakeAdmission) Authenticate(ctx context.Context, token string) (account.Claims, error) {
	p, ok := f.profiles[token]
	if !ok {
		return account.Claims{}, account.NewInvalidTokenError("unknown token")
	}
	return account.Claims{AccountID: p.AccountID, Role: p.Role}, nil
}

func (f *fakeAdmission) Profile(ctx context.Context, accountID int64) (account.Profile, error) {
	for _, p := range f.profiles {
		if p.AccountID == accountID {
			return p, nil
		}
	}
	return account.Profile{}, account.NewAccountNotFoundError(accountID)
}

func manager(id int64, orderManagement, terminated bool) account.Profile {
	return account.Profile{
		AccountID: id,
		Role:      account.RoleManager,
		Capabilities: account.Capabilities{
			OrderManagement: orderManagement,
			Terminated:      terminated,
		},
	}
}

func newTestHub(t *testing.T, profiles map[string]account.Profile) (*Hub, *httptest.Server, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	hub := NewHub(config.RealtimeConfig{WriteTimeout: time.Second}, account.RoleManager,
		&fakeAdmission{profiles: profiles}, zap.New(core))
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv, logs
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", token, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSessions(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() != n {
		if time.Now().After(deadline) {
			t.Fatalf("sessions = %d, want %d", hub.Len(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readNotice(conn *websocket.Conn, wait time.Duration) (newOrderMessage, error) {
	var msg newOrderMessage
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return msg, err
	}
	err = json.Unmarshal(data, &msg)
	return msg, err
}

func TestPublishNewOrderEligibility(t *testing.T) {
	profiles := map[string]account.Profile{
		"eligible":   manager(1, true, false),
		"disabled":   manager(2, false, false),
		"terminated": manager(3, true, true),
		"client": {
			AccountID:    4,
			Role:         account.RoleClient,
			Capabilities: account.Capabilities{OrderManagement: true},
		},
	}
	hub, srv, _ := newTestHub(t, profiles)

	conns := make(map[string]*websocket.Conn, len(profiles))
	for token := range profiles {
		conns[token] = dial(t, srv, token)
	}
	waitForSessions(t, hub, len(profiles))

	placedAt := time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)
	if err := hub.PublishNewOrder(context.Background(), order.NewOrderNotice{
		OrderID: 42, OrderNumber: "VR-42", PlacedAt: placedAt,
	}); err != nil {
		t.Fatalf("PublishNewOrder() error = %v", err)
	}

	msg, err := readNotice(conns["eligible"], 2*time.Second)
	if err != nil {
		t.Fatalf("eligible manager did not receive the event: %v", err)
	}
	if msg.Type != MessageTypeNewOrder || msg.OrderID != 42 || msg.OrderNumber != "VR-42" || !msg.OrderPlacementTime.Equal(placedAt) {
		t.Errorf("unexpected message %+v", msg)
	}

	for _, token := range []string{"disabled", "terminated", "client"} {
		if _, err := readNotice(conns[token], 200*time.Millisecond); err == nil {
			t.Errorf("%s session must not receive NEW_ORDER", token)
		}
	}
}

func TestAdmissionRefusesInvalidToken(t *testing.T) {
	hub, srv, _ := newTestHub(t, map[string]account.Profile{"eligible": manager(1, true, false)})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=forged"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial with forged token must fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("response = %v, want 401", resp)
	}
	if hub.Len() != 0 {
		t.Errorf("refused connection must not be registered")
	}
}

func TestReconnectReplacesSession(t *testing.T) {
	hub, srv, _ := newTestHub(t, map[string]account.Profile{"eligible": manager(1, true, false)})

	first := dial(t, srv, "eligible")
	waitForSessions(t, hub, 1)
	second := dial(t, srv, "eligible")

	// 旧连接被服务端关闭
	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := first.ReadMessage(); err == nil {
		t.Fatal("replaced session should be closed")
	}
	waitForSessions(t, hub, 1)

	if err := hub.PublishNewOrder(context.Background(), order.NewOrderNotice{OrderID: 7, OrderNumber: "VR-7"}); err != nil {
		t.Fatalf("PublishNewOrder() error = %v", err)
	}
	if msg, err := readNotice(second, 2*time.Second); err != nil || msg.OrderID != 7 {
		t.Fatalf("new session should receive the event: %+v, %v", msg, err)
	}
}

func TestPublishIsolatesFailedRecipient(t *testing.T) {
	hub, srv, logs := newTestHub(t, map[string]account.Profile{"eligible": manager(1, true, false)})
	healthy := dial(t, srv, "eligible")
	waitForSessions(t, hub, 1)

	// 注册一个服务端已关闭的连接
	broken := make(chan struct{})
	brokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := hub.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(manager(99, true, false), conn)
		conn.Close()
		close(broken)
	}))
	defer brokenSrv.Close()
	brokenConn := dial(t, brokenSrv, "")
	defer brokenConn.Close()
	<-broken
	waitForSessions(t, hub, 2)

	err := hub.PublishNewOrder(context.Background(), order.NewOrderNotice{OrderID: 5, OrderNumber: "VR-5"})
	if err == nil {
		t.Fatal("expected the failed recipient to be reported")
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) || len(joined.Unwrap()) != 1 {
		t.Errorf("expected exactly one recipient failure, got %v", err)
	}

	if msg, err := readNotice(healthy, 2*time.Second); err != nil || msg.OrderID != 5 {
		t.Fatalf("healthy session should still receive the event: %+v, %v", msg, err)
	}
	if hub.Len() != 1 {
		t.Errorf("failed session should be dropped, sessions = %d", hub.Len())
	}
	if logs.FilterMessage("Failed to push new order").Len() != 1 {
		t.Errorf("expected one warning for the failed recipient")
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://admin.example.com"})
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://admin.example.com", true},
		{"https://evil.example.com", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := check(r); got != tt.want {
			t.Errorf("origin %q: got %v, want %v", tt.origin, got, tt.want)
		}
	}
	if !originChecker(nil)(httptest.NewRequest(http.MethodGet, "/ws", nil)) {
		t.Error("empty allow list accepts any origin")
	}
}

package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/deskline/deskline-server/internal/auth"
	"github.com/deskline/deskline-server/internal/config"
	"github.com/deskline/deskline-server/internal/core"
	"github.com/deskline/deskline-server/internal/proto"
	"github.com/deskline/deskline-server/internal/store/sqlite"
)

func startTestServer(t *testing.T) (*httptest.Server, *auth.Service) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "deskline",
		Audience: "deskline",
		TTL:      time.Hour,
	})

	logger := zerolog.New(nil)
	registry := core.NewRegistry(core.DefaultLimiterMax, core.DefaultLimiterWindow)
	fanout := core.NewFanout(registry, &logger)
	router := core.NewRouter(registry, fanout, st, &logger)

	server := NewServer(registry, router, authService, &config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
	}, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, authService
}

func dialWS(t *testing.T, ctx context.Context, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	return conn
}

func sendInbound(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", msgType, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// wireOutbound mirrors proto.Outbound with raw data so tests can decode the
// payload per event.
type wireOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *proto.Error    `json:"error,omitempty"`
}

func readOutbound(t *testing.T, ctx context.Context, conn *websocket.Conn) wireOutbound {
	t.Helper()

	var outbound wireOutbound
	if err := wsjson.Read(ctx, conn, &outbound); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return outbound
}

// awaitEvent reads frames until one carries the named event. Error frames
// fail the test immediately.
func awaitEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()

	for {
		outbound := readOutbound(t, ctx, conn)
		if outbound.Type == proto.OutboundTypeError {
			t.Fatalf("error frame while waiting for %q: %+v", event, outbound.Error)
		}
		if outbound.Event == event {
			return outbound.Data
		}
	}
}

func handshakeWS(t *testing.T, ctx context.Context, conn *websocket.Conn, token string) {
	t.Helper()
	sendInbound(t, ctx, conn, proto.InboundTypeHello, proto.HelloData{Token: token, Protocol: proto.ProtocolVersion})
}

func guestToken(t *testing.T, authService *auth.Service, name string) string {
	t.Helper()

	token, _, err := authService.GuestToken(name)
	if err != nil {
		t.Fatalf("guest token: %v", err)
	}
	return token
}

func agentToken(t *testing.T, authService *auth.Service, username string) string {
	t.Helper()

	token, err := authService.RegisterAgent(context.Background(), username, "password123")
	if err != nil {
		t.Fatalf("register agent: %v", err)
	}
	return token
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deskline/deskline-server/internal/proto"
)

func postJSON(t *testing.T, ts *httptest.Server, path string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := ts.Client().Post(ts.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getWithToken(t *testing.T, ts *httptest.Server, path, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	ts, _ := startTestServer(t)

	resp := postJSON(t, ts, "/api/register", RegisterRequest{Username: "support_sam", Password: "hunter22"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status: %d", resp.StatusCode)
	}
	var created AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if created.Token == "" {
		t.Fatal("expected a token")
	}

	resp = postJSON(t, ts, "/api/register", RegisterRequest{Username: "support_sam", Password: "hunter22"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status: %d", resp.StatusCode)
	}

	resp = postJSON(t, ts, "/api/login", LoginRequest{Username: "support_sam", Password: "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login status: %d", resp.StatusCode)
	}

	resp = postJSON(t, ts, "/api/login", LoginRequest{Username: "support_sam", Password: "hunter22"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status: %d", resp.StatusCode)
	}
}

func TestGuestEndpoint(t *testing.T) {
	ts, _ := startTestServer(t)

	resp := postJSON(t, ts, "/api/guest", GuestRequest{Name: "alice"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("guest status: %d", resp.StatusCode)
	}
	var auth AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		t.Fatalf("decode guest response: %v", err)
	}
	if auth.Token == "" || auth.Identity != "alice" {
		t.Fatalf("unexpected guest response: %+v", auth)
	}
}

func TestTicketEndpointsRequireAgent(t *testing.T) {
	ts, authService := startTestServer(t)

	resp := getWithToken(t, ts, "/api/tickets", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token status: %d", resp.StatusCode)
	}

	resp = getWithToken(t, ts, "/api/tickets", guestToken(t, authService, "alice"))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("guest token status: %d", resp.StatusCode)
	}
}

func TestTicketListingAndLookup(t *testing.T) {
	ts, authService := startTestServer(t)
	token := agentToken(t, authService, "support_sam")

	resp := getWithToken(t, ts, "/api/tickets", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status: %d", resp.StatusCode)
	}
	var empty []TicketResponse
	if err := json.NewDecoder(resp.Body).Decode(&empty); err != nil {
		t.Fatalf("decode empty list: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no tickets, got %+v", empty)
	}

	// open a ticket over the socket, then observe it through the API
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	agentConn := dialWS(t, ctx, ts)
	handshakeWS(t, ctx, agentConn, token)
	sendInbound(t, ctx, agentConn, proto.InboundTypeJoinDesk, struct{}{})

	guestConn := dialWS(t, ctx, ts)
	handshakeWS(t, ctx, guestConn, guestToken(t, authService, "bob"))
	sendInbound(t, ctx, guestConn, proto.InboundTypeSend, proto.SendData{Text: "cannot log in"})
	awaitEvent(t, ctx, agentConn, "ticket_opened")

	resp = getWithToken(t, ts, "/api/tickets", token)
	var tickets []TicketResponse
	if err := json.NewDecoder(resp.Body).Decode(&tickets); err != nil {
		t.Fatalf("decode ticket list: %v", err)
	}
	if len(tickets) != 1 || tickets[0].User != "bob" || tickets[0].Message != "cannot log in" {
		t.Fatalf("unexpected ticket list: %+v", tickets)
	}

	resp = getWithToken(t, ts, "/api/tickets/user/bob", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lookup status: %d", resp.StatusCode)
	}
	var ticket TicketResponse
	if err := json.NewDecoder(resp.Body).Decode(&ticket); err != nil {
		t.Fatalf("decode ticket: %v", err)
	}
	if ticket.Room != tickets[0].Room {
		t.Fatalf("lookup returned a different room: %s vs %s", ticket.Room, tickets[0].Room)
	}

	resp = getWithToken(t, ts, "/api/tickets/user/nobody", token)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("ghost lookup status: %d", resp.StatusCode)
	}
}

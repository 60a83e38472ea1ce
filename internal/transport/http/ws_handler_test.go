package http

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/deskline/deskline-server/internal/core"
	"github.com/deskline/deskline-server/internal/proto"
)

func TestHealthEndpoint(t *testing.T) {
	ts, _ := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebSocketRejectsInvalidToken(t *testing.T) {
	ts, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, ts)
	handshakeWS(t, ctx, conn, "not-a-token")

	outbound := readOutbound(t, ctx, conn)
	if outbound.Type != proto.OutboundTypeError {
		t.Fatalf("expected error frame, got %+v", outbound)
	}
	if outbound.Error == nil || outbound.Error.Code != core.ErrCodeUnauthorized {
		t.Fatalf("unexpected error: %+v", outbound.Error)
	}
}

func TestSupportTicketLifecycle(t *testing.T) {
	ts, authService := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	agentConn := dialWS(t, ctx, ts)
	handshakeWS(t, ctx, agentConn, agentToken(t, authService, "support_sam"))
	sendInbound(t, ctx, agentConn, proto.InboundTypeJoinDesk, struct{}{})

	guestConn := dialWS(t, ctx, ts)
	handshakeWS(t, ctx, guestConn, guestToken(t, authService, "alice"))

	sendInbound(t, ctx, guestConn, proto.InboundTypeSend, proto.SendData{Text: "my printer is on fire"})

	var opened proto.EventTicket
	if err := json.Unmarshal(awaitEvent(t, ctx, agentConn, "ticket_opened"), &opened); err != nil {
		t.Fatalf("unmarshal ticket_opened: %v", err)
	}
	if opened.User != "alice" || opened.Message != "my printer is on fire" {
		t.Fatalf("unexpected ticket: %+v", opened)
	}
	if opened.Status != string(core.StatusOpen) {
		t.Fatalf("unexpected status: %s", opened.Status)
	}

	sendInbound(t, ctx, agentConn, proto.InboundTypeClaim, proto.ClaimData{Room: opened.Room})

	var history proto.EventHistory
	if err := json.Unmarshal(awaitEvent(t, ctx, agentConn, "history"), &history); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if len(history.Messages) != 1 || history.Messages[0].Text != "my printer is on fire" {
		t.Fatalf("unexpected history: %+v", history)
	}

	var announce proto.EventMessage
	if err := json.Unmarshal(awaitEvent(t, ctx, guestConn, "conversation_started"), &announce); err != nil {
		t.Fatalf("unmarshal announcement: %v", err)
	}
	if announce.User != core.AnnouncementSender || announce.Text != core.AgentJoinedNotice {
		t.Fatalf("unexpected announcement: %+v", announce)
	}

	sendInbound(t, ctx, agentConn, proto.InboundTypeSend, proto.SendData{Text: "how can I help?"})

	var fromAgent proto.EventMessage
	if err := json.Unmarshal(awaitEvent(t, ctx, guestConn, "message"), &fromAgent); err != nil {
		t.Fatalf("unmarshal agent message: %v", err)
	}
	if fromAgent.User != "support_sam" || fromAgent.Text != "how can I help?" {
		t.Fatalf("unexpected message: %+v", fromAgent)
	}

	sendInbound(t, ctx, guestConn, proto.InboundTypeSend, proto.SendData{Text: "it stopped, thanks"})

	var fromGuest proto.EventMessage
	if err := json.Unmarshal(awaitEvent(t, ctx, agentConn, "message"), &fromGuest); err != nil {
		t.Fatalf("unmarshal guest message: %v", err)
	}
	if fromGuest.User != "alice" || fromGuest.Text != "it stopped, thanks" {
		t.Fatalf("unexpected message: %+v", fromGuest)
	}

	sendInbound(t, ctx, agentConn, proto.InboundTypeClose, proto.CloseData{Room: opened.Room})

	var closedForGuest proto.EventClosed
	if err := json.Unmarshal(awaitEvent(t, ctx, guestConn, "ticket_closed"), &closedForGuest); err != nil {
		t.Fatalf("unmarshal ticket_closed: %v", err)
	}
	if closedForGuest.Room != opened.Room {
		t.Fatalf("unexpected closed room: %s", closedForGuest.Room)
	}
	awaitEvent(t, ctx, agentConn, "ticket_closed")
}

func TestWebSocketTicketDiscovery(t *testing.T) {
	ts, authService := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	agentConn := dialWS(t, ctx, ts)
	handshakeWS(t, ctx, agentConn, agentToken(t, authService, "support_sam"))
	sendInbound(t, ctx, agentConn, proto.InboundTypeJoinDesk, struct{}{})

	guestConn := dialWS(t, ctx, ts)
	handshakeWS(t, ctx, guestConn, guestToken(t, authService, "bob"))
	sendInbound(t, ctx, guestConn, proto.InboundTypeSend, proto.SendData{Text: "forgot my password"})

	// serialize on the desk notification so the listing sees the ticket
	awaitEvent(t, ctx, agentConn, "ticket_opened")

	sendInbound(t, ctx, agentConn, proto.InboundTypeListTickets, struct{}{})

	var list proto.EventTicketList
	if err := json.Unmarshal(awaitEvent(t, ctx, agentConn, "ticket_list"), &list); err != nil {
		t.Fatalf("unmarshal ticket_list: %v", err)
	}
	if len(list.Tickets) != 1 || list.Tickets[0].User != "bob" {
		t.Fatalf("unexpected ticket list: %+v", list)
	}

	sendInbound(t, ctx, agentConn, proto.InboundTypeLookup, proto.LookupData{User: "bob"})

	var ticket proto.EventTicket
	if err := json.Unmarshal(awaitEvent(t, ctx, agentConn, "ticket"), &ticket); err != nil {
		t.Fatalf("unmarshal ticket: %v", err)
	}
	if ticket.Message != "forgot my password" {
		t.Fatalf("unexpected ticket: %+v", ticket)
	}
}

func TestRequesterCannotUseAgentCommands(t *testing.T) {
	ts, authService := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	guestConn := dialWS(t, ctx, ts)
	handshakeWS(t, ctx, guestConn, guestToken(t, authService, "mallory"))

	sendInbound(t, ctx, guestConn, proto.InboundTypeClaim, proto.ClaimData{Room: "ab12cd34"})

	outbound := readOutbound(t, ctx, guestConn)
	if outbound.Type != proto.OutboundTypeError {
		t.Fatalf("expected error frame, got %+v", outbound)
	}
	if outbound.Error == nil || outbound.Error.Code != core.ErrCodeUnauthorized {
		t.Fatalf("unexpected error: %+v", outbound.Error)
	}

	sendInbound(t, ctx, guestConn, proto.InboundTypeListTickets, struct{}{})
	outbound = readOutbound(t, ctx, guestConn)
	if outbound.Error == nil || outbound.Error.Code != core.ErrCodeUnauthorized {
		t.Fatalf("unexpected error: %+v", outbound.Error)
	}
}

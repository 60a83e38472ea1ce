package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deskline/deskline-server/internal/auth"
	"github.com/deskline/deskline-server/internal/core"
	"github.com/deskline/deskline-server/internal/proto"
)

// WSHandler upgrades HTTP connections and bridges them to core sessions.
type WSHandler struct {
	registry    *core.Registry
	router      *core.Router
	authService *auth.Service
	log         *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(registry *core.Registry, router *core.Router, authService *auth.Service, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		registry:    registry,
		router:      router,
		authService: authService,
		log:         logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	sess, err := h.handshake(ctx, conn)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws handshake rejected")
		_ = wsjson.Write(ctx, conn, proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "authentication required"},
		})
		conn.Close(websocket.StatusPolicyViolation, "unauthorized")
		return
	}
	defer h.registry.Disconnect(sess.ID)

	h.log.Info().
		Str("session_id", sess.ID).
		Str("identity", sess.Identity).
		Str("role", string(sess.Role)).
		Msg("session connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Direct replies (ticket listings, lookups, protocol errors) share the
	// writer with fanout events via this channel; the connection has a
	// single writing goroutine.
	replies := make(chan proto.Outbound, 8)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, sess, replies)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, sess, replies)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	h.log.Info().Str("session_id", sess.ID).Msg("session disconnected")

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// handshake reads the hello frame and registers the session. Identity and
// role come exclusively from the validated token; the core never sees
// credentials.
func (h *WSHandler) handshake(ctx context.Context, conn *websocket.Conn) (*core.Session, error) {
	var inbound proto.Inbound
	if err := wsjson.Read(ctx, conn, &inbound); err != nil {
		return nil, fmt.Errorf("read hello: %w", err)
	}
	if inbound.Type != proto.InboundTypeHello {
		return nil, fmt.Errorf("expected hello, got %q", inbound.Type)
	}

	var hello proto.HelloData
	if err := json.Unmarshal(inbound.Data, &hello); err != nil {
		return nil, fmt.Errorf("decode hello: %w", err)
	}

	claims, err := h.authService.ValidateToken(hello.Token)
	if err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}

	role := core.RoleRequester
	if claims.Role == auth.RoleAgent {
		role = core.RoleAgent
	}

	return h.registry.Connect(uuid.New().String(), claims.Username, role), nil
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sess *core.Session, replies chan<- proto.Outbound) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		if outbound, ok := h.dispatch(ctx, sess, inbound); ok {
			select {
			case replies <- outbound:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// dispatch maps one inbound envelope to a router or registry call. The
// returned outbound, if any, is a direct reply for this client only.
func (h *WSHandler) dispatch(ctx context.Context, sess *core.Session, inbound proto.Inbound) (proto.Outbound, bool) {
	switch inbound.Type {
	case proto.InboundTypeSend:
		var send proto.SendData
		if err := json.Unmarshal(inbound.Data, &send); err != nil {
			return badRequest("invalid send payload"), true
		}
		if _, err := h.router.HandleSend(ctx, sess, send.Text); err != nil {
			return errorOutbound(err), true
		}
		return proto.Outbound{}, false

	case proto.InboundTypeClaim:
		var claim proto.ClaimData
		if err := json.Unmarshal(inbound.Data, &claim); err != nil || claim.Room == "" {
			return badRequest("room is required"), true
		}
		if sess.Role != core.RoleAgent {
			return unauthorized(), true
		}
		if _, err := h.router.HandleClaim(ctx, sess, claim.Room); err != nil {
			return errorOutbound(err), true
		}
		return proto.Outbound{}, false

	case proto.InboundTypeClose:
		var cl proto.CloseData
		if err := json.Unmarshal(inbound.Data, &cl); err != nil || cl.Room == "" {
			return badRequest("room is required"), true
		}
		if err := h.router.HandleClose(ctx, sess, cl.Room); err != nil {
			return errorOutbound(err), true
		}
		return proto.Outbound{}, false

	case proto.InboundTypeJoinDesk:
		if sess.Role != core.RoleAgent {
			return unauthorized(), true
		}
		h.registry.JoinDesk(sess)
		return proto.Outbound{}, false

	case proto.InboundTypeListTickets:
		if sess.Role != core.RoleAgent {
			return unauthorized(), true
		}
		open := h.router.OpenTickets()
		tickets := make([]proto.EventTicket, 0, len(open))
		for i := range open {
			tickets = append(tickets, ticketToProto(&open[i]))
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "ticket_list",
			Data:  proto.EventTicketList{Tickets: tickets},
		}, true

	case proto.InboundTypeLookup:
		var lookup proto.LookupData
		if err := json.Unmarshal(inbound.Data, &lookup); err != nil || lookup.User == "" {
			return badRequest("user is required"), true
		}
		if sess.Role != core.RoleAgent {
			return unauthorized(), true
		}
		ticket, err := h.router.LookupTicket(lookup.User)
		if err != nil {
			return errorOutbound(err), true
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "ticket",
			Data:  ticketToProto(ticket),
		}, true

	default:
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: "invalid_message", Msg: "unknown message type"},
		}, true
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sess *core.Session, replies <-chan proto.Outbound) error {
	for {
		select {
		case event, ok := <-sess.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("session_id", sess.ID).Msg("write ws event")
				return err
			}
		case outbound := <-replies:
			if err := wsjson.Write(ctx, conn, outbound); err != nil {
				h.log.Error().Err(err).Str("session_id", sess.ID).Msg("write ws reply")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func badRequest(msg string) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg},
	}
}

func unauthorized() proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "agent role required"},
	}
}

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/deskline/deskline-server/internal/proto"
)

// Interactive client for manual testing. Guest mode opens a ticket with the
// first typed line; agent mode joins the desk and drives tickets with
// /list, /claim <room>, /close <room> and /lookup <user>.
func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	api := flag.String("api", "http://localhost:8080", "server base URL")
	agent := flag.Bool("agent", false, "connect as a support agent")
	user := flag.String("user", "cli-user", "guest display name or agent username")
	pass := flag.String("pass", "", "agent password (agent mode only)")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	token, err := fetchToken(ctx, *api, *agent, *user, *pass)
	if err != nil {
		return err
	}

	wsURL := strings.Replace(*api, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(msgType string, data any) {
		payload, err := json.Marshal(data)
		if err != nil {
			log.Printf("marshal %s: %v", msgType, err)
			return
		}
		if writeErr := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: payload}); writeErr != nil {
			cancel()
			log.Printf("send: %v", writeErr)
		}
	}

	send(proto.InboundTypeHello, proto.HelloData{Token: token, Protocol: proto.ProtocolVersion})
	if *agent {
		send(proto.InboundTypeJoinDesk, struct{}{})
		fmt.Println("Connected as agent. Commands: /list, /claim <room>, /close <room>, /lookup <user>.")
	} else {
		fmt.Println("Connected. First message opens a support ticket; Ctrl+C to exit.")
	}

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	inputLoop(ctx, *agent, send)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func fetchToken(ctx context.Context, api string, agent bool, user, pass string) (string, error) {
	path := "/api/guest"
	body := map[string]string{"name": user}
	if agent {
		path = "/api/login"
		body = map[string]string{"username": user, "password": pass}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, api+path, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth failed with status %d", resp.StatusCode)
	}

	var auth struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", err
	}
	return auth.Token, nil
}

func inputLoop(ctx context.Context, agent bool, send func(string, any)) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if agent && strings.HasPrefix(line, "/") {
			cmd, arg, _ := strings.Cut(line, " ")
			switch cmd {
			case "/list":
				send(proto.InboundTypeListTickets, struct{}{})
			case "/claim":
				send(proto.InboundTypeClaim, proto.ClaimData{Room: arg})
			case "/close":
				send(proto.InboundTypeClose, proto.CloseData{Room: arg})
			case "/lookup":
				send(proto.InboundTypeLookup, proto.LookupData{User: arg})
			default:
				fmt.Printf("unknown command %s\n", cmd)
			}
			continue
		}

		send(proto.InboundTypeSend, proto.SendData{Text: line})
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event,omitempty"`
			Data  json.RawMessage `json:"data,omitempty"`
			Error *proto.Error    `json:"error,omitempty"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if outbound.Error != nil {
			fmt.Printf("! %s: %s\n", outbound.Error.Code, outbound.Error.Msg)
			continue
		}

		switch outbound.Event {
		case "message", "conversation_started":
			var evt proto.EventMessage
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal %s: %v", outbound.Event, err)
				continue
			}
			fmt.Printf("[%s] %s: %s\n", evt.Room, evt.User, evt.Text)
		case "ticket_opened", "ticket_claimed", "ticket":
			var evt proto.EventTicket
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal %s: %v", outbound.Event, err)
				continue
			}
			fmt.Printf("* %s room=%s user=%s message=%q status=%s\n",
				outbound.Event, evt.Room, evt.User, evt.Message, evt.Status)
		case "ticket_list":
			var evt proto.EventTicketList
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal ticket_list: %v", err)
				continue
			}
			fmt.Printf("* %d open ticket(s)\n", len(evt.Tickets))
			for _, t := range evt.Tickets {
				fmt.Printf("    room=%s user=%s message=%q\n", t.Room, t.User, t.Message)
			}
		case "history":
			var evt proto.EventHistory
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal history: %v", err)
				continue
			}
			fmt.Printf("* history for %s (%d message(s))\n", evt.Room, len(evt.Messages))
			for _, m := range evt.Messages {
				fmt.Printf("    %s: %s\n", m.User, m.Text)
			}
		case "ticket_closed":
			var evt proto.EventClosed
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal ticket_closed: %v", err)
				continue
			}
			fmt.Printf("* ticket closed room=%s\n", evt.Room)
		default:
			fmt.Printf("* unhandled frame type=%s event=%s\n", outbound.Type, outbound.Event)
		}
	}
}

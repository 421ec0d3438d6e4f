package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/transport/ws"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", "", "bearer token")
	room := flag.String("room", "1", "room id")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := ws.New(ws.Options{URL: *addr, Token: *token}, nil)
	go func() { _ = client.Run(ctx) }()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("no echo of the test message before timeout")
		case ev, ok := <-client.Events():
			if !ok {
				return fmt.Errorf("connection closed")
			}
			fmt.Printf("event: kind=%s room=%s", ev.Kind, ev.RoomID)
			if ev.Error != nil {
				fmt.Printf(" error=%s: %s", ev.Error.Code, ev.Error.Message)
			}
			fmt.Println()

			switch ev.Kind {
			case core.EventConnected:
				if err := client.Join(*room); err != nil {
					return fmt.Errorf("join: %w", err)
				}
			case core.EventRoomJoined:
				if err := client.Send(*room, *text); err != nil {
					return fmt.Errorf("send: %w", err)
				}
			case core.EventMessage:
				fmt.Printf("message: id=%s user=%s text=%q ts=%s\n",
					ev.Message.ID, ev.Message.Sender.Name, ev.Message.Body, ev.Message.CreatedAt.Format(time.RFC3339))
				if ev.Message.Body == *text {
					return nil
				}
			}
		}
	}
}

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// frame mirrors the daemon's stream envelope.
type frame struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type wiiEvent struct {
	Target  string          `json:"target"`
	Session string          `json:"session"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

func main() {
	var (
		wsURL   = flag.String("ws", "ws://127.0.0.1:3002/ws", "wiimoterd event stream URL")
		quiet   = flag.Bool("quiet", false, "Hide wiiAllData events")
		rawMode = flag.Bool("raw", false, "Print frames unparsed")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// Mutex to protect concurrent writes to websocket
	var writeMu sync.Mutex

	// The daemon pings every 20s; answering pongs keeps our deadline fresh.
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			if *rawMode {
				fmt.Printf("%s\n", message)
				continue
			}
			handleFrame(message, *quiet)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// handleFrame prints one stream frame.
func handleFrame(message []byte, quiet bool) {
	var f frame
	if err := json.Unmarshal(message, &f); err != nil {
		fmt.Printf("[TEXT] %s\n", message)
		return
	}

	switch f.Type {
	case "wii_event":
		var ev wiiEvent
		if err := json.Unmarshal(f.Data, &ev); err != nil {
			fmt.Printf("[WII] %s\n", f.Data)
			return
		}
		if quiet && ev.Name == "wiiAllData" {
			return
		}
		if len(ev.Payload) == 0 {
			fmt.Printf("[WII] %-10s %s\n", ev.Target, ev.Name)
			return
		}
		fmt.Printf("[WII] %-10s %-20s %s\n", ev.Target, ev.Name, ev.Payload)

	case "session_started", "session_stopped":
		fmt.Printf("[SESSION] %s %s\n", f.Type, f.Data)

	case "status_init":
		fmt.Printf("[STATUS] %s\n", f.Data)

	default:
		fmt.Printf("[%s] %s\n", f.Type, f.Data)
	}
}

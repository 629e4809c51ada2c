// Command rugsdatactl is a WebSocket smoke-test client: it dials
// rugsdatad's own /api/ws/stream and prints each frame to the console,
// for verifying a running daemon's broadcast output without a browser.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	addr := flag.String("addr", "localhost:8001", "rugsdatad host:port")
	verbose := flag.Bool("verbose", false, "print full frame JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/api/ws/stream"}
	logger.Info("connecting", "url", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Error("dial failed", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	counts := make(map[string]int)
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logger.Info("frame counts", "counts", counts)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Error("read failed", "error", err)
			return
		}

		var frame map[string]any
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		frameType, _ := frame["type"].(string)
		counts[frameType]++

		if *verbose {
			pretty, _ := json.MarshalIndent(frame, "", "  ")
			fmt.Printf("[%s] %s\n", frameType, pretty)
		} else {
			fmt.Printf("[%s] %v\n", frameType, frame["ts"])
		}
	}
}

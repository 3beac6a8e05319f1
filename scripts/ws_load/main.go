// Command ws_load drives the server with many concurrent chat sessions:
// it registers N users, logs them in, and has each one send timestamped
// text frames over its own room's WebSocket for a fixed duration.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/sync/errgroup"
)

type frame struct {
	Type     string `json:"type"`
	SendTime string `json:"send_time"`
	Text     string `json:"text"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_load: %v", err)
		os.Exit(1)
	}
}

func run() error {
	base := flag.String("base", "http://localhost:8080", "server base URL")
	users := flag.Int("users", 100, "number of concurrent clients")
	prefix := flag.String("prefix", "loaduser", "username prefix")
	duration := flag.Duration("duration", time.Minute, "how long each client sends")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens := make([]string, *users)
	for i := 0; i < *users; i++ {
		username := fmt.Sprintf("%s%d", *prefix, i)
		if err := register(ctx, *base, username); err != nil {
			return fmt.Errorf("register %s: %w", username, err)
		}
		token, err := login(ctx, *base, username)
		if err != nil {
			return fmt.Errorf("login %s: %w", username, err)
		}
		tokens[i] = token
	}

	wsBase := strings.Replace(*base, "http", "ws", 1)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < *users; i++ {
		username := fmt.Sprintf("%s%d", *prefix, i)
		token := tokens[i]
		g.Go(func() error {
			return sendMessages(ctx, wsBase, username, token, *duration)
		})
	}
	return g.Wait()
}

func register(ctx context.Context, base, username string) error {
	body, _ := json.Marshal(map[string]string{
		"username": username,
		"password": "pass123",
		"email":    "load@example.com",
		"name":     "load",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/register", strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 406 means the user survives from a previous run; login still works.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotAcceptable {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func login(ctx context.Context, base, username string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", "pass123")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, data)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", err
	}
	return payload.AccessToken, nil
}

func sendMessages(ctx context.Context, wsBase, username, token string, duration time.Duration) error {
	addr := fmt.Sprintf("%s/ws/%s?token=%s", wsBase, username, url.QueryEscape(token))
	conn, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		sendTime := time.Now().UTC().Format(time.RFC3339)
		err := wsjson.Write(ctx, conn, frame{
			Type:     "text",
			SendTime: sendTime,
			Text:     "send message " + sendTime,
		})
		if err != nil {
			return fmt.Errorf("send: %w", err)
		}

		if _, _, err := conn.Read(ctx); err != nil {
			return fmt.Errorf("read reply: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(100+rand.Intn(900)) * time.Millisecond):
		}
	}
	return nil
}
